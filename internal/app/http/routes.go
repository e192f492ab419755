package routes

import (
	assetsapi "ip-vault-api/internal/api/assets"
	authapi "ip-vault-api/internal/api/auth"
	detectionapi "ip-vault-api/internal/api/detection"
	licensingapi "ip-vault-api/internal/api/licensing"
	marketplaceapi "ip-vault-api/internal/api/marketplace"
	stripewebhooks "ip-vault-api/internal/api/stripewebhook"
	usersapi "ip-vault-api/internal/api/users"
	"ip-vault-api/internal/app/http/middleware"
	"ip-vault-api/internal/detection"
	"ip-vault-api/internal/infra/objstore"
	"ip-vault-api/internal/purchase"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the process-wide dependencies, constructed once in main and
// passed into the handlers that need them.
type Deps struct {
	DB         *gorm.DB
	Purchases  *purchase.Service
	Detections *detection.Service
	Assets     objstore.Store
	Mailer     authapi.Mailer
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	authHandler := authapi.NewHandler(deps.DB, deps.Mailer)
	usersHandler := usersapi.NewHandler(deps.DB)
	assetsHandler := assetsapi.NewHandler(deps.DB, deps.Assets)
	licensingHandler := licensingapi.NewHandler(deps.DB)
	marketplaceHandler := marketplaceapi.NewHandler(deps.DB, deps.Purchases)
	webhookHandler := stripewebhooks.NewHandler(deps.Purchases)
	detectionHandler := detectionapi.NewHandler(deps.Detections)

	// Raw-body route; must stay outside the sanitizing middleware so the
	// signature check sees the exact bytes the gateway sent.
	r.POST("/api/stripe-webhook", webhookHandler.HandleWebhook)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public marketplace browsing
	r.GET("/api/marketplace", marketplaceHandler.ListAssets)
	r.GET("/api/marketplace/:id", marketplaceHandler.GetAssetByID)

	public := r.Group("/api/auth")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.POST("/register", authHandler.Register)
	public.POST("/verify-otp", authHandler.VerifyOTP)
	public.POST("/resend-otp", authHandler.ResendOTP)
	public.POST("/login", authHandler.Login)
	public.POST("/refresh", authHandler.Refresh)
	public.POST("/logout", authHandler.Logout)
	public.POST("/forgot-password", authHandler.ForgotPassword)
	public.POST("/reset-password", authHandler.ResetPassword)
	public.GET("/google", authHandler.GoogleStart)
	public.GET("/google/callback", authHandler.GoogleCallback)

	// Authenticated
	auth := r.Group("/api")
	auth.Use(middleware.AuthMiddleware())

	auth.GET("/user/me", usersHandler.GetCurrentUser)
	auth.PUT("/user/me", usersHandler.UpdateCurrentUser)

	auth.POST("/asset/upload", assetsHandler.Upload)
	auth.GET("/asset", assetsHandler.ListMine)
	auth.GET("/asset/:id", assetsHandler.GetByID)
	auth.PUT("/asset/:id", assetsHandler.Update)
	auth.DELETE("/asset/:id", assetsHandler.Delete)

	auth.POST("/license/asset/:assetId/plans", licensingHandler.CreatePlan)
	auth.GET("/license/asset/:assetId/plans", licensingHandler.ListPlansByAsset)
	auth.GET("/license/mine", licensingHandler.ListMine)
	auth.GET("/license/:id", licensingHandler.GetByID)

	auth.POST("/marketplace/buy", marketplaceHandler.PurchaseAsset)
	auth.POST("/marketplace/create-checkout-session", marketplaceHandler.CreateCheckoutSession)

	auth.POST("/detection/run", detectionHandler.Run)
	auth.GET("/detection", detectionHandler.ListMine)
	auth.GET("/detection/:id", detectionHandler.GetByID)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/licenses", licensingHandler.ListAll)
}
