package main

import (
	"context"
	"log"
	"time"

	"ip-vault-api/config"
	"ip-vault-api/database"
	authapi "ip-vault-api/internal/api/auth"
	routes "ip-vault-api/internal/app/http"
	"ip-vault-api/internal/detection"
	"ip-vault-api/internal/infra/objstore"
	"ip-vault-api/internal/infra/serpapi"
	"ip-vault-api/internal/infra/stripegateway"
	"ip-vault-api/internal/purchase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()

	db, err := database.Connect(config.DB_URL)
	if err != nil {
		log.Fatal(err)
	}

	assetStore, err := objstore.NewClient(context.Background(), objstore.Config{
		Region:          config.S3_REGION,
		Bucket:          config.S3_BUCKET,
		EndpointURL:     config.S3_ENDPOINT,
		AccessKeyID:     config.S3_ACCESS_KEY,
		SecretAccessKey: config.S3_SECRET_KEY,
	})
	if err != nil {
		log.Fatal(err)
	}

	gateway := stripegateway.New(config.STRIPE_SECRET_KEY, config.STRIPE_WEBHOOK_SECRET)
	purchases := purchase.New(db, gateway, config.FRONTEND_SUCCESS_URL, config.FRONTEND_CANCEL_URL)
	detections := detection.New(db, serpapi.NewClient(config.SERP_API_KEY))

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		DB:         db,
		Purchases:  purchases,
		Detections: detections,
		Assets:     assetStore,
		Mailer:     authapi.SMTPMailer{},
	})

	if err := r.Run(":" + config.PORT); err != nil {
		log.Fatal(err)
	}
}
