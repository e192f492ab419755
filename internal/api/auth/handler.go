package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"ip-vault-api/internal/domain/users"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const otpTTL = 10 * time.Minute

type Handler struct {
	DB     *gorm.DB
	Mailer Mailer
}

func NewHandler(db *gorm.DB, mailer Mailer) *Handler {
	return &Handler{DB: db, Mailer: mailer}
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}

	var existing users.User
	err := h.DB.Where("email = ?", input.Email).First(&existing).Error
	switch {
	case err == nil && existing.Verified:
		c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered and verified"})
		return
	case err == nil:
		// Unverified re-registration: drop any outstanding OTP and resend.
		if err := h.DB.Where("user_id = ?", existing.ID).Delete(&users.VerificationToken{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset verification"})
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		hashed := string(hashedPassword)
		existing = users.User{
			Name:         input.Name,
			Email:        input.Email,
			Password:     &hashed,
			AuthProvider: "local",
			Role:         "user",
		}
		if err := h.DB.Create(&existing).Error; err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email may already exist"})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return
	}

	if err := h.sendOTP(&existing); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Registration successful. Please verify your email with the OTP sent to you.",
		"user":    gin.H{"id": existing.ID, "name": existing.Name, "email": existing.Email},
	})
}

// POST /api/auth/verify-otp
func (h *Handler) VerifyOTP(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user users.User
	if err := h.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found for provided email"})
		return
	}

	var record users.VerificationToken
	if err := h.DB.Where("user_id = ?", user.ID).First(&record).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "OTP not found or already used"})
		return
	}

	if time.Now().After(record.ExpiresAt) {
		h.DB.Delete(&record)
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP has expired"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.Token), []byte(input.OTP)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP"})
		return
	}

	h.DB.Delete(&record)

	if err := h.DB.Model(&users.User{}).Where("id = ?", user.ID).Update("verified", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify user"})
		return
	}
	user.Verified = true

	h.respondWithTokens(c, &user)
}

// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user users.User
	if err := h.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if !user.Verified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email before logging in"})
		return
	}
	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	h.respondWithTokens(c, &user)
}

// POST /api/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	tokenString, err := c.Cookie("refresh_token")
	if err != nil || tokenString == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.RefreshToken == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token missing"})
			return
		}
		tokenString = body.RefreshToken
	}

	userID, err := parseRefreshToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	var stored users.RefreshToken
	if err := h.DB.Where("token = ?", tokenString).First(&stored).Error; err != nil || stored.UserID != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token not recognized"})
		return
	}

	var user users.User
	if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	h.respondWithTokens(c, &user)
}

// POST /api/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	tokenString, _ := c.Cookie("refresh_token")
	if tokenString == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			tokenString = body.RefreshToken
		}
	}
	if tokenString == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token missing"})
		return
	}

	result := h.DB.Where("token = ?", tokenString).Delete(&users.RefreshToken{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Refresh token not found"})
		return
	}

	setRefreshTokenCookie(c, "")
	c.JSON(http.StatusOK, gin.H{"message": "User logged out successfully"})
}

// POST /api/auth/forgot-password
func (h *Handler) ForgotPassword(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user users.User
	if err := h.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.DB.Where("user_id = ?", user.ID).Delete(&users.PasswordResetToken{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset tokens"})
		return
	}

	token, err := generateResetToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	record := users.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(otpTTL),
	}
	if err := h.DB.Create(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reset token"})
		return
	}

	if err := h.Mailer.Send(user.Email, "Here is your Password Reset Code", fmt.Sprintf("Your reset code is: %s", token)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send reset email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset code sent to email"})
}

// POST /api/auth/reset-password
func (h *Handler) ResetPassword(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}

	var user users.User
	if err := h.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var record users.PasswordResetToken
	if err := h.DB.Where("user_id = ? AND token = ?", user.ID, input.Token).First(&record).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	if time.Now().After(record.ExpiresAt) {
		h.DB.Delete(&record)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token has expired"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	if err := h.DB.Model(&users.User{}).Where("id = ?", user.ID).Update("password", string(hashedPassword)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}
	h.DB.Delete(&record)

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// POST /api/auth/resend-otp
func (h *Handler) ResendOTP(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user users.User
	if err := h.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if user.Verified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already verified"})
		return
	}

	if err := h.DB.Where("user_id = ?", user.ID).Delete(&users.VerificationToken{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset verification"})
		return
	}

	if err := h.sendOTP(&user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code resent"})
}

// sendOTP creates a fresh hashed OTP record and mails the clear-text code.
func (h *Handler) sendOTP(user *users.User) error {
	otp, err := generateOTP()
	if err != nil {
		return err
	}
	hashedOTP, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	record := users.VerificationToken{
		UserID:    user.ID,
		Token:     string(hashedOTP),
		ExpiresAt: time.Now().Add(otpTTL),
	}
	if err := h.DB.Create(&record).Error; err != nil {
		return err
	}

	return h.Mailer.Send(user.Email, "Verify Your Account", fmt.Sprintf("Your verification code is: %s", otp))
}

func (h *Handler) respondWithTokens(c *gin.Context, user *users.User) {
	accessToken, err := issueAccessToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}
	refreshToken, err := issueRefreshToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	// Rotate: one stored refresh token per user.
	rt := users.RefreshToken{UserID: user.ID, Token: refreshToken}
	if err := h.DB.Where(users.RefreshToken{UserID: user.ID}).
		Assign(users.RefreshToken{Token: refreshToken}).
		FirstOrCreate(&rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not store refresh token"})
		return
	}

	setRefreshTokenCookie(c, refreshToken)
	c.JSON(http.StatusOK, gin.H{
		"user":         gin.H{"id": user.ID, "name": user.Name, "email": user.Email, "role": user.Role, "verified": user.Verified},
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}
