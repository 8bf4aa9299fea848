package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spatalkback/talkback/internal/captcha"
	"github.com/spatalkback/talkback/internal/database/service"
	"github.com/spatalkback/talkback/internal/storage"
)

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	service     service.AuthService
	maxFileSize int64
	logger      *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(service service.AuthService, maxFileSize int64, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:     service,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Request/Response DTOs
type LoginRequest struct {
	Username   string `json:"username" form:"username" binding:"required"`
	Password   string `json:"password" form:"password" binding:"required"`
	Captcha    string `json:"captcha" form:"captcha"`
	CaptchaKey string `json:"captcha_key" form:"captcha_key"`
}

type RegisterRequest struct {
	Username   string `form:"username"`
	Email      string `form:"email"`
	Password   string `form:"password"`
	HomePage   string `form:"profile.home_page"`
	Captcha    string `form:"captcha"`
	CaptchaKey string `form:"captcha_key"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" form:"refresh" binding:"required"`
}

type CaptchaResponse struct {
	CaptchaKey   string `json:"captcha_key"`
	CaptchaImage string `json:"captcha_image"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type RegisterResponse struct {
	Detail   string `json:"detail"`
	Username string `json:"username"`
}

// LoginCaptcha handles GET /login/
func (h *AuthHandler) LoginCaptcha(c *gin.Context) {
	h.issueCaptcha(c, captcha.PurposeLogin)
}

// RegisterCaptcha handles GET /register/
func (h *AuthHandler) RegisterCaptcha(c *gin.Context) {
	h.issueCaptcha(c, captcha.PurposeRegister)
}

func (h *AuthHandler) issueCaptcha(c *gin.Context, purpose captcha.Purpose) {
	challenge, err := h.service.NewCaptcha(c.Request.Context(), purpose)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, CaptchaResponse{
		CaptchaKey:   challenge.Key,
		CaptchaImage: challenge.Image,
	})
}

// Login handles POST /login/
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("⚠️ [AuthHandler] Invalid login request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username and password are required."})
		return
	}

	tokens, err := h.service.Login(c.Request.Context(), service.LoginInput{
		Username:   req.Username,
		Password:   req.Password,
		Captcha:    req.Captcha,
		CaptchaKey: req.CaptchaKey,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Register handles POST /register/ (multipart form)
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("⚠️ [AuthHandler] Invalid registration request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid registration form."})
		return
	}

	photo, err := readUpload(c, "profile.photo", storage.KindImage, h.maxFileSize)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), service.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		HomePage:   req.HomePage,
		Photo:      photo,
		Captcha:    req.Captcha,
		CaptchaKey: req.CaptchaKey,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Detail:   "User registered successfully!",
		Username: user.Username,
	})
}

// RefreshToken handles POST /token/refresh/
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("⚠️ [AuthHandler] Invalid refresh request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"refresh": "This field is required."})
		return
	}

	tokens, err := h.service.RefreshToken(req.Refresh)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		Access:  tokens.AccessToken,
		Refresh: tokens.RefreshToken,
	})
}

// Logout handles POST /logout/
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("⚠️ [AuthHandler] Invalid logout request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"refresh": "This field is required."})
		return
	}

	if err := h.service.Logout(req.Refresh); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Successfully logged out."})
}
