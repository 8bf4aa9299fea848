package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/spatalkback/talkback/internal/captcha"
	"github.com/spatalkback/talkback/internal/config"
	"github.com/spatalkback/talkback/internal/database/models"
	"github.com/spatalkback/talkback/internal/database/repository"
	"github.com/spatalkback/talkback/internal/storage"
	"github.com/spatalkback/talkback/internal/worker"
)

// AuthService defines the interface for authentication business logic
type AuthService interface {
	NewCaptcha(ctx context.Context, purpose captcha.Purpose) (*Challenge, error)
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*TokenPair, error)
	RefreshToken(refreshToken string) (*TokenPair, error)
	Logout(refreshToken string) error
	ValidateAccessToken(tokenString string) (uint, error)
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Challenge is an issued captcha; Key identifies it when the answer comes back
type Challenge struct {
	Key   string
	Image string
}

// LoginInput is the login form
type LoginInput struct {
	Username   string
	Password   string
	Captcha    string
	CaptchaKey string
}

// RegisterInput is the register form; HomePage and Photo are optional
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	HomePage   string
	Photo      *storage.Upload
	Captcha    string
	CaptchaKey string
}

type authService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	captchas         captcha.Store
	attachments      *attachments
	jwtSecret        string
	cfg              *config.Config
	logger           *slog.Logger
}

// NewAuthService creates a new authentication service instance
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	captchas captcha.Store,
	files storage.Storage,
	pool *worker.Pool,
	cfg *config.Config,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		captchas:         captchas,
		attachments:      &attachments{files: files, pool: pool, logger: logger},
		jwtSecret:        cfg.JWTSecret,
		cfg:              cfg,
		logger:           logger,
	}
}

func (s *authService) NewCaptcha(ctx context.Context, purpose captcha.Purpose) (*Challenge, error) {
	text := captcha.GenerateText(int(s.cfg.CaptchaLength))
	image, err := captcha.RenderImage(text)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to render captcha", "error", err)
		return nil, err
	}

	key := uuid.NewString()
	ttl := time.Duration(s.cfg.CaptchaTTL) * time.Second
	if err := s.captchas.Save(ctx, purpose, key, text, ttl); err != nil {
		s.logger.Error("❌ [AuthService] Failed to store captcha", "error", err)
		return nil, err
	}

	s.logger.Debug("🧩 [AuthService] Captcha issued", "purpose", purpose, "key", key)
	return &Challenge{Key: key, Image: image}, nil
}

// verifyCaptcha consumes the stored challenge whatever the outcome
func (s *authService) verifyCaptcha(ctx context.Context, purpose captcha.Purpose, key, answer string) error {
	if strings.TrimSpace(answer) == "" || key == "" {
		return ErrCaptchaRequired
	}

	stored, err := s.captchas.Take(ctx, purpose, key)
	if errors.Is(err, captcha.ErrNotFound) {
		return ErrCaptchaRequired
	}
	if err != nil {
		s.logger.Error("❌ [AuthService] Captcha store error", "error", err)
		return err
	}

	if !captcha.Validate(answer, stored) {
		s.logger.Warn("⚠️ [AuthService] Captcha mismatch", "purpose", purpose)
		return ErrInvalidCaptcha
	}
	return nil
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	s.logger.Info("📝 [AuthService] Registration attempt", "email", input.Email, "username", input.Username)

	if err := s.verifyCaptcha(ctx, captcha.PurposeRegister, input.CaptchaKey, input.Captcha); err != nil {
		return nil, err
	}

	verr := validateRegistration(input)
	if err := s.checkTaken(input, verr); err != nil {
		return nil, err
	}
	if !verr.empty() {
		s.logger.Warn("⚠️ [AuthService] Registration rejected", "fields", verr.Fields)
		return nil, verr
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return nil, err
	}

	photo, err := s.attachments.save(ctx, dirUserPhotos, input.Photo)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to store profile photo", "error", err)
		return nil, err
	}

	profile := &models.Profile{Photo: photo}
	if home := strings.TrimSpace(input.HomePage); home != "" {
		profile.HomePage = &home
	}

	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: string(hashedPassword),
		Profile:  profile,
	}

	if err := s.userRepo.Create(user); err != nil {
		s.logger.Error("❌ [AuthService] Failed to create user", "error", err)
		s.attachments.discard(deref(photo))
		return nil, err
	}

	s.logger.Info("✅ [AuthService] User registered successfully", "user_id", user.ID)
	return user, nil
}

func validateRegistration(input RegisterInput) *ValidationError {
	verr := &ValidationError{}
	if strings.TrimSpace(input.Username) == "" {
		verr.add("username", "This field is required.")
	}
	if strings.TrimSpace(input.Email) == "" {
		verr.add("email", "This field is required.")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		verr.add("email", "Enter a valid email address.")
	}
	if input.Password == "" {
		verr.add("password", "This field is required.")
	}
	if home := strings.TrimSpace(input.HomePage); home != "" {
		u, err := url.ParseRequestURI(home)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			verr.add("profile.home_page", "Enter a valid URL.")
		}
	}
	return verr
}

// checkTaken adds a field error for a username or email already in use
func (s *authService) checkTaken(input RegisterInput, verr *ValidationError) error {
	if _, ok := verr.Fields["username"]; !ok {
		_, err := s.userRepo.FindByUsername(input.Username)
		switch {
		case err == nil:
			verr.add("username", "A user with that username already exists.")
		case !errors.Is(err, repository.ErrUserNotFound):
			s.logger.Error("❌ [AuthService] Database error checking username", "error", err)
			return err
		}
	}

	if _, ok := verr.Fields["email"]; !ok {
		_, err := s.userRepo.FindByEmail(input.Email)
		switch {
		case err == nil:
			verr.add("email", "A user with that email already exists.")
		case !errors.Is(err, repository.ErrUserNotFound):
			s.logger.Error("❌ [AuthService] Database error checking email", "error", err)
			return err
		}
	}
	return nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	s.logger.Info("🔐 [AuthService] Login attempt", "username", input.Username)

	if err := s.verifyCaptcha(ctx, captcha.PurposeLogin, input.CaptchaKey, input.Captcha); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] User not found", "username", input.Username)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		s.logger.Warn("⚠️ [AuthService] Invalid password", "username", input.Username)
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.generateTokenPair(user.ID)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate tokens", "error", err)
		return nil, err
	}

	s.logger.Info("✅ [AuthService] User logged in successfully", "user_id", user.ID)
	return tokens, nil
}

func (s *authService) RefreshToken(refreshToken string) (*TokenPair, error) {
	s.logger.Info("🔄 [AuthService] Token refresh attempt")

	storedToken, err := s.refreshTokenRepo.FindByToken(refreshToken)
	if err != nil {
		s.logger.Warn("⚠️ [AuthService] Invalid refresh token", "error", err)
		return nil, ErrInvalidToken
	}

	// Revoke first so a token can only be rotated once
	if err := s.refreshTokenRepo.RevokeToken(refreshToken); err != nil {
		s.logger.Warn("⚠️ [AuthService] Refresh token already used", "error", err)
		return nil, ErrInvalidToken
	}

	tokens, err := s.generateTokenPair(storedToken.UserID)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate new tokens", "error", err)
		return nil, err
	}

	s.logger.Info("✅ [AuthService] Token refreshed successfully", "user_id", storedToken.UserID)
	return tokens, nil
}

func (s *authService) Logout(refreshToken string) error {
	s.logger.Info("👋 [AuthService] Logout attempt")

	if err := s.refreshTokenRepo.RevokeToken(refreshToken); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			s.logger.Warn("⚠️ [AuthService] Token not found for logout")
			return ErrInvalidToken
		}
		return err
	}

	s.logger.Info("✅ [AuthService] User logged out successfully")
	return nil
}

func (s *authService) ValidateAccessToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != "access" {
		return 0, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrInvalidToken
	}

	return uint(userID), nil
}

// generateTokenPair creates both access and refresh tokens
func (s *authService) generateTokenPair(userID uint) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateAndStoreRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.cfg.AccessTokenExpiration,
	}, nil
}

func (s *authService) generateAccessToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"type":    "access",
		"exp":     now.Add(time.Duration(s.cfg.AccessTokenExpiration) * time.Second).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) generateAndStoreRefreshToken(userID uint) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	tokenString := base64.URLEncoding.EncodeToString(tokenBytes)

	refreshToken := &models.RefreshToken{
		UserID:    userID,
		Token:     tokenString,
		ExpiresAt: time.Now().Add(time.Duration(s.cfg.RefreshTokenExpiration) * time.Second),
	}

	if err := s.refreshTokenRepo.Create(refreshToken); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return tokenString, nil
}
