package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Captcha purposes.
const (
	CaptchaLogin    = "login"
	CaptchaRegister = "register"
)

// Captcha fetches a new challenge for purpose (CaptchaLogin or CaptchaRegister).
func (c *Client) Captcha(ctx context.Context, purpose string) (*Captcha, error) {
	var url string
	switch purpose {
	case CaptchaLogin:
		url = c.endpoints.Login
	case CaptchaRegister:
		url = c.endpoints.Register
	default:
		return nil, fmt.Errorf("unknown captcha purpose %q", purpose)
	}

	var out Captcha
	if err := c.do(ctx, http.MethodGet, url, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials and a solved captcha for tokens. With a
// TokenStore configured the tokens are saved there, so later requests are
// authenticated without WithToken.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoints.Login, req, &out); err != nil {
		return nil, err
	}

	pair := &TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if err := c.storeTokens(pair); err != nil {
		return pair, err
	}
	return pair, nil
}

// Register creates an account. It returns the registered username.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	form := newForm()
	form.field("username", req.Username)
	form.field("email", req.Email)
	form.field("password", req.Password)
	form.field("captcha", req.Captcha)
	form.field("captcha_key", req.CaptchaKey)
	if req.HomePage != "" {
		form.field("profile.home_page", req.HomePage)
	}
	form.file("profile.photo", req.Photo)

	body, contentType, err := form.close()
	if err != nil {
		return "", err
	}

	var out struct {
		Username string `json:"username"`
	}
	if err := c.do(ctx, http.MethodPost, c.endpoints.Register, body, contentType, &out); err != nil {
		return "", err
	}
	return out.Username, nil
}

// Refresh rotates refresh for a new pair. An empty refresh uses the stored one.
func (c *Client) Refresh(ctx context.Context, refresh string) (*TokenPair, error) {
	refresh, err := c.refreshToken(refresh)
	if err != nil {
		return nil, err
	}

	var out struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoints.Refresh, map[string]string{"refresh": refresh}, &out); err != nil {
		return nil, err
	}

	pair := &TokenPair{AccessToken: out.Access, RefreshToken: out.Refresh}
	if err := c.storeTokens(pair); err != nil {
		return pair, err
	}
	return pair, nil
}

// Logout revokes refresh (or the stored one) and clears the TokenStore.
func (c *Client) Logout(ctx context.Context, refresh string) error {
	refresh, err := c.refreshToken(refresh)
	if err != nil {
		return err
	}

	if err := c.doJSON(ctx, http.MethodPost, c.endpoints.Logout, map[string]string{"refresh": refresh}, nil); err != nil {
		return err
	}
	return c.clearTokens()
}

func (c *Client) refreshToken(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if c.tokens == nil {
		return "", ErrNoToken
	}
	return c.tokens.Get(RefreshTokenKey)
}

func (c *Client) storeTokens(pair *TokenPair) error {
	if c.tokens == nil {
		return nil
	}
	if err := c.tokens.Set(AccessTokenKey, pair.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := c.tokens.Set(RefreshTokenKey, pair.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (c *Client) clearTokens() error {
	if c.tokens == nil {
		return nil
	}
	return errors.Join(c.tokens.Delete(AccessTokenKey), c.tokens.Delete(RefreshTokenKey))
}
