package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spatalkback/talkback/internal/captcha"
	"github.com/spatalkback/talkback/internal/database/models"
	"github.com/spatalkback/talkback/internal/database/repository"
	"github.com/spatalkback/talkback/internal/database/service"
	"github.com/spatalkback/talkback/internal/storage"
	"github.com/spatalkback/talkback/internal/testutil"
	"github.com/spatalkback/talkback/internal/worker"
)

// Password hash for "password" (bcrypt)
const validPasswordHash = "$2a$10$92IXUNpkjO0rOQ5byMi.Ye4oKoEa3Ro9llC/.og/at2.uheWG/igi"

type authFixture struct {
	svc       service.AuthService
	userRepo  *testutil.MockUserRepository
	tokenRepo *testutil.MockRefreshTokenRepository
	files     *testutil.MockStorage
	captchas  captcha.Store
	pool      *worker.Pool
}

func newAuthFixture(t *testing.T) *authFixture {
	f := &authFixture{
		userRepo:  new(testutil.MockUserRepository),
		tokenRepo: new(testutil.MockRefreshTokenRepository),
		files:     new(testutil.MockStorage),
		captchas:  captcha.NewMemoryStore(),
		pool:      worker.NewPool(testutil.TestLogger()),
	}
	f.svc = service.NewAuthService(f.userRepo, f.tokenRepo, f.captchas, f.files, f.pool,
		testutil.TestConfig(), testutil.TestLogger())
	return f
}

// drain waits for background cleanup, then checks every mock
func (f *authFixture) drain(t *testing.T) {
	f.pool.Shutdown(time.Second)
	f.userRepo.AssertExpectations(t)
	f.tokenRepo.AssertExpectations(t)
	f.files.AssertExpectations(t)
}

func (f *authFixture) issue(t *testing.T, purpose captcha.Purpose, key, text string) {
	require.NoError(t, f.captchas.Save(context.Background(), purpose, key, text, time.Minute))
}

func TestAuthService_NewCaptcha(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.NewCaptcha(ctx, captcha.PurposeLogin)
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.Key)
	assert.True(t, strings.HasPrefix(challenge.Image, "data:image/png;base64,"))

	text, err := f.captchas.Take(ctx, captcha.PurposeLogin, challenge.Key)
	require.NoError(t, err)
	assert.Len(t, text, 6)
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name        string
		input       service.LoginInput
		setupMocks  func(*testutil.MockUserRepository, *testutil.MockRefreshTokenRepository)
		wantErr     error
		checkTokens bool
	}{
		{
			name:  "success",
			input: service.LoginInput{Username: "alice", Password: "password", Captcha: "abc234", CaptchaKey: "k"},
			setupMocks: func(userRepo *testutil.MockUserRepository, tokenRepo *testutil.MockRefreshTokenRepository) {
				userRepo.On("FindByUsername", "alice").Return(&models.User{ID: 1, Username: "alice", Password: validPasswordHash}, nil)
				tokenRepo.On("Create", mock.AnythingOfType("*models.RefreshToken")).Return(nil)
			},
			checkTokens: true,
		},
		{
			name:    "missing captcha",
			input:   service.LoginInput{Username: "alice", Password: "password", CaptchaKey: "k"},
			wantErr: service.ErrCaptchaRequired,
		},
		{
			name:    "unknown captcha key",
			input:   service.LoginInput{Username: "alice", Password: "password", Captcha: "ABC234", CaptchaKey: "other"},
			wantErr: service.ErrCaptchaRequired,
		},
		{
			name:    "wrong captcha",
			input:   service.LoginInput{Username: "alice", Password: "password", Captcha: "ZZZZZZ", CaptchaKey: "k"},
			wantErr: service.ErrInvalidCaptcha,
		},
		{
			name:  "user not found",
			input: service.LoginInput{Username: "nobody", Password: "password", Captcha: "ABC234", CaptchaKey: "k"},
			setupMocks: func(userRepo *testutil.MockUserRepository, tokenRepo *testutil.MockRefreshTokenRepository) {
				userRepo.On("FindByUsername", "nobody").Return(nil, repository.ErrUserNotFound)
			},
			wantErr: service.ErrInvalidCredentials,
		},
		{
			name:  "wrong password",
			input: service.LoginInput{Username: "alice", Password: "wrong", Captcha: "ABC234", CaptchaKey: "k"},
			setupMocks: func(userRepo *testutil.MockUserRepository, tokenRepo *testutil.MockRefreshTokenRepository) {
				userRepo.On("FindByUsername", "alice").Return(&models.User{ID: 1, Password: validPasswordHash}, nil)
			},
			wantErr: service.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.issue(t, captcha.PurposeLogin, "k", "ABC234")
			if tt.setupMocks != nil {
				tt.setupMocks(f.userRepo, f.tokenRepo)
			}

			tokens, err := f.svc.Login(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tokens)
			} else {
				require.NoError(t, err)
				if tt.checkTokens {
					assert.NotEmpty(t, tokens.AccessToken)
					assert.NotEmpty(t, tokens.RefreshToken)
					assert.Equal(t, int64(900), tokens.ExpiresIn)
				}
			}
			f.drain(t)
		})
	}
}

func TestAuthService_CaptchaIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	f.issue(t, captcha.PurposeLogin, "k", "ABC234")
	ctx := context.Background()

	_, err := f.svc.Login(ctx, service.LoginInput{Username: "alice", Password: "password", Captcha: "WRONG2", CaptchaKey: "k"})
	assert.ErrorIs(t, err, service.ErrInvalidCaptcha)

	// The right answer no longer works once the challenge was consumed
	_, err = f.svc.Login(ctx, service.LoginInput{Username: "alice", Password: "password", Captcha: "ABC234", CaptchaKey: "k"})
	assert.ErrorIs(t, err, service.ErrCaptchaRequired)

	// A register challenge cannot answer a login
	f.issue(t, captcha.PurposeRegister, "r", "ABC234")
	_, err = f.svc.Login(ctx, service.LoginInput{Username: "alice", Password: "password", Captcha: "ABC234", CaptchaKey: "r"})
	assert.ErrorIs(t, err, service.ErrCaptchaRequired)
	f.drain(t)
}

func TestAuthService_Register(t *testing.T) {
	photo := func() *storage.Upload {
		return &storage.Upload{Reader: bytes.NewReader([]byte("png")), Size: 3, ContentType: "image/png", Ext: ".png"}
	}

	tests := []struct {
		name       string
		input      service.RegisterInput
		setupMocks func(*authFixture)
		wantErr    error
		wantFields map[string]string
		check      func(*testing.T, *models.User)
	}{
		{
			name: "success with profile",
			input: service.RegisterInput{
				Username: "alice", Email: "alice@example.com", Password: "secret",
				HomePage: "https://alice.example.com", Photo: photo(),
			},
			setupMocks: func(f *authFixture) {
				f.userRepo.On("FindByUsername", "alice").Return(nil, repository.ErrUserNotFound)
				f.userRepo.On("FindByEmail", "alice@example.com").Return(nil, repository.ErrUserNotFound)
				f.files.On("Save", mock.Anything, mock.MatchedBy(func(name string) bool {
					return strings.HasPrefix(name, "user_photos/") && strings.HasSuffix(name, ".png")
				}), mock.Anything, int64(3), "image/png").Return("/media/user_photos/a.png", nil)
				f.userRepo.On("Create", mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
					args.Get(0).(*models.User).ID = 7
				}).Return(nil)
			},
			check: func(t *testing.T, user *models.User) {
				assert.Equal(t, uint(7), user.ID)
				assert.NotEqual(t, "secret", user.Password)
				require.NotNil(t, user.Profile)
				assert.Equal(t, "/media/user_photos/a.png", *user.Profile.Photo)
				assert.Equal(t, "https://alice.example.com", *user.Profile.HomePage)
			},
		},
		{
			name:  "duplicate username and email",
			input: service.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret"},
			setupMocks: func(f *authFixture) {
				f.userRepo.On("FindByUsername", "alice").Return(&models.User{ID: 1}, nil)
				f.userRepo.On("FindByEmail", "alice@example.com").Return(&models.User{ID: 1}, nil)
			},
			wantFields: map[string]string{
				"username": "A user with that username already exists.",
				"email":    "A user with that email already exists.",
			},
		},
		{
			name:  "invalid fields",
			input: service.RegisterInput{Username: "", Email: "not-an-email", Password: "", HomePage: "ftp://x"},
			wantFields: map[string]string{
				"username":          "This field is required.",
				"email":             "Enter a valid email address.",
				"password":          "This field is required.",
				"profile.home_page": "Enter a valid URL.",
			},
		},
		{
			name:  "database failure removes stored photo",
			input: service.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret", Photo: photo()},
			setupMocks: func(f *authFixture) {
				f.userRepo.On("FindByUsername", "bob").Return(nil, repository.ErrUserNotFound)
				f.userRepo.On("FindByEmail", "bob@example.com").Return(nil, repository.ErrUserNotFound)
				f.files.On("Save", mock.Anything, mock.Anything, mock.Anything, int64(3), "image/png").Return("/media/user_photos/b.png", nil)
				f.userRepo.On("Create", mock.Anything).Return(errors.New("db down"))
				f.files.On("Delete", mock.Anything, "/media/user_photos/b.png").Return(nil)
			},
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.issue(t, captcha.PurposeRegister, "k", "XYZ789")
			if tt.setupMocks != nil {
				tt.setupMocks(f)
			}

			input := tt.input
			input.Captcha = "xyz789"
			input.CaptchaKey = "k"
			user, err := f.svc.Register(context.Background(), input)

			switch {
			case tt.wantFields != nil:
				verr, ok := service.AsValidationError(err)
				require.True(t, ok, "expected validation error, got %v", err)
				assert.Equal(t, tt.wantFields, verr.Fields)
				assert.Nil(t, user)
			case tt.wantErr != nil:
				require.Error(t, err)
				assert.Equal(t, tt.wantErr.Error(), err.Error())
				assert.Nil(t, user)
			default:
				require.NoError(t, err)
				tt.check(t, user)
			}
			f.drain(t)
		})
	}
}

func TestAuthService_RegisterRequiresRegisterCaptcha(t *testing.T) {
	f := newAuthFixture(t)
	f.issue(t, captcha.PurposeLogin, "k", "XYZ789")

	_, err := f.svc.Register(context.Background(), service.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret",
		Captcha: "XYZ789", CaptchaKey: "k",
	})
	assert.ErrorIs(t, err, service.ErrCaptchaRequired)
	f.drain(t)
}

func TestAuthService_RefreshToken(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*testutil.MockRefreshTokenRepository)
		wantErr    error
	}{
		{
			name: "success rotates the token",
			setupMocks: func(tokenRepo *testutil.MockRefreshTokenRepository) {
				tokenRepo.On("FindByToken", "old").Return(&models.RefreshToken{UserID: 3, Token: "old"}, nil)
				tokenRepo.On("RevokeToken", "old").Return(nil)
				tokenRepo.On("Create", mock.AnythingOfType("*models.RefreshToken")).Return(nil)
			},
		},
		{
			name: "unknown token",
			setupMocks: func(tokenRepo *testutil.MockRefreshTokenRepository) {
				tokenRepo.On("FindByToken", "old").Return(nil, repository.ErrTokenNotFound)
			},
			wantErr: service.ErrInvalidToken,
		},
		{
			name: "concurrent rotation loses",
			setupMocks: func(tokenRepo *testutil.MockRefreshTokenRepository) {
				tokenRepo.On("FindByToken", "old").Return(&models.RefreshToken{UserID: 3, Token: "old"}, nil)
				tokenRepo.On("RevokeToken", "old").Return(repository.ErrTokenNotFound)
			},
			wantErr: service.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			tt.setupMocks(f.tokenRepo)

			tokens, err := f.svc.RefreshToken("old")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tokens)
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, "old", tokens.RefreshToken)

				userID, err := f.svc.ValidateAccessToken(tokens.AccessToken)
				require.NoError(t, err)
				assert.Equal(t, uint(3), userID)
			}
			f.drain(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	f.tokenRepo.On("RevokeToken", "good").Return(nil)
	f.tokenRepo.On("RevokeToken", "bad").Return(repository.ErrTokenNotFound)

	assert.NoError(t, f.svc.Logout("good"))
	assert.ErrorIs(t, f.svc.Logout("bad"), service.ErrInvalidToken)
	f.drain(t)
}

func TestAuthService_ValidateAccessToken(t *testing.T) {
	f := newAuthFixture(t)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := f.svc.ValidateAccessToken(token)
		assert.ErrorIs(t, err, service.ErrInvalidToken)
	}
}
