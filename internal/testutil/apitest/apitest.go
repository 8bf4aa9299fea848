// Package apitest drives the real router over mocked services.
package apitest

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/spatalkback/talkback/internal/api"
	"github.com/spatalkback/talkback/internal/handler"
	"github.com/spatalkback/talkback/internal/middleware"
	"github.com/spatalkback/talkback/internal/testutil"
	"github.com/spatalkback/talkback/pkg/endpoints"
)

// Relative API paths as seen by a test server.
const (
	LoginEndpoint    = endpoints.APIPrefix + endpoints.LoginPath
	RegisterEndpoint = endpoints.APIPrefix + endpoints.RegisterPath
	RefreshEndpoint  = endpoints.APIPrefix + endpoints.RefreshPath
	LogoutEndpoint   = endpoints.APIPrefix + endpoints.LogoutPath
	PostsEndpoint    = endpoints.APIPrefix + endpoints.PostsPath
	CommentsEndpoint = endpoints.APIPrefix + endpoints.CommentsPath
)

const (
	ValidToken = "valid-token"
	TestUserID = uint(1)
)

// Services bundles the mocked services behind a test router.
type Services struct {
	Auth     *testutil.MockAuthService
	Posts    *testutil.MockPostService
	Comments *testutil.MockCommentService
}

// NewServices returns fresh mocks. ValidToken authenticates as TestUserID and
// every other token is rejected.
func NewServices() *Services {
	auth := new(testutil.MockAuthService)
	auth.On("ValidateAccessToken", ValidToken).Return(TestUserID, nil).Maybe()
	auth.On("ValidateAccessToken", mock.Anything).Return(uint(0), assertErr("invalid token")).Maybe()

	return &Services{
		Auth:     auth,
		Posts:    new(testutil.MockPostService),
		Comments: new(testutil.MockCommentService),
	}
}

// SetupRouter wires the mocked services into the real router.
func SetupRouter(s *Services, opts api.Options) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := testutil.TestConfig()
	logger := testutil.TestLogger()
	if opts.Logger == nil {
		opts.Logger = logger
	}

	return api.SetupRouter(
		handler.NewAuthHandler(s.Auth, cfg.MaxFileSize, logger),
		handler.NewPostHandler(s.Posts, s.Comments, cfg.MaxFileSize, logger),
		handler.NewCommentHandler(s.Comments, cfg.MaxFileSize, logger),
		middleware.NewAuthMiddleware(s.Auth, logger),
		opts,
	)
}

// Do sends a request with an optional JSON body and bearer token.
func Do(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// FormFile is one file part of a multipart request.
type FormFile struct {
	Field    string
	Filename string
	Content  []byte
}

// DoMultipart sends a multipart form with the given fields and files.
func DoMultipart(r http.Handler, method, path string, fields map[string]string, files []FormFile, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for _, f := range files {
		part, _ := mw.CreateFormFile(f.Field, f.Filename)
		part.Write(f.Content)
	}
	mw.Close()

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
