package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a fake API that remembers the last request it saw.
type recorder struct {
	mu      sync.Mutex
	last    *http.Request
	body    []byte
	status  int
	payload string
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	r.last = req.Clone(context.Background())
	r.body = body
	status, payload := r.status, r.payload
	r.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, payload)
}

func (r *recorder) respond(payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payload = payload
}

func (r *recorder) lastRequest() (*http.Request, []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.body
}

func newTestClient(t *testing.T, status int, payload string, opts ...Option) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{status: status, payload: payload}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return c, rec
}

type failingStore struct{}

func (failingStore) Get(string) (string, error) { return "", errors.New("disk on fire") }
func (failingStore) Set(string, string) error   { return errors.New("disk on fire") }
func (failingStore) Delete(string) error        { return errors.New("disk on fire") }

// ==================== AUTHORIZATION HEADER ====================

func TestBearerHeader(t *testing.T) {
	stored := NewMemoryTokenStore()
	require.NoError(t, stored.Set(AccessTokenKey, "from-store"))

	tests := []struct {
		name     string
		store    TokenStore
		ctxToken string
		expected string
	}{
		{"no token anywhere", nil, "", ""},
		{"context token", nil, "from-ctx", "Bearer from-ctx"},
		{"store token", stored, "", "Bearer from-store"},
		{"context wins over store", stored, "from-ctx", "Bearer from-ctx"},
		{"empty store", NewMemoryTokenStore(), "", ""},
		{"unreadable store", failingStore{}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.store != nil {
				opts = append(opts, WithTokenStore(tt.store))
			}
			c, rec := newTestClient(t, http.StatusOK, `{"count":0,"next":null,"previous":null,"results":[]}`, opts...)

			ctx := context.Background()
			if tt.ctxToken != "" {
				ctx = WithToken(ctx, tt.ctxToken)
			}
			_, err := c.ListPosts(ctx, ListPostsOptions{})
			require.NoError(t, err)

			req, _ := rec.lastRequest()
			assert.Equal(t, tt.expected, req.Header.Get("Authorization"))
			if tt.expected == "" {
				_, present := req.Header["Authorization"]
				assert.False(t, present)
			}
		})
	}
}

func TestBearerTransport_DoesNotMutateRequest(t *testing.T) {
	var seen string
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.Header.Get("Authorization")
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("")), Request: r}, nil
	})
	tr := &bearerTransport{base: base}

	req, _ := http.NewRequestWithContext(WithToken(context.Background(), "tok"), http.MethodGet, "http://example.com/", nil)
	_, err := tr.RoundTrip(req)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", seen)
	assert.Empty(t, req.Header.Get("Authorization"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestNew_Validation(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("http://example.com/api", WithHTTPTimeout(0))
	assert.Error(t, err)

	_, err = New("http://example.com/api", WithHTTPClient(nil))
	assert.Error(t, err)

	c, err := New("http://example.com/api/")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/api/posts/42/", c.Endpoints().PostDetail(42))
}

// ==================== AUTH ====================

func TestLogin_StoresTokens(t *testing.T) {
	store := NewMemoryTokenStore()
	c, rec := newTestClient(t, http.StatusOK, `{"access_token":"a1","refresh_token":"r1"}`, WithTokenStore(store))

	pair, err := c.Login(context.Background(), LoginRequest{Username: "alice", Password: "pw", Captcha: "ABC234", CaptchaKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, &TokenPair{AccessToken: "a1", RefreshToken: "r1"}, pair)

	req, body := rec.lastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/login/", req.URL.Path)
	assert.JSONEq(t, `{"username":"alice","password":"pw","captcha":"ABC234","captcha_key":"k"}`, string(body))

	access, err := store.Get(AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "a1", access)
}

func TestLogin_Error(t *testing.T) {
	c, _ := newTestClient(t, http.StatusBadRequest, `{"detail":"Invalid captcha"}`)

	_, err := c.Login(context.Background(), LoginRequest{Username: "alice"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid captcha", apiErr.Detail)
	assert.EqualError(t, err, "api error 400: Invalid captcha")
}

func TestCaptcha(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"captcha_key":"k1","captcha_image":"data:image/png;base64,AA"}`)

	got, err := c.Captcha(context.Background(), CaptchaRegister)
	require.NoError(t, err)
	assert.Equal(t, &Captcha{Key: "k1", Image: "data:image/png;base64,AA"}, got)

	req, _ := rec.lastRequest()
	assert.Equal(t, "/api/register/", req.URL.Path)

	_, err = c.Captcha(context.Background(), "signup")
	assert.Error(t, err)
}

func TestRegister_Multipart(t *testing.T) {
	c, rec := newTestClient(t, http.StatusCreated, `{"detail":"User registered successfully!","username":"alice"}`)

	username, err := c.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "pw",
		HomePage: "https://alice.example.com",
		Photo:    &Attachment{Filename: "me.png", Content: bytes.NewReader([]byte("\x89PNG"))},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	req, body := rec.lastRequest()
	req.Body = io.NopCloser(bytes.NewReader(body))
	require.NoError(t, req.ParseMultipartForm(1<<20))
	assert.Equal(t, "alice@example.com", req.FormValue("email"))
	assert.Equal(t, "https://alice.example.com", req.FormValue("profile.home_page"))
	require.Len(t, req.MultipartForm.File["profile.photo"], 1)
	assert.Equal(t, "me.png", req.MultipartForm.File["profile.photo"][0].Filename)
}

func TestRegister_FieldErrors(t *testing.T) {
	c, _ := newTestClient(t, http.StatusBadRequest, `{"username":"A user with that username already exists.","email":["Enter a valid email address."]}`)

	_, err := c.Register(context.Background(), RegisterRequest{Username: "alice"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "A user with that username already exists.", apiErr.Fields["username"])
	assert.Equal(t, "Enter a valid email address.", apiErr.Fields["email"])
	assert.EqualError(t, err, "api error 400: email: Enter a valid email address.; username: A user with that username already exists.")
}

func TestRefreshAndLogout_UseStoredRefreshToken(t *testing.T) {
	store := NewMemoryTokenStore()
	require.NoError(t, store.Set(RefreshTokenKey, "r1"))
	c, rec := newTestClient(t, http.StatusOK, `{"access":"a2","refresh":"r2"}`, WithTokenStore(store))

	pair, err := c.Refresh(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "a2", pair.AccessToken)

	_, body := rec.lastRequest()
	assert.JSONEq(t, `{"refresh":"r1"}`, string(body))

	rec.respond(`{"detail":"Successfully logged out."}`)
	require.NoError(t, c.Logout(context.Background(), ""))

	req, body := rec.lastRequest()
	assert.Equal(t, "/api/logout/", req.URL.Path)
	assert.JSONEq(t, `{"refresh":"r2"}`, string(body))

	_, err = store.Get(AccessTokenKey)
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = store.Get(RefreshTokenKey)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRefresh_NoToken(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{}`)

	_, err := c.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoToken)
}

// ==================== POSTS & COMMENTS ====================

func TestListPosts_Query(t *testing.T) {
	next := "http://x/api/posts/?page=3"
	c, rec := newTestClient(t, http.StatusOK, `{"count":21,"next":"`+next+`","previous":null,"results":[{"id":1,"text":"hi","user":{"username":"alice"}}]}`)

	page, err := c.ListPosts(context.Background(), ListPostsOptions{Username: "ali", Ascending: true, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 21, page.Count)
	require.NotNil(t, page.Next)
	assert.Equal(t, next, *page.Next)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "alice", page.Results[0].User.Username)

	req, _ := rec.lastRequest()
	assert.Equal(t, "/api/posts/", req.URL.Path)
	assert.Equal(t, "date_order=asc&page=2&page_size=10&username=ali", req.URL.RawQuery)
}

func TestGetPost_NotFound(t *testing.T) {
	c, _ := newTestClient(t, http.StatusNotFound, `{"detail":"Not found."}`)

	_, err := c.GetPost(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestCreatePost(t *testing.T) {
	text := "hello"

	t.Run("json without attachments", func(t *testing.T) {
		c, rec := newTestClient(t, http.StatusCreated, `{"id":5,"text":"hello"}`)

		post, err := c.CreatePost(WithToken(context.Background(), "t"), PostRequest{Text: &text})
		require.NoError(t, err)
		assert.EqualValues(t, 5, post.ID)

		req, body := rec.lastRequest()
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"text":"hello"}`, string(body))
	})

	t.Run("multipart with file", func(t *testing.T) {
		c, rec := newTestClient(t, http.StatusCreated, `{"id":6,"text":"hello","file":"/media/post_files/x.txt"}`)

		post, err := c.CreatePost(WithToken(context.Background(), "t"), PostRequest{
			Text: &text,
			File: &Attachment{Filename: "notes.txt", Content: strings.NewReader("notes")},
		})
		require.NoError(t, err)
		require.NotNil(t, post.File)

		req, body := rec.lastRequest()
		assert.True(t, strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data"))
		assert.Contains(t, string(body), `name="file"; filename="notes.txt"`)
	})
}

func TestDeletePost(t *testing.T) {
	c, rec := newTestClient(t, http.StatusNoContent, ``)

	require.NoError(t, c.DeletePost(WithToken(context.Background(), "t"), 3))

	req, _ := rec.lastRequest()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/api/posts/3/", req.URL.Path)
}

func TestDeletePost_Forbidden(t *testing.T) {
	c, _ := newTestClient(t, http.StatusForbidden, `{"detail":"You do not have permission to perform this action."}`)

	err := c.DeletePost(context.Background(), 3)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateComment_Reply(t *testing.T) {
	c, rec := newTestClient(t, http.StatusCreated, `{"id":9,"post":1,"parent":2,"is_reply":true}`)

	parent := uint(2)
	text := "agreed"
	comment, err := c.CreateComment(context.Background(), CommentRequest{Post: 1, Parent: &parent, Text: &text})
	require.NoError(t, err)
	assert.True(t, comment.IsReply)

	req, body := rec.lastRequest()
	assert.Equal(t, "/api/comments/", req.URL.Path)
	assert.JSONEq(t, `{"post":1,"parent":2,"text":"agreed"}`, string(body))
}

func TestUpdateComment_OmitsPost(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"id":9,"post":1}`)

	text := "edited"
	_, err := c.UpdateComment(context.Background(), 9, CommentRequest{Post: 1, Text: &text})
	require.NoError(t, err)

	req, body := rec.lastRequest()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/api/comments/9/", req.URL.Path)
	assert.JSONEq(t, `{"text":"edited"}`, string(body))
}

func TestPostComments(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `[{"id":1,"post":4},{"id":2,"post":4,"parent":1,"is_reply":true}]`)

	comments, err := c.PostComments(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	req, _ := rec.lastRequest()
	assert.Equal(t, "/api/posts/4/comments/", req.URL.Path)
}

func TestCanceledContext(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetComment(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	req, _ := rec.lastRequest()
	assert.Nil(t, req)
}

// ==================== OPTIONS & STORES ====================

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, _ := newTestClient(t, http.StatusOK, `{"id":1}`, WithDebugLogging(logger))

	_, err := c.GetPost(WithToken(context.Background(), "secret"), 1)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "HTTP request")
	assert.Contains(t, out, "HTTP response")
	assert.Contains(t, out, "Bearer secret")
}

func TestWithHTTPClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithHTTPClient(&http.Client{}), WithHTTPTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = c.GetPost(context.Background(), 1)
	assert.Error(t, err)
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	store := NewFileTokenStore(path)

	_, err := store.Get(AccessTokenKey)
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Set(AccessTokenKey, "a1"))
	require.NoError(t, store.Set(RefreshTokenKey, "r1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened := NewFileTokenStore(path)
	got, err := reopened.Get(AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "a1", got)

	require.NoError(t, reopened.Delete(AccessTokenKey))
	_, err = store.Get(AccessTokenKey)
	assert.ErrorIs(t, err, ErrNoToken)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]string
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, map[string]string{RefreshTokenKey: "r1"}, onDisk)
}

func TestFileTokenStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileTokenStore(path).Get(AccessTokenKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}
