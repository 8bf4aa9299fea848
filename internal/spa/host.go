// Package spa serves the single page application shell and runs its startup.
package spa

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/spatalkback/talkback/pkg/endpoints"
)

//go:embed web
var webFS embed.FS

// ErrNotMounted is returned by the shell handler before Mount ran.
var ErrNotMounted = errors.New("application is not mounted")

// Config is what the browser side needs to know at runtime.
type Config struct {
	APIBaseURL string
	Title      string
}

// runtimeConfig is published as window.__APP_CONFIG__.
type runtimeConfig struct {
	APIBaseURL string            `json:"apiBaseUrl"`
	MountID    string            `json:"mountId"`
	Endpoints  map[string]string `json:"endpoints"`
	Lightbox   *LightboxOptions  `json:"lightbox"`
}

// Host renders the shell page and serves the static bundle. It is the root
// Mounter and the Lightbox of the server-side App.
type Host struct {
	cfg    Config
	logger *slog.Logger
	tmpl   *template.Template
	assets http.Handler

	mu       sync.RWMutex
	mountID  string
	lightbox *LightboxOptions
	shell    []byte
	script   []byte
}

func NewHost(cfg Config, logger *slog.Logger) (*Host, error) {
	if cfg.Title == "" {
		cfg.Title = "Talk Back"
	}

	tmpl, err := template.ParseFS(webFS, "web/index.html")
	if err != nil {
		return nil, err
	}

	assets, err := fs.Sub(webFS, "web/assets")
	if err != nil {
		return nil, err
	}

	return &Host{
		cfg:    cfg,
		logger: logger,
		tmpl:   tmpl,
		assets: http.StripPrefix("/assets/", http.FileServer(http.FS(assets))),
	}, nil
}

// Configure records the lightbox options published to the browser.
func (h *Host) Configure(opts LightboxOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lightbox = &opts
	return nil
}

// Mount renders the shell page with its mount element named mountID.
func (h *Host) Mount(mountID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if mountID == "" {
		return ErrEmptyMountID
	}

	var page bytes.Buffer
	err := h.tmpl.Execute(&page, map[string]any{
		"Title":    h.cfg.Title,
		"MountID":  mountID,
		"Lightbox": h.lightbox != nil,
	})
	if err != nil {
		return err
	}

	script, err := json.Marshal(runtimeConfig{
		APIBaseURL: h.cfg.APIBaseURL,
		MountID:    mountID,
		Endpoints:  endpoints.New(h.cfg.APIBaseURL).Table(),
		Lightbox:   h.lightbox,
	})
	if err != nil {
		return err
	}

	h.mountID = mountID
	h.shell = page.Bytes()
	h.script = append(append([]byte("window.__APP_CONFIG__ = "), script...), ";\n"...)

	h.logger.Info("🖥️ [SPA] Shell mounted", "mount_id", mountID, "lightbox", h.lightbox != nil)
	return nil
}

// MountID returns the id the shell was rendered with, or "" before Mount.
func (h *Host) MountID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mountID
}

// Register adds the shell, runtime config and asset routes to r.
func (h *Host) Register(r gin.IRoutes) {
	r.GET("/", h.Shell)
	r.GET("/app-config.js", h.ConfigScript)
	r.GET("/assets/*filepath", h.Assets)
	r.HEAD("/assets/*filepath", h.Assets)
}

func (h *Host) Shell(c *gin.Context) {
	h.mu.RLock()
	shell := h.shell
	h.mu.RUnlock()

	if shell == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": ErrNotMounted.Error()})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", shell)
}

func (h *Host) ConfigScript(c *gin.Context) {
	h.mu.RLock()
	script := h.script
	h.mu.RUnlock()

	if script == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": ErrNotMounted.Error()})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", script)
}

func (h *Host) Assets(c *gin.Context) {
	h.assets.ServeHTTP(c.Writer, c.Request)
}

// Fallback is the NoRoute handler. Unknown GET paths outside the API and
// media trees get the shell so that client-side routes survive a reload.
func (h *Host) Fallback(reserved ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range reserved {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
				return
			}
		}

		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}

		h.Shell(c)
	}
}
