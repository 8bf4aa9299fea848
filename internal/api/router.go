package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spatalkback/talkback/internal/handler"
	"github.com/spatalkback/talkback/internal/metrics"
	"github.com/spatalkback/talkback/internal/middleware"
	"github.com/spatalkback/talkback/internal/spa"
	"github.com/spatalkback/talkback/pkg/endpoints"
)

// Options carries the optional parts of the router.
type Options struct {
	Limiter         middleware.RateLimiter
	LoginDailyLimit int64
	Metrics         *metrics.Metrics // nil disables /metrics
	MediaURL        string
	MediaRoot       string // local upload directory, "" when files live elsewhere
	SPA             *spa.Host
	Logger          *slog.Logger
}

func SetupRouter(
	authHandler *handler.AuthHandler,
	postHandler *handler.PostHandler,
	commentHandler *handler.CommentHandler,
	authMiddleware *middleware.AuthMiddleware,
	opts Options,
) *gin.Engine {
	r := gin.Default()
	r.SetTrustedProxies(nil)

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Limiter == nil {
		opts.Limiter = middleware.NewNoOpRateLimiter(opts.Logger)
	}
	if opts.MediaURL == "" {
		opts.MediaURL = "/media"
	}

	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := r.Group(endpoints.APIPrefix)

	// Public routes
	api.GET("/health/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth routes (Public)
	loginLimit := middleware.DailyLimit(opts.Limiter, "login", opts.LoginDailyLimit, opts.Logger)
	{
		api.GET(endpoints.LoginPath, authHandler.LoginCaptcha)
		api.POST(endpoints.LoginPath, loginLimit, authHandler.Login)
		api.GET(endpoints.RegisterPath, authHandler.RegisterCaptcha)
		api.POST(endpoints.RegisterPath, authHandler.Register)
		api.POST(endpoints.RefreshPath, authHandler.RefreshToken)
		api.POST(endpoints.LogoutPath, authHandler.Logout)
	}

	// Board routes: reads are public, writes need a token
	board := api.Group("", authMiddleware.ReadOnlyOrAuth())
	{
		board.GET(endpoints.PostsPath, postHandler.List)
		board.POST(endpoints.PostsPath, postHandler.Create)
		board.GET(endpoints.PostDetailPath, postHandler.Get)
		board.PUT(endpoints.PostDetailPath, postHandler.Update)
		board.PATCH(endpoints.PostDetailPath, postHandler.Update)
		board.DELETE(endpoints.PostDetailPath, postHandler.Delete)
		board.GET(endpoints.PostCommentsPath, postHandler.Comments)

		board.GET(endpoints.CommentsPath, commentHandler.List)
		board.POST(endpoints.CommentsPath, commentHandler.Create)
		board.GET(endpoints.CommentDetailPath, commentHandler.Get)
		board.PUT(endpoints.CommentDetailPath, commentHandler.Update)
		board.PATCH(endpoints.CommentDetailPath, commentHandler.Update)
		board.DELETE(endpoints.CommentDetailPath, commentHandler.Delete)
	}

	if opts.MediaRoot != "" {
		r.Static(opts.MediaURL, opts.MediaRoot)
	}

	if opts.SPA != nil {
		opts.SPA.Register(r)
		r.NoRoute(opts.SPA.Fallback(endpoints.APIPrefix, opts.MediaURL))
	} else {
		r.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		})
	}

	return r
}
