package httpserver

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"emailanalyser/pkg/otel"
	"emailanalyser/pkg/rbac"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Options 路由配置
type Options struct {
	// AuthEnabled 为 true 时 /api、/export.csv 与 /admin 需要 Bearer token
	AuthEnabled bool
	JWTSecret   string
	// Ready is probed by /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h *Handler, opts Options, logger *zap.Logger) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otel.GinMiddleware())
	r.Use(TraceMiddleware())
	r.Use(AccessLogMiddleware(logger))

	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		if opts.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
			defer cancel()

			if err := opts.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 鉴权开启时页面不直接渲染数据，由前端带 token 调用 /api
	h.showData = !opts.AuthEnabled
	r.GET("/", h.Index)

	protected := r.Group("/")
	if opts.AuthEnabled {
		protected.Use(AuthMiddleware(opts.JWTSecret))
	}
	require := func(permission string) gin.HandlerFunc {
		if !opts.AuthEnabled {
			return func(c *gin.Context) { c.Next() }
		}
		return RequirePermission(permission)
	}

	protected.GET("/export.csv", require(rbac.PermissionExportReport), h.ExportCSV)

	api := protected.Group("/api")
	{
		api.GET("/summary", require(rbac.PermissionReadReport), h.Summary)
		api.GET("/emails", require(rbac.PermissionReadReport), h.ListEmails)
		api.GET("/network", require(rbac.PermissionReadReport), h.Network)
		api.GET("/timeline", require(rbac.PermissionReadReport), h.Timeline)
		api.POST("/emails", require(rbac.PermissionUploadEmail), h.UploadEmail)
		api.POST("/analyze", require(rbac.PermissionRunAnalysis), h.RunAnalysis)
	}

	admin := protected.Group("/admin")
	{
		admin.POST("/outbox/replay", require(rbac.PermissionReplayOutbox), h.ReplayOutboxEvent)
		admin.POST("/outbox/replay-failed", require(rbac.PermissionReplayOutbox), h.ReplayFailedEvents)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}

// Server wraps the engine for graceful shutdown.
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
