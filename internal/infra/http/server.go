package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Spok95/spare-stock/internal/domain/inventory"
	"github.com/Spok95/spare-stock/internal/domain/reports"
	"github.com/Spok95/spare-stock/internal/domain/users"
	"github.com/Spok95/spare-stock/internal/infra/metrics"
)

// Deps — всё, что нужно обработчикам. Metrics == nil отключает /metrics.
type Deps struct {
	Log          *slog.Logger
	Registry     *inventory.Registry
	Ledger       *inventory.Ledger
	Reports      *reports.Projector
	Users        *users.Service
	Metrics      *metrics.Metrics
	CORSOrigins  []string
	SecureCookie bool
}

type Server struct {
	srv *http.Server
}

func New(addr string, d Deps) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewHandler(d),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func NewHandler(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	h := &handler{d: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(correlationID())
	r.Use(requestLog(d.Log))
	if d.Metrics != nil {
		r.Use(observeHTTP(d.Metrics))
	}
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.POST("/register", h.register)
	api.POST("/login", h.login)
	api.POST("/logout", h.logout)
	api.GET("/user", h.currentUser)

	authed := api.Group("", h.requireSession)
	authed.POST("/parts", h.createPart)
	authed.GET("/parts", h.listParts)
	authed.GET("/parts/:id", h.getPart)
	authed.DELETE("/parts/:id", h.deletePart)

	authed.POST("/stock-in", h.createStockIn)
	authed.GET("/stock-in", h.listStockIns)

	authed.POST("/stock-out", h.createStockOut)
	authed.GET("/stock-out", h.listStockOuts)
	authed.GET("/stock-out/:id", h.getStockOut)
	authed.PUT("/stock-out/:id", h.updateStockOut)
	authed.DELETE("/stock-out/:id", h.deleteStockOut)

	authed.GET("/reports/daily-stock-out", h.dailyStockOut)
	authed.GET("/reports/daily-stock-out.xlsx", h.dailyStockOutXLSX)
	authed.GET("/reports/stock-status", h.stockStatus)
	authed.GET("/reports/stock-status.xlsx", h.stockStatusXLSX)
	authed.GET("/reports/reconcile", h.reconcile)

	return r
}

// Без явного списка — любой origin. Cookie сессии требует AllowCredentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowMethods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions)
	cfg.AddAllowHeaders("Authorization", headerCorrelationID)
	cfg.AddExposeHeaders("Content-Disposition", headerCorrelationID)
	cfg.AllowCredentials = true
	return cfg
}

type handler struct {
	d Deps
}
