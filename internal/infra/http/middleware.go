package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Spok95/spare-stock/internal/domain/users"
	"github.com/Spok95/spare-stock/internal/infra/metrics"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	sessionCookie       = "sims_session"
	userKey             = "user"
)

type ctxKey struct{}

// CorrelationID достаёт идентификатор запроса из контекста.
func CorrelationID(ctx context.Context) string {
	cid, _ := ctx.Value(ctxKey{}).(string)
	return cid
}

func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(headerCorrelationID)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(headerCorrelationID, cid)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, cid))
		c.Next()
	}
}

func requestLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
			"correlation_id", CorrelationID(c.Request.Context()))
	}
}

func observeHTTP(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status())
	}
}

// sessionToken: сначала cookie, затем Authorization: Bearer.
func sessionToken(c *gin.Context) string {
	if v, err := c.Cookie(sessionCookie); err == nil && v != "" {
		return v
	}
	if tok, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}

func (h *handler) requireSession(c *gin.Context) {
	u, err := h.d.Users.Authenticate(c.Request.Context(), sessionToken(c))
	if err != nil {
		if !errors.Is(err, users.ErrUnauthorized) {
			h.fail(c, err, "")
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, message("Not authenticated"))
		return
	}
	c.Set(userKey, u)
	c.Next()
}
