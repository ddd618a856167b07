package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/spare-stock/internal/domain/inventory"
	"github.com/Spok95/spare-stock/internal/domain/users"
)

func message(msg string) gin.H { return gin.H{"message": msg} }

// fail переводит доменную ошибку в HTTP-ответ. notFound — текст для 404.
func (h *handler) fail(c *gin.Context, err error, notFound string) {
	status, msg := http.StatusInternalServerError, "Server error"
	switch {
	case errors.Is(err, inventory.ErrValidation):
		status, msg = http.StatusBadRequest, detail(err, inventory.ErrValidation)
	case errors.Is(err, users.ErrValidation):
		status, msg = http.StatusBadRequest, detail(err, users.ErrValidation)
	case errors.Is(err, inventory.ErrInsufficientStock):
		status, msg = http.StatusBadRequest, "Not enough quantity in stock"
	case errors.Is(err, inventory.ErrNotFound), errors.Is(err, users.ErrNotFound):
		status, msg = http.StatusNotFound, notFound
		if msg == "" {
			msg = "Not found"
		}
	case errors.Is(err, inventory.ErrConflict):
		status, msg = http.StatusConflict, "Concurrent update, please retry"
	case errors.Is(err, users.ErrUsernameTaken):
		status, msg = http.StatusConflict, "Username already exists"
	case errors.Is(err, users.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "Invalid credentials"
	}
	if status == http.StatusInternalServerError {
		h.d.Log.Error("request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"correlation_id", CorrelationID(c.Request.Context()),
			"err", err)
	}
	c.JSON(status, message(msg))
}

// detail — текст после "<sentinel>: ", иначе сам sentinel.
func detail(err, sentinel error) string {
	if _, after, ok := strings.Cut(err.Error(), sentinel.Error()+": "); ok && after != "" {
		return after
	}
	return sentinel.Error()
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, message(msg))
}
