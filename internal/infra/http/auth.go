package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/spare-stock/internal/domain/users"
)

func (h *handler) register(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "All fields are required")
		return
	}
	u, err := h.d.Users.Register(c.Request.Context(), in.Username, in.Password, in.FullName)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	h.d.Log.Info("user registered", "user_id", u.ID, "username", u.Username)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": u})
}

func (h *handler) login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Username and password are required")
		return
	}
	sess, u, err := h.d.Users.Login(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.Token, int(h.d.Users.TTL().Seconds()), "/", "", h.d.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": u, "token": sess.Token})
}

func (h *handler) logout(c *gin.Context) {
	token := sessionToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, message("Not authenticated"))
		return
	}
	if err := h.d.Users.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, err, "")
		return
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", h.d.SecureCookie, true)
	c.JSON(http.StatusOK, message("Logged out successfully"))
}

func (h *handler) currentUser(c *gin.Context) {
	u, err := h.d.Users.Authenticate(c.Request.Context(), sessionToken(c))
	if errors.Is(err, users.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, message("Not authenticated"))
		return
	}
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
