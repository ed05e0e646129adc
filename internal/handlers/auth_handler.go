package handlers

import (
	"net/http"

	"learnsphere/internal/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type AuthHandler struct {
	auth       AuthAPI
	dashboards DashboardAPI
}

func NewAuthHandler(auth AuthAPI, dashboards DashboardAPI) *AuthHandler {
	return &AuthHandler{auth: auth, dashboards: dashboards}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		authAttempts.WithLabelValues("register", "failure", "password").Inc()
		respondError(c, err)
		return
	}
	authAttempts.WithLabelValues("register", "success", "password").Inc()
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		authAttempts.WithLabelValues("login", "failure", "password").Inc()
		respondError(c, err)
		return
	}
	authAttempts.WithLabelValues("login", "success", "password").Inc()
	c.JSON(http.StatusOK, resp)
}

// GoogleLogin redirects the browser to Google's consent page.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	url, err := h.auth.GoogleLoginURL(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback completes sign-in and sends the browser back to the
// frontend with a token.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code is missing", "code": "BAD_REQUEST"})
		return
	}
	resp, err := h.auth.GoogleCallback(c.Request.Context(), c.Query("state"), code)
	if err != nil {
		authAttempts.WithLabelValues("login", "failure", "google").Inc()
		log.Printf("Google sign-in failed: %v", err)
		respondError(c, err)
		return
	}
	authAttempts.WithLabelValues("login", "success", "google").Inc()
	c.Redirect(http.StatusTemporaryRedirect, h.auth.FrontendRedirect(resp.Token))
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), sessionOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Dashboard(c *gin.Context) {
	d, err := h.dashboards.For(c.Request.Context(), sessionOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
