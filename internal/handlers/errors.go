package handlers

import (
	"errors"
	"net/http"

	"learnsphere/internal/middleware"
	"learnsphere/internal/models"
	"learnsphere/internal/repository"
	"learnsphere/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type apiError struct {
	status int
	code   string
}

var errorTable = []struct {
	err error
	apiError
}{
	{service.ErrQuizUnavailable, apiError{http.StatusNotFound, "QUIZ_UNAVAILABLE"}},
	{service.ErrNotFound, apiError{http.StatusNotFound, "NOT_FOUND"}},
	{service.ErrValidation, apiError{http.StatusBadRequest, "VALIDATION_FAILED"}},
	{service.ErrInvalidCredentials, apiError{http.StatusUnauthorized, "INVALID_CREDENTIALS"}},
	{service.ErrOAuthState, apiError{http.StatusUnauthorized, "INVALID_STATE"}},
	{service.ErrForbidden, apiError{http.StatusForbidden, "FORBIDDEN"}},
	{service.ErrNotEnrolled, apiError{http.StatusForbidden, "NOT_ENROLLED"}},
	{service.ErrEmailTaken, apiError{http.StatusConflict, "EMAIL_TAKEN"}},
	{service.ErrAlreadyEnrolled, apiError{http.StatusConflict, "ALREADY_ENROLLED"}},
	{service.ErrAlreadyReviewed, apiError{http.StatusConflict, "ALREADY_REVIEWED"}},
	{service.ErrQuizExists, apiError{http.StatusConflict, "QUIZ_EXISTS"}},
	{service.ErrDuplicateDoc, apiError{http.StatusConflict, "DUPLICATE"}},
	{repository.ErrConflict, apiError{http.StatusConflict, "CONCURRENT_UPDATE"}},
	{service.ErrInteractionBlocked, apiError{http.StatusLocked, "FULLSCREEN_REQUIRED"}},
	{service.ErrPersistUnavailable, apiError{http.StatusServiceUnavailable, "PERSIST_UNAVAILABLE"}},
	{service.ErrOAuthDisabled, apiError{http.StatusNotImplemented, "OAUTH_DISABLED"}},
}

func classify(err error) apiError {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.apiError
		}
	}
	return apiError{http.StatusInternalServerError, "INTERNAL"}
}

// respondError writes the JSON error body for err. Server errors are
// logged and not echoed to the client.
func respondError(c *gin.Context, err error) {
	e := classify(err)
	msg := err.Error()
	if e.status == http.StatusInternalServerError {
		log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "Internal server error"
	}
	c.JSON(e.status, gin.H{"error": msg, "code": e.code})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request format",
		"details": err.Error(),
		"code":    "BAD_REQUEST",
	})
}

// sessionOf returns the caller's session, or the zero session on public
// routes.
func sessionOf(c *gin.Context) models.Session {
	session, _ := middleware.SessionFrom(c)
	return session
}
