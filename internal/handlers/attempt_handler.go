package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"learnsphere/internal/models"
	"learnsphere/internal/proctoring"
	"learnsphere/internal/service"

	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	attempts AttemptAPI
}

func NewAttemptHandler(attempts AttemptAPI) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// Submit scores a whole attempt sent in one request.
func (h *AttemptHandler) Submit(c *gin.Context) {
	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.attempts.Submit(c.Request.Context(), sessionOf(c), c.Param("id"), &req)
	if res != nil {
		observeSubmission(res, "submit", err)
	}
	if err != nil {
		respondSubmitError(c, err, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// respondSubmitError keeps the computed result in the body when only the
// write failed, so the learner still sees their score.
func respondSubmitError(c *gin.Context, err error, result any) {
	if errors.Is(err, service.ErrPersistUnavailable) && result != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "Your attempt was scored but could not be saved. Please retry.",
			"code":   "PERSIST_UNAVAILABLE",
			"result": result,
		})
		return
	}
	respondError(c, err)
}

func observeSubmission(res *service.SubmitResult, mode string, err error) {
	result := "failed"
	if res.Passed {
		result = "passed"
	}
	quizAttempts.WithLabelValues(result, mode).Inc()

	switch {
	case err != nil:
		attemptPersistence.WithLabelValues("failed").Inc()
	case res.Queued:
		attemptPersistence.WithLabelValues("queued").Inc()
	default:
		attemptPersistence.WithLabelValues("persisted").Inc()
	}
}

func (h *AttemptHandler) History(c *gin.Context) {
	attempts, err := h.attempts.History(c.Request.Context(), sessionOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *AttemptHandler) AllAttempts(c *gin.Context) {
	attempts, err := h.attempts.AllAttempts(c.Request.Context(), sessionOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *AttemptHandler) StartLive(c *gin.Context) {
	view, err := h.attempts.StartLive(c.Request.Context(), sessionOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *AttemptHandler) GetLive(c *gin.Context) {
	view, err := h.attempts.GetLive(c.Request.Context(), sessionOf(c), c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AttemptHandler) AnswerLive(c *gin.Context) {
	question, err := strconv.Atoi(c.Param("q"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question must be an integer", "code": "BAD_REQUEST"})
		return
	}
	var req models.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.attempts.AnswerLive(c.Request.Context(), sessionOf(c), c.Param("sid"), question, *req.Option)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AttemptHandler) GoToLive(c *gin.Context) {
	question, err := strconv.Atoi(c.Param("q"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question must be an integer", "code": "BAD_REQUEST"})
		return
	}
	view, err := h.attempts.GoToLive(c.Request.Context(), sessionOf(c), c.Param("sid"), question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AttemptHandler) BackLive(c *gin.Context) {
	view, err := h.attempts.BackLive(c.Request.Context(), sessionOf(c), c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AttemptHandler) AdvanceLive(c *gin.Context) {
	view, err := h.attempts.AdvanceLive(c.Request.Context(), sessionOf(c), c.Param("sid"))
	if view != nil && view.Result != nil {
		observeSubmission(view.Result, "live", err)
	}
	if err != nil {
		if view != nil {
			respondSubmitError(c, err, view)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// EventLive is the proctoring intake for browser events.
func (h *AttemptHandler) EventLive(c *gin.Context) {
	var ev proctoring.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.attempts.EventLive(c.Request.Context(), sessionOf(c), c.Param("sid"), ev)
	if err != nil {
		respondError(c, err)
		return
	}
	proctoringEvents.WithLabelValues(string(ev.Kind)).Inc()
	c.JSON(http.StatusOK, out)
}

func (h *AttemptHandler) RestartLive(c *gin.Context) {
	view, err := h.attempts.RestartLive(c.Request.Context(), sessionOf(c), c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
