package handlers

import (
	"net/http"
	"strconv"

	"learnsphere/internal/models"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviews ReviewAPI
}

func NewReviewHandler(reviews ReviewAPI) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) Submit(c *gin.Context) {
	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	agg, err := h.reviews.Submit(c.Request.Context(), sessionOf(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	reviewsSubmitted.WithLabelValues(strconv.Itoa(req.Rating)).Inc()
	c.JSON(http.StatusCreated, agg)
}

func (h *ReviewHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	reviews, err := h.reviews.List(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

type LeaderboardHandler struct {
	board LeaderboardAPI
}

func NewLeaderboardHandler(board LeaderboardAPI) *LeaderboardHandler {
	return &LeaderboardHandler{board: board}
}

func (h *LeaderboardHandler) Top(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.board.Top(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
