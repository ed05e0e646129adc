package handlers

import (
	"net/http"
	"strconv"

	"learnsphere/internal/models"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizzes QuizAPI
}

func NewQuizHandler(quizzes QuizAPI) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

func (h *QuizHandler) Create(c *gin.Context) {
	var req models.QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	quiz, err := h.quizzes.Create(c.Request.Context(), sessionOf(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) Get(c *gin.Context) {
	quiz, err := h.quizzes.Get(c.Request.Context(), sessionOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) Update(c *gin.Context) {
	var req models.QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	quiz, err := h.quizzes.Update(c.Request.Context(), sessionOf(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) RemoveOption(c *gin.Context) {
	q, errQ := strconv.Atoi(c.Param("q"))
	o, errO := strconv.Atoi(c.Param("o"))
	if errQ != nil || errO != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question and option must be integers", "code": "BAD_REQUEST"})
		return
	}
	quiz, err := h.quizzes.RemoveOption(c.Request.Context(), sessionOf(c), c.Param("id"), q, o)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) AddOption(c *gin.Context) {
	q, err := strconv.Atoi(c.Param("q"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question must be an integer", "code": "BAD_REQUEST"})
		return
	}
	var req models.OptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	quiz, err := h.quizzes.AddOption(c.Request.Context(), sessionOf(c), c.Param("id"), q, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) MoveOption(c *gin.Context) {
	q, errQ := strconv.Atoi(c.Param("q"))
	o, errO := strconv.Atoi(c.Param("o"))
	if errQ != nil || errO != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question and option must be integers", "code": "BAD_REQUEST"})
		return
	}
	var req models.MoveOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	quiz, err := h.quizzes.MoveOption(c.Request.Context(), sessionOf(c), c.Param("id"), q, o, *req.To)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}
