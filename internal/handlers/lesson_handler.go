package handlers

import (
	"net/http"

	"learnsphere/internal/models"
	"learnsphere/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type LessonHandler struct {
	lessons LessonAPI
}

func NewLessonHandler(lessons LessonAPI) *LessonHandler {
	return &LessonHandler{lessons: lessons}
}

func (h *LessonHandler) ListByCourse(c *gin.Context) {
	lessons, err := h.lessons.ListByCourse(c.Request.Context(), sessionOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lessons)
}

func (h *LessonHandler) Create(c *gin.Context) {
	var req models.LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	lesson, err := h.lessons.Create(c.Request.Context(), sessionOf(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lesson)
}

func (h *LessonHandler) Update(c *gin.Context) {
	var req models.LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	lesson, err := h.lessons.Update(c.Request.Context(), sessionOf(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lesson)
}

// UploadMaterial takes a multipart "file" field and stores it in object
// storage.
func (h *LessonHandler) UploadMaterial(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required", "code": "BAD_REQUEST"})
		return
	}
	file, err := header.Open()
	if err != nil {
		log.Errorf("Opening upload %s failed: %v", header.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read file", "code": "BAD_REQUEST"})
		return
	}
	defer file.Close()

	stored, err := h.lessons.UploadMaterial(c.Request.Context(), sessionOf(c), c.Param("id"), service.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (h *LessonHandler) ListMaterials(c *gin.Context) {
	files, err := h.lessons.ListMaterials(c.Request.Context(), sessionOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *LessonHandler) MaterialURL(c *gin.Context) {
	url, err := h.lessons.MaterialURL(c.Request.Context(), sessionOf(c), c.Param("id"), c.Param("fileId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
