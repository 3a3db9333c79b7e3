package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/school-system/exam-results/internal/services"
)

type SubjectHandler struct {
	results *services.ResultService
}

func NewSubjectHandler(results *services.ResultService) *SubjectHandler {
	return &SubjectHandler{results: results}
}

// Resolve maps a free-text label, such as a spreadsheet column header, onto
// one of the exam's scheduled subjects.
func (h *SubjectHandler) Resolve(c *gin.Context) {
	var req struct {
		Label   string `json:"label" binding:"required"`
		ExamID  string `json:"exam_id" binding:"required"`
		ClassID string `json:"class_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	examID, ok := parseID(c, req.ExamID, "exam")
	if !ok {
		return
	}
	classID := uuid.Nil
	if req.ClassID != "" {
		if classID, ok = parseID(c, req.ClassID, "class"); !ok {
			return
		}
	}

	res, found, err := h.results.ResolveSubject(c.Request.Context(), schoolID(c), examID, classID, req.Label)
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No scheduled subject matches " + req.Label, "label": req.Label})
		return
	}
	c.JSON(http.StatusOK, res)
}
