package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/school-system/exam-results/internal/services"
)

type StudentHandler struct {
	results *services.ResultService
}

func NewStudentHandler(results *services.ResultService) *StudentHandler {
	return &StudentHandler{results: results}
}

// Match finds the enrolled student a spreadsheet row refers to.
func (h *StudentHandler) Match(c *gin.Context) {
	var req struct {
		ClassID   string `json:"class_id" binding:"required"`
		SectionID string `json:"section_id"`
		Name      string `json:"name"`
		RollNo    string `json:"roll_no"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" && req.RollNo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name or roll_no is required"})
		return
	}
	classID, ok := parseID(c, req.ClassID, "class")
	if !ok {
		return
	}

	m, found, err := h.results.MatchStudent(c.Request.Context(), schoolID(c), classID, req.SectionID, req.Name, req.RollNo)
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found in class roster"})
		return
	}
	c.JSON(http.StatusOK, m)
}
