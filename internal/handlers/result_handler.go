package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/services"
)

type ResultHandler struct {
	results *services.ResultService
}

func NewResultHandler(results *services.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

type aggregateRequest struct {
	ExamIDs    []string           `json:"exam_ids" binding:"required,min=1"`
	Weightages map[string]float64 `json:"weightages"`
	SectionID  string             `json:"section_id"`
}

func (h *ResultHandler) GetExamResult(c *gin.Context) {
	studentID, ok := parseID(c, c.Param("id"), "student")
	if !ok {
		return
	}
	examID, ok := parseID(c, c.Param("examId"), "exam")
	if !ok {
		return
	}

	res, err := h.results.ComputeExamResult(c.Request.Context(), schoolID(c), studentID, examID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ResultHandler) GetCombinedResult(c *gin.Context) {
	studentID, ok := parseID(c, c.Param("id"), "student")
	if !ok {
		return
	}

	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	examIDs, ok := parseIDs(c, req.ExamIDs, "exam")
	if !ok {
		return
	}

	res, err := h.results.ComputeCombinedResult(c.Request.Context(), schoolID(c), studentID, examIDs, grading.Weightage(req.Weightages))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetRank reads exams from repeated exam_id query parameters, optional
// weightages[<exam id>]=<percent> pairs and an optional section_id that
// narrows the ranking to one section.
func (h *ResultHandler) GetRank(c *gin.Context) {
	studentID, ok := parseID(c, c.Param("id"), "student")
	if !ok {
		return
	}
	rawIDs := c.QueryArray("exam_id")
	if len(rawIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exam_id is required"})
		return
	}
	examIDs, ok := parseIDs(c, rawIDs, "exam")
	if !ok {
		return
	}
	weights, ok := queryWeightages(c)
	if !ok {
		return
	}

	res, err := h.results.ComputeRank(c.Request.Context(), schoolID(c), studentID, c.Query("section_id"), examIDs, weights)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ResultHandler) ClassRanks(c *gin.Context) {
	classID, ok := parseID(c, c.Param("id"), "class")
	if !ok {
		return
	}

	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	examIDs, ok := parseIDs(c, req.ExamIDs, "exam")
	if !ok {
		return
	}

	ranks, err := h.results.ClassRanks(c.Request.Context(), schoolID(c), classID, req.SectionID, examIDs, grading.Weightage(req.Weightages))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"class_id": classID, "ranks": ranks})
}

func queryWeightages(c *gin.Context) (grading.Weightage, bool) {
	raw := c.QueryMap("weightages")
	if len(raw) == 0 {
		return nil, true
	}
	weights := make(grading.Weightage, len(raw))
	for examID, v := range raw {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid weightage for exam " + examID})
			return nil, false
		}
		weights[examID] = w
	}
	return weights, true
}
