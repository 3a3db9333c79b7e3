package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/school-system/exam-results/internal/grading"
	"github.com/school-system/exam-results/internal/services"
)

type GradingScaleHandler struct {
	results *services.ResultService
}

func NewGradingScaleHandler(results *services.ResultService) *GradingScaleHandler {
	return &GradingScaleHandler{results: results}
}

func (h *GradingScaleHandler) Get(c *gin.Context) {
	scale, err := h.results.GradingScale(c.Request.Context(), schoolID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scale)
}

func (h *GradingScaleHandler) Update(c *gin.Context) {
	var req struct {
		Name   string          `json:"name"`
		Ranges []grading.Range `json:"ranges" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scale, err := h.results.SaveGradingScale(c.Request.Context(), schoolID(c), req.Name, req.Ranges, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scale)
}
