package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/school-system/exam-results/internal/services"
)

// Handlers is every API handler, built from the services they call.
type Handlers struct {
	Results      *ResultHandler
	Subjects     *SubjectHandler
	Students     *StudentHandler
	Imports      *ImportHandler
	GradingScale *GradingScaleHandler
	Audit        *AuditHandler
}

func New(results *services.ResultService, imports *services.ImportService, audit *services.AuditService, maxFileSize int64) *Handlers {
	return &Handlers{
		Results:      NewResultHandler(results),
		Subjects:     NewSubjectHandler(results),
		Students:     NewStudentHandler(results),
		Imports:      NewImportHandler(imports, maxFileSize),
		GradingScale: NewGradingScaleHandler(results),
		Audit:        NewAuditHandler(audit),
	}
}

// Register mounts the API on a group that already runs the tenant middleware.
func (h *Handlers) Register(api *gin.RouterGroup) {
	api.POST("/subjects/resolve", h.Subjects.Resolve)

	students := api.Group("/students")
	{
		students.POST("/match", h.Students.Match)
		students.GET("/:id/exams/:examId/result", h.Results.GetExamResult)
		students.POST("/:id/combined-result", h.Results.GetCombinedResult)
		students.GET("/:id/rank", h.Results.GetRank)
	}

	api.POST("/classes/:id/ranks", h.Results.ClassRanks)

	exams := api.Group("/exams")
	{
		exams.POST("/:id/imports/preview", h.Imports.Preview)
		exams.POST("/:id/imports", h.Imports.Import)
		exams.GET("/:id/template", h.Imports.Template)
	}

	api.GET("/grading-scale", h.GradingScale.Get)
	api.PUT("/grading-scale", h.GradingScale.Update)

	api.GET("/audit/recent", h.Audit.GetRecentActivity)
}
