package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/school-system/exam-results/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ImportHandler struct {
	imports     *services.ImportService
	maxFileSize int64
}

func NewImportHandler(imports *services.ImportService, maxFileSize int64) *ImportHandler {
	return &ImportHandler{imports: imports, maxFileSize: maxFileSize}
}

// input reads the multipart form: file, class_id, section_id and
// confirm_unmatched.
func (h *ImportHandler) input(c *gin.Context) (services.ImportInput, func(), bool) {
	target, ok := h.target(c, c.PostForm("class_id"), c.PostForm("section_id"))
	if !ok {
		return services.ImportInput{}, nil, false
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Spreadsheet file is required"})
		return services.ImportInput{}, nil, false
	}
	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File exceeds %d bytes", h.maxFileSize)})
		return services.ImportInput{}, nil, false
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return services.ImportInput{}, nil, false
	}

	confirm, _ := strconv.ParseBool(c.DefaultPostForm("confirm_unmatched", "false"))
	return services.ImportInput{
		ImportTarget:     target,
		Filename:         header.Filename,
		Data:             file,
		ConfirmUnmatched: confirm,
		Actor:            actor(c),
	}, func() { file.Close() }, true
}

func (h *ImportHandler) target(c *gin.Context, classIDStr, sectionID string) (services.ImportTarget, bool) {
	examID, ok := parseID(c, c.Param("id"), "exam")
	if !ok {
		return services.ImportTarget{}, false
	}
	if classIDStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "class_id is required"})
		return services.ImportTarget{}, false
	}
	classID, ok := parseID(c, classIDStr, "class")
	if !ok {
		return services.ImportTarget{}, false
	}
	return services.ImportTarget{
		SchoolID:  schoolID(c),
		ExamID:    examID,
		ClassID:   classID,
		SectionID: sectionID,
	}, true
}

func (h *ImportHandler) Preview(c *gin.Context) {
	in, done, ok := h.input(c)
	if !ok {
		return
	}
	defer done()

	report, err := h.imports.Preview(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Import answers 409 with the preview report when unmatched students need
// confirmation, and 400 with it when the sheet failed validation.
func (h *ImportHandler) Import(c *gin.Context) {
	in, done, ok := h.input(c)
	if !ok {
		return
	}
	defer done()

	report, err := h.imports.Import(c.Request.Context(), in)
	if err != nil {
		if report != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				_ = c.Error(err)
			}
			c.JSON(status, gin.H{"error": err.Error(), "report": report})
			return
		}
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if len(report.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, report)
}

func (h *ImportHandler) Template(c *gin.Context) {
	target, ok := h.target(c, c.Query("class_id"), c.Query("section_id"))
	if !ok {
		return
	}

	var buf bytes.Buffer
	name, err := h.imports.Template(c.Request.Context(), target, &buf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
