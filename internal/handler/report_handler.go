package handler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/heart5/happyjoplin-go/pkg/response"
)

// ReportHandler serves the latest locally generated reports and chart
// artifacts from the output directory.
type ReportHandler struct {
	outputDir string
}

// NewReportHandler creates a new report handler
func NewReportHandler(outputDir string) *ReportHandler {
	return &ReportHandler{outputDir: outputDir}
}

// ReportInfo describes one generated report file.
type ReportInfo struct {
	Scope     string `json:"scope"`
	UpdatedAt string `json:"updatedAt"`
	SizeBytes int64  `json:"sizeBytes"`
}

// ListReports returns the report scopes with a generated document.
func (h *ReportHandler) ListReports(c *gin.Context) {
	entries, err := os.ReadDir(h.outputDir)
	if err != nil {
		response.InternalError(c, "failed to read report directory")
		return
	}

	reports := make([]ReportInfo, 0)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		reports = append(reports, ReportInfo{
			Scope:     strings.TrimSuffix(e.Name(), ".md"),
			UpdatedAt: info.ModTime().UTC().Format("2006-01-02 15:04:05"),
			SizeBytes: info.Size(),
		})
	}
	response.Success(c, reports)
}

// GetReport returns one scope's report document.
func (h *ReportHandler) GetReport(c *gin.Context) {
	scope := c.Param("scope")
	if !validName(scope) {
		response.BadRequest(c, "invalid scope name")
		return
	}
	data, err := os.ReadFile(filepath.Join(h.outputDir, scope+".md"))
	if err != nil {
		response.NotFound(c, "no report for scope "+scope)
		return
	}
	response.Success(c, gin.H{"scope": scope, "body": string(data)})
}

// GetArtifact streams one chart PNG.
func (h *ReportHandler) GetArtifact(c *gin.Context) {
	name := c.Param("name")
	if !validName(name) {
		response.BadRequest(c, "invalid artifact name")
		return
	}
	path := filepath.Join(h.outputDir, name+".png")
	if _, err := os.Stat(path); err != nil {
		response.NotFound(c, "no artifact "+name)
		return
	}
	c.File(path)
}

// validName rejects anything that could escape the output directory.
func validName(s string) bool {
	if s == "" || strings.ContainsAny(s, "/\\.") {
		return false
	}
	return true
}
