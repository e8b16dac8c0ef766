package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"trade-journal-go/internal/fetch"
	"trade-journal-go/internal/journal"
)

// uploadReport ingests an activity export sent as a multipart upload in the
// "file" field.
func (s *Server) uploadReport(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if s.uploadLimit > 0 && fileHeader.Size > s.uploadLimit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer f.Close()

	report, err := s.svc.ImportReader(f, fileHeader.Filename)
	if err != nil {
		s.writeImportError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

type fetchRequest struct {
	URL string `json:"url" binding:"required"`
}

// fetchReport downloads an activity export from a URL and imports it.
func (s *Server) fetchReport(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	body, err := s.fetcher.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, fetch.ErrBadURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	report, err := s.svc.ImportReader(bytes.NewReader(body), req.URL)
	if err != nil {
		s.writeImportError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (s *Server) listReports(c *gin.Context) {
	reports, err := s.svc.Reports()
	if err != nil {
		s.logger.Error("failed to list reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// reportStats returns the report together with its full analysis.
func (s *Server) reportStats(c *gin.Context) {
	id := c.Param("id")

	report, err := s.svc.Report(id)
	if err != nil {
		s.writeLookupError(c, err)
		return
	}
	stats, err := s.svc.Stats(id)
	if err != nil {
		s.writeLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report, "stats": stats})
}

// exportReport streams the report back as CSV in the canonical layout.
func (s *Server) exportReport(c *gin.Context) {
	id := c.Param("id")

	trades, err := s.svc.Trades(id)
	if err != nil {
		s.writeLookupError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=report-%s.csv", id))
	if err := journal.WriteCSV(c.Writer, trades); err != nil {
		s.logger.Error("failed to write export", zap.Error(err))
	}
}

func (s *Server) deleteReport(c *gin.Context) {
	if err := s.svc.Delete(c.Param("id")); err != nil {
		s.writeLookupError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeImportError distinguishes rejected files from storage failures.
func (s *Server) writeImportError(c *gin.Context, err error) {
	if errors.Is(err, journal.ErrInvalidReport) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	s.logger.Error("import failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to import report"})
}

func (s *Server) writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	s.logger.Error("report lookup failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
