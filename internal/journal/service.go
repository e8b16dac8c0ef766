package journal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"trade-journal-go/internal/metrics"
	"trade-journal-go/internal/models"
)

const createBatchSize = 200

// Service ties parsing, storage and analysis of activity reports together.
type Service struct {
	log     *zap.Logger
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewService creates a new report service.
func NewService(log *zap.Logger, db *gorm.DB, m *metrics.Metrics) *Service {
	return &Service{log: log, db: db, metrics: m}
}

// ImportReader parses one activity export and stores it as a new report.
// The report and its trades are written in a single transaction, so a
// rejected file leaves the database untouched.
func (s *Service) ImportReader(r io.Reader, source string) (*models.Report, error) {
	trades, err := ParseReport(r)
	if err != nil {
		s.metrics.RecordImportFailure("invalid_report")
		s.log.Warn("rejected activity report", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	report := &models.Report{
		ID:         uuid.NewString(),
		Source:     source,
		ImportedAt: time.Now().UTC(),
		TradeCount: len(trades),
	}
	for i := range trades {
		trades[i].ReportID = report.ID
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		if len(trades) == 0 {
			return nil
		}
		return tx.CreateInBatches(trades, createBatchSize).Error
	})
	if err != nil {
		s.metrics.RecordImportFailure("storage")
		return nil, fmt.Errorf("failed to store report from %s: %w", source, err)
	}

	s.metrics.RecordImport(len(trades))
	s.log.Info("imported activity report",
		zap.String("report_id", report.ID),
		zap.String("source", source),
		zap.Int("trades", len(trades)))
	return report, nil
}

// ImportFile imports a report from disk, using the file name as source.
func (s *Service) ImportFile(path string) (*models.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer f.Close()
	return s.ImportReader(f, filepath.Base(path))
}

// Reports lists all imported reports, newest first.
func (s *Service) Reports() ([]models.Report, error) {
	var reports []models.Report
	if err := s.db.Order("imported_at desc").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// Report loads a single report by id. A missing id surfaces as
// gorm.ErrRecordNotFound.
func (s *Service) Report(id string) (*models.Report, error) {
	var report models.Report
	if err := s.db.First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// Trades returns the trades of a report in the order they appeared in the
// source file.
func (s *Service) Trades(reportID string) ([]models.Trade, error) {
	if _, err := s.Report(reportID); err != nil {
		return nil, err
	}
	var trades []models.Trade
	if err := s.db.Where("report_id = ?", reportID).Order("id asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}
	return trades, nil
}

// Stats loads one report and computes its full analysis.
func (s *Service) Stats(reportID string) (*ReportStats, error) {
	trades, err := s.Trades(reportID)
	if err != nil {
		return nil, err
	}
	stats := Analyze(trades)
	return &stats, nil
}

// Delete removes a report together with its trades.
func (s *Service) Delete(id string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Report{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("report_id = ?", id).Delete(&models.Trade{}).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("deleted report", zap.String("report_id", id))
	return nil
}
