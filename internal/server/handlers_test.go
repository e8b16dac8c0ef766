package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/fetch"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/metrics"
)

const sampleCSV = `Kód,Nyitási irány,Zárási idő (UTC+0),Nettó €,Egyenleg €,Záró mennyiség
EURUSD,Buy,28/04/2025 14:35:12.862000,100.50,10100.50,Closed 0.50
DAX,SELL,29/04/2025 09:15:00.123000,-50.25,10050.25,Closed 1.00`

// MockFetcher is a mock implementation of the FetcherInterface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	args := m.Called(rawURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// setupServer creates a server on a fresh in-memory database, without the
// HTML dashboard.
func setupServer(t *testing.T) (*Server, *MockFetcher) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, database.AutoMigrate(db))

	svc := journal.NewService(zap.NewNop(), db, metrics.New())
	mockFetcher := new(MockFetcher)

	cfg := &config.Config{}
	cfg.Server.UploadLimitMB = 4

	s := NewServer(cfg, zap.NewNop(), svc, mockFetcher, metrics.New())
	return s, mockFetcher
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	assert.NoError(t, err)
	_, err = part.Write([]byte(content))
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

// importSample uploads the sample report and returns its id.
func importSample(t *testing.T, s *Server) string {
	body, contentType := multipartBody(t, "file", "statement.csv", sampleCSV)
	req, _ := http.NewRequest("POST", "/api/reports", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var report map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	id, _ := report["id"].(string)
	assert.NotEmpty(t, id)
	return id
}

func TestUploadReport(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s, _ := setupServer(t)

		body, contentType := multipartBody(t, "file", "statement.csv", sampleCSV)
		req, _ := http.NewRequest("POST", "/api/reports", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var report map[string]interface{}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, "statement.csv", report["source"])
		assert.Equal(t, float64(2), report["trade_count"])
	})

	t.Run("MissingFileField", func(t *testing.T) {
		s, _ := setupServer(t)

		req, _ := http.NewRequest("POST", "/api/reports", strings.NewReader(""))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidReport", func(t *testing.T) {
		s, _ := setupServer(t)

		body, contentType := multipartBody(t, "file", "junk.csv", "definitely,not\na,report")
		req, _ := http.NewRequest("POST", "/api/reports", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "invalid activity report")
	})

	t.Run("FileTooLarge", func(t *testing.T) {
		s, _ := setupServer(t)

		body, contentType := multipartBody(t, "file", "big.csv", strings.Repeat("a", 5<<20))
		req, _ := http.NewRequest("POST", "/api/reports", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestFetchReport(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s, mockFetcher := setupServer(t)
		mockFetcher.On("Fetch", "https://example.com/statement.csv").
			Return([]byte(sampleCSV), nil)

		payload := `{"url": "https://example.com/statement.csv"}`
		req, _ := http.NewRequest("POST", "/api/reports/fetch", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var report map[string]interface{}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, "https://example.com/statement.csv", report["source"])
		mockFetcher.AssertExpectations(t)
	})

	t.Run("MissingURL", func(t *testing.T) {
		s, _ := setupServer(t)

		req, _ := http.NewRequest("POST", "/api/reports/fetch", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RejectedURL", func(t *testing.T) {
		s, mockFetcher := setupServer(t)
		mockFetcher.On("Fetch", "ftp://example.com/x.csv").
			Return(nil, fetch.ErrBadURL)

		payload := `{"url": "ftp://example.com/x.csv"}`
		req, _ := http.NewRequest("POST", "/api/reports/fetch", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DownloadFailure", func(t *testing.T) {
		s, mockFetcher := setupServer(t)
		mockFetcher.On("Fetch", "https://example.com/down.csv").
			Return(nil, errors.New("connection refused"))

		payload := `{"url": "https://example.com/down.csv"}`
		req, _ := http.NewRequest("POST", "/api/reports/fetch", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		s, mockFetcher := setupServer(t)
		mockFetcher.On("Fetch", "https://example.com/junk.csv").
			Return([]byte("not,a\nreport,either"), nil)

		payload := `{"url": "https://example.com/junk.csv"}`
		req, _ := http.NewRequest("POST", "/api/reports/fetch", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestListReports(t *testing.T) {
	s, _ := setupServer(t)

	req, _ := http.NewRequest("GET", "/api/reports", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	importSample(t, s)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var reports []map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	assert.Len(t, reports, 1)
}

func TestReportStats(t *testing.T) {
	s, _ := setupServer(t)
	id := importSample(t, s)

	req, _ := http.NewRequest("GET", "/api/reports/"+id+"/stats", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	stats := resp["stats"].(map[string]interface{})
	summary := stats["summary"].(map[string]interface{})
	assert.Equal(t, float64(2), summary["total_trades"])
	assert.Equal(t, float64(50), summary["win_rate"])
	assert.Equal(t, "50.25", summary["total_profit"])

	profitFactor := summary["profit_factor"].(map[string]interface{})
	assert.Equal(t, false, profitFactor["infinite"])
	assert.Equal(t, "2", profitFactor["ratio"])

	assert.Len(t, stats["instruments"], 2)
	assert.Len(t, stats["equity"], 2)
}

func TestReportStatsNotFound(t *testing.T) {
	s, _ := setupServer(t)

	req, _ := http.NewRequest("GET", "/api/reports/does-not-exist/stats", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportReportRoundTrip(t *testing.T) {
	s, _ := setupServer(t)
	id := importSample(t, s)

	req, _ := http.NewRequest("GET", "/api/reports/"+id+"/export", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Equal(t, "symbol,direction,close_time,net_profit,balance,lots", strings.TrimSpace(lines[0]))
	assert.Len(t, lines, 3)

	// An exported report must import cleanly again.
	body, contentType := multipartBody(t, "file", "export.csv", w.Body.String())
	req, _ = http.NewRequest("POST", "/api/reports", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var report map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, float64(2), report["trade_count"])
}

func TestDeleteReport(t *testing.T) {
	s, _ := setupServer(t)
	id := importSample(t, s)

	req, _ := http.NewRequest("DELETE", "/api/reports/"+id, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req, _ = http.NewRequest("GET", "/api/reports/"+id+"/stats", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req, _ = http.NewRequest("DELETE", "/api/reports/"+id, nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChartPages(t *testing.T) {
	s, _ := setupServer(t)
	id := importSample(t, s)

	pages := []string{"equity", "instruments", "directions", "weekdays"}
	for _, page := range pages {
		t.Run(page, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/reports/"+id+"/charts/"+page, nil)
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, w.Body.String(), "echarts")
		})
	}

	req, _ := http.NewRequest("GET", "/reports/unknown/charts/equity", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	s, _ := setupServer(t)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
