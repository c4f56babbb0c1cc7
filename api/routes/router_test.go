package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zedpos/zedpos-backend/internal/reports"
	"github.com/zedpos/zedpos-backend/pkg/config"
	"github.com/zedpos/zedpos-backend/pkg/db/models"
	"github.com/zedpos/zedpos-backend/pkg/logger"
)

func TestReportRoutes(t *testing.T) {
	t.Parallel()

	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Product{}, &models.Sale{}, &models.SaleItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	reportService, err := reports.NewService(gdb)
	if err != nil {
		t.Fatalf("report service: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	router := NewRouter(&config.Config{}, logg, nil, nil, nil, nil, reportService)

	for _, path := range []string{
		"/api/v1/reports/daily",
		"/api/v1/reports/tax-summary",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s returned %d: %s", path, resp.Code, resp.Body.String())
		}
	}
}
