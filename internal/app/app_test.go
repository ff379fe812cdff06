package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/yungbote/briefs-backend/internal/data/familylock"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
)

func TestNewWithConfigWiresDrivers(t *testing.T) {
	for _, driver := range []string{DriverMemory, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DB.Driver = driver
			cfg.DB.SQLitePath = filepath.Join(t.TempDir(), "briefs.db")
			cfg.Reconcile.Interval = 0
			cfg.Metrics.Enabled = true

			a, err := NewWithConfig(logger.Nop(), cfg)
			if err != nil {
				t.Fatalf("NewWithConfig: %v", err)
			}
			defer a.Close()
			if _, ok := a.Storage.Locker.(*familylock.Local); !ok {
				t.Fatalf("lock backend: want local got=%s", a.Storage.Locker.Name())
			}

			for _, path := range []string{"/healthcheck", "/metrics", "/api/briefs"} {
				rec := httptest.NewRecorder()
				a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
				if rec.Code != http.StatusOK {
					t.Fatalf("%s: want=200 got=%d body=%s", path, rec.Code, rec.Body.String())
				}
			}
		})
	}
}
