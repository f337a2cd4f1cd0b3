package db

import (
	"path/filepath"
	"testing"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

func TestSQLiteServiceMigrates(t *testing.T) {
	svc, err := NewService(logger.Nop(), Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "nested", "cm.db")})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer svc.Close()
	if err := AutoMigrateAll(svc.DB()); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	for _, table := range []string{course.Module{}.TableName(), course.ProcessingStatus{}.TableName()} {
		if !svc.DB().Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := NewService(logger.Nop(), Config{Driver: "mysql"}); err == nil {
		t.Fatalf("want error for unsupported driver")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	cfg := ConfigFromEnv()
	if cfg.Driver != DriverSQLite || cfg.SQLitePath != "/tmp/x.db" || cfg.Name != "coursemedia" {
		t.Fatalf("config: got %+v", cfg)
	}
}
