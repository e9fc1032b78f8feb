package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/promptgallery/internal/monitoring"
)

// Database probes the SQL handle behind the database cache driver.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}
		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, 0)
		}
		return ping(ctx, "database", db.Dialector.Name(), PingFunc(sqlDB.PingContext), timeout)
	})
}
