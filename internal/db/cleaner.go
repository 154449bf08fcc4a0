package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartAccountingCleaner periodically deletes closed accounting sessions
// whose stop time is older than retention. It returns immediately; the
// cleaner stops when ctx is cancelled.
func StartAccountingCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM radacct
                     WHERE acctstoptime IS NOT NULL
                       AND acctstoptime < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean accounting history", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned accounting history", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
