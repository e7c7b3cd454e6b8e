package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"productmatcher/database"
	"productmatcher/logging"
)

// checkUnchanged reports whether path is already indexed and, if so, whether
// the file is unmodified since then
func checkUnchanged(ctx context.Context, db *sql.DB, path string, info os.FileInfo) (exists bool, unchanged bool, err error) {
	exists, storedModTime, err := database.CheckProductExists(ctx, db, path)
	if err != nil || !exists {
		return exists, false, err
	}

	storedTime, err := time.Parse(time.RFC3339Nano, storedModTime)
	if err != nil {
		return true, false, fmt.Errorf("cannot parse stored time for %s: %w", path, err)
	}

	if !info.ModTime().After(storedTime) {
		logging.DebugLog("Skipping unchanged image: %s", path)
		return true, true, nil
	}
	return true, false, nil
}
