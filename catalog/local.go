package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"productmatcher/database"
	"productmatcher/types"
)

// LocalMatcher searches the sqlite catalog written by the indexer
type LocalMatcher struct {
	db *sql.DB
}

// NewLocalMatcher wraps an open catalog database
func NewLocalMatcher(db *sql.DB) *LocalMatcher {
	return &LocalMatcher{db: db}
}

// Match runs a brute-force similarity search and encodes each hit as a JSON record
func (m *LocalMatcher) Match(ctx context.Context, q types.MatchQuery) (types.MatchResult, error) {
	const op = "catalog.local"

	matches, err := database.MatchProducts(ctx, m.db, q)
	if err != nil {
		return nil, types.UpstreamError(op, err)
	}

	result := make(types.MatchResult, 0, len(matches))
	for _, pm := range matches {
		rec, err := json.Marshal(pm)
		if err != nil {
			return nil, types.UpstreamError(op, fmt.Errorf("cannot encode product %d: %w", pm.ID, err))
		}
		result = append(result, rec)
	}
	return result, nil
}
