// Package catalog holds the catalog matcher backends: the remote Supabase
// RPC and a local sqlite store.
package catalog

import (
	"context"

	"productmatcher/types"
)

// DefaultMatchFunction is the RPC the remote catalog exposes for similarity search
const DefaultMatchFunction = "match_products_advanced"

// Matcher performs similarity search over the product catalog. Results are
// ordered best first and returned as the backend produced them.
type Matcher interface {
	Match(ctx context.Context, q types.MatchQuery) (types.MatchResult, error)
}
