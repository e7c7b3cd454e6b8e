package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"productmatcher/logging"
	"productmatcher/types"
)

const (
	// ColorBonus is added to a product's score per dominant color it shares with the query
	ColorBonus = 0.05
	// MaxColorBonus caps the total color contribution
	MaxColorBonus = 0.1
)

// MatchProducts scores every indexed product against q and returns at most
// q.Count products whose similarity reaches q.Threshold, best first.
// Similarity is the dot product of unit vectors; shared dominant colors
// nudge the ranking without affecting the threshold.
func MatchProducts(ctx context.Context, db *sql.DB, q types.MatchQuery) ([]types.ProductMatch, error) {
	if len(q.Embedding) == 0 {
		return nil, errors.New("query embedding is empty")
	}
	if q.Count <= 0 {
		return []types.ProductMatch{}, nil
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name, category, image_path, colors, embedding, created_at, modified_at
		FROM products WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	queryColors := make(map[string]bool, len(q.Colors))
	for _, c := range q.Colors {
		queryColors[c] = true
	}

	matches := []types.ProductMatch{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}

		similarity, err := Dot(q.Embedding, p.Embedding)
		if errors.Is(err, ErrVectorLengthMismatch) {
			logging.LogWarning("Skipping product %d: embedding has %d components, query has %d",
				p.ID, len(p.Embedding), len(q.Embedding))
			continue
		}
		if similarity < q.Threshold {
			continue
		}

		bonus := 0.0
		for _, c := range p.Colors {
			if queryColors[c] {
				bonus += ColorBonus
			}
		}
		if bonus > MaxColorBonus {
			bonus = MaxColorBonus
		}

		p.Embedding = nil
		matches = append(matches, types.ProductMatch{
			Product:    *p,
			Similarity: similarity,
			Score:      similarity + bonus,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading products: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > q.Count {
		matches = matches[:q.Count]
	}
	return matches, nil
}
