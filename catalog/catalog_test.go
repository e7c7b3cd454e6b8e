package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productmatcher/database"
	"productmatcher/types"
)

func testQuery() types.MatchQuery {
	return types.MatchQuery{
		Embedding: types.EmbeddingVector{1, 0, 0},
		Colors:    types.ColorProfile{"#c81e1e"},
		Threshold: 0.4,
		Count:     6,
	}
}

func TestSupabaseMatcher_Match(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
		gotKey  string
		gotAuth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":7,"name":"Red mug","similarity":0.91,"extra":{"sku":"A1"}},{"id":3,"name":"Cup"}]`))
	}))
	defer srv.Close()

	m, err := NewSupabaseMatcher(SupabaseConfig{URL: srv.URL + "/", APIKey: "anon-key"})
	require.NoError(t, err)

	result, err := m.Match(context.Background(), testQuery())
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/rpc/match_products_advanced", gotPath)
	assert.Equal(t, "anon-key", gotKey)
	assert.Equal(t, "Bearer anon-key", gotAuth)
	assert.Equal(t, 0.4, gotBody["match_threshold"])
	assert.Equal(t, float64(6), gotBody["match_count"])
	assert.Equal(t, []any{"#c81e1e"}, gotBody["query_colors"])
	assert.Len(t, gotBody["query_embedding"], 3)

	require.Len(t, result, 2)
	assert.JSONEq(t, `{"id":7,"name":"Red mug","similarity":0.91,"extra":{"sku":"A1"}}`, string(result[0]))
	assert.JSONEq(t, `{"id":3,"name":"Cup"}`, string(result[1]))
}

func TestSupabaseMatcher_CustomFunction(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	m, err := NewSupabaseMatcher(SupabaseConfig{URL: srv.URL, APIKey: "k", Function: "match_products"})
	require.NoError(t, err)

	result, err := m.Match(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.NotNil(t, result)
	assert.Equal(t, "/rest/v1/rpc/match_products", gotPath)
}

func TestSupabaseMatcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, "HTTP 500"},
		{"unknown function", http.StatusNotFound, `{"code":"PGRST202"}`, "PGRST202"},
		{"bad json", http.StatusOK, `not json`, "cannot parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m, err := NewSupabaseMatcher(SupabaseConfig{URL: srv.URL, APIKey: "k"})
			require.NoError(t, err)

			_, err = m.Match(context.Background(), testQuery())
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrUpstream)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSupabaseMatcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m, err := NewSupabaseMatcher(SupabaseConfig{URL: url, APIKey: "k"})
	require.NoError(t, err)

	_, err = m.Match(context.Background(), testQuery())
	assert.Equal(t, types.KindUpstream, types.KindOf(err))
}

func TestNewSupabaseMatcher_RequiresCredentials(t *testing.T) {
	_, err := NewSupabaseMatcher(SupabaseConfig{APIKey: "k"})
	assert.Error(t, err)

	_, err = NewSupabaseMatcher(SupabaseConfig{URL: "http://localhost"})
	assert.Error(t, err)
}

func TestLocalMatcher_Match(t *testing.T) {
	db, err := database.InitDatabase(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, database.StoreProduct(ctx, db, types.Product{
		Name: "Red mug", Category: "kitchen", ImagePath: "/mug.jpg",
		Colors: types.ColorProfile{"#c81e1e"}, Embedding: types.EmbeddingVector{1, 0, 0},
	}, false))
	require.NoError(t, database.StoreProduct(ctx, db, types.Product{
		Name: "Blue bowl", ImagePath: "/bowl.jpg", Embedding: types.EmbeddingVector{0, 1, 0},
	}, false))

	result, err := NewLocalMatcher(db).Match(ctx, testQuery())
	require.NoError(t, err)
	require.Len(t, result, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(result[0], &rec))
	assert.Equal(t, "Red mug", rec["name"])
	assert.Equal(t, "kitchen", rec["category"])
	assert.InDelta(t, 1.0, rec["similarity"], 1e-9)
	assert.InDelta(t, 1.05, rec["score"], 1e-9)
	assert.NotContains(t, rec, "embedding")
}

func TestLocalMatcher_ClosedDatabase(t *testing.T) {
	db, err := database.InitDatabase(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewLocalMatcher(db).Match(context.Background(), testQuery())
	assert.ErrorIs(t, err, types.ErrUpstream)
}
