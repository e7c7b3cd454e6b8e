package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"productmatcher/logging"
	"productmatcher/types"
)

const maxErrorBody = 512

// SupabaseConfig configures the remote catalog matcher
type SupabaseConfig struct {
	URL      string
	APIKey   string
	Function string
	Timeout  time.Duration
}

// SupabaseMatcher calls a PostgREST RPC function:
//
//	POST {URL}/rest/v1/rpc/{Function}
//
// with the query as the JSON body.
type SupabaseMatcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewSupabaseMatcher builds a remote matcher
func NewSupabaseMatcher(cfg SupabaseConfig) (*SupabaseMatcher, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, errors.New("supabase URL is not configured (set SUPABASE_URL)")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("supabase API key is not configured (set SUPABASE_ANON_KEY)")
	}
	fn := cfg.Function
	if fn == "" {
		fn = DefaultMatchFunction
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SupabaseMatcher{
		endpoint: base + "/rest/v1/rpc/" + fn,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Match sends q to the RPC and returns its records unchanged
func (m *SupabaseMatcher) Match(ctx context.Context, q types.MatchQuery) (types.MatchResult, error) {
	const op = "catalog.supabase"

	b, err := json.Marshal(q)
	if err != nil {
		return nil, types.UpstreamError(op, fmt.Errorf("cannot encode query: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, types.UpstreamError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", m.apiKey)
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, types.UpstreamError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.UpstreamError(op, fmt.Errorf("cannot read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		if len(detail) > maxErrorBody {
			detail = detail[:maxErrorBody]
		}
		return nil, types.UpstreamError(op, fmt.Errorf("match request failed: HTTP %d: %s", resp.StatusCode, detail))
	}

	var result types.MatchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, types.UpstreamError(op, fmt.Errorf("cannot parse match response: %w", err))
	}
	if result == nil {
		result = types.MatchResult{}
	}

	logging.DebugLog("Catalog returned %d matches", len(result))
	return result, nil
}
