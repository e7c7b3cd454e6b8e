package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"productmatcher/engine"
	"productmatcher/pipeline"
	"productmatcher/types"
)

// flatModel returns identical tokens so every frame embeds to the same unit vector
type flatModel struct{}

func (flatModel) Forward(gocv.Mat) (engine.Hidden, error) {
	const tokens, dim = 3, types.EmbeddingDim
	data := make([]float32, tokens*dim)
	for i := range data {
		data[i] = 1
	}
	return engine.Hidden{Data: data, Tokens: tokens, Dim: dim, Prefix: 1}, nil
}

func (flatModel) Close() error { return nil }

// catalogStub returns at most Count canned records
type catalogStub struct {
	records []string
	queries []types.MatchQuery
	err     error
}

func (c *catalogStub) Match(_ context.Context, q types.MatchQuery) (types.MatchResult, error) {
	c.queries = append(c.queries, q)
	if c.err != nil {
		return nil, c.err
	}
	out := types.MatchResult{}
	for i, r := range c.records {
		if i == q.Count {
			break
		}
		out = append(out, json.RawMessage(r))
	}
	return out, nil
}

type harness struct {
	engine  *engine.Engine
	catalog *catalogStub
	release chan struct{}
	handler http.Handler
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		catalog: &catalogStub{},
		release: make(chan struct{}),
	}
	h.engine = engine.New(func(ctx context.Context) (engine.Model, error) {
		select {
		case <-h.release:
			return flatModel{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, engine.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h.engine.Start(ctx)

	p := pipeline.New(nil, h.engine, h.catalog)
	h.handler = New(p, h.engine, opts).Handler()
	return h
}

func (h *harness) ready(t *testing.T) {
	t.Helper()
	close(h.release)
	select {
	case <-h.engine.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not load")
	}
	require.True(t, h.engine.Ready())
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func pngBase64(t *testing.T, fg color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 80; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x >= 20 && x < 60 && y >= 15 && y < 45 {
				c = fg
			}
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func matchBody(image string) string {
	b, _ := json.Marshal(map[string]string{"image": image})
	return string(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	h := newHarness(t, Options{})

	rec := h.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, false, body["ai_ready"])

	h.ready(t)
	body = decode[map[string]any](t, h.do(t, http.MethodGet, "/health", ""))
	assert.Equal(t, true, body["ai_ready"])
	assert.Equal(t, "ready", body["model_state"])
}

func TestMatch_LoadingThenReady(t *testing.T) {
	h := newHarness(t, Options{})
	h.catalog.records = []string{
		`{"id":1,"similarity":0.9}`, `{"id":2,"similarity":0.8}`, `{"id":3,"similarity":0.7}`,
		`{"id":4,"similarity":0.6}`, `{"id":5,"similarity":0.5}`, `{"id":6,"similarity":0.45}`,
		`{"id":7,"similarity":0.41}`,
	}
	body := matchBody("data:image/png;base64," + pngBase64(t, color.RGBA{200, 30, 30, 255}))

	rec := h.do(t, http.MethodPost, "/match", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, errorResponse{Success: false, Error: "AI Model is still loading..."}, decode[errorResponse](t, rec))
	assert.Empty(t, h.catalog.queries)

	h.ready(t)

	rec = h.do(t, http.MethodPost, "/match", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	resp := decode[matchResponse](t, rec)
	assert.True(t, resp.Success)
	assert.LessOrEqual(t, len(resp.ColorsDetected), 3)
	require.NotEmpty(t, resp.ColorsDetected)
	assert.Equal(t, "#c81e1e", resp.ColorsDetected[0])
	assert.Len(t, resp.Matches, 6)

	// Replaying the request gives identical output
	again := decode[matchResponse](t, h.do(t, http.MethodPost, "/match", body))
	assert.Equal(t, resp, again)
	assert.Equal(t, h.catalog.queries[0], h.catalog.queries[1])
}

func TestMatch_BackgroundOnly(t *testing.T) {
	h := newHarness(t, Options{})
	h.ready(t)

	rec := h.do(t, http.MethodPost, "/match", matchBody(pngBase64(t, color.RGBA{255, 255, 255, 255})))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"matches":[],"colors_detected":[]}`, rec.Body.String())
}

func TestMatch_BadRequests(t *testing.T) {
	h := newHarness(t, Options{MaxBodyBytes: 1 << 10})
	h.ready(t)

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"missing image", `{}`, http.StatusBadRequest, "No image provided"},
		{"empty image", `{"image":""}`, http.StatusBadRequest, "No image provided"},
		{"not json", `image=abc`, http.StatusBadRequest, "Invalid request body"},
		{"not base64", matchBody("!!!"), http.StatusBadRequest, "Invalid image data"},
		{"not an image", matchBody(base64.StdEncoding.EncodeToString([]byte("hello world"))), http.StatusBadRequest, "Invalid image data"},
		{"too large", matchBody(strings.Repeat("A", 4<<10)), http.StatusRequestEntityTooLarge, "Image too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/match", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, errorResponse{Success: false, Error: tt.msg}, decode[errorResponse](t, rec))
		})
	}
}

func TestMatch_UpstreamErrorIsSanitized(t *testing.T) {
	h := newHarness(t, Options{})
	h.catalog.err = types.UpstreamError("catalog.supabase", errors.New("HTTP 401: secret detail"))
	h.ready(t)

	rec := h.do(t, http.MethodPost, "/match", matchBody(pngBase64(t, color.RGBA{30, 30, 200, 255})))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Equal(t, "Catalog search failed", decode[errorResponse](t, rec).Error)
}

func TestMatch_EngineFailed(t *testing.T) {
	e := engine.New(func(context.Context) (engine.Model, error) {
		return nil, errors.New("model file missing")
	}, engine.Options{})
	e.Start(context.Background())
	<-e.Done()

	handler := New(pipeline.New(nil, e, &catalogStub{}), e, Options{}).Handler()
	req := httptest.NewRequest(http.MethodPost, "/match", strings.NewReader(matchBody(pngBase64(t, color.RGBA{200, 30, 30, 255}))))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "AI Model failed to load", decode[errorResponse](t, rec).Error)
}

func TestCORSAndRouting(t *testing.T) {
	h := newHarness(t, Options{AllowedOrigin: "https://shop.example"})

	rec := h.do(t, http.MethodOptions, "/match", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	rec = h.do(t, http.MethodGet, "/match", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{types.InputError("x", nil), http.StatusBadRequest},
		{types.DecodeError("x", nil), http.StatusBadRequest},
		{types.NotReadyError("x"), http.StatusServiceUnavailable},
		{types.UnavailableError("x", nil), http.StatusInternalServerError},
		{types.UpstreamError("x", nil), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, msg := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	h := newHarness(t, Options{})
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := New(pipeline.New(nil, h.engine, h.catalog), h.engine, Options{})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
