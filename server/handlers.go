package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"productmatcher/imageprocessor"
	"productmatcher/logging"
	"productmatcher/types"
)

type requestIDKey struct{}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type healthResponse struct {
	Status     string `json:"status"`
	AIReady    bool   `json:"ai_ready"`
	ModelState string `json:"model_state"`
}

type matchRequest struct {
	Image string `json:"image"`
}

type matchResponse struct {
	Success        bool               `json:"success"`
	Matches        types.MatchResult  `json:"matches"`
	ColorsDetected types.ColorProfile `json:"colors_detected"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "online",
		AIReady:    s.status.Ready(),
		ModelState: s.status.State().String(),
	})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	id := requestID(r.Context())
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logging.LogWarning("[%s] Request body exceeds %d bytes", id, tooLarge.Limit)
			writeError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		logging.LogWarning("[%s] Malformed request body: %v", id, err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "No image provided")
		return
	}

	raw, err := imageprocessor.DecodeBase64(req.Image)
	if err != nil {
		s.fail(w, id, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	res, err := s.processor.Process(ctx, raw)
	if err != nil {
		s.fail(w, id, err)
		return
	}

	t := res.Timings
	logging.DebugLog("[%s] decode=%v colors=%v normalize=%v embed=%v match=%v",
		id, t.Decode, t.Colors, t.Normalize, t.Embed, t.Match)
	logging.LogInfo("[%s] Matched %d bytes in %v: %d matches, colors %v",
		id, len(raw.Data), time.Since(start).Round(time.Millisecond), len(res.Matches), res.Colors)

	writeJSON(w, http.StatusOK, matchResponse{
		Success:        true,
		Matches:        res.Matches,
		ColorsDetected: res.Colors,
	})
}

// fail logs the full error and sends the client a sanitized message
func (s *Server) fail(w http.ResponseWriter, id string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.LogError("[%s] Match failed: %v", id, err)
	} else {
		logging.LogWarning("[%s] Match rejected: %v", id, err)
	}
	writeError(w, status, msg)
}

func statusFor(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusInternalServerError, "Request timed out"
	}
	switch types.KindOf(err) {
	case types.KindInput:
		return http.StatusBadRequest, "Invalid request"
	case types.KindDecode:
		return http.StatusBadRequest, "Invalid image data"
	case types.KindEngineNotReady:
		return http.StatusServiceUnavailable, "AI Model is still loading..."
	case types.KindEngineUnavailable:
		return http.StatusInternalServerError, "AI Model failed to load"
	case types.KindUpstream:
		return http.StatusInternalServerError, "Catalog search failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.LogError("Failed to write response: %v", err)
	}
}
