package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/proofbyoutput/proofcoach/internal/diagnose"
	"github.com/proofbyoutput/proofcoach/internal/record"
)

const (
	defaultListLimit = 50

	// maxListLimit keeps a single request from paging through the whole
	// index.
	maxListLimit = 500
)

type diagnoseRequest struct {
	Topic       string `json:"topic"`
	Explanation string `json:"explanation"`
}

type recordPayload struct {
	ID string `json:"id"`
	*record.Record
}

type diagnoseResponse struct {
	recordPayload
	RankComment   string `json:"rank_comment"`
	PreviousScore *int   `json:"previous_score"`
	Delta         *int   `json:"delta"`
}

type entryPayload struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Topic     string        `json:"topic"`
	Score     int           `json:"score"`
	Rank      diagnose.Rank `json:"rank"`
	CharCount int           `json:"char_count"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleCreateDiagnosis(w http.ResponseWriter, r *http.Request) {
	var req diagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "invalid_request",
			Detail: "request body must be JSON with topic and explanation",
		})
		return
	}

	result, err := s.diagnoser.Diagnose(r.Context(), req.Topic, req.Explanation)
	if err != nil {
		s.writeDiagnoseError(w, err)
		return
	}

	rec, err := s.records.Save(req.Topic, req.Explanation, result)
	if err != nil {
		s.logger.Error("failed to save record", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage_error"})
		return
	}

	resp := diagnoseResponse{
		recordPayload: recordPayload{ID: rec.ID, Record: rec},
		RankComment:   rec.Rank.Comment(),
	}
	prev, ok, err := s.records.PreviousScore(rec.Topic, rec.CreatedAt)
	if err != nil {
		s.logger.Warn("failed to look up previous score",
			zap.String("topic", rec.Topic), zap.Error(err))
	} else if ok {
		delta := rec.Score - prev
		resp.PreviousScore = &prev
		resp.Delta = &delta
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListDiagnoses(w http.ResponseWriter, r *http.Request) {
	limit, err := listLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "invalid_request",
			Detail: "limit must be a positive integer",
		})
		return
	}

	var entries []record.Entry
	if topic := r.URL.Query().Get("topic"); topic != "" {
		entries, err = s.records.RecentByTopic(topic, limit)
	} else {
		entries, err = s.records.Recent(limit)
	}
	if err != nil {
		s.logger.Error("failed to list records", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage_error"})
		return
	}

	payload := make([]entryPayload, 0, len(entries))
	for _, e := range entries {
		payload = append(payload, entryPayload{
			ID:        e.File,
			CreatedAt: e.RecordedAt,
			Topic:     e.Topic,
			Score:     e.Score,
			Rank:      e.RankValue(),
			CharCount: e.CharCount,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

// listLimit parses the limit query parameter, falling back to the default
// and capping oversized values.
func listLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, maxListLimit), nil
}

func (s *Server) handleGetDiagnosis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.records.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found"})
		return
	}

	writeJSON(w, http.StatusOK, recordPayload{ID: rec.ID, Record: rec})
}

func (s *Server) writeDiagnoseError(w http.ResponseWriter, err error) {
	var verr *diagnose.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation_failed",
			Detail: verr.Message,
		})
		return
	}

	var uerr *diagnose.UpstreamError
	if errors.As(err, &uerr) {
		s.logger.Error("diagnosis failed upstream", zap.Error(uerr))
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:  "upstream_failed",
			Detail: "AI呼び出しに失敗しました。しばらくしてから再度お試しください。",
		})
		return
	}

	s.logger.Error("diagnosis failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
