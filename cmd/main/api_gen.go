package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/CTAG07/Zilean/pkg/champion"
	"github.com/CTAG07/Zilean/pkg/metrics"
	"github.com/CTAG07/Zilean/pkg/registry"
)

const (
	answerOK  = 0
	answerErr = 1

	contentNickname = "nickname"
	contentErr      = "err"
)

// Answer is the envelope returned by the generation endpoint.
type Answer struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

func errorAnswer(message string) Answer {
	return Answer{Status: answerErr, ContentType: contentErr, Content: message}
}

// GenAPI serves generated nicknames.
type GenAPI struct {
	cm     *ConfigManager
	reg    *registry.Registry
	logger *slog.Logger
}

// NewGenAPI creates a new instance of the GenAPI.
func NewGenAPI(cm *ConfigManager, reg *registry.Registry, logger *slog.Logger) *GenAPI {
	return &GenAPI{cm: cm, reg: reg, logger: logger}
}

// RegisterRoutes sets up the generation route.
func (g *GenAPI) RegisterRoutes(r chi.Router) {
	r.Get("/gen/{id}", g.handleGen)
}

// handleGen generates one nickname for a champion. Failures are reported in
// the Answer envelope, so the HTTP status is always 200.
func (g *GenAPI) handleGen(w http.ResponseWriter, r *http.Request) {
	id, err := parseChampionID(chi.URLParam(r, "id"))
	if err != nil {
		g.logger.WarnContext(r.Context(), "Invalid id supplied", slog.String("error", err.Error()))
		metrics.RecordGen(metrics.GenError)
		respondWithJSON(w, http.StatusOK, errorAnswer(err.Error()))
		return
	}

	length, err := g.genLength(r)
	if err != nil {
		metrics.RecordGen(metrics.GenError)
		respondWithJSON(w, http.StatusOK, errorAnswer(err.Error()))
		return
	}

	var nickname string
	err = g.reg.View(r.Context(), id, func(c *champion.Champion) error {
		var genErr error
		nickname, genErr = c.Gen(length)
		return genErr
	})

	switch {
	case err == nil:
		metrics.RecordGen(metrics.GenOK)
		respondWithJSON(w, http.StatusOK, Answer{Status: answerOK, ContentType: contentNickname, Content: nickname})
	case errors.Is(err, champion.ErrNoData):
		metrics.RecordGen(metrics.GenNoData)
		respondWithJSON(w, http.StatusOK, errorAnswer("id doesn't exist in database"))
	case errors.Is(err, champion.ErrInvariantViolation):
		metrics.RecordGen(metrics.GenInvariant)
		g.logger.ErrorContext(r.Context(), "Champion table is inconsistent",
			slog.Uint64("champion_id", uint64(id)),
			slog.String("error", err.Error()),
		)
		respondWithJSON(w, http.StatusOK, errorAnswer("champion data is corrupted"))
	default:
		metrics.RecordGen(metrics.GenError)
		g.logger.ErrorContext(r.Context(), "Failed to generate nickname",
			slog.Uint64("champion_id", uint64(id)),
			slog.String("error", err.Error()),
		)
		respondWithJSON(w, http.StatusOK, errorAnswer("generation failed"))
	}
}

// genLength returns the configured length, or the len query parameter
// capped at the configured maximum.
func (g *GenAPI) genLength(r *http.Request) (int, error) {
	cfg := g.cm.Get()
	raw := r.URL.Query().Get("len")
	if raw == "" {
		return cfg.Server.GenLength, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("len must be a non-negative integer")
	}
	return min(n, cfg.Server.MaxGenLength), nil
}

func parseChampionID(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.New("invalid champion id: " + strconv.Quote(raw))
	}
	return uint32(id), nil
}
