package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/CTAG07/Zilean/pkg/champion"
	"github.com/CTAG07/Zilean/pkg/collector"
	"github.com/CTAG07/Zilean/pkg/ingest"
	"github.com/CTAG07/Zilean/pkg/registry"
	"github.com/CTAG07/Zilean/pkg/storage"
)

const maxBodyBytes = 8 << 20

// ChampionAPI holds the dependencies for the champion admin handlers.
type ChampionAPI struct {
	db       *storage.Database
	reg      *registry.Registry
	ingester *ingest.Ingester
	logger   *slog.Logger
}

// NewChampionAPI creates a new instance of the ChampionAPI.
func NewChampionAPI(db *storage.Database, reg *registry.Registry, ingester *ingest.Ingester, logger *slog.Logger) *ChampionAPI {
	return &ChampionAPI{db: db, reg: reg, ingester: ingester, logger: logger}
}

// RegisterRoutes sets up the routing for all /api/champions and /api/ingest endpoints.
func (a *ChampionAPI) RegisterRoutes(r chi.Router) {
	read := requireScope(scopeChampionsRead)
	write := requireScope(scopeChampionsWrite)

	r.With(read).Get("/champions", a.handleList)
	r.Route("/champions/{id}", func(r chi.Router) {
		r.With(write).Post("/feed", a.handleFeed)
		r.With(read).Get("/export", a.handleExport)
		r.With(write).Put("/import", a.handleImport)
		r.With(read).Get("/stats", a.handleStats)
	})
	r.With(write).Post("/ingest", a.handleIngest)
}

func (a *ChampionAPI) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := a.db.List(r.Context())
	if err != nil {
		a.logger.Error("Failed to list champions", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list champions: %v", err))
		return
	}
	if ids == nil {
		ids = []uint32{}
	}
	respondWithJSON(w, http.StatusOK, ids)
}

// handleFeed trains one champion from a JSON list of nicknames.
func (a *ChampionAPI) handleFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := championIDParam(w, r)
	if !ok {
		return
	}
	var nicknames []string
	if err := decodeBody(w, r, &nicknames); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body: expected a list of nicknames")
		return
	}

	res, err := a.ingester.Apply(r.Context(), collector.Payload{id: nicknames})
	if err != nil {
		a.logger.Error("Failed to feed champion", "champion_id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to feed champion: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (a *ChampionAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := championIDParam(w, r)
	if !ok {
		return
	}
	var snap champion.Snapshot
	err := a.reg.View(r.Context(), id, func(c *champion.Champion) error {
		snap = c.Snapshot()
		return nil
	})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to export champion: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// handleImport replaces a champion's table with the uploaded snapshot.
func (a *ChampionAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	id, ok := championIDParam(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	err = a.reg.Replace(r.Context(), id, body)
	switch {
	case err == nil:
		a.logger.Info("Imported champion snapshot", "champion_id", id)
		respondWithJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Champion %d imported", id)})
	case errors.Is(err, champion.ErrMalformedSnapshot):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.Error("Failed to import champion", "champion_id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to import champion: %v", err))
	}
}

func (a *ChampionAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := championIDParam(w, r)
	if !ok {
		return
	}
	var stats champion.Stats
	err := a.reg.View(r.Context(), id, func(c *champion.Champion) error {
		stats = c.Stats()
		return nil
	})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read champion: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// handleIngest applies a bulk nicknames payload, the same content the
// collector reports.
func (a *ChampionAPI) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	payload, err := collector.DecodeNicknames(body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.ingester.Apply(r.Context(), payload)
	if err != nil {
		a.logger.Error("Bulk ingest partially failed", "failed", res.Failed, "error", err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  err.Error(),
			"result": res,
		})
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func championIDParam(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	id, err := parseChampionID(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
