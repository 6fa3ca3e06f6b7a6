package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

const (
	actionShutdown = "shutdown"
	actionRestart  = "restart"
)

// ServerAPI holds the dependencies for the server control handlers.
type ServerAPI struct {
	cm         *ConfigManager
	actionChan chan string
	logger     *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(cm *ConfigManager, actionChan chan string, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		cm:         cm,
		actionChan: actionChan,
		logger:     logger,
	}
}

// RegisterRoutes sets up the routing for all /api/server endpoints.
func (a *ServerAPI) RegisterRoutes(r chi.Router) {
	r.Route("/server", func(r chi.Router) {
		r.With(requireScope(scopeServerConfig)).Get("/config", a.handleGetConfig)
		r.With(requireScope(scopeServerConfig)).Put("/config", a.handleUpdateConfig)
		r.With(requireScope(scopeChampionsRead)).Get("/version", a.handleVersion)
		r.With(requireScope(scopeServerControl)).Post("/shutdown", a.handleShutdown)
		r.With(requireScope(scopeServerControl)).Post("/restart", a.handleRestart)
	})
}

func (a *ServerAPI) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := publicConfig(a.cm.Get())
	respondWithJSON(w, http.StatusOK, &cfg)
}

// publicConfig strips the API keys, which are only served through /api/auth.
func publicConfig(cfg Config) Config {
	cfg.Auth = nil
	return cfg
}

// handleUpdateConfig replaces and persists the configuration.
func (a *ServerAPI) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var newConfig Config
	if err := decodeBody(w, r, &newConfig); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	// Keys are managed only through /api/auth.
	if err := a.cm.UpdateSettings(newConfig); err != nil {
		a.logger.Error("Failed to update config", "error", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to update configuration: %v", err))
		return
	}
	cfg := publicConfig(a.cm.Get())
	respondWithJSON(w, http.StatusOK, &cfg)
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

// handleShutdown initiates a graceful shutdown of the server.
func (a *ServerAPI) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	a.logger.Warn("Shutdown initiated via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Server is shutting down..."})

	go func() {
		a.actionChan <- actionShutdown
	}()
}

// handleRestart initiates a graceful restart of the server.
func (a *ServerAPI) handleRestart(w http.ResponseWriter, _ *http.Request) {
	a.logger.Warn("Restart initiated via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Server is restarting..."})

	go func() {
		a.actionChan <- actionRestart
	}()
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}
