package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Scopes understood by the admin API. "*" grants all of them.
const (
	scopeMaster         = "*"
	scopeChampionsRead  = "champions:read"
	scopeChampionsWrite = "champions:write"
	scopeServerConfig   = "server:config"
	scopeServerControl  = "server:control"
	scopeAuthManage     = "auth:manage"
)

const authHeader = "zilean-auth"

type contextKey string

const contextKeyPermission = contextKey("permissions")

// APIKey is a stored admin key. Only the hash of the raw key is kept.
type APIKey struct {
	ID          int      `json:"id"`
	KeyHash     string   `json:"key_hash"`
	Scopes      []string `json:"scopes"`
	Description string   `json:"description"`
}

// AuthConfig holds the admin API keys. With no keys the admin API is open.
type AuthConfig struct {
	Keys []APIKey `json:"keys"`
}

// Permissions holds the authentication info for a request.
type Permissions struct {
	KeyID    int
	ScopeSet map[string]struct{}
}

// AuthAPI authenticates admin requests and manages API keys.
type AuthAPI struct {
	cm     *ConfigManager
	mu     sync.Mutex // serializes key changes
	logger *slog.Logger
}

// NewAuthAPI creates a new instance of the AuthAPI.
func NewAuthAPI(cm *ConfigManager, logger *slog.Logger) *AuthAPI {
	return &AuthAPI{cm: cm, logger: logger}
}

// RegisterRoutes sets up the routing for all /api/auth endpoints.
func (a *AuthAPI) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/me", a.handleCheckMe)
		r.With(requireScope(scopeAuthManage)).Get("/keys", a.handleListKeys)
		r.With(requireScope(scopeAuthManage)).Post("/keys", a.handleCreateKey)
		r.With(requireScope(scopeAuthManage)).Delete("/keys/{keyID}", a.handleDeleteKey)
	})
}

// Authenticate checks for a valid key in the zilean-auth header.
func (a *AuthAPI) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys := a.keys()
		if len(keys) == 0 {
			// No keys exist, the API is open.
			ctx := context.WithValue(r.Context(), contextKeyPermission, &Permissions{ScopeSet: map[string]struct{}{scopeMaster: {}}})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		raw := r.Header.Get(authHeader)
		if raw == "" {
			respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}
		hash := hashAPIKey(raw)
		for _, key := range keys {
			if subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) == 1 {
				perms := &Permissions{KeyID: key.ID, ScopeSet: make(map[string]struct{}, len(key.Scopes))}
				for _, s := range key.Scopes {
					perms.ScopeSet[s] = struct{}{}
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyPermission, perms)))
				return
			}
		}
		a.logger.WarnContext(r.Context(), "Rejected request with unknown API key", "path", r.URL.Path)
		respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	})
}

func (a *AuthAPI) keys() []APIKey {
	cfg := a.cm.Get()
	if cfg.Auth == nil {
		return nil
	}
	return cfg.Auth.Keys
}

// requireScope rejects requests whose key lacks scope.
func requireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasScope(r, scope) {
				respondWithError(w, http.StatusForbidden, fmt.Sprintf("Forbidden: requires '%s' scope", scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hasScope checks if the permission set in the request context includes a required scope.
func hasScope(r *http.Request, requiredScope string) bool {
	perms, ok := r.Context().Value(contextKeyPermission).(*Permissions)
	if !ok {
		return false
	}
	if _, isMaster := perms.ScopeSet[scopeMaster]; isMaster {
		return true
	}
	_, has := perms.ScopeSet[requiredScope]
	return has
}

func (a *AuthAPI) handleCheckMe(w http.ResponseWriter, r *http.Request) {
	perms, ok := r.Context().Value(contextKeyPermission).(*Permissions)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Invalid or missing token")
		return
	}
	scopes := make([]string, 0, len(perms.ScopeSet))
	for s := range perms.ScopeSet {
		scopes = append(scopes, s)
	}
	slices.Sort(scopes)
	respondWithJSON(w, http.StatusOK, map[string]any{"id": perms.KeyID, "scopes": scopes})
}

// APIKeyInfo is the structure returned when listing keys.
type APIKeyInfo struct {
	ID          int      `json:"id"`
	Scopes      []string `json:"scopes"`
	Description string   `json:"description"`
}

// CreateKeyRequest is the expected JSON body for creating a new key.
type CreateKeyRequest struct {
	Scopes      []string `json:"scopes"`
	Description string   `json:"description"`
}

// CreateKeyResponse is the JSON response after creating a key. RawKey is
// only ever shown here.
type CreateKeyResponse struct {
	ID     int      `json:"id"`
	RawKey string   `json:"raw_key"`
	Scopes []string `json:"scopes"`
}

func (a *AuthAPI) handleListKeys(w http.ResponseWriter, _ *http.Request) {
	keys := a.keys()
	infos := make([]APIKeyInfo, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, APIKeyInfo{ID: k.ID, Scopes: k.Scopes, Description: k.Description})
	}
	respondWithJSON(w, http.StatusOK, infos)
}

func (a *AuthAPI) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	rawKey, err := generateAPIKey()
	if err != nil {
		a.logger.Error("Failed to generate new API key", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Key generation failed")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	keys := a.keys()
	scopes := req.Scopes
	// The first key is always a master key so the API cannot be locked out.
	if len(keys) == 0 {
		scopes = []string{scopeMaster}
	}
	nextID := 1
	for _, k := range keys {
		nextID = max(nextID, k.ID+1)
	}
	key := APIKey{ID: nextID, KeyHash: hashAPIKey(rawKey), Scopes: scopes, Description: req.Description}

	if err = a.cm.UpdateAuth(&AuthConfig{Keys: append(slices.Clone(keys), key)}); err != nil {
		a.logger.Error("Failed to save new API key", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to save new key")
		return
	}
	a.logger.Info("Created API key", "id", key.ID, "scopes", key.Scopes)
	respondWithJSON(w, http.StatusCreated, CreateKeyResponse{ID: key.ID, RawKey: rawKey, Scopes: key.Scopes})
}

func (a *AuthAPI) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "keyID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid key ID format in URL")
		return
	}
	if id == 1 {
		respondWithError(w, http.StatusBadRequest, "Cannot delete the primary master key (ID 1)")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	keys := a.keys()
	idx := slices.IndexFunc(keys, func(k APIKey) bool { return k.ID == id })
	if idx < 0 {
		respondWithError(w, http.StatusNotFound, "Key not found")
		return
	}
	if err = a.cm.UpdateAuth(&AuthConfig{Keys: slices.Delete(slices.Clone(keys), idx, idx+1)}); err != nil {
		a.logger.Error("Failed to delete API key", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return "zln_" + hex.EncodeToString(buf), nil
}

func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
