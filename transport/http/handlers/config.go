package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kart-io/buildnotify/pkg/config"
	"github.com/kart-io/buildnotify/pkg/errors"
)

// GatewayStore is the administrative view of the gateway configuration.
type GatewayStore interface {
	Gateway() config.Gateway
	Save(ctx context.Context, g config.Gateway) error
}

// ConfigHandler reads and saves the gateway configuration. Secrets are
// never echoed back.
type ConfigHandler struct {
	store GatewayStore
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(store GatewayStore) *ConfigHandler {
	return &ConfigHandler{store: store}
}

// Handle serves GET (redacted view) and PUT (validate and save). A PUT
// body is applied on top of the stored configuration; an empty or redacted
// api_key or password keeps the stored secret.
func (h *ConfigHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.store.Gateway().Redacted())
	case http.MethodPut:
		stored := h.store.Gateway()
		g := stored
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&g); err != nil {
			writeError(w, http.StatusBadRequest, errors.Wrap(err, errors.ErrInvalidConfig, "decode gateway configuration"))
			return
		}
		if err := h.store.Save(r.Context(), g.KeepSecrets(stored)); err != nil {
			status := http.StatusInternalServerError
			if errors.IsConfigError(err) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusOK, h.store.Gateway().Redacted())
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}
