package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/service"
)

// SettingsHandler 全局配置管理
type SettingsHandler struct {
	settings *service.SettingsService
	logger   *zap.Logger
}

func NewSettingsHandler(settings *service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/admin/api/v1/settings")
	key = strings.TrimPrefix(key, "/")

	switch {
	case key == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case key != "" && r.Method == http.MethodGet:
		h.get(w, r, key)
	case key != "" && r.Method == http.MethodPut:
		h.update(w, r, key)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.settings.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]any, 0, len(items))
	for _, s := range items {
		out = append(out, s.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out}))
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request, key string) {
	s, err := h.settings.Get(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(s.ToJSON()))
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request, key string) {
	var payload struct {
		Value string `json:"value"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if err := h.settings.Update(r.Context(), key, payload.Value); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("setting updated", zap.String("key", key))
	writeJSON(w, http.StatusOK, Ok(map[string]any{"key": key, "value": payload.Value}))
}
