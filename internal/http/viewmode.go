package http

import (
	"encoding/json"
	"net/http"

	httpmiddleware "github.com/leotaq/imobigestor/internal/http/middleware"
	"github.com/leotaq/imobigestor/internal/identity"
)

// GetViewMode devolve o modo de visão efetivo e os modos disponíveis.
func (h *Handler) GetViewMode(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	modo, err := h.viewModes.Resolve(r.Context(), actor)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível resolver o modo de visão", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"modo_visao":  modo,
		"disponiveis": identity.EntitledModes(actor),
	})
}

// SetViewMode registra a preferência de modo de visão. Escolha fora dos
// modos disponíveis não altera nada e devolve o modo efetivo atual.
func (h *Handler) SetViewMode(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	var payload struct {
		ModoVisao string `json:"modo_visao"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	modo, ok := identity.ParseViewMode(payload.ModoVisao)
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "modo de visão desconhecido", map[string]string{"modo_visao": payload.ModoVisao})
		return
	}

	efetivo, err := h.viewModes.Choose(r.Context(), actor, modo)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível salvar o modo de visão", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"modo_visao":  efetivo,
		"disponiveis": identity.EntitledModes(actor),
	})
}
