package empresa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/leotaq/imobigestor/internal/util"
)

type ServiceProvider interface {
	Get(ctx context.Context, id uuid.UUID) (*Empresa, error)
	List(ctx context.Context) ([]Empresa, error)
	Create(ctx context.Context, input CreateInput) (*Empresa, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) error
}

type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registra o CRUD de empresas. O chamador aplica RequireMaster.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}/settings", h.updateSettings)
}

type createPayload struct {
	Slug         string         `json:"slug" validate:"required"`
	Nome         string         `json:"nome" validate:"required"`
	TaxaAdminPct float64        `json:"taxa_admin_pct" validate:"gte=0,lte=100"`
	Settings     map[string]any `json:"settings"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if details := util.ValidateStruct(payload); details != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", details)
		return
	}

	e, err := h.service.Create(r.Context(), CreateInput{
		Slug:         payload.Slug,
		Nome:         payload.Nome,
		TaxaAdminPct: payload.TaxaAdminPct,
		Settings:     payload.Settings,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"empresa": e})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	empresas, err := h.service.List(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	if empresas == nil {
		empresas = []Empresa{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"empresas": empresas})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"empresa": e})
}

type settingsPayload struct {
	Settings map[string]any `json:"settings" validate:"required"`
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if details := util.ValidateStruct(payload); details != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", details)
		return
	}

	if err := h.service.UpdateSettings(r.Context(), id, payload.Settings); err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"atualizada": true})
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "empresa não encontrada", nil)
	case errors.Is(err, ErrSlugEmUso):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrSlugVazio), errors.Is(err, ErrNomeVazio), errors.Is(err, ErrTaxaInvalida):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}

type successEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

type errorEnvelope struct {
	Data  any        `json:"data"`
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Data: nil,
		Error: &errorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
