package solicitacao

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/leotaq/imobigestor/internal/http/middleware"
	"github.com/leotaq/imobigestor/internal/identity"
	"github.com/leotaq/imobigestor/internal/util"
)

// ServiceProvider abstrai o serviço para o handler.
type ServiceProvider interface {
	Create(ctx context.Context, actor identity.Actor, input CreateInput) (*Solicitacao, error)
	Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Solicitacao, error)
	List(ctx context.Context, actor identity.Actor) ([]Solicitacao, error)
	Transition(ctx context.Context, actor identity.Actor, id uuid.UUID, alvo Status) (*Solicitacao, error)
	AtualizarItens(ctx context.Context, actor identity.Actor, id uuid.UUID, itens []ItemInput) (*Solicitacao, error)
}

// Handler expõe endpoints REST das solicitações.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/status", h.transition)
	r.Put("/{id}/itens", h.replaceItens)
}

type itemPayload struct {
	TipoServicoID string `json:"tipo_servico_id" validate:"required,uuid"`
	Descricao     string `json:"descricao" validate:"required"`
	Prioridade    string `json:"prioridade"`
}

type createPayload struct {
	ImovelID        string        `json:"imovel_id" validate:"required,uuid"`
	TipoSolicitante string        `json:"tipo_solicitante" validate:"required,oneof=inquilino proprietario imobiliaria terceiro"`
	PrazoDesejado   *time.Time    `json:"prazo_desejado"`
	Itens           []itemPayload `json:"itens" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if details := util.ValidateStruct(payload); details != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", details)
		return
	}

	input := CreateInput{
		ImovelID:        uuid.MustParse(payload.ImovelID),
		TipoSolicitante: payload.TipoSolicitante,
		PrazoDesejado:   payload.PrazoDesejado,
	}
	for _, item := range payload.Itens {
		input.Itens = append(input.Itens, ItemInput{
			TipoServicoID: uuid.MustParse(item.TipoServicoID),
			Descricao:     item.Descricao,
			Prioridade:    item.Prioridade,
		})
	}

	sol, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"solicitacao": sol})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	sols, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if sols == nil {
		sols = []Solicitacao{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"solicitacoes": sols})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	sol, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"solicitacao": sol})
}

type transitionPayload struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload transitionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if details := util.ValidateStruct(payload); details != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", details)
		return
	}

	alvo, err := ParseStatus(payload.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "status desconhecido", map[string]string{"status": payload.Status})
		return
	}

	sol, err := h.service.Transition(r.Context(), actor, id, alvo)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"solicitacao": sol})
}

type replaceItensPayload struct {
	Itens []itemPayload `json:"itens" validate:"required,min=1,dive"`
}

func (h *Handler) replaceItens(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload replaceItensPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if details := util.ValidateStruct(payload); details != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", details)
		return
	}

	itens := make([]ItemInput, 0, len(payload.Itens))
	for _, item := range payload.Itens {
		itens = append(itens, ItemInput{
			TipoServicoID: uuid.MustParse(item.TipoServicoID),
			Descricao:     item.Descricao,
			Prioridade:    item.Prioridade,
		})
	}

	sol, err := h.service.AtualizarItens(r.Context(), actor, id, itens)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"solicitacao": sol})
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "solicitação não encontrada", nil)
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, ErrTransicaoInvalida), errors.Is(err, ErrConflitoStatus), errors.Is(err, ErrItensCongelados):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrSemItens), errors.Is(err, ErrPrioridade), errors.Is(err, ErrTipoSolicitante), errors.Is(err, ErrStatusDesconhecido):
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
