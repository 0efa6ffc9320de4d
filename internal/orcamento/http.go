package orcamento

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/leotaq/imobigestor/internal/http/middleware"
	"github.com/leotaq/imobigestor/internal/identity"
	"github.com/leotaq/imobigestor/internal/solicitacao"
	"github.com/leotaq/imobigestor/internal/util"
)

// ServiceProvider abstrai o serviço para o handler.
type ServiceProvider interface {
	Create(ctx context.Context, actor identity.Actor, input CreateInput) (*Orcamento, error)
	ListBySolicitacao(ctx context.Context, actor identity.Actor, solicitacaoID uuid.UUID) ([]Orcamento, error)
	ListDoPrestador(ctx context.Context, actor identity.Actor) ([]Orcamento, error)
	SetPrincipal(ctx context.Context, actor identity.Actor, orcamentoID uuid.UUID) (*Orcamento, error)
}

// Handler expõe endpoints REST dos orçamentos.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/meus", h.listDoPrestador)
	r.Patch("/{id}/principal", h.setPrincipal)
}

type itemPayload struct {
	Tipo          string  `json:"tipo" validate:"required,oneof=mao_de_obra material"`
	Descricao     string  `json:"descricao" validate:"required"`
	Quantidade    float64 `json:"quantidade" validate:"gt=0"`
	ValorUnitario float64 `json:"valor_unitario" validate:"gte=0"`
}

type createPayload struct {
	SolicitacaoID     string        `json:"solicitacao_id" validate:"required,uuid"`
	PrestadorID       string        `json:"prestador_id" validate:"omitempty,uuid"`
	Itens             []itemPayload `json:"itens" validate:"required,min=1,dive"`
	TaxaAdminPct      float64       `json:"taxa_admin_pct" validate:"gte=0,max=100"`
	PrazoExecucaoDias int           `json:"prazo_execucao_dias" validate:"gt=0"`
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
		SolicitacaoID:     uuid.MustParse(payload.SolicitacaoID),
		TaxaAdminPct:      payload.TaxaAdminPct,
		PrazoExecucaoDias: payload.PrazoExecucaoDias,
	}
	if payload.PrestadorID != "" {
		input.PrestadorID = uuid.MustParse(payload.PrestadorID)
	}
	for _, item := range payload.Itens {
		input.Itens = append(input.Itens, ItemInput{
			Tipo:          item.Tipo,
			Descricao:     item.Descricao,
			Quantidade:    item.Quantidade,
			ValorUnitario: item.ValorUnitario,
		})
	}

	orc, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"orcamento": orc})
}

// listBySolicitacao é montado sob /solicitacoes/{id}/orcamentos.
func (h *Handler) ListBySolicitacaoHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	solicitacaoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	orcs, err := h.service.ListBySolicitacao(r.Context(), actor, solicitacaoID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if orcs == nil {
		orcs = []Orcamento{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"orcamentos": orcs})
}

func (h *Handler) listDoPrestador(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	orcs, err := h.service.ListDoPrestador(r.Context(), actor)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if orcs == nil {
		orcs = []Orcamento{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"orcamentos": orcs})
}

func (h *Handler) setPrincipal(w http.ResponseWriter, r *http.Request) {
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

	orc, err := h.service.SetPrincipal(r.Context(), actor, id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orcamento": orc})
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, solicitacao.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, ErrSolicitacaoFechada):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrSemItens), errors.Is(err, ErrTipoItem), errors.Is(err, ErrTaxaAdmin),
		errors.Is(err, ErrPrazoExecucao), errors.Is(err, ErrPrestadorAusente):
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
