package relatorio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/leotaq/imobigestor/internal/http/middleware"
)

type ServiceProvider interface {
	ResumoPorPeriodo(ctx context.Context, empresaID uuid.UUID, inicio, fim time.Time) (*ResumoCustos, error)
}

type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/custos", h.custos)
}

func (h *Handler) custos(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	inicio, err := parseDia(r.URL.Query().Get("inicio"), time.Now().AddDate(0, -1, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "inicio inválido, use AAAA-MM-DD", nil)
		return
	}
	fim, err := parseDia(r.URL.Query().Get("fim"), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "fim inválido, use AAAA-MM-DD", nil)
		return
	}

	resumo, err := h.service.ResumoPorPeriodo(r.Context(), actor.EmpresaID, inicio, fim)
	if err != nil {
		if errors.Is(err, ErrPeriodoInvalido) {
			writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	if resumo.Linhas == nil {
		resumo.Linhas = []CustoSolicitacao{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"resumo": resumo})
}

func parseDia(valor string, padrao time.Time) (time.Time, error) {
	if valor == "" {
		return padrao.Truncate(24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", valor)
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
