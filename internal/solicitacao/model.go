package solicitacao

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("solicitação não encontrada")
	ErrForbidden       = errors.New("acesso negado à solicitação")
	ErrSemItens        = errors.New("solicitação exige ao menos um item de serviço")
	ErrPrioridade      = errors.New("prioridade inválida")
	ErrTipoSolicitante = errors.New("tipo de solicitante inválido")
	// ErrItensCongelados sinaliza tentativa de editar itens já orçados.
	ErrItensCongelados = errors.New("itens não podem ser alterados após receber orçamento")
)

// Prioridade de um item de serviço.
const (
	PrioridadeBaixa   = "baixa"
	PrioridadeMedia   = "media"
	PrioridadeAlta    = "alta"
	PrioridadeUrgente = "urgente"
)

// Tipos de solicitante aceitos.
const (
	SolicitanteInquilino    = "inquilino"
	SolicitanteProprietario = "proprietario"
	SolicitanteImobiliaria  = "imobiliaria"
	SolicitanteTerceiro     = "terceiro"
)

var (
	validPrioridades = map[string]struct{}{
		PrioridadeBaixa:   {},
		PrioridadeMedia:   {},
		PrioridadeAlta:    {},
		PrioridadeUrgente: {},
	}
	validSolicitantes = map[string]struct{}{
		SolicitanteInquilino:    {},
		SolicitanteProprietario: {},
		SolicitanteImobiliaria:  {},
		SolicitanteTerceiro:     {},
	}
)

// Solicitacao representa um pedido de manutenção de um imóvel.
// Nunca é removida no fluxo normal: cancelamento é status, não exclusão.
type Solicitacao struct {
	ID              uuid.UUID     `json:"id"`
	EmpresaID       uuid.UUID     `json:"empresa_id"`
	ImovelID        uuid.UUID     `json:"imovel_id"`
	SolicitanteID   uuid.UUID     `json:"solicitante_id"`
	TipoSolicitante string        `json:"tipo_solicitante"`
	Itens           []ItemServico `json:"itens"`
	Status          Status        `json:"status"`
	PrazoDesejado   *time.Time    `json:"prazo_desejado,omitempty"`
	CriadoEm        time.Time     `json:"criado_em"`
	AtualizadoEm    time.Time     `json:"atualizado_em"`
}

// ItemServico é um serviço requisitado dentro da solicitação.
type ItemServico struct {
	ID            uuid.UUID `json:"id"`
	TipoServicoID uuid.UUID `json:"tipo_servico_id"`
	Descricao     string    `json:"descricao"`
	Prioridade    string    `json:"prioridade"`
}

// CreateInput encapsula campos para abertura de solicitação.
type CreateInput struct {
	EmpresaID       uuid.UUID
	ImovelID        uuid.UUID
	SolicitanteID   uuid.UUID
	TipoSolicitante string
	Itens           []ItemInput
	PrazoDesejado   *time.Time
}

// ItemInput descreve um item de serviço na criação ou edição.
type ItemInput struct {
	TipoServicoID uuid.UUID
	Descricao     string
	Prioridade    string
}

// NormalizePrioridade padroniza prioridade, vazia vira média.
func NormalizePrioridade(prioridade string) string {
	prioridade = strings.ToLower(strings.TrimSpace(prioridade))
	if prioridade == "" {
		return PrioridadeMedia
	}
	return prioridade
}

// IsValidPrioridade indica se a prioridade é aceita.
func IsValidPrioridade(prioridade string) bool {
	_, ok := validPrioridades[strings.ToLower(strings.TrimSpace(prioridade))]
	return ok
}

// IsValidSolicitante verifica o tipo de solicitante.
func IsValidSolicitante(tipo string) bool {
	_, ok := validSolicitantes[strings.ToLower(strings.TrimSpace(tipo))]
	return ok
}
