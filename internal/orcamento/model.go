package orcamento

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("orçamento não encontrado")
	ErrForbidden          = errors.New("acesso negado ao orçamento")
	ErrSemItens           = errors.New("orçamento exige ao menos um item")
	ErrTipoItem           = errors.New("tipo de item inválido")
	ErrTaxaAdmin          = errors.New("taxa administrativa inválida")
	ErrPrazoExecucao      = errors.New("prazo de execução inválido")
	ErrSolicitacaoFechada = errors.New("solicitação não aceita mais orçamentos")
	ErrPrestadorAusente   = errors.New("prestador não informado")
)

// Tipos de item de orçamento.
const (
	ItemMaoDeObra = "mao_de_obra"
	ItemMaterial  = "material"
)

// Orcamento é a proposta de um prestador para uma solicitação.
// No máximo um orçamento por solicitação carrega a flag Principal.
type Orcamento struct {
	ID                uuid.UUID  `json:"id"`
	SolicitacaoID     uuid.UUID  `json:"solicitacao_id"`
	PrestadorID       uuid.UUID  `json:"prestador_id"`
	Itens             []Item     `json:"itens"`
	SubtotalMaoDeObra float64    `json:"subtotal_mao_de_obra"`
	SubtotalMateriais float64    `json:"subtotal_materiais"`
	TaxaAdminPct      float64    `json:"taxa_admin_pct"`
	Total             float64    `json:"total"`
	PrazoExecucaoDias int        `json:"prazo_execucao_dias"`
	Principal         bool       `json:"principal"`
	CriadoEm          time.Time  `json:"criado_em"`
	AtualizadoEm      *time.Time `json:"atualizado_em,omitempty"`
}

// Item é uma linha do orçamento.
type Item struct {
	ID            uuid.UUID `json:"id"`
	Tipo          string    `json:"tipo"`
	Descricao     string    `json:"descricao"`
	Quantidade    float64   `json:"quantidade"`
	ValorUnitario float64   `json:"valor_unitario"`
}

// CreateInput encapsula campos para envio de orçamento.
type CreateInput struct {
	SolicitacaoID     uuid.UUID
	PrestadorID       uuid.UUID
	Itens             []ItemInput
	TaxaAdminPct      float64
	PrazoExecucaoDias int
}

// ItemInput descreve uma linha na criação.
type ItemInput struct {
	Tipo          string
	Descricao     string
	Quantidade    float64
	ValorUnitario float64
}

// IsValidTipoItem verifica o tipo da linha.
func IsValidTipoItem(tipo string) bool {
	switch strings.ToLower(strings.TrimSpace(tipo)) {
	case ItemMaoDeObra, ItemMaterial:
		return true
	default:
		return false
	}
}

// Totais calcula os subtotais por tipo e o total com a taxa administrativa.
func Totais(itens []ItemInput, taxaAdminPct float64) (maoDeObra, materiais, total float64) {
	for _, item := range itens {
		valor := item.Quantidade * item.ValorUnitario
		if strings.ToLower(strings.TrimSpace(item.Tipo)) == ItemMaterial {
			materiais += valor
		} else {
			maoDeObra += valor
		}
	}
	total = round2((maoDeObra + materiais) * (1 + taxaAdminPct/100))
	return round2(maoDeObra), round2(materiais), total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
