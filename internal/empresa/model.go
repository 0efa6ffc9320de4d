package empresa

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("empresa não encontrada")
	ErrSlugEmUso    = errors.New("slug já em uso")
	ErrNomeVazio    = errors.New("nome é obrigatório")
	ErrSlugVazio    = errors.New("slug é obrigatório")
	ErrTaxaInvalida = errors.New("taxa de administração fora da faixa 0..100")
)

// Empresa é uma imobiliária cliente da plataforma. Todo dado operacional
// (solicitações, orçamentos, usuários) é particionado por empresa.
type Empresa struct {
	ID           uuid.UUID      `json:"id"`
	Slug         string         `json:"slug"`
	Nome         string         `json:"nome"`
	TaxaAdminPct float64        `json:"taxa_admin_pct"`
	Ativa        bool           `json:"ativa"`
	Settings     map[string]any `json:"settings"`
	CriadaEm     time.Time      `json:"criada_em"`
	AtualizadaEm time.Time      `json:"atualizada_em"`
}

// CreateInput contém os campos para registrar uma empresa.
type CreateInput struct {
	Slug         string
	Nome         string
	TaxaAdminPct float64
	Settings     map[string]any
}
