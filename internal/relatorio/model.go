package relatorio

import (
	"time"

	"github.com/google/uuid"
)

// CustoSolicitacao é uma linha do relatório: solicitação concluída ou em
// execução com o custo do orçamento principal.
type CustoSolicitacao struct {
	SolicitacaoID uuid.UUID `json:"solicitacao_id"`
	Descricao     string    `json:"descricao"`
	Status        string    `json:"status"`
	PrestadorID   uuid.UUID `json:"prestador_id"`
	Total         float64   `json:"total"`
	CriadoEm      time.Time `json:"criado_em"`
}

// ResumoCustos agrega os custos da empresa no período.
type ResumoCustos struct {
	Inicio       time.Time          `json:"inicio"`
	Fim          time.Time          `json:"fim"`
	Linhas       []CustoSolicitacao `json:"linhas"`
	TotalPeriodo float64            `json:"total_periodo"`
	Quantidade   int                `json:"quantidade"`
	PorStatus    map[string]int     `json:"por_status"`
}
