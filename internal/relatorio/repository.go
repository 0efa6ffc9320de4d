package relatorio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Colunas conforme migrations/0001_init.sql.
const custosPorPeriodoSQL = `
	SELECT s.id,
	       COALESCE((SELECT i.descricao FROM solicitacao_itens i
	                 WHERE i.solicitacao_id = s.id
	                 ORDER BY i.id LIMIT 1), ''),
	       s.status, o.prestador_id, o.total, s.criado_em
	FROM solicitacoes s
	JOIN orcamentos o ON o.solicitacao_id = s.id AND o.principal = TRUE
	WHERE s.empresa_id = $1
	  AND s.status IN ('execucao', 'concluida')
	  AND s.criado_em >= $2
	  AND s.criado_em < $3
	ORDER BY s.criado_em DESC`

// CustosPorPeriodo junta as solicitações em execução ou concluídas com o
// orçamento principal de cada uma, restritas à empresa e ao período. A
// descrição da linha vem do primeiro item de serviço da solicitação.
func (r *Repository) CustosPorPeriodo(ctx context.Context, empresaID uuid.UUID, inicio, fim time.Time) ([]CustoSolicitacao, error) {
	rows, err := r.pool.Query(ctx, custosPorPeriodoSQL, empresaID, inicio, fim)
	if err != nil {
		return nil, fmt.Errorf("consultar custos: %w", err)
	}
	defer rows.Close()

	var linhas []CustoSolicitacao
	for rows.Next() {
		var c CustoSolicitacao
		if err := rows.Scan(&c.SolicitacaoID, &c.Descricao, &c.Status, &c.PrestadorID, &c.Total, &c.CriadoEm); err != nil {
			return nil, fmt.Errorf("ler linha de custo: %w", err)
		}
		linhas = append(linhas, c)
	}
	return linhas, rows.Err()
}
