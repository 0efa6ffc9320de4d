package solicitacao

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leotaq/imobigestor/internal/db"
)

// Repository provê acesso às tabelas de solicitações.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const solicitacaoCols = `id, empresa_id, imovel_id, solicitante_id, tipo_solicitante, status, prazo_desejado, criado_em, atualizado_em`

// Create insere a solicitação e seus itens na mesma transação.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Solicitacao, error) {
	var sol *Solicitacao

	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
            INSERT INTO solicitacoes (empresa_id, imovel_id, solicitante_id, tipo_solicitante, status, prazo_desejado)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING `+solicitacaoCols,
			input.EmpresaID, input.ImovelID, input.SolicitanteID, input.TipoSolicitante, StatusAberta, input.PrazoDesejado,
		)

		created, err := scanSolicitacao(row)
		if err != nil {
			return err
		}

		for _, item := range input.Itens {
			var it ItemServico
			err := tx.QueryRow(ctx, `
                INSERT INTO solicitacao_itens (solicitacao_id, tipo_servico_id, descricao, prioridade)
                VALUES ($1, $2, $3, $4)
                RETURNING id, tipo_servico_id, descricao, prioridade`,
				created.ID, item.TipoServicoID, item.Descricao, item.Prioridade,
			).Scan(&it.ID, &it.TipoServicoID, &it.Descricao, &it.Prioridade)
			if err != nil {
				return err
			}
			created.Itens = append(created.Itens, it)
		}

		sol = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sol, nil
}

// GetByID busca uma solicitação com seus itens.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Solicitacao, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+solicitacaoCols+` FROM solicitacoes WHERE id = $1`, id)
	sol, err := scanSolicitacao(row)
	if err != nil {
		return nil, err
	}

	if err := r.loadItens(ctx, []*Solicitacao{sol}); err != nil {
		return nil, err
	}
	return sol, nil
}

// ListByEmpresa devolve todas as solicitações da empresa, mais recentes primeiro.
// O filtro de visibilidade é aplicado na camada de serviço, a cada listagem.
func (r *Repository) ListByEmpresa(ctx context.Context, empresaID uuid.UUID) ([]Solicitacao, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+solicitacaoCols+`
        FROM solicitacoes
        WHERE empresa_id = $1
        ORDER BY criado_em DESC`, empresaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sols []*Solicitacao
	for rows.Next() {
		sol, err := scanSolicitacao(rows)
		if err != nil {
			return nil, err
		}
		sols = append(sols, sol)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := r.loadItens(ctx, sols); err != nil {
		return nil, err
	}

	out := make([]Solicitacao, len(sols))
	for i, sol := range sols {
		out[i] = *sol
	}
	return out, nil
}

// IDsOrcadasPeloPrestador devolve o conjunto de solicitações nas quais o
// prestador já apresentou orçamento, em qualquer status.
func (r *Repository) IDsOrcadasPeloPrestador(ctx context.Context, prestadorID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT DISTINCT solicitacao_id FROM orcamentos WHERE prestador_id = $1`, prestadorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// UpdateStatusCAS troca o status com compare-and-swap sobre o status atual.
// Se a linha existe mas o status esperado já mudou, devolve ErrConflitoStatus.
func (r *Repository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, de, para Status) (*Solicitacao, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE solicitacoes
        SET status = $3, atualizado_em = now()
        WHERE id = $1 AND status = $2
        RETURNING `+solicitacaoCols, id, de, para)

	sol, err := scanSolicitacao(row)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		// distingue corrida perdida de solicitação inexistente
		var existe bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM solicitacoes WHERE id = $1)`, id).Scan(&existe); err != nil {
			return nil, err
		}
		if existe {
			return nil, ErrConflitoStatus
		}
		return nil, ErrNotFound
	}

	if err := r.loadItens(ctx, []*Solicitacao{sol}); err != nil {
		return nil, err
	}
	return sol, nil
}

// PrestadorPrincipal devolve o prestador dono do orçamento principal, se houver.
func (r *Repository) PrestadorPrincipal(ctx context.Context, solicitacaoID uuid.UUID) (*uuid.UUID, error) {
	var prestadorID uuid.UUID
	err := r.pool.QueryRow(ctx, `
        SELECT prestador_id FROM orcamentos
        WHERE solicitacao_id = $1 AND principal = TRUE`, solicitacaoID).Scan(&prestadorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &prestadorID, nil
}

// TemOrcamentos indica se a solicitação já recebeu algum orçamento.
func (r *Repository) TemOrcamentos(ctx context.Context, solicitacaoID uuid.UUID) (bool, error) {
	var existe bool
	err := r.pool.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM orcamentos WHERE solicitacao_id = $1)`, solicitacaoID).Scan(&existe)
	return existe, err
}

// ReplaceItens substitui os itens da solicitação em transação única.
func (r *Repository) ReplaceItens(ctx context.Context, solicitacaoID uuid.UUID, itens []ItemInput) (*Solicitacao, error) {
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM solicitacao_itens WHERE solicitacao_id = $1`, solicitacaoID); err != nil {
			return err
		}
		for _, item := range itens {
			if _, err := tx.Exec(ctx, `
                INSERT INTO solicitacao_itens (solicitacao_id, tipo_servico_id, descricao, prioridade)
                VALUES ($1, $2, $3, $4)`,
				solicitacaoID, item.TipoServicoID, item.Descricao, item.Prioridade); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `UPDATE solicitacoes SET atualizado_em = now() WHERE id = $1`, solicitacaoID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, solicitacaoID)
}

func (r *Repository) loadItens(ctx context.Context, sols []*Solicitacao) error {
	if len(sols) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(sols))
	index := make(map[uuid.UUID]*Solicitacao, len(sols))
	for i, sol := range sols {
		ids[i] = sol.ID
		index[sol.ID] = sol
	}

	rows, err := r.pool.Query(ctx, `
        SELECT solicitacao_id, id, tipo_servico_id, descricao, prioridade
        FROM solicitacao_itens
        WHERE solicitacao_id = ANY($1)
        ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			solID uuid.UUID
			item  ItemServico
		)
		if err := rows.Scan(&solID, &item.ID, &item.TipoServicoID, &item.Descricao, &item.Prioridade); err != nil {
			return err
		}
		if sol, ok := index[solID]; ok {
			sol.Itens = append(sol.Itens, item)
		}
	}
	return rows.Err()
}

func scanSolicitacao(row pgx.Row) (*Solicitacao, error) {
	var s Solicitacao
	if err := row.Scan(&s.ID, &s.EmpresaID, &s.ImovelID, &s.SolicitanteID, &s.TipoSolicitante, &s.Status, &s.PrazoDesejado, &s.CriadoEm, &s.AtualizadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
