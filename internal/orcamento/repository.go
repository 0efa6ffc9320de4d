package orcamento

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leotaq/imobigestor/internal/db"
)

// Repository provê acesso às tabelas de orçamentos.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orcamentoCols = `id, solicitacao_id, prestador_id, subtotal_mao_de_obra, subtotal_materiais, taxa_admin_pct, total, prazo_execucao_dias, principal, criado_em, atualizado_em`

// Create insere o orçamento e suas linhas na mesma transação.
func (r *Repository) Create(ctx context.Context, input CreateInput, maoDeObra, materiais, total float64) (*Orcamento, error) {
	var orc *Orcamento

	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
            INSERT INTO orcamentos (solicitacao_id, prestador_id, subtotal_mao_de_obra, subtotal_materiais, taxa_admin_pct, total, prazo_execucao_dias, principal)
            VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
            RETURNING `+orcamentoCols,
			input.SolicitacaoID, input.PrestadorID, maoDeObra, materiais, input.TaxaAdminPct, total, input.PrazoExecucaoDias,
		)

		created, err := scanOrcamento(row)
		if err != nil {
			return err
		}

		for _, item := range input.Itens {
			var it Item
			err := tx.QueryRow(ctx, `
                INSERT INTO orcamento_itens (orcamento_id, tipo, descricao, quantidade, valor_unitario)
                VALUES ($1, $2, $3, $4, $5)
                RETURNING id, tipo, descricao, quantidade, valor_unitario`,
				created.ID, item.Tipo, item.Descricao, item.Quantidade, item.ValorUnitario,
			).Scan(&it.ID, &it.Tipo, &it.Descricao, &it.Quantidade, &it.ValorUnitario)
			if err != nil {
				return err
			}
			created.Itens = append(created.Itens, it)
		}

		orc = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return orc, nil
}

// GetByID busca um orçamento com suas linhas.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Orcamento, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orcamentoCols+` FROM orcamentos WHERE id = $1`, id)
	orc, err := scanOrcamento(row)
	if err != nil {
		return nil, err
	}

	if err := r.loadItens(ctx, []*Orcamento{orc}); err != nil {
		return nil, err
	}
	return orc, nil
}

// ListBySolicitacao lista orçamentos da solicitação, principal primeiro.
func (r *Repository) ListBySolicitacao(ctx context.Context, solicitacaoID uuid.UUID) ([]Orcamento, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+orcamentoCols+`
        FROM orcamentos
        WHERE solicitacao_id = $1
        ORDER BY principal DESC, criado_em ASC`, solicitacaoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orcs []*Orcamento
	for rows.Next() {
		orc, err := scanOrcamento(rows)
		if err != nil {
			return nil, err
		}
		orcs = append(orcs, orc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := r.loadItens(ctx, orcs); err != nil {
		return nil, err
	}

	out := make([]Orcamento, len(orcs))
	for i, orc := range orcs {
		out[i] = *orc
	}
	return out, nil
}

// ListByPrestador lista orçamentos enviados pelo prestador.
func (r *Repository) ListByPrestador(ctx context.Context, prestadorID uuid.UUID) ([]Orcamento, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+orcamentoCols+`
        FROM orcamentos
        WHERE prestador_id = $1
        ORDER BY criado_em DESC`, prestadorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orcs []*Orcamento
	for rows.Next() {
		orc, err := scanOrcamento(rows)
		if err != nil {
			return nil, err
		}
		orcs = append(orcs, orc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := r.loadItens(ctx, orcs); err != nil {
		return nil, err
	}

	out := make([]Orcamento, len(orcs))
	for i, orc := range orcs {
		out[i] = *orc
	}
	return out, nil
}

// SetPrincipal limpa a flag dos irmãos e marca o alvo em uma única transação,
// preservando o invariante de no máximo um principal por solicitação mesmo
// sob chamadas concorrentes.
func (r *Repository) SetPrincipal(ctx context.Context, solicitacaoID, orcamentoID uuid.UUID) (*Orcamento, error) {
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            UPDATE orcamentos SET principal = FALSE, atualizado_em = now()
            WHERE solicitacao_id = $1 AND principal = TRUE`, solicitacaoID); err != nil {
			return err
		}

		cmd, err := tx.Exec(ctx, `
            UPDATE orcamentos SET principal = TRUE, atualizado_em = now()
            WHERE id = $1 AND solicitacao_id = $2`, orcamentoID, solicitacaoID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, orcamentoID)
}

func (r *Repository) loadItens(ctx context.Context, orcs []*Orcamento) error {
	if len(orcs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orcs))
	index := make(map[uuid.UUID]*Orcamento, len(orcs))
	for i, orc := range orcs {
		ids[i] = orc.ID
		index[orc.ID] = orc
	}

	rows, err := r.pool.Query(ctx, `
        SELECT orcamento_id, id, tipo, descricao, quantidade, valor_unitario
        FROM orcamento_itens
        WHERE orcamento_id = ANY($1)
        ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orcID uuid.UUID
			item  Item
		)
		if err := rows.Scan(&orcID, &item.ID, &item.Tipo, &item.Descricao, &item.Quantidade, &item.ValorUnitario); err != nil {
			return err
		}
		if orc, ok := index[orcID]; ok {
			orc.Itens = append(orc.Itens, item)
		}
	}
	return rows.Err()
}

func scanOrcamento(row pgx.Row) (*Orcamento, error) {
	var o Orcamento
	if err := row.Scan(&o.ID, &o.SolicitacaoID, &o.PrestadorID, &o.SubtotalMaoDeObra, &o.SubtotalMateriais, &o.TaxaAdminPct, &o.Total, &o.PrazoExecucaoDias, &o.Principal, &o.CriadoEm, &o.AtualizadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}
