package empresa

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso ao armazenamento de empresas.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID busca empresa pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Empresa, error) {
	const query = `
        SELECT id, slug, nome, taxa_admin_pct, ativa, settings, criada_em, atualizada_em
        FROM empresas
        WHERE id = $1
    `

	return scanEmpresa(r.pool.QueryRow(ctx, query, id))
}

// GetBySlug busca empresa pelo slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Empresa, error) {
	const query = `
        SELECT id, slug, nome, taxa_admin_pct, ativa, settings, criada_em, atualizada_em
        FROM empresas
        WHERE slug = $1
    `

	return scanEmpresa(r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(slug))))
}

// List devolve todas as empresas ordenadas por criação.
func (r *Repository) List(ctx context.Context) ([]Empresa, error) {
	const query = `
        SELECT id, slug, nome, taxa_admin_pct, ativa, settings, criada_em, atualizada_em
        FROM empresas
        ORDER BY criada_em DESC
    `

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var empresas []Empresa
	for rows.Next() {
		e, err := scanEmpresa(rows)
		if err != nil {
			return nil, err
		}
		empresas = append(empresas, *e)
	}
	return empresas, rows.Err()
}

// Create insere uma nova empresa e devolve os dados persistidos.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Empresa, error) {
	const query = `
        INSERT INTO empresas (slug, nome, taxa_admin_pct, ativa, settings)
        VALUES ($1, $2, $3, TRUE, $4)
        RETURNING id, slug, nome, taxa_admin_pct, ativa, settings, criada_em, atualizada_em
    `

	settingsJSON, err := jsonMarshalMap(input.Settings)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(input.Slug)),
		strings.TrimSpace(input.Nome),
		input.TaxaAdminPct,
		settingsJSON,
	)

	e, err := scanEmpresa(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlugEmUso
		}
		return nil, err
	}
	return e, nil
}

// UpdateSettings substitui o campo settings e o timestamp.
func (r *Repository) UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) error {
	const query = `
        UPDATE empresas
        SET settings = $2,
            atualizada_em = $3
        WHERE id = $1
    `

	settingsJSON, err := jsonMarshalMap(settings)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, query, id, settingsJSON, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEmpresa(row pgx.Row) (*Empresa, error) {
	var (
		e           Empresa
		settingsRaw []byte
	)

	if err := row.Scan(&e.ID, &e.Slug, &e.Nome, &e.TaxaAdminPct, &e.Ativa, &settingsRaw, &e.CriadaEm, &e.AtualizadaEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	settings, err := decodeJSONMap(settingsRaw)
	if err != nil {
		return nil, err
	}
	e.Settings = settings

	return &e, nil
}

func decodeJSONMap(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return map[string]any{}, nil
	}
	return result, nil
}

func jsonMarshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
