package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries expõe acesso tipado às tabelas de identidade.
type Queries struct {
	pool *pgxpool.Pool
}

func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const usuarioColumns = `id, empresa_id, nome, email, senha_hash, papeis, prestador_id, permissoes, ativo, criado_em`

// GetUsuarioByEmail busca conta pelo e-mail normalizado.
func (q *Queries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	row := q.pool.QueryRow(ctx, `
        SELECT `+usuarioColumns+`
        FROM usuarios
        WHERE email = $1
    `, strings.ToLower(strings.TrimSpace(email)))
	return scanUsuario(row)
}

// GetUsuarioByID busca conta pelo identificador.
func (q *Queries) GetUsuarioByID(ctx context.Context, id uuid.UUID) (Usuario, error) {
	row := q.pool.QueryRow(ctx, `
        SELECT `+usuarioColumns+`
        FROM usuarios
        WHERE id = $1
    `, id)
	return scanUsuario(row)
}

// InsertRefreshToken registra um novo refresh token.
func (q *Queries) InsertRefreshToken(ctx context.Context, arg InsertRefreshTokenParams) (TokenRefresh, error) {
	row := q.pool.QueryRow(ctx, `
        INSERT INTO tokens_refresh (id, subject, token_hash, expiracao, criado_em, revogado)
        VALUES ($1, $2, $3, $4, $5, FALSE)
        RETURNING id, subject, token_hash, expiracao, criado_em, revogado
    `, arg.ID, arg.Subject, arg.TokenHash, arg.Expiracao, arg.CriadoEm)

	var t TokenRefresh
	if err := row.Scan(&t.ID, &t.Subject, &t.TokenHash, &t.Expiracao, &t.CriadoEm, &t.Revogado); err != nil {
		return TokenRefresh{}, err
	}
	return t, nil
}

// GetRefreshTokenByHash busca token pelo hash.
func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (TokenRefresh, error) {
	row := q.pool.QueryRow(ctx, `
        SELECT id, subject, token_hash, expiracao, criado_em, revogado
        FROM tokens_refresh
        WHERE token_hash = $1
    `, tokenHash)

	var t TokenRefresh
	if err := row.Scan(&t.ID, &t.Subject, &t.TokenHash, &t.Expiracao, &t.CriadoEm, &t.Revogado); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenRefresh{}, ErrNotFound
		}
		return TokenRefresh{}, err
	}
	return t, nil
}

// RevokeRefreshToken marca o token como revogado.
func (q *Queries) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	tag, err := q.pool.Exec(ctx, `
        UPDATE tokens_refresh
        SET revogado = TRUE
        WHERE token_hash = $1
    `, tokenHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InvalidateOtherRefreshTokens revoga os demais tokens do sujeito,
// preservando o hash recém-emitido.
func (q *Queries) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	_, err := q.pool.Exec(ctx, `
        UPDATE tokens_refresh
        SET revogado = TRUE
        WHERE subject = $1 AND token_hash <> $2 AND revogado = FALSE
    `, subject, keepHash)
	return err
}

func scanUsuario(row pgx.Row) (Usuario, error) {
	var u Usuario
	if err := row.Scan(&u.ID, &u.EmpresaID, &u.Nome, &u.Email, &u.SenhaHash, &u.Papeis, &u.PrestadorID, &u.Permissoes, &u.Ativo, &u.CriadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Usuario{}, ErrNotFound
		}
		return Usuario{}, err
	}
	return u, nil
}
