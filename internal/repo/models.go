package repo

import (
	"time"

	"github.com/google/uuid"
)

// Usuario representa conta de acesso de uma empresa. Papeis carrega os
// papéis acumulados da conta; PrestadorID presente vincula a conta a um
// prestador de serviços.
type Usuario struct {
	ID          uuid.UUID
	EmpresaID   uuid.UUID
	Nome        string
	Email       string
	SenhaHash   string
	Papeis      []string
	PrestadorID *uuid.UUID
	Permissoes  []string
	Ativo       bool
	CriadoEm    time.Time
}

// TokenRefresh modela a tabela de refresh tokens.
type TokenRefresh struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	TokenHash string
	Expiracao time.Time
	CriadoEm  time.Time
	Revogado  bool
}

// InsertRefreshTokenParams agrupa os campos da inserção.
type InsertRefreshTokenParams struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	TokenHash string
	Expiracao time.Time
	CriadoEm  time.Time
}
