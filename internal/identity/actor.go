package identity

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/leotaq/imobigestor/internal/auth"
)

var (
	// ErrClaimsInvalidos indica token com claims malformadas.
	ErrClaimsInvalidos = errors.New("claims inválidas")
)

// Papel é o papel dominante do usuário dentro da empresa.
// A ordem declarada define a precedência: master > admin > gestor > usuario.
type Papel int

const (
	PapelUsuario Papel = iota
	PapelGestor
	PapelAdmin
	PapelMaster
)

// String devolve o nome canônico do papel (como embarcado nas claims).
func (p Papel) String() string {
	switch p {
	case PapelMaster:
		return "MASTER"
	case PapelAdmin:
		return "ADMIN"
	case PapelGestor:
		return "GESTOR"
	default:
		return "USUARIO"
	}
}

// ParsePapel converte o nome do papel; desconhecidos caem em usuário comum.
func ParsePapel(role string) Papel {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "MASTER":
		return PapelMaster
	case "ADMIN":
		return PapelAdmin
	case "GESTOR":
		return PapelGestor
	default:
		return PapelUsuario
	}
}

// PapelDominante resolve o papel efetivo a partir da lista de roles do token.
// Um usuário pode acumular papéis; vale sempre o de maior precedência.
func PapelDominante(roles []string) Papel {
	dominante := PapelUsuario
	for _, role := range roles {
		if p := ParsePapel(role); p > dominante {
			dominante = p
		}
	}
	return dominante
}

// Actor é o ator autenticado, derivado exclusivamente das claims verificadas.
// Nenhuma consulta ao banco acontece aqui: o token vale pela sua janela inteira.
type Actor struct {
	ID          uuid.UUID
	EmpresaID   uuid.UUID
	Papel       Papel
	PrestadorID *uuid.UUID
	Permissoes  []string
}

// EhPrestador indica perfil de prestador vinculado (ortogonal ao papel).
func (a Actor) EhPrestador() bool {
	return a.PrestadorID != nil
}

// Gerencia indica visão ampla sobre as solicitações da empresa.
func (a Actor) Gerencia() bool {
	return a.Papel >= PapelGestor
}

// ActorFromClaims deriva o ator a partir das claims já validadas.
func ActorFromClaims(claims *auth.Claims) (Actor, error) {
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, ErrClaimsInvalidos
	}

	empresaID, err := uuid.Parse(claims.EmpresaID)
	if err != nil {
		return Actor{}, ErrClaimsInvalidos
	}

	actor := Actor{
		ID:         subject,
		EmpresaID:  empresaID,
		Papel:      PapelDominante(claims.Roles),
		Permissoes: claims.Permissoes,
	}

	if claims.PrestadorID != nil {
		prestadorID, err := uuid.Parse(*claims.PrestadorID)
		if err != nil {
			return Actor{}, ErrClaimsInvalidos
		}
		actor.PrestadorID = &prestadorID
	}

	return actor, nil
}
