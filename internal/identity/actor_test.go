package identity

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/leotaq/imobigestor/internal/auth"
)

func TestPapelDominante(t *testing.T) {
	cases := []struct {
		roles    []string
		esperado Papel
	}{
		{nil, PapelUsuario},
		{[]string{"USUARIO"}, PapelUsuario},
		{[]string{"gestor"}, PapelGestor},
		{[]string{"USUARIO", "GESTOR"}, PapelGestor},
		{[]string{"GESTOR", "ADMIN"}, PapelAdmin},
		{[]string{"ADMIN", "MASTER", "GESTOR"}, PapelMaster},
		{[]string{"PAPEL_INVENTADO"}, PapelUsuario},
	}

	for _, tc := range cases {
		if got := PapelDominante(tc.roles); got != tc.esperado {
			t.Errorf("PapelDominante(%v) = %s, esperado %s", tc.roles, got, tc.esperado)
		}
	}
}

func TestActorFromClaims(t *testing.T) {
	userID := uuid.New()
	empresaID := uuid.New()
	prestadorID := uuid.New().String()

	claims := &auth.Claims{
		Roles:       []string{"USUARIO", "ADMIN"},
		EmpresaID:   empresaID.String(),
		PrestadorID: &prestadorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(),
		},
	}

	actor, err := ActorFromClaims(claims)
	if err != nil {
		t.Fatalf("ActorFromClaims: %v", err)
	}
	if actor.ID != userID || actor.EmpresaID != empresaID {
		t.Fatal("identificadores não batem com as claims")
	}
	if actor.Papel != PapelAdmin {
		t.Fatalf("papel = %s, esperado ADMIN", actor.Papel)
	}
	if !actor.EhPrestador() || actor.PrestadorID.String() != prestadorID {
		t.Fatal("vínculo de prestador perdido")
	}
	if !actor.Gerencia() {
		t.Fatal("admin deveria gerenciar")
	}
}

func TestActorFromClaimsRejeitaMalformadas(t *testing.T) {
	claims := &auth.Claims{
		EmpresaID: "não-é-uuid",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: uuid.NewString(),
		},
	}
	if _, err := ActorFromClaims(claims); !errors.Is(err, ErrClaimsInvalidos) {
		t.Fatalf("esperado ErrClaimsInvalidos, veio %v", err)
	}
}
