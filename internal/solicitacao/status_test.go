package solicitacao

import (
	"testing"

	"github.com/google/uuid"

	"github.com/leotaq/imobigestor/internal/identity"
)

func TestTransicaoValidaTabelaCompleta(t *testing.T) {
	permitidas := map[[2]Status]bool{
		{StatusAberta, StatusOrcamento}:    true,
		{StatusAberta, StatusCancelada}:    true,
		{StatusOrcamento, StatusAprovada}:  true,
		{StatusOrcamento, StatusCancelada}: true,
		{StatusAprovada, StatusExecucao}:   true,
		{StatusAprovada, StatusCancelada}:  true,
		{StatusExecucao, StatusConcluida}:  true,
	}

	for _, de := range AllStatuses() {
		for _, para := range AllStatuses() {
			esperado := permitidas[[2]Status{de, para}]
			if got := TransicaoValida(de, para); got != esperado {
				t.Errorf("TransicaoValida(%s, %s) = %v, esperado %v", de, para, got, esperado)
			}
		}
	}
}

func TestTerminais(t *testing.T) {
	for _, status := range AllStatuses() {
		terminal := status == StatusConcluida || status == StatusCancelada
		if got := Terminal(status); got != terminal {
			t.Errorf("Terminal(%s) = %v, esperado %v", status, got, terminal)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("  Aberta "); err != nil || s != StatusAberta {
		t.Fatalf("ParseStatus normalizado falhou: %v %v", s, err)
	}
	if _, err := ParseStatus("pendente"); err == nil {
		t.Fatal("esperado erro para status desconhecido")
	}
}

func TestAutorizaTransicao(t *testing.T) {
	solicitanteID := uuid.New()
	prestadorID := uuid.New()
	outroPrestador := uuid.New()

	sol := &Solicitacao{
		ID:            uuid.New(),
		SolicitanteID: solicitanteID,
		Status:        StatusAprovada,
	}

	gestor := identity.Actor{ID: uuid.New(), Papel: identity.PapelGestor}
	solicitante := identity.Actor{ID: solicitanteID, Papel: identity.PapelUsuario}
	prestador := identity.Actor{ID: uuid.New(), Papel: identity.PapelUsuario, PrestadorID: &prestadorID}
	intruso := identity.Actor{ID: uuid.New(), Papel: identity.PapelUsuario, PrestadorID: &outroPrestador}

	cases := []struct {
		nome      string
		actor     identity.Actor
		para      Status
		principal *uuid.UUID
		esperado  bool
	}{
		{"gestor pode tudo", gestor, StatusExecucao, nil, true},
		{"solicitante cancela", solicitante, StatusCancelada, nil, true},
		{"solicitante nao avanca obra", solicitante, StatusExecucao, &prestadorID, false},
		{"prestador principal inicia execucao", prestador, StatusExecucao, &prestadorID, true},
		{"prestador principal conclui", prestador, StatusConcluida, &prestadorID, true},
		{"prestador sem principal nao avanca", prestador, StatusExecucao, nil, false},
		{"prestador nao principal nao avanca", intruso, StatusExecucao, &prestadorID, false},
		{"prestador nao aprova", prestador, StatusAprovada, &prestadorID, false},
	}

	for _, tc := range cases {
		if got := AutorizaTransicao(tc.actor, sol, tc.para, tc.principal); got != tc.esperado {
			t.Errorf("%s: AutorizaTransicao = %v, esperado %v", tc.nome, got, tc.esperado)
		}
	}
}
