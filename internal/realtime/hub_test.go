package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func novoHubTeste() *Hub {
	return NewHub(zerolog.Nop())
}

func recebeu(t *testing.T, c *Cliente) Mensagem {
	t.Helper()
	select {
	case payload := <-c.Envio():
		var msg Mensagem
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("quadro ilegível: %v", err)
		}
		return msg
	default:
		t.Fatal("cliente deveria ter recebido um quadro")
		return Mensagem{}
	}
}

func semQuadros(t *testing.T, c *Cliente) {
	t.Helper()
	select {
	case payload := <-c.Envio():
		t.Fatalf("cliente não deveria receber nada, veio %s", payload)
	default:
	}
}

func TestBroadcastSalaEmpresa(t *testing.T) {
	hub := novoHubTeste()
	empresaA := uuid.New()
	empresaB := uuid.New()

	c1 := NovoCliente(uuid.New(), empresaA, nil)
	c2 := NovoCliente(uuid.New(), empresaA, nil)
	c3 := NovoCliente(uuid.New(), empresaB, nil)
	hub.Registrar(c1)
	hub.Registrar(c2)
	hub.Registrar(c3)

	hub.BroadcastSala(SalaEmpresa(empresaA), "solicitacao_created", map[string]string{"titulo": "teste"})

	for _, c := range []*Cliente{c1, c2} {
		msg := recebeu(t, c)
		if msg.Evento != "solicitacao_created" {
			t.Fatalf("evento = %s", msg.Evento)
		}
	}
	semQuadros(t, c3)
}

func TestSalaSolicitacaoExata(t *testing.T) {
	hub := novoHubTeste()
	empresaID := uuid.New()
	solID := uuid.New()

	dentro := NovoCliente(uuid.New(), empresaID, nil)
	fora := NovoCliente(uuid.New(), empresaID, nil)
	hub.Registrar(dentro)
	hub.Registrar(fora)

	hub.EntrarSala(dentro, SalaSolicitacao(solID))
	hub.BroadcastSala(SalaSolicitacao(solID), "solicitacao_status_changed", nil)

	recebeu(t, dentro)
	semQuadros(t, fora)

	hub.SairSala(dentro, SalaSolicitacao(solID))
	hub.BroadcastSala(SalaSolicitacao(solID), "solicitacao_status_changed", nil)
	semQuadros(t, dentro)
}

func TestUnicastUsuario(t *testing.T) {
	hub := novoHubTeste()
	usuarioID := uuid.New()
	c := NovoCliente(usuarioID, uuid.New(), nil)
	hub.Registrar(c)

	if !hub.UnicastUsuario(usuarioID, "custom_notification", map[string]string{"mensagem": "oi"}) {
		t.Fatal("unicast para usuário conectado deveria entregar")
	}
	msg := recebeu(t, c)
	if msg.Evento != "custom_notification" {
		t.Fatalf("evento = %s", msg.Evento)
	}

	if hub.UnicastUsuario(uuid.New(), "custom_notification", nil) {
		t.Fatal("unicast para usuário desconectado deveria ser descartado")
	}
}

func TestDesconectarLimpaSalas(t *testing.T) {
	hub := novoHubTeste()
	empresaID := uuid.New()
	solID := uuid.New()

	c := NovoCliente(uuid.New(), empresaID, nil)
	hub.Registrar(c)
	hub.EntrarSala(c, SalaSolicitacao(solID))

	hub.Desconectar(c)
	if hub.Conectados() != 0 {
		t.Fatalf("conectados = %d, esperado 0", hub.Conectados())
	}

	// não deve entrar em pânico nem entregar nada
	hub.BroadcastSala(SalaSolicitacao(solID), "solicitacao_status_changed", nil)
	hub.BroadcastSala(SalaEmpresa(empresaID), "solicitacao_created", nil)

	if _, aberto := <-c.Envio(); aberto {
		t.Fatal("canal de envio deveria estar fechado após desconexão")
	}
}

func TestNovaConexaoSubstituiRegistro(t *testing.T) {
	hub := novoHubTeste()
	usuarioID := uuid.New()
	empresaID := uuid.New()

	antiga := NovoCliente(usuarioID, empresaID, nil)
	nova := NovoCliente(usuarioID, empresaID, nil)
	hub.Registrar(antiga)
	hub.Registrar(nova)

	hub.UnicastUsuario(usuarioID, "custom_notification", nil)
	recebeu(t, nova)
	semQuadros(t, antiga)
}

func TestBroadcastSalasEntregaUmQuadroPorCliente(t *testing.T) {
	hub := novoHubTeste()
	empresaID := uuid.New()
	solID := uuid.New()

	// nas duas salas: espectador da solicitação, auto-inscrito na empresa
	espectador := NovoCliente(uuid.New(), empresaID, nil)
	// só na sala da empresa
	colega := NovoCliente(uuid.New(), empresaID, nil)
	hub.Registrar(espectador)
	hub.Registrar(colega)
	hub.EntrarSala(espectador, SalaSolicitacao(solID))

	hub.BroadcastSalas([]string{SalaSolicitacao(solID), SalaEmpresa(empresaID)}, "solicitacao_status_changed", nil)

	recebeu(t, espectador)
	semQuadros(t, espectador)
	recebeu(t, colega)
	semQuadros(t, colega)
}
