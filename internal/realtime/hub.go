package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mensagem é o quadro enviado aos clientes conectados.
type Mensagem struct {
	Evento string `json:"evento"`
	Dados  any    `json:"dados"`
}

// SalaEmpresa nomeia a sala de broadcast da empresa.
func SalaEmpresa(empresaID uuid.UUID) string {
	return fmt.Sprintf("empresa:%s", empresaID.String())
}

// SalaSolicitacao nomeia a sala de uma solicitação específica.
func SalaSolicitacao(solicitacaoID uuid.UUID) string {
	return fmt.Sprintf("solicitacao:%s", solicitacaoID.String())
}

// Hub mantém o registro usuário→conexão e as salas de fan-out.
// É um registro explícito com ciclo de vida definido: povoado no connect,
// limpo no disconnect, injetado em quem precisar publicar.
type Hub struct {
	mu       sync.RWMutex
	clientes map[*Cliente]struct{}
	usuarios map[uuid.UUID]*Cliente
	salas    map[string]map[*Cliente]struct{}
	logger   zerolog.Logger
}

// NewHub cria o hub vazio.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clientes: make(map[*Cliente]struct{}),
		usuarios: make(map[uuid.UUID]*Cliente),
		salas:    make(map[string]map[*Cliente]struct{}),
		logger:   logger,
	}
}

// Registrar adiciona a conexão ao registro e à sala da empresa.
// Uma conexão nova do mesmo usuário substitui a anterior no registro.
func (h *Hub) Registrar(c *Cliente) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clientes[c] = struct{}{}
	h.usuarios[c.UsuarioID] = c
	h.entrarSalaLocked(c, SalaEmpresa(c.EmpresaID))
}

// Desconectar remove a conexão do registro e de todas as salas.
func (h *Hub) Desconectar(c *Cliente) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clientes[c]; !ok {
		return
	}
	delete(h.clientes, c)
	if atual, ok := h.usuarios[c.UsuarioID]; ok && atual == c {
		delete(h.usuarios, c.UsuarioID)
	}
	for sala := range c.salas {
		h.sairSalaLocked(c, sala)
	}
	close(c.envio)
}

// EntrarSala inscreve a conexão em uma sala.
func (h *Hub) EntrarSala(c *Cliente, sala string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clientes[c]; !ok {
		return
	}
	h.entrarSalaLocked(c, sala)
}

// SairSala remove a conexão de uma sala.
func (h *Hub) SairSala(c *Cliente, sala string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sairSalaLocked(c, sala)
}

func (h *Hub) entrarSalaLocked(c *Cliente, sala string) {
	membros, ok := h.salas[sala]
	if !ok {
		membros = make(map[*Cliente]struct{})
		h.salas[sala] = membros
	}
	membros[c] = struct{}{}
	c.salas[sala] = struct{}{}
}

func (h *Hub) sairSalaLocked(c *Cliente, sala string) {
	if membros, ok := h.salas[sala]; ok {
		delete(membros, c)
		if len(membros) == 0 {
			delete(h.salas, sala)
		}
	}
	delete(c.salas, sala)
}

// BroadcastSala envia o evento a todos os membros da sala.
// Entrega é melhor-esforço: cliente com buffer cheio perde o quadro.
func (h *Hub) BroadcastSala(sala, evento string, dados any) {
	h.BroadcastSalas([]string{sala}, evento, dados)
}

// BroadcastSalas envia o evento à união dos membros das salas. Cliente
// presente em mais de uma sala recebe um único quadro.
func (h *Hub) BroadcastSalas(salas []string, evento string, dados any) {
	payload, err := json.Marshal(Mensagem{Evento: evento, Dados: dados})
	if err != nil {
		h.logger.Error().Err(err).Str("evento", evento).Msg("broadcast: payload não serializável")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	entregues := make(map[*Cliente]struct{})
	for _, sala := range salas {
		for c := range h.salas[sala] {
			if _, ja := entregues[c]; ja {
				continue
			}
			entregues[c] = struct{}{}
			select {
			case c.envio <- payload:
			default:
				h.logger.Warn().Str("sala", sala).Str("evento", evento).Msg("broadcast: buffer cheio, quadro descartado")
			}
		}
	}
}

// UnicastUsuario envia o evento à conexão registrada do usuário.
// Sem conexão viva, o evento é silenciosamente descartado.
func (h *Hub) UnicastUsuario(usuarioID uuid.UUID, evento string, dados any) bool {
	payload, err := json.Marshal(Mensagem{Evento: evento, Dados: dados})
	if err != nil {
		h.logger.Error().Err(err).Str("evento", evento).Msg("unicast: payload não serializável")
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.usuarios[usuarioID]
	if !ok {
		return false
	}

	select {
	case c.envio <- payload:
		return true
	default:
		return false
	}
}

// Conectados devolve o total de conexões vivas (para o /ready e métricas simples).
func (h *Hub) Conectados() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientes)
}
