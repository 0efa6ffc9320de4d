package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/leotaq/imobigestor/internal/orcamento"
	"github.com/leotaq/imobigestor/internal/realtime"
	"github.com/leotaq/imobigestor/internal/solicitacao"
)

// Eventos emitidos aos clientes conectados.
const (
	EventoSolicitacaoCriada  = "solicitacao_created"
	EventoStatusAlterado     = "solicitacao_status_changed"
	EventoNovoOrcamento      = "new_orcamento"
	EventoOrcamentoPrincipal = "orcamento_principal"
	EventoCustom             = "custom_notification"
)

// CanalEventos é o canal Redis que replica eventos entre instâncias.
const CanalEventos = "imobigestor:eventos"

// Transporte é a visão do hub que o dispatcher usa. *realtime.Hub satisfaz.
type Transporte interface {
	BroadcastSalas(salas []string, evento string, dados any)
	UnicastUsuario(usuarioID uuid.UUID, evento string, dados any) bool
}

// Dispatcher publica eventos do domínio para os clientes conectados.
// Toda publicação é melhor-esforço e nunca propaga erro para quem dispara:
// falha de notificação jamais desfaz ou falha a escrita que a originou.
type Dispatcher struct {
	transporte Transporte
	redis      *redis.Client
	instancia  string
	logger     zerolog.Logger
}

// NewDispatcher cria o dispatcher. redisClient pode ser nil (sem replicação
// entre instâncias, útil em testes).
func NewDispatcher(transporte Transporte, redisClient *redis.Client, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		transporte: transporte,
		redis:      redisClient,
		instancia:  uuid.NewString(),
		logger:     logger,
	}
}

// Instancia identifica esta réplica no canal de replicação.
func (d *Dispatcher) Instancia() string {
	return d.instancia
}

// SolicitacaoCriada avisa a empresa inteira sobre a nova solicitação.
func (d *Dispatcher) SolicitacaoCriada(ctx context.Context, sol *solicitacao.Solicitacao) {
	d.publicar(ctx, EventoSolicitacaoCriada,
		[]string{realtime.SalaEmpresa(sol.EmpresaID)},
		nil,
		map[string]any{
			"solicitacao": sol,
			"empresa_id":  sol.EmpresaID,
		})
}

// StatusAlterado avisa a sala da solicitação e a sala da empresa.
func (d *Dispatcher) StatusAlterado(ctx context.Context, sol *solicitacao.Solicitacao, anterior solicitacao.Status) {
	d.publicar(ctx, EventoStatusAlterado,
		[]string{realtime.SalaSolicitacao(sol.ID), realtime.SalaEmpresa(sol.EmpresaID)},
		nil,
		map[string]any{
			"solicitacao_id":  sol.ID,
			"status_anterior": anterior,
			"novo_status":     sol.Status,
		})
}

// NovoOrcamento avisa a sala da solicitação e a sala da empresa.
func (d *Dispatcher) NovoOrcamento(ctx context.Context, orc *orcamento.Orcamento, empresaID uuid.UUID) {
	d.publicar(ctx, EventoNovoOrcamento,
		[]string{realtime.SalaSolicitacao(orc.SolicitacaoID), realtime.SalaEmpresa(empresaID)},
		nil,
		map[string]any{
			"solicitacao_id": orc.SolicitacaoID,
			"orcamento":      orc,
			"empresa_id":     empresaID,
		})
}

// OrcamentoPrincipal avisa a escolha do orçamento vencedor.
func (d *Dispatcher) OrcamentoPrincipal(ctx context.Context, orc *orcamento.Orcamento, empresaID uuid.UUID) {
	d.publicar(ctx, EventoOrcamentoPrincipal,
		[]string{realtime.SalaSolicitacao(orc.SolicitacaoID), realtime.SalaEmpresa(empresaID)},
		nil,
		map[string]any{
			"solicitacao_id": orc.SolicitacaoID,
			"orcamento_id":   orc.ID,
			"prestador_id":   orc.PrestadorID,
		})
}

// Notificar envia uma notificação direta ao usuário. Sem conexão viva,
// o evento é descartado em silêncio.
func (d *Dispatcher) Notificar(ctx context.Context, usuarioID uuid.UUID, tipo, mensagem string) {
	d.publicar(ctx, EventoCustom, nil, &usuarioID, map[string]any{
		"usuario_id": usuarioID,
		"tipo":       tipo,
		"mensagem":   mensagem,
	})
}

// envelope replica o evento entre instâncias via Redis.
type envelope struct {
	Origem  string          `json:"origem"`
	Evento  string          `json:"evento"`
	Salas   []string        `json:"salas,omitempty"`
	Usuario *uuid.UUID      `json:"usuario,omitempty"`
	Dados   json.RawMessage `json:"dados"`
}

func (d *Dispatcher) publicar(ctx context.Context, evento string, salas []string, usuario *uuid.UUID, dados any) {
	// entrega local primeiro
	d.entregar(evento, salas, usuario, dados)

	if d.redis == nil {
		return
	}

	raw, err := json.Marshal(dados)
	if err != nil {
		d.logger.Error().Err(err).Str("evento", evento).Msg("notify: dados não serializáveis")
		return
	}
	payload, err := json.Marshal(envelope{
		Origem:  d.instancia,
		Evento:  evento,
		Salas:   salas,
		Usuario: usuario,
		Dados:   raw,
	})
	if err != nil {
		d.logger.Error().Err(err).Str("evento", evento).Msg("notify: envelope não serializável")
		return
	}

	if err := d.redis.Publish(ctx, CanalEventos, payload).Err(); err != nil {
		d.logger.Warn().Err(err).Str("evento", evento).Msg("notify: replicação via redis falhou")
	}
}

func (d *Dispatcher) entregar(evento string, salas []string, usuario *uuid.UUID, dados any) {
	if usuario != nil {
		d.transporte.UnicastUsuario(*usuario, evento, dados)
		return
	}
	// uma única emissão pela união das salas: cliente presente em mais
	// de uma não recebe o quadro em dobro
	d.transporte.BroadcastSalas(salas, evento, dados)
}
