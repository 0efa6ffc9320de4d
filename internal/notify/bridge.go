package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Bridge assina o canal de eventos no Redis e reentrega localmente os
// eventos originados em outras instâncias, ignorando os próprios.
type Bridge struct {
	transporte Transporte
	redis      *redis.Client
	instancia  string
	logger     zerolog.Logger
}

func NewBridge(d *Dispatcher, redisClient *redis.Client, logger zerolog.Logger) *Bridge {
	return &Bridge{
		transporte: d.transporte,
		redis:      redisClient,
		instancia:  d.instancia,
		logger:     logger,
	}
}

// Start consome o canal até o contexto encerrar. Deve rodar em goroutine.
func (b *Bridge) Start(ctx context.Context) {
	sub := b.redis.Subscribe(ctx, CanalEventos)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.processar(msg.Payload)
		}
	}
}

func (b *Bridge) processar(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn().Err(err).Msg("notify: evento replicado ilegível")
		return
	}
	if env.Origem == b.instancia {
		return
	}

	var dados any
	if len(env.Dados) > 0 {
		if err := json.Unmarshal(env.Dados, &dados); err != nil {
			b.logger.Warn().Err(err).Str("evento", env.Evento).Msg("notify: dados replicados ilegíveis")
			return
		}
	}

	if env.Usuario != nil {
		b.transporte.UnicastUsuario(*env.Usuario, env.Evento, dados)
		return
	}
	b.transporte.BroadcastSalas(env.Salas, env.Evento, dados)
}
