package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ViewModeStore guarda a escolha de modo de visão de cada usuário.
// A escolha sobrevive a reloads; a elegibilidade é sempre recalculada,
// então uma escolha que ficou fora do conjunto elegível é invalidada.
type ViewModeStore struct {
	redis *redis.Client
}

// NewViewModeStore cria o store apoiado em Redis.
func NewViewModeStore(redisClient *redis.Client) *ViewModeStore {
	return &ViewModeStore{redis: redisClient}
}

func viewModeKey(actor Actor) string {
	return viewModeKeyUsuario(actor.ID)
}

func viewModeKeyUsuario(usuarioID uuid.UUID) string {
	return fmt.Sprintf("modovisao:%s", usuarioID.String())
}

// Resolve devolve o modo efetivo: a escolha persistida quando ainda elegível,
// senão o default do ator (e descarta a escolha inválida).
func (s *ViewModeStore) Resolve(ctx context.Context, actor Actor) (ViewMode, error) {
	raw, err := s.redis.Get(ctx, viewModeKey(actor)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return DefaultMode(actor), nil
		}
		return DefaultMode(actor), err
	}

	mode, ok := ParseViewMode(raw)
	if !ok || !Entitled(actor, mode) {
		_ = s.redis.Del(ctx, viewModeKey(actor)).Err()
		return DefaultMode(actor), nil
	}

	return mode, nil
}

// Choose persiste a escolha do usuário. Escolher um modo não elegível é
// um no-op silencioso: devolve o modo efetivo atual sem erro.
func (s *ViewModeStore) Choose(ctx context.Context, actor Actor, mode ViewMode) (ViewMode, error) {
	if !Entitled(actor, mode) {
		return s.Resolve(ctx, actor)
	}

	if err := s.redis.Set(ctx, viewModeKey(actor), string(mode), 0).Err(); err != nil {
		return DefaultMode(actor), err
	}

	return mode, nil
}

// Clear remove a escolha persistida. Chamado no logout, quando só o
// sujeito da sessão é conhecido.
func (s *ViewModeStore) Clear(ctx context.Context, usuarioID uuid.UUID) error {
	return s.redis.Del(ctx, viewModeKeyUsuario(usuarioID)).Err()
}
