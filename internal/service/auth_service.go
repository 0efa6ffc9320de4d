package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/leotaq/imobigestor/internal/auth"
	"github.com/leotaq/imobigestor/internal/repo"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrAccountDisabled indica conta desativada.
	ErrAccountDisabled = errors.New("conta desativada")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

type authRepository interface {
	GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error)
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error)
	InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error)
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	repo       authRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(r *repo.Queries, redisClient *redis.Client, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: r, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe o gerenciador de tokens (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// Profile descreve a conta autenticada.
type Profile struct {
	ID          string   `json:"id"`
	EmpresaID   string   `json:"empresa_id"`
	Nome        string   `json:"nome"`
	Email       string   `json:"email"`
	Papeis      []string `json:"papeis"`
	PrestadorID *string  `json:"prestador_id,omitempty"`
	Permissoes  []string `json:"permissoes,omitempty"`
}

// LoginResult representa o retorno padrão das autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Profile       *Profile
	RefreshHash   string
	RefreshExpiry time.Time
}

// Login autentica por e-mail e senha.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetUsuarioByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, user.SenhaHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: falha ao verificar senha")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(ctx, user)
}

// Refresh troca um refresh token válido por novos tokens. O token antigo
// é revogado na mesma operação (rotação).
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefreshToken(rawToken)
	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	if record.Revogado || time.Now().UTC().After(record.Expiracao) {
		return nil, ErrRefreshInvalid
	}

	redisKey := refreshRedisKey(hash)
	status, err := s.redis.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if status != "active" {
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetUsuarioByID(ctx, record.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	return result, nil
}

// Logout revoga o refresh token atual e devolve o sujeito da sessão
// encerrada, para que estado por usuário (como o modo de visão escolhido)
// seja limpo junto. Token ausente ou desconhecido é aceito em silêncio,
// com sujeito uuid.Nil.
func (s *AuthService) Logout(ctx context.Context, rawToken string) (uuid.UUID, error) {
	if rawToken == "" {
		return uuid.Nil, nil
	}
	hash := auth.HashRefreshToken(rawToken)

	subject := uuid.Nil
	if record, err := s.repo.GetRefreshTokenByHash(ctx, hash); err == nil {
		subject = record.Subject
	} else if !errors.Is(err, repo.ErrNotFound) {
		return uuid.Nil, err
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return subject, err
	}
	if err := s.redis.Del(ctx, refreshRedisKey(hash)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return subject, err
	}
	return subject, nil
}

// GetMe devolve o perfil completo do sujeito autenticado.
func (s *AuthService) GetMe(ctx context.Context, subject uuid.UUID) (*Profile, error) {
	user, err := s.repo.GetUsuarioByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	return profileFromUser(user), nil
}

func (s *AuthService) issueSession(ctx context.Context, user repo.Usuario) (*LoginResult, error) {
	if !user.Ativo {
		return nil, ErrAccountDisabled
	}

	token, _, err := s.jwt.GenerateAccessToken(auth.TokenInput{
		Subject:     user.ID,
		EmpresaID:   user.EmpresaID,
		Roles:       user.Papeis,
		PrestadorID: user.PrestadorID,
		Permissoes:  user.Permissoes,
	})
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := time.Now().UTC().Add(s.refreshTTL)
	if err := s.persistRefresh(ctx, user.ID, refreshHash, expires); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   token,
		RefreshToken:  rawRefresh,
		Subject:       user.ID,
		Profile:       profileFromUser(user),
		RefreshHash:   refreshHash,
		RefreshExpiry: expires,
	}, nil
}

func (s *AuthService) persistRefresh(ctx context.Context, subject uuid.UUID, hash string, expires time.Time) error {
	_, err := s.repo.InsertRefreshToken(ctx, repo.InsertRefreshTokenParams{
		ID:        uuid.New(),
		Subject:   subject,
		TokenHash: hash,
		Expiracao: expires,
		CriadoEm:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if err := s.repo.InvalidateOtherRefreshTokens(ctx, subject, hash); err != nil {
		return err
	}

	return s.redis.Set(ctx, refreshRedisKey(hash), "active", time.Until(expires)).Err()
}

func profileFromUser(user repo.Usuario) *Profile {
	profile := &Profile{
		ID:         user.ID.String(),
		EmpresaID:  user.EmpresaID.String(),
		Nome:       user.Nome,
		Email:      user.Email,
		Papeis:     user.Papeis,
		Permissoes: user.Permissoes,
	}
	if user.PrestadorID != nil {
		id := user.PrestadorID.String()
		profile.PrestadorID = &id
	}
	return profile
}

func refreshRedisKey(hash string) string {
	return "refresh:" + hash
}
