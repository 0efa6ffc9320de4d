package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/leotaq/imobigestor/internal/auth"
	"github.com/leotaq/imobigestor/internal/repo"
)

type stubAuthRepo struct {
	user   repo.Usuario
	tokens map[string]repo.TokenRefresh
}

func newStubAuthRepo(user repo.Usuario) *stubAuthRepo {
	return &stubAuthRepo{user: user, tokens: make(map[string]repo.TokenRefresh)}
}

func (s *stubAuthRepo) GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error) {
	if strings.EqualFold(email, s.user.Email) {
		return s.user, nil
	}
	return repo.Usuario{}, repo.ErrNotFound
}

func (s *stubAuthRepo) GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error) {
	if id == s.user.ID {
		return s.user, nil
	}
	return repo.Usuario{}, repo.ErrNotFound
}

func (s *stubAuthRepo) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error) {
	if t, ok := s.tokens[tokenHash]; ok {
		return t, nil
	}
	return repo.TokenRefresh{}, repo.ErrNotFound
}

func (s *stubAuthRepo) InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error) {
	t := repo.TokenRefresh{
		ID:        arg.ID,
		Subject:   arg.Subject,
		TokenHash: arg.TokenHash,
		Expiracao: arg.Expiracao,
		CriadoEm:  arg.CriadoEm,
	}
	s.tokens[arg.TokenHash] = t
	return t, nil
}

func (s *stubAuthRepo) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	for hash, t := range s.tokens {
		if t.Subject == subject && hash != keepHash {
			t.Revogado = true
			s.tokens[hash] = t
		}
	}
	return nil
}

func (s *stubAuthRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	t, ok := s.tokens[tokenHash]
	if !ok {
		return repo.ErrNotFound
	}
	t.Revogado = true
	s.tokens[tokenHash] = t
	return nil
}

type stubRedis struct {
	store map[string]string
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.store == nil {
		s.store = make(map[string]string)
	}
	s.store[key] = fmt.Sprint(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := s.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := s.store[key]; ok {
			delete(s.store, key)
			removed++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

func usuarioTeste(t *testing.T, password string) repo.Usuario {
	t.Helper()
	hash, err := auth.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return repo.Usuario{
		ID:        uuid.New(),
		EmpresaID: uuid.New(),
		Nome:      "Gestora Teste",
		Email:     "gestora@example.com",
		SenhaHash: hash,
		Papeis:    []string{"GESTOR"},
		Ativo:     true,
	}
}

func novoAuthService(repoStub *stubAuthRepo) *AuthService {
	return &AuthService{
		repo:       repoStub,
		redis:      &stubRedis{},
		jwt:        auth.NewJWTManager(strings.Repeat("a", 32), time.Minute),
		refreshTTL: time.Hour,
	}
}

func TestLoginEmiteSessao(t *testing.T) {
	password := "SenhaForte123!"
	repoStub := newStubAuthRepo(usuarioTeste(t, password))
	svc := novoAuthService(repoStub)

	result, err := svc.Login(context.Background(), "GESTORA@example.com", password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("tokens não emitidos")
	}
	if result.Profile.EmpresaID != repoStub.user.EmpresaID.String() {
		t.Fatal("perfil sem empresa")
	}
	if _, ok := repoStub.tokens[result.RefreshHash]; !ok {
		t.Fatal("refresh não persistido")
	}
}

func TestLoginRejeitaSenhaErrada(t *testing.T) {
	repoStub := newStubAuthRepo(usuarioTeste(t, "SenhaForte123!"))
	svc := novoAuthService(repoStub)

	if _, err := svc.Login(context.Background(), "gestora@example.com", "errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("esperado ErrInvalidCredentials, veio %v", err)
	}
}

func TestLoginRejeitaContaDesativada(t *testing.T) {
	user := usuarioTeste(t, "SenhaForte123!")
	user.Ativo = false
	svc := novoAuthService(newStubAuthRepo(user))

	if _, err := svc.Login(context.Background(), user.Email, "SenhaForte123!"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("esperado ErrAccountDisabled, veio %v", err)
	}
}

func TestRefreshRotacionaToken(t *testing.T) {
	password := "SenhaForte123!"
	repoStub := newStubAuthRepo(usuarioTeste(t, password))
	svc := novoAuthService(repoStub)

	login, err := svc.Login(context.Background(), "gestora@example.com", password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	renovado, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if renovado.RefreshToken == login.RefreshToken {
		t.Fatal("refresh deveria rotacionar o token")
	}

	// o token antigo não vale uma segunda vez
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("reuso de refresh deveria falhar, veio %v", err)
	}
}

func TestLogoutRevogaRefresh(t *testing.T) {
	password := "SenhaForte123!"
	repoStub := newStubAuthRepo(usuarioTeste(t, password))
	svc := novoAuthService(repoStub)

	login, err := svc.Login(context.Background(), "gestora@example.com", password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	subject, err := svc.Logout(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	// o sujeito identifica a sessão encerrada, para limpeza de estado por usuário
	if subject != repoStub.user.ID {
		t.Fatalf("sujeito esperado %s, veio %s", repoStub.user.ID, subject)
	}
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("refresh após logout deveria falhar, veio %v", err)
	}
}

func TestLogoutTokenDesconhecidoENula(t *testing.T) {
	svc := novoAuthService(newStubAuthRepo(usuarioTeste(t, "SenhaForte123!")))

	subject, err := svc.Logout(context.Background(), "token-que-nunca-existiu")
	if err != nil {
		t.Fatalf("logout de token desconhecido deveria ser silencioso: %v", err)
	}
	if subject != uuid.Nil {
		t.Fatalf("sujeito deveria ser nulo, veio %s", subject)
	}
}
