package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/leotaq/imobigestor/internal/auth"
	"github.com/leotaq/imobigestor/internal/config"
	"github.com/leotaq/imobigestor/internal/empresa"
	httpmiddleware "github.com/leotaq/imobigestor/internal/http/middleware"
	"github.com/leotaq/imobigestor/internal/identity"
	"github.com/leotaq/imobigestor/internal/notify"
	"github.com/leotaq/imobigestor/internal/orcamento"
	"github.com/leotaq/imobigestor/internal/realtime"
	"github.com/leotaq/imobigestor/internal/relatorio"
	"github.com/leotaq/imobigestor/internal/repo"
	"github.com/leotaq/imobigestor/internal/service"
	"github.com/leotaq/imobigestor/internal/solicitacao"
	"github.com/leotaq/imobigestor/internal/util"
)

type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	viewModes     *identity.ViewModeStore
	dispatcher    *notify.Dispatcher
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter monta o roteador com todos os domínios ligados.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, hub *realtime.Hub, dispatcher *notify.Dispatcher) (http.Handler, error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	queries := repo.NewQueries(pool)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	authService := service.NewAuthService(queries, redisClient, jwtManager, cfg.JWTRefreshTTL)

	solRepo := solicitacao.NewRepository(pool)
	solService := solicitacao.NewService(solRepo, dispatcher)
	solHandler := solicitacao.NewHandler(solService)

	empRepo := empresa.NewRepository(pool)
	empService := empresa.NewService(empRepo)
	empHandler := empresa.NewHandler(empService)

	orcRepo := orcamento.NewRepository(pool)
	orcService := orcamento.NewService(orcRepo, solRepo, empService, dispatcher)
	orcHandler := orcamento.NewHandler(orcService)

	relRepo := relatorio.NewRepository(pool)
	relService := relatorio.NewService(relRepo)
	relHandler := relatorio.NewHandler(relService)

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		authService:   authService,
		viewModes:     identity.NewViewModeStore(redisClient),
		dispatcher:    dispatcher,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Login)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(jwtManager))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)
		private.Get("/me/modo-visao", h.GetViewMode)
		private.Put("/me/modo-visao", h.SetViewMode)

		private.Route("/solicitacoes", func(sols chi.Router) {
			solicitacao.Mount(sols, solHandler)
			sols.Get("/{id}/orcamentos", orcHandler.ListBySolicitacaoHandler)
		})

		private.Route("/orcamentos", func(orcs chi.Router) {
			orcamento.Mount(orcs, orcHandler)
		})

		private.Group(func(gestao chi.Router) {
			gestao.Use(httpmiddleware.RequireGestao)
			gestao.Route("/relatorios", func(rel chi.Router) {
				relHandler.RegisterRoutes(rel)
			})
			gestao.Post("/notificacoes", h.SendNotification)
		})

		private.Group(func(master chi.Router) {
			master.Use(httpmiddleware.RequireMaster)
			master.Route("/empresas", func(emp chi.Router) {
				empHandler.RegisterRoutes(emp)
			})
		})
	})

	// o handshake do websocket autentica por token próprio
	r.Get("/ws", realtime.ServeWS(hub, jwtManager))

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Login autentica por e-mail e senha.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if err := util.ValidateEmail(payload.Email); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	if err := util.RequireString(payload.Senha, "senha"); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	result, err := h.authService.Login(r.Context(), payload.Email, payload.Senha)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Refresh rotaciona o token de acesso.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := getRefreshFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh ausente", nil)
		return
	}

	result, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "refresh inválido", nil)
			return
		}
		if errors.Is(err, service.ErrAccountDisabled) {
			WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao renovar sessão", nil)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Logout revoga o refresh token atual. A escolha de modo de visão do
// usuário também é descartada: ela só vale até o fim da sessão.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := getRefreshFromRequest(r); err == nil {
		subject, err := h.authService.Logout(r.Context(), token)
		if err == nil && subject != uuid.Nil {
			_ = h.viewModes.Clear(r.Context(), subject)
		}
	}

	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me devolve o perfil do usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpmiddleware.GetActor(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	profile, err := h.authService.GetMe(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "conta não encontrada", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar perfil", nil)
		return
	}

	modo, err := h.viewModes.Resolve(r.Context(), actor)
	if err != nil {
		modo = identity.DefaultMode(actor)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"user":       profile,
		"modo_visao": modo,
	})
}

// SendNotification envia um aviso avulso a um usuário conectado.
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UsuarioID string `json:"usuario_id"`
		Tipo      string `json:"tipo"`
		Mensagem  string `json:"mensagem"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	usuarioID, err := uuid.Parse(payload.UsuarioID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "usuario_id inválido", nil)
		return
	}
	if err := util.RequireString(payload.Mensagem, "mensagem"); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	if payload.Tipo == "" {
		payload.Tipo = "aviso"
	}

	h.dispatcher.Notificar(r.Context(), usuarioID, payload.Tipo, payload.Mensagem)
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "enviada"})
}

func (h *Handler) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, service.ErrAccountDisabled):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao autenticar", nil)
	}
}

func (h *Handler) writeLoginSuccess(w http.ResponseWriter, result *service.LoginResult) {
	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)

	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": result.AccessToken,
		"user":         result.Profile,
	})
}

const refreshCookieName = "refresh_token"

func getRefreshFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errors.New("refresh ausente")
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	secure := !h.devCookies
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	secure := !h.devCookies
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}
