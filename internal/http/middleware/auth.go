package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/leotaq/imobigestor/internal/auth"
	"github.com/leotaq/imobigestor/internal/identity"
)

type contextKey string

const (
	ContextKeyActor contextKey = "actor"
)

// Auth valida o JWT de acesso, deriva o ator e o injeta no contexto.
// As claims valem como estão, sem releitura do banco, pela janela do token.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			actor, err := identity.ActorFromClaims(claims)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "claims inválidas")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyActor, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor recupera o ator autenticado do contexto.
func GetActor(ctx context.Context) (identity.Actor, bool) {
	actor, ok := ctx.Value(ContextKeyActor).(identity.Actor)
	return actor, ok
}

// RequireGestao restringe a rota à gestão da empresa (gestor, admin ou master).
func RequireGestao(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado")
			return
		}
		if !actor.Gerencia() {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito à gestão")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireMaster restringe a rota ao papel master.
func RequireMaster(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado")
			return
		}
		if actor.Papel != identity.PapelMaster {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito ao master")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
