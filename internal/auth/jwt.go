package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims representa as informações presentes em um JWT de acesso.
// EmpresaID escopa o usuário à imobiliária; PrestadorID presente indica
// perfil de prestador de serviços vinculado à conta.
type Claims struct {
	Roles       []string `json:"roles"`
	EmpresaID   string   `json:"empresa_id"`
	PrestadorID *string  `json:"prestador_id,omitempty"`
	Permissoes  []string `json:"permissoes,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager encapsula geração e validação de tokens.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewJWTManager cria o gerenciador com segredo e TTL configurados.
func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL}
}

// TokenInput agrega os dados embarcados no token de acesso.
type TokenInput struct {
	Subject     uuid.UUID
	EmpresaID   uuid.UUID
	Roles       []string
	PrestadorID *uuid.UUID
	Permissoes  []string
}

// GenerateAccessToken cria um JWT HS256 com claims padrão.
func (m *JWTManager) GenerateAccessToken(input TokenInput) (string, string, error) {
	now := time.Now().UTC()
	jti := uuid.NewString()

	claims := Claims{
		Roles:      input.Roles,
		EmpresaID:  input.EmpresaID.String(),
		Permissoes: input.Permissoes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.Subject.String(),
			Audience:  jwt.ClaimStrings{"imobigestor"},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	if input.PrestadorID != nil {
		id := input.PrestadorID.String()
		claims.PrestadorID = &id
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", "", err
	}

	return signed, jti, nil
}

// ParseAndValidate verifica assinatura e expiração.
func (m *JWTManager) ParseAndValidate(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("token inválido")
	}

	return claims, nil
}
