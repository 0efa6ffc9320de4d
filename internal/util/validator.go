package util

import (
	"errors"
	"net/mail"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct valida o payload com as tags `validate` e devolve um mapa
// caminho-do-campo → mensagem, pronto para o envelope de erro.
func ValidateStruct(payload any) map[string]string {
	err := instance().Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"payload": "inválido"}
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fieldPath(fe)] = messageFor(fe)
	}
	return details
}

func fieldPath(fe validator.FieldError) string {
	// Namespace vem como Tipo.Campo.Sub; remove o tipo raiz.
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		ns = ns[idx+1:]
	}
	return strings.ToLower(ns)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "obrigatório"
	case "min":
		return "mínimo " + fe.Param()
	case "max":
		return "máximo " + fe.Param()
	case "oneof":
		return "deve ser um de: " + fe.Param()
	case "uuid":
		return "uuid inválido"
	case "email":
		return "email inválido"
	case "gt":
		return "deve ser maior que " + fe.Param()
	case "gte":
		return "deve ser maior ou igual a " + fe.Param()
	default:
		return "inválido"
	}
}

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email obrigatório")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email inválido")
	}
	return nil
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(field + " obrigatório")
	}
	return nil
}
