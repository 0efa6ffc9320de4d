package util

import "testing"

func TestValidateEmail(t *testing.T) {
	casos := []struct {
		email string
		ok    bool
	}{
		{"gestora@example.com", true},
		{"  gestora@example.com  ", true},
		{"", false},
		{"   ", false},
		{"sem-arroba", false},
		{"@dominio.com", false},
	}
	for _, c := range casos {
		err := ValidateEmail(c.email)
		if c.ok && err != nil {
			t.Errorf("ValidateEmail(%q) = %v, esperado nil", c.email, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ValidateEmail(%q) deveria falhar", c.email)
		}
	}
}

func TestRequireString(t *testing.T) {
	if err := RequireString("valor", "campo"); err != nil {
		t.Fatalf("string preenchida não deveria falhar: %v", err)
	}
	if err := RequireString("   ", "senha"); err == nil {
		t.Fatal("string em branco deveria falhar")
	}
}

func TestValidateStructMapeiaCampos(t *testing.T) {
	type payload struct {
		Email string `validate:"required,email"`
		Dias  int    `validate:"gt=0"`
	}

	details := ValidateStruct(payload{Email: "inválido", Dias: 0})
	if details == nil {
		t.Fatal("payload inválido deveria gerar detalhes")
	}
	if details["email"] == "" || details["dias"] == "" {
		t.Fatalf("detalhes esperados para email e dias, vieram %v", details)
	}

	if details := ValidateStruct(payload{Email: "ok@example.com", Dias: 3}); details != nil {
		t.Fatalf("payload válido não deveria gerar detalhes: %v", details)
	}
}
