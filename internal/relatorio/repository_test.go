package relatorio

import (
	"os"
	"regexp"
	"strings"
	"testing"
)

// confere as referências de coluna da consulta contra o esquema, para que
// um rename de coluna não quebre o relatório só em produção.
func TestConsultaDeCustosBateComEsquema(t *testing.T) {
	schema, err := os.ReadFile("../../migrations/0001_init.sql")
	if err != nil {
		t.Fatalf("ler esquema: %v", err)
	}

	tabelas := map[string]string{
		"s": colunasDaTabela(t, string(schema), "solicitacoes"),
		"o": colunasDaTabela(t, string(schema), "orcamentos"),
		"i": colunasDaTabela(t, string(schema), "solicitacao_itens"),
	}

	refs := regexp.MustCompile(`\b([soi])\.(\w+)`).FindAllStringSubmatch(custosPorPeriodoSQL, -1)
	if len(refs) == 0 {
		t.Fatal("nenhuma referência de coluna na consulta")
	}
	for _, ref := range refs {
		alias, coluna := ref[1], ref[2]
		if !strings.Contains(tabelas[alias], coluna) {
			t.Errorf("coluna %s.%s não existe no esquema", alias, coluna)
		}
	}
}

func colunasDaTabela(t *testing.T, schema, tabela string) string {
	t.Helper()
	marcador := "CREATE TABLE " + tabela + " ("
	inicio := strings.Index(schema, marcador)
	if inicio < 0 {
		t.Fatalf("tabela %s ausente do esquema", tabela)
	}
	resto := schema[inicio+len(marcador):]
	fim := strings.Index(resto, ");")
	if fim < 0 {
		t.Fatalf("definição de %s não termina", tabela)
	}
	return resto[:fim]
}
