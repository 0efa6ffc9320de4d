package solicitacao

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/leotaq/imobigestor/internal/identity"
)

var (
	// ErrStatusDesconhecido indica status fora do conjunto aceito.
	ErrStatusDesconhecido = errors.New("status desconhecido")
	// ErrTransicaoInvalida indica aresta ausente na tabela de transições.
	ErrTransicaoInvalida = errors.New("transição de status inválida")
	// ErrConflitoStatus indica que outra transição venceu a corrida.
	ErrConflitoStatus = errors.New("status foi alterado por outra operação")
)

// Status de uma solicitação de manutenção.
type Status string

const (
	StatusAberta    Status = "aberta"
	StatusOrcamento Status = "orcamento"
	StatusAprovada  Status = "aprovada"
	StatusExecucao  Status = "execucao"
	StatusConcluida Status = "concluida"
	StatusCancelada Status = "cancelada"
)

// AllStatuses lista os status na ordem do caminho feliz, terminais ao final.
func AllStatuses() []Status {
	return []Status{StatusAberta, StatusOrcamento, StatusAprovada, StatusExecucao, StatusConcluida, StatusCancelada}
}

// transicoes é a tabela de arestas legais. Status só avança por aqui;
// concluida e cancelada são absorventes.
var transicoes = map[Status][]Status{
	StatusAberta:    {StatusOrcamento, StatusCancelada},
	StatusOrcamento: {StatusAprovada, StatusCancelada},
	StatusAprovada:  {StatusExecucao, StatusCancelada},
	StatusExecucao:  {StatusConcluida},
	StatusConcluida: {},
	StatusCancelada: {},
}

// ParseStatus valida e normaliza um status vindo de fora.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := transicoes[status]; !ok {
		return "", ErrStatusDesconhecido
	}
	return status, nil
}

// TransicaoValida indica se a aresta (de, para) existe na tabela.
func TransicaoValida(de, para Status) bool {
	for _, destino := range transicoes[de] {
		if destino == para {
			return true
		}
	}
	return false
}

// Terminal indica status sem arestas de saída.
func Terminal(status Status) bool {
	return len(transicoes[status]) == 0
}

// AutorizaTransicao decide quem pode dirigir cada aresta:
//   - avanços de triagem (aberta→orcamento, orcamento→aprovada) exigem gestão;
//   - avanços de obra (aprovada→execucao, execucao→concluida) aceitam também o
//     prestador dono do orçamento principal;
//   - cancelamento aceita o próprio solicitante além da gestão.
//
// A aresta em si já deve ter sido validada por TransicaoValida.
func AutorizaTransicao(actor identity.Actor, sol *Solicitacao, para Status, prestadorPrincipal *uuid.UUID) bool {
	if actor.Gerencia() {
		return true
	}

	switch para {
	case StatusCancelada:
		return sol.SolicitanteID == actor.ID
	case StatusExecucao, StatusConcluida:
		return actor.EhPrestador() && prestadorPrincipal != nil && *actor.PrestadorID == *prestadorPrincipal
	default:
		return false
	}
}
