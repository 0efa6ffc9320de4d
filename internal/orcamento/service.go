package orcamento

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/leotaq/imobigestor/internal/identity"
	"github.com/leotaq/imobigestor/internal/solicitacao"
)

// OrcamentoRepository abstrai a persistência para o serviço.
type OrcamentoRepository interface {
	Create(ctx context.Context, input CreateInput, maoDeObra, materiais, total float64) (*Orcamento, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Orcamento, error)
	ListBySolicitacao(ctx context.Context, solicitacaoID uuid.UUID) ([]Orcamento, error)
	ListByPrestador(ctx context.Context, prestadorID uuid.UUID) ([]Orcamento, error)
	SetPrincipal(ctx context.Context, solicitacaoID, orcamentoID uuid.UUID) (*Orcamento, error)
}

// SolicitacaoStore é a visão mínima das solicitações que o serviço precisa.
// *solicitacao.Repository satisfaz a interface.
type SolicitacaoStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*solicitacao.Solicitacao, error)
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, de, para solicitacao.Status) (*solicitacao.Solicitacao, error)
}

// Notificador publica eventos de orçamento, melhor-esforço.
type Notificador interface {
	NovoOrcamento(ctx context.Context, orc *Orcamento, empresaID uuid.UUID)
	OrcamentoPrincipal(ctx context.Context, orc *Orcamento, empresaID uuid.UUID)
	StatusAlterado(ctx context.Context, sol *solicitacao.Solicitacao, anterior solicitacao.Status)
}

// TaxaProvider fornece o percentual de administração padrão da empresa.
// *empresa.Service satisfaz a interface.
type TaxaProvider interface {
	TaxaAdmin(ctx context.Context, empresaID uuid.UUID) (float64, error)
}

// Service reúne as regras de orçamentos.
type Service struct {
	repo     OrcamentoRepository
	sols     SolicitacaoStore
	taxas    TaxaProvider
	notifica Notificador
}

// NewService cria uma nova instância do serviço. taxas pode ser nil, e
// nesse caso propostas sem percentual explícito ficam com taxa zero.
func NewService(repo OrcamentoRepository, sols SolicitacaoStore, taxas TaxaProvider, notifica Notificador) *Service {
	return &Service{repo: repo, sols: sols, taxas: taxas, notifica: notifica}
}

// Create registra a proposta de um prestador. Só solicitações em aberta ou
// orcamento aceitam propostas; a primeira proposta de uma solicitação aberta
// avança o status para orcamento (transição dirigida pelo sistema).
func (s *Service) Create(ctx context.Context, actor identity.Actor, input CreateInput) (*Orcamento, error) {
	switch {
	case actor.EhPrestador():
		input.PrestadorID = *actor.PrestadorID
	case actor.Gerencia():
		if input.PrestadorID == uuid.Nil {
			return nil, ErrPrestadorAusente
		}
	default:
		return nil, ErrForbidden
	}

	sol, err := s.sols.GetByID(ctx, input.SolicitacaoID)
	if err != nil {
		if errors.Is(err, solicitacao.ErrNotFound) {
			return nil, solicitacao.ErrNotFound
		}
		return nil, err
	}
	if sol.EmpresaID != actor.EmpresaID {
		return nil, solicitacao.ErrNotFound
	}
	if sol.Status != solicitacao.StatusAberta && sol.Status != solicitacao.StatusOrcamento {
		return nil, ErrSolicitacaoFechada
	}

	if input.TaxaAdminPct == 0 && s.taxas != nil {
		if pct, taxaErr := s.taxas.TaxaAdmin(ctx, sol.EmpresaID); taxaErr == nil {
			input.TaxaAdminPct = pct
		}
	}

	if err := validateInput(&input); err != nil {
		return nil, err
	}

	maoDeObra, materiais, total := Totais(input.Itens, input.TaxaAdminPct)
	orc, err := s.repo.Create(ctx, input, maoDeObra, materiais, total)
	if err != nil {
		return nil, err
	}

	if sol.Status == solicitacao.StatusAberta {
		if atualizada, casErr := s.sols.UpdateStatusCAS(ctx, sol.ID, solicitacao.StatusAberta, solicitacao.StatusOrcamento); casErr == nil {
			if s.notifica != nil {
				s.notifica.StatusAlterado(ctx, atualizada, solicitacao.StatusAberta)
			}
		}
		// corrida perdida significa que outro orçamento já avançou o status
	}

	if s.notifica != nil {
		s.notifica.NovoOrcamento(ctx, orc, sol.EmpresaID)
	}

	return orc, nil
}

// ListBySolicitacao devolve os orçamentos visíveis ao ator:
// gestão vê todos, prestador vê os próprios, solicitante vê os da sua solicitação.
func (s *Service) ListBySolicitacao(ctx context.Context, actor identity.Actor, solicitacaoID uuid.UUID) ([]Orcamento, error) {
	sol, err := s.sols.GetByID(ctx, solicitacaoID)
	if err != nil {
		return nil, err
	}
	if sol.EmpresaID != actor.EmpresaID {
		return nil, solicitacao.ErrNotFound
	}

	todos, err := s.repo.ListBySolicitacao(ctx, solicitacaoID)
	if err != nil {
		return nil, err
	}

	if actor.Gerencia() || sol.SolicitanteID == actor.ID {
		return todos, nil
	}
	if actor.EhPrestador() {
		proprios := make([]Orcamento, 0, len(todos))
		for _, orc := range todos {
			if orc.PrestadorID == *actor.PrestadorID {
				proprios = append(proprios, orc)
			}
		}
		return proprios, nil
	}

	return nil, ErrForbidden
}

// ListDoPrestador lista as propostas do próprio prestador autenticado.
func (s *Service) ListDoPrestador(ctx context.Context, actor identity.Actor) ([]Orcamento, error) {
	if !actor.EhPrestador() {
		return nil, ErrForbidden
	}
	return s.repo.ListByPrestador(ctx, *actor.PrestadorID)
}

// SetPrincipal elege o orçamento escolhido da solicitação. A troca limpa a
// flag dos irmãos na mesma transação.
func (s *Service) SetPrincipal(ctx context.Context, actor identity.Actor, orcamentoID uuid.UUID) (*Orcamento, error) {
	if !actor.Gerencia() {
		return nil, ErrForbidden
	}

	orc, err := s.repo.GetByID(ctx, orcamentoID)
	if err != nil {
		return nil, err
	}

	sol, err := s.sols.GetByID(ctx, orc.SolicitacaoID)
	if err != nil {
		return nil, err
	}
	if sol.EmpresaID != actor.EmpresaID {
		return nil, ErrNotFound
	}

	principal, err := s.repo.SetPrincipal(ctx, orc.SolicitacaoID, orcamentoID)
	if err != nil {
		return nil, err
	}

	if s.notifica != nil {
		s.notifica.OrcamentoPrincipal(ctx, principal, sol.EmpresaID)
	}

	return principal, nil
}

func validateInput(input *CreateInput) error {
	if len(input.Itens) == 0 {
		return ErrSemItens
	}
	for i := range input.Itens {
		input.Itens[i].Tipo = strings.ToLower(strings.TrimSpace(input.Itens[i].Tipo))
		input.Itens[i].Descricao = strings.TrimSpace(input.Itens[i].Descricao)
		if !IsValidTipoItem(input.Itens[i].Tipo) {
			return ErrTipoItem
		}
	}
	if input.TaxaAdminPct < 0 || input.TaxaAdminPct > 100 {
		return ErrTaxaAdmin
	}
	if input.PrazoExecucaoDias <= 0 {
		return ErrPrazoExecucao
	}
	return nil
}
