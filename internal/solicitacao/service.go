package solicitacao

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/leotaq/imobigestor/internal/identity"
)

// SolicitacaoRepository abstrai a persistência para o serviço.
type SolicitacaoRepository interface {
	Create(ctx context.Context, input CreateInput) (*Solicitacao, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Solicitacao, error)
	ListByEmpresa(ctx context.Context, empresaID uuid.UUID) ([]Solicitacao, error)
	IDsOrcadasPeloPrestador(ctx context.Context, prestadorID uuid.UUID) (map[uuid.UUID]struct{}, error)
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, de, para Status) (*Solicitacao, error)
	PrestadorPrincipal(ctx context.Context, solicitacaoID uuid.UUID) (*uuid.UUID, error)
	TemOrcamentos(ctx context.Context, solicitacaoID uuid.UUID) (bool, error)
	ReplaceItens(ctx context.Context, solicitacaoID uuid.UUID, itens []ItemInput) (*Solicitacao, error)
}

// Notificador publica eventos do ciclo de vida. A entrega é melhor-esforço:
// o serviço nunca espera confirmação nem propaga falha de notificação.
type Notificador interface {
	SolicitacaoCriada(ctx context.Context, sol *Solicitacao)
	StatusAlterado(ctx context.Context, sol *Solicitacao, anterior Status)
}

// Service reúne as regras do ciclo de vida das solicitações.
type Service struct {
	repo     SolicitacaoRepository
	notifica Notificador
}

// NewService cria uma nova instância do serviço.
func NewService(repo SolicitacaoRepository, notifica Notificador) *Service {
	return &Service{repo: repo, notifica: notifica}
}

// Create abre uma solicitação, sempre em status aberta.
func (s *Service) Create(ctx context.Context, actor identity.Actor, input CreateInput) (*Solicitacao, error) {
	input.EmpresaID = actor.EmpresaID
	input.SolicitanteID = actor.ID
	input.TipoSolicitante = strings.ToLower(strings.TrimSpace(input.TipoSolicitante))

	if !IsValidSolicitante(input.TipoSolicitante) {
		return nil, ErrTipoSolicitante
	}
	if err := normalizeItens(input.Itens); err != nil {
		return nil, err
	}

	sol, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	if s.notifica != nil {
		s.notifica.SolicitacaoCriada(ctx, sol)
	}

	return sol, nil
}

// Get devolve a solicitação se o ator puder enxergá-la.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Solicitacao, error) {
	sol, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sol.EmpresaID != actor.EmpresaID {
		return nil, ErrNotFound
	}

	visivel, err := s.podeVer(ctx, actor, sol)
	if err != nil {
		return nil, err
	}
	if !visivel {
		return nil, ErrNotFound
	}
	return sol, nil
}

// List devolve as solicitações visíveis ao ator. O filtro é puro e
// reavaliado a cada chamada: a visibilidade de um prestador muda
// exatamente quando uma solicitação orçada por ele troca de status.
func (s *Service) List(ctx context.Context, actor identity.Actor) ([]Solicitacao, error) {
	todas, err := s.repo.ListByEmpresa(ctx, actor.EmpresaID)
	if err != nil {
		return nil, err
	}

	var orcadas map[uuid.UUID]struct{}
	if actor.EhPrestador() && !actor.Gerencia() {
		orcadas, err = s.repo.IDsOrcadasPeloPrestador(ctx, *actor.PrestadorID)
		if err != nil {
			return nil, err
		}
	}

	return Visiveis(actor, todas, orcadas), nil
}

// Visiveis aplica a regra de visibilidade por papel:
//   - gestão (master/admin/gestor) vê tudo da empresa;
//   - prestador vê solicitações abertas/em orçamento mais as que já orçou,
//     para acompanhar as próprias propostas após a fase de cotação;
//   - usuário comum vê apenas o que ele próprio abriu.
func Visiveis(actor identity.Actor, todas []Solicitacao, orcadas map[uuid.UUID]struct{}) []Solicitacao {
	if actor.Gerencia() {
		return todas
	}

	out := make([]Solicitacao, 0, len(todas))
	if actor.EhPrestador() {
		for _, sol := range todas {
			if sol.Status == StatusAberta || sol.Status == StatusOrcamento {
				out = append(out, sol)
				continue
			}
			if _, ok := orcadas[sol.ID]; ok {
				out = append(out, sol)
			}
		}
		return out
	}

	for _, sol := range todas {
		if sol.SolicitanteID == actor.ID {
			out = append(out, sol)
		}
	}
	return out
}

// Transition valida a aresta na tabela, a autorização do ator e então
// persiste com compare-and-swap sobre o status lido.
func (s *Service) Transition(ctx context.Context, actor identity.Actor, id uuid.UUID, alvo Status) (*Solicitacao, error) {
	sol, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sol.EmpresaID != actor.EmpresaID {
		return nil, ErrNotFound
	}

	if !TransicaoValida(sol.Status, alvo) {
		return nil, ErrTransicaoInvalida
	}

	principal, err := s.repo.PrestadorPrincipal(ctx, sol.ID)
	if err != nil {
		return nil, err
	}
	if !AutorizaTransicao(actor, sol, alvo, principal) {
		return nil, ErrForbidden
	}

	anterior := sol.Status
	atualizada, err := s.repo.UpdateStatusCAS(ctx, sol.ID, anterior, alvo)
	if err != nil {
		return nil, err
	}

	if s.notifica != nil {
		s.notifica.StatusAlterado(ctx, atualizada, anterior)
	}

	return atualizada, nil
}

// AtualizarItens substitui os itens enquanto a solicitação não recebeu
// orçamento; depois disso os itens congelam, para não invalidar propostas.
func (s *Service) AtualizarItens(ctx context.Context, actor identity.Actor, id uuid.UUID, itens []ItemInput) (*Solicitacao, error) {
	sol, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sol.EmpresaID != actor.EmpresaID {
		return nil, ErrNotFound
	}
	if sol.SolicitanteID != actor.ID && !actor.Gerencia() {
		return nil, ErrForbidden
	}

	orcada, err := s.repo.TemOrcamentos(ctx, sol.ID)
	if err != nil {
		return nil, err
	}
	if orcada {
		return nil, ErrItensCongelados
	}

	if err := normalizeItens(itens); err != nil {
		return nil, err
	}

	return s.repo.ReplaceItens(ctx, sol.ID, itens)
}

func (s *Service) podeVer(ctx context.Context, actor identity.Actor, sol *Solicitacao) (bool, error) {
	if actor.Gerencia() {
		return true, nil
	}
	if actor.EhPrestador() {
		if sol.Status == StatusAberta || sol.Status == StatusOrcamento {
			return true, nil
		}
		orcadas, err := s.repo.IDsOrcadasPeloPrestador(ctx, *actor.PrestadorID)
		if err != nil {
			return false, err
		}
		_, ok := orcadas[sol.ID]
		return ok, nil
	}
	return sol.SolicitanteID == actor.ID, nil
}

func normalizeItens(itens []ItemInput) error {
	if len(itens) == 0 {
		return ErrSemItens
	}
	for i := range itens {
		itens[i].Descricao = strings.TrimSpace(itens[i].Descricao)
		itens[i].Prioridade = NormalizePrioridade(itens[i].Prioridade)
		if !IsValidPrioridade(itens[i].Prioridade) {
			return ErrPrioridade
		}
	}
	return nil
}
