package solicitacao

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leotaq/imobigestor/internal/identity"
)

type stubRepo struct {
	sols        map[uuid.UUID]*Solicitacao
	orcadas     map[uuid.UUID]map[uuid.UUID]struct{}
	principais  map[uuid.UUID]uuid.UUID
	comOrcas    map[uuid.UUID]bool
	statusCalls int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		sols:       make(map[uuid.UUID]*Solicitacao),
		orcadas:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
		principais: make(map[uuid.UUID]uuid.UUID),
		comOrcas:   make(map[uuid.UUID]bool),
	}
}

func (r *stubRepo) add(sol Solicitacao) *Solicitacao {
	copia := sol
	r.sols[sol.ID] = &copia
	return &copia
}

func (r *stubRepo) Create(ctx context.Context, input CreateInput) (*Solicitacao, error) {
	sol := Solicitacao{
		ID:              uuid.New(),
		EmpresaID:       input.EmpresaID,
		ImovelID:        input.ImovelID,
		SolicitanteID:   input.SolicitanteID,
		TipoSolicitante: input.TipoSolicitante,
		Status:          StatusAberta,
		CriadoEm:        time.Now(),
	}
	for _, item := range input.Itens {
		sol.Itens = append(sol.Itens, ItemServico{
			ID:            uuid.New(),
			TipoServicoID: item.TipoServicoID,
			Descricao:     item.Descricao,
			Prioridade:    item.Prioridade,
		})
	}
	return r.add(sol), nil
}

func (r *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (*Solicitacao, error) {
	sol, ok := r.sols[id]
	if !ok {
		return nil, ErrNotFound
	}
	copia := *sol
	return &copia, nil
}

func (r *stubRepo) ListByEmpresa(ctx context.Context, empresaID uuid.UUID) ([]Solicitacao, error) {
	var out []Solicitacao
	for _, sol := range r.sols {
		if sol.EmpresaID == empresaID {
			out = append(out, *sol)
		}
	}
	return out, nil
}

func (r *stubRepo) IDsOrcadasPeloPrestador(ctx context.Context, prestadorID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	return r.orcadas[prestadorID], nil
}

func (r *stubRepo) UpdateStatusCAS(ctx context.Context, id uuid.UUID, de, para Status) (*Solicitacao, error) {
	r.statusCalls++
	sol, ok := r.sols[id]
	if !ok {
		return nil, ErrNotFound
	}
	if sol.Status != de {
		return nil, ErrConflitoStatus
	}
	sol.Status = para
	copia := *sol
	return &copia, nil
}

func (r *stubRepo) PrestadorPrincipal(ctx context.Context, solicitacaoID uuid.UUID) (*uuid.UUID, error) {
	if id, ok := r.principais[solicitacaoID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (r *stubRepo) TemOrcamentos(ctx context.Context, solicitacaoID uuid.UUID) (bool, error) {
	return r.comOrcas[solicitacaoID], nil
}

func (r *stubRepo) ReplaceItens(ctx context.Context, solicitacaoID uuid.UUID, itens []ItemInput) (*Solicitacao, error) {
	sol, ok := r.sols[solicitacaoID]
	if !ok {
		return nil, ErrNotFound
	}
	sol.Itens = nil
	for _, item := range itens {
		sol.Itens = append(sol.Itens, ItemServico{
			ID:            uuid.New(),
			TipoServicoID: item.TipoServicoID,
			Descricao:     item.Descricao,
			Prioridade:    item.Prioridade,
		})
	}
	copia := *sol
	return &copia, nil
}

type eventoRegistrado struct {
	tipo     string
	solID    uuid.UUID
	anterior Status
}

type stubNotificador struct {
	eventos []eventoRegistrado
}

func (n *stubNotificador) SolicitacaoCriada(ctx context.Context, sol *Solicitacao) {
	n.eventos = append(n.eventos, eventoRegistrado{tipo: "criada", solID: sol.ID})
}

func (n *stubNotificador) StatusAlterado(ctx context.Context, sol *Solicitacao, anterior Status) {
	n.eventos = append(n.eventos, eventoRegistrado{tipo: "status", solID: sol.ID, anterior: anterior})
}

func TestCreateAbreSempreEmAberta(t *testing.T) {
	repo := newStubRepo()
	notifica := &stubNotificador{}
	svc := NewService(repo, notifica)

	actor := identity.Actor{ID: uuid.New(), EmpresaID: uuid.New(), Papel: identity.PapelUsuario}
	sol, err := svc.Create(context.Background(), actor, CreateInput{
		ImovelID:        uuid.New(),
		TipoSolicitante: "Inquilino",
		Itens:           []ItemInput{{TipoServicoID: uuid.New(), Descricao: "vazamento na pia"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sol.Status != StatusAberta {
		t.Fatalf("status inicial = %s, esperado aberta", sol.Status)
	}
	if sol.EmpresaID != actor.EmpresaID || sol.SolicitanteID != actor.ID {
		t.Fatal("empresa e solicitante devem vir do ator autenticado")
	}
	if sol.Itens[0].Prioridade != PrioridadeMedia {
		t.Fatalf("prioridade vazia deveria virar media, veio %s", sol.Itens[0].Prioridade)
	}
	if len(notifica.eventos) != 1 || notifica.eventos[0].tipo != "criada" {
		t.Fatalf("esperado evento de criação, veio %v", notifica.eventos)
	}
}

func TestCreateRejeitaSemItens(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	actor := identity.Actor{ID: uuid.New(), EmpresaID: uuid.New()}

	_, err := svc.Create(context.Background(), actor, CreateInput{
		ImovelID:        uuid.New(),
		TipoSolicitante: "inquilino",
	})
	if !errors.Is(err, ErrSemItens) {
		t.Fatalf("esperado ErrSemItens, veio %v", err)
	}
}

func TestVisibilidadePorPapel(t *testing.T) {
	empresaID := uuid.New()
	donoID := uuid.New()
	outroID := uuid.New()
	prestadorID := uuid.New()

	aberta := Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: donoID, Status: StatusAberta}
	emOrcamento := Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: outroID, Status: StatusOrcamento}
	aprovadaOrcada := Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: outroID, Status: StatusAprovada}
	concluidaAlheia := Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: outroID, Status: StatusConcluida}

	todas := []Solicitacao{aberta, emOrcamento, aprovadaOrcada, concluidaAlheia}
	orcadas := map[uuid.UUID]struct{}{aprovadaOrcada.ID: {}}

	gestor := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, Papel: identity.PapelGestor}
	if got := Visiveis(gestor, todas, nil); len(got) != len(todas) {
		t.Fatalf("gestão deveria ver %d, viu %d", len(todas), len(got))
	}

	prestador := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, PrestadorID: &prestadorID}
	visiveis := Visiveis(prestador, todas, orcadas)
	esperadas := map[uuid.UUID]bool{aberta.ID: true, emOrcamento.ID: true, aprovadaOrcada.ID: true}
	if len(visiveis) != len(esperadas) {
		t.Fatalf("prestador deveria ver %d, viu %d", len(esperadas), len(visiveis))
	}
	for _, sol := range visiveis {
		if !esperadas[sol.ID] {
			t.Errorf("prestador não deveria ver %s (status %s)", sol.ID, sol.Status)
		}
	}

	dono := identity.Actor{ID: donoID, EmpresaID: empresaID, Papel: identity.PapelUsuario}
	proprias := Visiveis(dono, todas, nil)
	if len(proprias) != 1 || proprias[0].ID != aberta.ID {
		t.Fatalf("usuário comum deveria ver só as próprias, viu %d", len(proprias))
	}
}

func TestVisibilidadePrestadorAcompanhaStatus(t *testing.T) {
	// a mesma solicitação entra e sai da visão do prestador conforme o status
	empresaID := uuid.New()
	prestadorID := uuid.New()
	prestador := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, PrestadorID: &prestadorID}

	sol := Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: uuid.New(), Status: StatusAberta}

	if got := Visiveis(prestador, []Solicitacao{sol}, nil); len(got) != 1 {
		t.Fatal("aberta deveria ser visível a qualquer prestador")
	}

	sol.Status = StatusAprovada
	if got := Visiveis(prestador, []Solicitacao{sol}, nil); len(got) != 0 {
		t.Fatal("aprovada sem orçamento do prestador deveria sumir da visão")
	}
	if got := Visiveis(prestador, []Solicitacao{sol}, map[uuid.UUID]struct{}{sol.ID: {}}); len(got) != 1 {
		t.Fatal("aprovada orçada pelo prestador deveria permanecer visível")
	}
}

func TestGetEscondeDeOutraEmpresa(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	sol := repo.add(Solicitacao{ID: uuid.New(), EmpresaID: uuid.New(), SolicitanteID: uuid.New(), Status: StatusAberta})

	intruso := identity.Actor{ID: uuid.New(), EmpresaID: uuid.New(), Papel: identity.PapelAdmin}
	if _, err := svc.Get(context.Background(), intruso, sol.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("outra empresa deveria receber not found, veio %v", err)
	}
}

func TestTransitionFluxoCompleto(t *testing.T) {
	repo := newStubRepo()
	notifica := &stubNotificador{}
	svc := NewService(repo, notifica)

	empresaID := uuid.New()
	gestor := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, Papel: identity.PapelGestor}
	sol := repo.add(Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: uuid.New(), Status: StatusAberta})

	caminho := []Status{StatusOrcamento, StatusAprovada, StatusExecucao, StatusConcluida}
	for _, alvo := range caminho {
		atualizada, err := svc.Transition(context.Background(), gestor, sol.ID, alvo)
		if err != nil {
			t.Fatalf("transição para %s: %v", alvo, err)
		}
		if atualizada.Status != alvo {
			t.Fatalf("status = %s, esperado %s", atualizada.Status, alvo)
		}
	}

	if _, err := svc.Transition(context.Background(), gestor, sol.ID, StatusCancelada); !errors.Is(err, ErrTransicaoInvalida) {
		t.Fatalf("concluída é terminal, esperado ErrTransicaoInvalida, veio %v", err)
	}
	if len(notifica.eventos) != len(caminho) {
		t.Fatalf("esperados %d eventos de status, vieram %d", len(caminho), len(notifica.eventos))
	}
}

func TestTransitionNegaSaltos(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	empresaID := uuid.New()
	gestor := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, Papel: identity.PapelAdmin}
	sol := repo.add(Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: uuid.New(), Status: StatusAberta})

	if _, err := svc.Transition(context.Background(), gestor, sol.ID, StatusExecucao); !errors.Is(err, ErrTransicaoInvalida) {
		t.Fatalf("salto aberta→execucao deveria falhar, veio %v", err)
	}
}

func TestTransitionAutorizacaoPorAresta(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	empresaID := uuid.New()
	solicitanteID := uuid.New()
	prestadorID := uuid.New()

	sol := repo.add(Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: solicitanteID, Status: StatusAprovada})
	repo.principais[sol.ID] = prestadorID

	outro := uuid.New()
	naoPrincipal := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, PrestadorID: &outro}
	if _, err := svc.Transition(context.Background(), naoPrincipal, sol.ID, StatusExecucao); !errors.Is(err, ErrForbidden) {
		t.Fatalf("prestador sem orçamento principal deveria ser negado, veio %v", err)
	}

	principal := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, PrestadorID: &prestadorID}
	atualizada, err := svc.Transition(context.Background(), principal, sol.ID, StatusExecucao)
	if err != nil {
		t.Fatalf("prestador principal deveria iniciar execução: %v", err)
	}
	if atualizada.Status != StatusExecucao {
		t.Fatalf("status = %s, esperado execucao", atualizada.Status)
	}
}

// staleRepo devolve na leitura um status defasado em relação ao armazenado,
// reproduzindo outra transição vencendo a corrida antes do CAS.
type staleRepo struct {
	*stubRepo
	lido Status
}

func (r *staleRepo) GetByID(ctx context.Context, id uuid.UUID) (*Solicitacao, error) {
	sol, err := r.stubRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sol.Status = r.lido
	return sol, nil
}

func TestTransitionConflitoConcorrente(t *testing.T) {
	base := newStubRepo()
	empresaID := uuid.New()
	sol := base.add(Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: uuid.New(), Status: StatusCancelada})

	svc := NewService(&staleRepo{stubRepo: base, lido: StatusAberta}, nil)
	gestor := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, Papel: identity.PapelGestor}

	if _, err := svc.Transition(context.Background(), gestor, sol.ID, StatusOrcamento); !errors.Is(err, ErrConflitoStatus) {
		t.Fatalf("esperado ErrConflitoStatus, veio %v", err)
	}
	if base.sols[sol.ID].Status != StatusCancelada {
		t.Fatal("corrida perdida não pode sobrescrever o status vencedor")
	}
}

func TestAtualizarItensCongelaAposOrcamento(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	empresaID := uuid.New()
	dono := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, Papel: identity.PapelUsuario}
	sol := repo.add(Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: dono.ID, Status: StatusAberta})

	itens := []ItemInput{{TipoServicoID: uuid.New(), Descricao: "trocar fechadura", Prioridade: "alta"}}
	if _, err := svc.AtualizarItens(context.Background(), dono, sol.ID, itens); err != nil {
		t.Fatalf("edição antes de orçamento deveria passar: %v", err)
	}

	repo.comOrcas[sol.ID] = true
	if _, err := svc.AtualizarItens(context.Background(), dono, sol.ID, itens); !errors.Is(err, ErrItensCongelados) {
		t.Fatalf("esperado ErrItensCongelados, veio %v", err)
	}
}

func TestAtualizarItensSomenteDonoOuGestao(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	empresaID := uuid.New()
	sol := repo.add(Solicitacao{ID: uuid.New(), EmpresaID: empresaID, SolicitanteID: uuid.New(), Status: StatusAberta})

	estranho := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, Papel: identity.PapelUsuario}
	itens := []ItemInput{{TipoServicoID: uuid.New(), Descricao: "pintura"}}
	if _, err := svc.AtualizarItens(context.Background(), estranho, sol.ID, itens); !errors.Is(err, ErrForbidden) {
		t.Fatalf("esperado ErrForbidden, veio %v", err)
	}
}

// gera conjuntos aleatórios de solicitações e confere a fórmula de
// visibilidade contra um oráculo direto, para prestador e usuário comum.
func TestVisiveisPropriedade(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	empresaID := uuid.New()
	prestadorID := uuid.New()
	usuarioID := uuid.New()

	prestador := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, Papel: identity.PapelUsuario, PrestadorID: &prestadorID}
	usuario := identity.Actor{ID: usuarioID, EmpresaID: empresaID, Papel: identity.PapelUsuario}
	gestor := identity.Actor{ID: uuid.New(), EmpresaID: empresaID, Papel: identity.PapelGestor}

	statuses := AllStatuses()
	for rodada := 0; rodada < 50; rodada++ {
		n := 1 + rng.Intn(20)
		todas := make([]Solicitacao, 0, n)
		orcadas := make(map[uuid.UUID]struct{})

		for i := 0; i < n; i++ {
			sol := Solicitacao{
				ID:        uuid.New(),
				EmpresaID: empresaID,
				Status:    statuses[rng.Intn(len(statuses))],
			}
			if rng.Intn(3) == 0 {
				sol.SolicitanteID = usuarioID
			} else {
				sol.SolicitanteID = uuid.New()
			}
			if rng.Intn(3) == 0 {
				orcadas[sol.ID] = struct{}{}
			}
			todas = append(todas, sol)
		}

		if got := Visiveis(gestor, todas, nil); len(got) != len(todas) {
			t.Fatalf("gestão deveria ver tudo: %d != %d", len(got), len(todas))
		}

		for _, sol := range Visiveis(prestador, todas, orcadas) {
			_, orcou := orcadas[sol.ID]
			if sol.Status != StatusAberta && sol.Status != StatusOrcamento && !orcou {
				t.Fatalf("prestador viu solicitação indevida: status=%s orcou=%v", sol.Status, orcou)
			}
		}
		for _, sol := range todas {
			_, orcou := orcadas[sol.ID]
			if sol.Status == StatusAberta || sol.Status == StatusOrcamento || orcou {
				if !contemSolicitacao(Visiveis(prestador, todas, orcadas), sol.ID) {
					t.Fatalf("prestador deixou de ver solicitação devida: status=%s orcou=%v", sol.Status, orcou)
				}
			}
		}

		visUsuario := Visiveis(usuario, todas, nil)
		for _, sol := range visUsuario {
			if sol.SolicitanteID != usuarioID {
				t.Fatal("usuário viu solicitação de terceiro")
			}
		}
		for _, sol := range todas {
			if sol.SolicitanteID == usuarioID && !contemSolicitacao(visUsuario, sol.ID) {
				t.Fatal("usuário deixou de ver a própria solicitação")
			}
		}
	}
}

func contemSolicitacao(sols []Solicitacao, id uuid.UUID) bool {
	for _, s := range sols {
		if s.ID == id {
			return true
		}
	}
	return false
}
