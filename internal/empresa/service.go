package empresa

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EmpresaRepository abstrai o armazenamento usado pelo serviço.
type EmpresaRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Empresa, error)
	GetBySlug(ctx context.Context, slug string) (*Empresa, error)
	List(ctx context.Context) ([]Empresa, error)
	Create(ctx context.Context, input CreateInput) (*Empresa, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) error
}

// Service contém as regras de cadastro e consulta de empresas. Mantém um
// cache curto em memória porque a taxa de administração da empresa é
// consultada a cada orçamento criado.
type Service struct {
	repo     EmpresaRepository
	cache    sync.Map
	cacheTTL time.Duration
}

type cachedEmpresa struct {
	empresa  Empresa
	expireAt time.Time
}

func NewService(repo EmpresaRepository) *Service {
	return &Service{repo: repo, cacheTTL: 2 * time.Minute}
}

// Get busca a empresa pelo id, servindo do cache quando fresco.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Empresa, error) {
	if v, ok := s.cache.Load(id); ok {
		entry := v.(cachedEmpresa)
		if time.Now().Before(entry.expireAt) {
			copia := entry.empresa
			return &copia, nil
		}
		s.cache.Delete(id)
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Store(id, cachedEmpresa{empresa: *e, expireAt: time.Now().Add(s.cacheTTL)})
	copia := *e
	return &copia, nil
}

// TaxaAdmin devolve o percentual de administração configurado da empresa.
func (s *Service) TaxaAdmin(ctx context.Context, id uuid.UUID) (float64, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return e.TaxaAdminPct, nil
}

// Create registra uma nova empresa.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Empresa, error) {
	input.Slug = normalizeSlug(input.Slug)
	input.Nome = strings.TrimSpace(input.Nome)
	if input.Slug == "" {
		return nil, ErrSlugVazio
	}
	if input.Nome == "" {
		return nil, ErrNomeVazio
	}
	if input.TaxaAdminPct < 0 || input.TaxaAdminPct > 100 {
		return nil, ErrTaxaInvalida
	}
	if input.Settings == nil {
		input.Settings = map[string]any{}
	}

	e, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	s.cache.Store(e.ID, cachedEmpresa{empresa: *e, expireAt: time.Now().Add(s.cacheTTL)})
	return e, nil
}

// UpdateSettings substitui o JSON de configuração da empresa.
func (s *Service) UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) error {
	if settings == nil {
		settings = map[string]any{}
	}

	if err := s.repo.UpdateSettings(ctx, id, settings); err != nil {
		return err
	}

	// força refetch na próxima consulta
	s.cache.Delete(id)
	return nil
}

// List devolve todas as empresas.
func (s *Service) List(ctx context.Context) ([]Empresa, error) {
	empresas, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, e := range empresas {
		s.cache.Store(e.ID, cachedEmpresa{empresa: e, expireAt: time.Now().Add(s.cacheTTL)})
	}

	return empresas, nil
}

func normalizeSlug(slug string) string {
	slug = strings.TrimSpace(strings.ToLower(slug))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}
