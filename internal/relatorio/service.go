package relatorio

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrPeriodoInvalido = errors.New("período inválido")

type CustoRepository interface {
	CustosPorPeriodo(ctx context.Context, empresaID uuid.UUID, inicio, fim time.Time) ([]CustoSolicitacao, error)
}

type Service struct {
	repo CustoRepository
}

func NewService(repo CustoRepository) *Service {
	return &Service{repo: repo}
}

// ResumoPorPeriodo monta o relatório de custos. fim é tratado como
// inclusivo no dia: a consulta corre até o início do dia seguinte.
func (s *Service) ResumoPorPeriodo(ctx context.Context, empresaID uuid.UUID, inicio, fim time.Time) (*ResumoCustos, error) {
	if fim.Before(inicio) {
		return nil, ErrPeriodoInvalido
	}

	limite := fim.AddDate(0, 0, 1)
	linhas, err := s.repo.CustosPorPeriodo(ctx, empresaID, inicio, limite)
	if err != nil {
		return nil, err
	}

	resumo := &ResumoCustos{
		Inicio:    inicio,
		Fim:       fim,
		Linhas:    linhas,
		PorStatus: make(map[string]int),
	}
	for _, l := range linhas {
		resumo.TotalPeriodo += l.Total
		resumo.PorStatus[l.Status]++
	}
	resumo.Quantidade = len(linhas)
	return resumo, nil
}
