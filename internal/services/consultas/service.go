// Package consultas é a camada de leitura: retrato atual do processo com
// cache read-through, histórico de desfechos e aplicação dos eventos de
// atualização vindos do broker.
package consultas

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/JusTrack/JusTrack/internal/broker/messages"
	"github.com/JusTrack/JusTrack/internal/models"
)

type Repository interface {
	ObterConsulta(ctx context.Context, id string) (*models.ConsultaTribunal, error)
	ListarResultados(ctx context.Context, processoID, tribunalID string, limit int) ([]models.ConsultaResultado, error)
	ListarMovimentacoes(ctx context.Context, processoID, tribunalID string, limit int) ([]models.Movimentacao, error)
	RegistrarMovimentacoes(ctx context.Context, processoID, tribunalID string, movs []models.Movimentacao) ([]models.Movimentacao, error)
}

type Cache interface {
	GetProcesso(ctx context.Context, processoID, tribunalID string) (*models.ProcessoTribunalData, bool, error)
	SetProcesso(ctx context.Context, processoID, tribunalID string, d *models.ProcessoTribunalData, ttl time.Duration) error
	InvalidarProcesso(ctx context.Context, processoID, tribunalID string) error
}

type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
}

func New(repo Repository, c Cache, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl}
}

// RetratoAtual devolve o último retrato conhecido do processo: cache
// primeiro, histórico como fallback. O cache é melhor esforço, nunca
// bloqueia a resposta.
func (s *Service) RetratoAtual(ctx context.Context, processoID, tribunalID string) (*models.ProcessoTribunalData, error) {
	if s.cache != nil && s.ttl > 0 {
		if d, ok, err := s.cache.GetProcesso(ctx, processoID, tribunalID); err == nil && ok {
			return d, nil
		}
	}

	historico, err := s.repo.ListarResultados(ctx, processoID, tribunalID, 20)
	if err != nil {
		return nil, err
	}
	var dados *models.ProcessoTribunalData
	for _, r := range historico {
		if r.Sucesso && r.Dados != nil {
			dados = r.Dados
			break
		}
	}
	if dados == nil {
		return nil, nil
	}

	// o snapshot consolidado pode ter movimentações de consultas posteriores
	movs, err := s.repo.ListarMovimentacoes(ctx, processoID, tribunalID, 200)
	if err == nil && len(movs) > 0 {
		dados.Movimentacoes = models.OrdenarMovimentacoes(movs)
	}

	if s.cache != nil && s.ttl > 0 {
		_ = s.cache.SetProcesso(ctx, processoID, tribunalID, dados, s.ttl)
	}
	return dados, nil
}

// GuardarRetrato grava no cache o retrato recém-consultado.
func (s *Service) GuardarRetrato(ctx context.Context, processoID, tribunalID string, d *models.ProcessoTribunalData) {
	if s.cache == nil || s.ttl <= 0 || d == nil {
		return
	}
	_ = s.cache.SetProcesso(ctx, processoID, tribunalID, d, s.ttl)
}

func (s *Service) ObterConsulta(ctx context.Context, id string) (*models.ConsultaTribunal, error) {
	if id == "" {
		return nil, errors.New("id da consulta é obrigatório")
	}
	return s.repo.ObterConsulta(ctx, id)
}

func (s *Service) HistoricoResultados(ctx context.Context, processoID, tribunalID string, limit int) ([]models.ConsultaResultado, error) {
	return s.repo.ListarResultados(ctx, processoID, tribunalID, limit)
}

func (s *Service) Movimentacoes(ctx context.Context, processoID, tribunalID string, limit int) ([]models.Movimentacao, error) {
	return s.repo.ListarMovimentacoes(ctx, processoID, tribunalID, limit)
}

// ApplyKafkaUpdate incorpora um evento ProcessoAtualizado: garante as
// movimentações no snapshot (idempotente pelo índice de dedup) e derruba o
// retrato em cache para a próxima leitura reconstruir.
func (s *Service) ApplyKafkaUpdate(ctx context.Context, msg messages.ProcessoAtualizado) error {
	if msg.ProcessoID == "" || msg.TribunalID == "" {
		return errors.New("evento sem processo/tribunal")
	}

	movs := make([]models.Movimentacao, 0, len(msg.NovasMovimentacoes))
	for _, m := range msg.NovasMovimentacoes {
		movs = append(movs, models.Movimentacao{
			ID:          m.ID,
			Data:        m.Data,
			Descricao:   m.Descricao,
			Complemento: m.Complemento,
			Orgao:       m.Orgao,
		})
	}
	if len(movs) > 0 {
		if _, err := s.repo.RegistrarMovimentacoes(ctx, msg.ProcessoID, msg.TribunalID, movs); err != nil {
			return err
		}
	}

	if s.cache != nil {
		_ = s.cache.InvalidarProcesso(ctx, msg.ProcessoID, msg.TribunalID)
	}
	return nil
}
