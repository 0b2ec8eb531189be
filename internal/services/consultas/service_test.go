package consultas

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/JusTrack/JusTrack/internal/broker/messages"
	"github.com/JusTrack/JusTrack/internal/cache/rediscache"
	"github.com/JusTrack/JusTrack/internal/models"
)

type fakeRepo struct {
	resultados    []models.ConsultaResultado
	movimentacoes []models.Movimentacao
	registradas   []models.Movimentacao

	listagens int
}

func (r *fakeRepo) ObterConsulta(_ context.Context, id string) (*models.ConsultaTribunal, error) {
	return &models.ConsultaTribunal{ID: id}, nil
}

func (r *fakeRepo) ListarResultados(_ context.Context, _, _ string, _ int) ([]models.ConsultaResultado, error) {
	r.listagens++
	return r.resultados, nil
}

func (r *fakeRepo) ListarMovimentacoes(_ context.Context, _, _ string, _ int) ([]models.Movimentacao, error) {
	return r.movimentacoes, nil
}

func (r *fakeRepo) RegistrarMovimentacoes(_ context.Context, _, _ string, movs []models.Movimentacao) ([]models.Movimentacao, error) {
	r.registradas = append(r.registradas, movs...)
	return movs, nil
}

func servicoDeTeste(t *testing.T, repo *fakeRepo) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	return New(repo, rediscache.New(mr.Addr()), time.Minute)
}

func TestRetratoAtual_ReadThrough(t *testing.T) {
	base := time.Date(2023, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		resultados: []models.ConsultaResultado{
			{Sucesso: false, Erro: "portal fora do ar"},
			{Sucesso: true, Dados: &models.ProcessoTribunalData{
				NumeroProcesso: "0001234-56.2023.8.26.0100",
				Classe:         "Procedimento Comum Cível",
			}},
		},
		movimentacoes: []models.Movimentacao{
			models.NovaMovimentacao(base, "Conclusos"),
			models.NovaMovimentacao(base.Add(-24*time.Hour), "Distribuído"),
		},
	}
	s := servicoDeTeste(t, repo)
	ctx := context.Background()

	d, err := s.RetratoAtual(ctx, "proc-1", "TJSP")
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, "Procedimento Comum Cível", d.Classe)
	require.Len(t, d.Movimentacoes, 2)
	require.Equal(t, "Conclusos", d.Movimentacoes[0].Descricao)
	require.Equal(t, 1, repo.listagens)

	// segunda leitura vem do cache, sem novo acesso ao histórico
	d2, err := s.RetratoAtual(ctx, "proc-1", "TJSP")
	require.NoError(t, err)
	require.Equal(t, d.NumeroProcesso, d2.NumeroProcesso)
	require.Equal(t, 1, repo.listagens)
}

func TestRetratoAtual_SemHistorico(t *testing.T) {
	s := servicoDeTeste(t, &fakeRepo{})
	d, err := s.RetratoAtual(context.Background(), "proc-x", "TJSP")
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestApplyKafkaUpdate_RegistraEInvalida(t *testing.T) {
	repo := &fakeRepo{
		resultados: []models.ConsultaResultado{
			{Sucesso: true, Dados: &models.ProcessoTribunalData{NumeroProcesso: "n"}},
		},
	}
	s := servicoDeTeste(t, repo)
	ctx := context.Background()

	// aquece o cache
	_, err := s.RetratoAtual(ctx, "proc-1", "TJSP")
	require.NoError(t, err)
	require.Equal(t, 1, repo.listagens)

	err = s.ApplyKafkaUpdate(ctx, messages.ProcessoAtualizado{
		ProcessoID: "proc-1", TribunalID: "TJSP",
		NovasMovimentacoes: []messages.Movimentacao{
			{ID: "m1", Data: time.Now().UTC(), Descricao: "Sentença publicada"},
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.registradas, 1)

	// cache invalidado: leitura volta ao histórico
	_, err = s.RetratoAtual(ctx, "proc-1", "TJSP")
	require.NoError(t, err)
	require.Equal(t, 2, repo.listagens)
}

func TestApplyKafkaUpdate_EventoInvalido(t *testing.T) {
	s := servicoDeTeste(t, &fakeRepo{})
	require.Error(t, s.ApplyKafkaUpdate(context.Background(), messages.ProcessoAtualizado{}))
}

func TestObterConsulta_IDObrigatorio(t *testing.T) {
	s := servicoDeTeste(t, &fakeRepo{})
	_, err := s.ObterConsulta(context.Background(), "")
	require.Error(t, err)
}
