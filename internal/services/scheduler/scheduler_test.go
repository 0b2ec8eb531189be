package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/registry"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	chamadas []registry.ConsultaRequest
	falhar   bool
}

func (f *fakeDispatcher) ConsultarProcesso(_ context.Context, req registry.ConsultaRequest) (models.ConsultaTribunal, models.ConsultaResultado, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chamadas = append(f.chamadas, req)
	if f.falhar {
		return models.ConsultaTribunal{}, models.ConsultaResultado{
			Sucesso: false, Erro: "portal fora do ar", ErroTipo: "TRANSPORTE_HTTP",
		}, nil
	}
	return models.ConsultaTribunal{}, models.ConsultaResultado{Sucesso: true}, nil
}

func (f *fakeDispatcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chamadas)
}

type fakeNotifier struct {
	mu      sync.Mutex
	avisos  []string
}

func (n *fakeNotifier) NotificarErro(_ context.Context, job models.ScheduledJob, motivo string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.avisos = append(n.avisos, job.ID+": "+motivo)
	return nil
}

// relogio falso: o scheduler enxerga o instante que o teste mandar.
type relogio struct {
	mu sync.Mutex
	t  time.Time
}

func (r *relogio) agora() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t
}

func (r *relogio) avancar(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t = r.t.Add(d)
}

func novoSchedulerDeTeste(disp Dispatcher) (*Scheduler, *relogio) {
	rel := &relogio{t: time.Date(2024, time.June, 6, 10, 0, 0, 0, time.UTC)}
	s := New(disp, nil)
	s.now = rel.agora
	return s, rel
}

func agendarDiario(t *testing.T, s *Scheduler) models.ScheduledJob {
	t.Helper()
	job, err := s.Agendar(ScheduleRequest{
		ProcessoID:     "proc-1",
		NumeroProcesso: "0001234-56.2023.8.26.0100",
		TribunalID:     "TJSP",
		Recorrencia:    models.RecurringConfig{Intervalo: models.IntervaloDia, Frequencia: 1},
		Notificacoes:   models.NotificationConfig{AoErrar: true},
		MaxErros:       3,
	})
	require.NoError(t, err)
	return job
}

func TestScheduler_AgendarCalculaProximaExecucao(t *testing.T) {
	s, rel := novoSchedulerDeTeste(&fakeDispatcher{})
	job := agendarDiario(t, s)

	require.True(t, job.Ativo)
	require.Equal(t, rel.agora().AddDate(0, 0, 1), job.ProximaExecucao)
	require.Equal(t, 3, job.MaxErros)
}

func TestScheduler_ReagendarSubstitui(t *testing.T) {
	s, _ := novoSchedulerDeTeste(&fakeDispatcher{})
	antigo := agendarDiario(t, s)

	novo, err := s.Agendar(ScheduleRequest{
		ProcessoID:     "proc-1",
		NumeroProcesso: "0001234-56.2023.8.26.0100",
		TribunalID:     "TJSP",
		Recorrencia:    models.RecurringConfig{Intervalo: models.IntervaloHora, Frequencia: 6},
	})
	require.NoError(t, err)
	require.NotEqual(t, antigo.ID, novo.ID)

	todos := s.Listar()
	require.Len(t, todos, 1)
	require.Equal(t, novo.ID, todos[0].ID)

	_, ok := s.Detalhes(antigo.ID)
	require.False(t, ok)
}

func TestScheduler_AgendarRejeitaRecorrenciaInvalida(t *testing.T) {
	s, _ := novoSchedulerDeTeste(&fakeDispatcher{})
	_, err := s.Agendar(ScheduleRequest{
		ProcessoID: "p", TribunalID: "TJSP",
		Recorrencia: models.RecurringConfig{Intervalo: "QUINZENA", Frequencia: 1},
	})
	require.Error(t, err)
}

func TestScheduler_ExecutaVencidosEReprograma(t *testing.T) {
	disp := &fakeDispatcher{}
	s, rel := novoSchedulerDeTeste(disp)
	job := agendarDiario(t, s)

	// antes do vencimento, nada roda
	s.runOnce(context.Background())
	require.Zero(t, disp.total())

	rel.avancar(24*time.Hour + time.Minute)
	s.runOnce(context.Background())
	require.Equal(t, 1, disp.total())

	depois, ok := s.Detalhes(job.ID)
	require.True(t, ok)
	require.NotNil(t, depois.UltimaExecucao)
	require.Zero(t, depois.ErrosConsecutivos)
	require.Equal(t, rel.agora().AddDate(0, 0, 1), depois.ProximaExecucao)
	require.Equal(t, job.ID, disp.chamadas[0].MonitoramentoID)
}

func TestScheduler_FalhaReagendaEDesativaNoLimite(t *testing.T) {
	disp := &fakeDispatcher{falhar: true}
	not := &fakeNotifier{}
	s, rel := novoSchedulerDeTeste(disp)
	s.WithNotifier(not)
	job := agendarDiario(t, s) // MaxErros = 3

	// primeira e segunda falhas: retry em 5 minutos, um aviso por falha (AoErrar)
	for i := 1; i <= 2; i++ {
		rel.avancar(25 * time.Hour)
		s.runOnce(context.Background())
		atual, _ := s.Detalhes(job.ID)
		require.Equal(t, i, atual.ErrosConsecutivos)
		require.True(t, atual.Ativo)
		require.Equal(t, rel.agora().Add(retryDelay), atual.ProximaExecucao)
		require.Len(t, not.avisos, i)
	}

	// terceira falha: desativa, sem aviso duplicado
	rel.avancar(retryDelay + time.Second)
	s.runOnce(context.Background())
	atual, _ := s.Detalhes(job.ID)
	require.Equal(t, 3, atual.ErrosConsecutivos)
	require.False(t, atual.Ativo)
	require.Len(t, not.avisos, 3)

	// desativado não roda mais
	antes := disp.total()
	rel.avancar(24 * time.Hour)
	s.runOnce(context.Background())
	require.Equal(t, antes, disp.total())
}

func TestScheduler_ZerarErrosEReativar(t *testing.T) {
	disp := &fakeDispatcher{falhar: true}
	s, rel := novoSchedulerDeTeste(disp)
	job := agendarDiario(t, s)

	rel.avancar(25 * time.Hour)
	s.runOnce(context.Background())

	zerado, ok := s.ZerarErros(job.ID)
	require.True(t, ok)
	require.Zero(t, zerado.ErrosConsecutivos)

	// reativar com agenda no passado reprograma a partir de agora
	_, ok = s.Alternar(job.ID, false)
	require.True(t, ok)
	reativado, ok := s.Alternar(job.ID, true)
	require.True(t, ok)
	require.True(t, reativado.ProximaExecucao.After(rel.agora()))
}

func TestScheduler_ZerarErrosReativaJobDesativado(t *testing.T) {
	disp := &fakeDispatcher{falhar: true}
	s, rel := novoSchedulerDeTeste(disp)
	job, err := s.Agendar(ScheduleRequest{
		ProcessoID:     "proc-1",
		NumeroProcesso: "0001234-56.2023.8.26.0100",
		TribunalID:     "TJSP",
		Recorrencia:    models.RecurringConfig{Intervalo: models.IntervaloDia, Frequencia: 1},
		MaxErros:       1,
	})
	require.NoError(t, err)

	// única falha já atinge o limite e desliga o job
	rel.avancar(25 * time.Hour)
	s.runOnce(context.Background())
	desligado, _ := s.Detalhes(job.ID)
	require.False(t, desligado.Ativo)

	depois, ok := s.ZerarErros(job.ID)
	require.True(t, ok)
	require.Zero(t, depois.ErrosConsecutivos)
	require.True(t, depois.Ativo)
	require.True(t, depois.ProximaExecucao.After(rel.agora()))

	// de volta à agenda: o próximo vencimento executa
	disp.falhar = false
	rel.avancar(24*time.Hour + time.Minute)
	antes := disp.total()
	s.runOnce(context.Background())
	require.Equal(t, antes+1, disp.total())
}

func TestScheduler_DesativacaoAvisaMesmoSemAoErrar(t *testing.T) {
	disp := &fakeDispatcher{falhar: true}
	not := &fakeNotifier{}
	s, rel := novoSchedulerDeTeste(disp)
	s.WithNotifier(not)
	_, err := s.Agendar(ScheduleRequest{
		ProcessoID:     "proc-1",
		NumeroProcesso: "0001234-56.2023.8.26.0100",
		TribunalID:     "TJSP",
		Recorrencia:    models.RecurringConfig{Intervalo: models.IntervaloDia, Frequencia: 1},
		MaxErros:       2,
	})
	require.NoError(t, err)

	// sem AoErrar, falha intermediária não avisa
	rel.avancar(25 * time.Hour)
	s.runOnce(context.Background())
	require.Empty(t, not.avisos)

	// o desligamento no limite avisa sempre
	rel.avancar(retryDelay + time.Second)
	s.runOnce(context.Background())
	require.Len(t, not.avisos, 1)
}

func TestScheduler_AgendarComAtivoFalsoCancela(t *testing.T) {
	s, _ := novoSchedulerDeTeste(&fakeDispatcher{})
	agendarDiario(t, s)

	desativar := false
	job, err := s.Agendar(ScheduleRequest{
		ProcessoID: "proc-1",
		TribunalID: "TJSP",
		Ativo:      &desativar,
	})
	require.NoError(t, err)
	require.Empty(t, job.ID)
	require.False(t, job.Ativo)
	require.Empty(t, s.Listar())
}

func TestScheduler_ExecutarAgoraIgnoraAgenda(t *testing.T) {
	disp := &fakeDispatcher{}
	s, _ := novoSchedulerDeTeste(disp)
	job := agendarDiario(t, s)

	res, err := s.ExecutarAgora(context.Background(), job.ID)
	require.NoError(t, err)
	require.True(t, res.Sucesso)
	require.Equal(t, 1, disp.total())

	_, err = s.ExecutarAgora(context.Background(), "nao-existe")
	require.Error(t, err)
}

func TestScheduler_TerminoRemoveJob(t *testing.T) {
	disp := &fakeDispatcher{}
	s, rel := novoSchedulerDeTeste(disp)

	fim := rel.agora().Add(12 * time.Hour)
	_, err := s.Agendar(ScheduleRequest{
		ProcessoID: "proc-2", NumeroProcesso: "0001234-56.2023.8.26.0100", TribunalID: "TJSP",
		Recorrencia: models.RecurringConfig{
			Intervalo: models.IntervaloDia, Frequencia: 1, TerminaEm: &fim,
		},
	})
	require.NoError(t, err)

	rel.avancar(24 * time.Hour)
	s.runOnce(context.Background())

	require.Empty(t, s.Listar())
	require.Zero(t, disp.total())
}

func TestScheduler_Cancelar(t *testing.T) {
	s, _ := novoSchedulerDeTeste(&fakeDispatcher{})
	agendarDiario(t, s)

	require.True(t, s.Cancelar("proc-1", "TJSP"))
	require.False(t, s.Cancelar("proc-1", "TJSP"))
	require.Empty(t, s.Listar())
}

func TestScheduler_Stats(t *testing.T) {
	disp := &fakeDispatcher{falhar: true}
	s, rel := novoSchedulerDeTeste(disp)
	agendarDiario(t, s)

	rel.avancar(25 * time.Hour)
	s.runOnce(context.Background())

	st := s.Stats()
	require.Equal(t, 1, st.JobsTotal)
	require.Equal(t, int64(1), st.TotalExecucoes)
	require.Equal(t, int64(1), st.TotalErros)
	require.NotEmpty(t, st.LastError)
	require.NotNil(t, st.LastCycleAt)
}
