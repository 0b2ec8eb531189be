// Package scheduler mantém os monitoramentos recorrentes: um job por par
// (processo, tribunal), disparado por um laço mestre de tick. A execução
// de cada job passa pelo dispatcher, que cuida de validação, rate-limit e
// registro do histórico.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/registry"
)

// Dispatcher é o que o scheduler precisa do despacho de consultas.
type Dispatcher interface {
	ConsultarProcesso(ctx context.Context, req registry.ConsultaRequest) (models.ConsultaTribunal, models.ConsultaResultado, error)
}

// Notifier recebe o aviso de desativação automática de um monitoramento.
type Notifier interface {
	NotificarErro(ctx context.Context, job models.ScheduledJob, motivo string) error
}

const (
	defaultTickInterval = 60 * time.Second
	// retryDelay reagenda um job que falhou, antes do ciclo normal.
	retryDelay      = 5 * time.Minute
	defaultMaxErros = 5
)

// ScheduleRequest registra (ou substitui) o monitoramento de um par
// processo × tribunal.
type ScheduleRequest struct {
	ProcessoID     string
	NumeroProcesso string
	TribunalID     string
	Operacoes      []string

	Recorrencia  models.RecurringConfig
	Notificacoes models.NotificationConfig
	MaxErros     int

	// Ativo nulo ou true registra; false cancela o monitoramento do par.
	Ativo *bool
}

type Scheduler struct {
	disp     Dispatcher
	notifier Notifier
	logger   *slog.Logger

	tickInterval time.Duration
	now          func() time.Time
	triggerCh    chan struct{}

	mu      sync.Mutex
	porPar  map[string]string // "processo|tribunal" -> job id
	jobs    map[string]*models.ScheduledJob

	startedAtUnixNano int64
	lastCycleUnixNano atomic.Int64
	totalExecucoes    atomic.Int64
	totalErros        atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

func New(disp Dispatcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		disp:         disp,
		logger:       logger.With("component", "scheduler"),
		tickInterval: defaultTickInterval,
		now:          time.Now,
		triggerCh:    make(chan struct{}, 1),
		porPar:       make(map[string]string),
		jobs:         make(map[string]*models.ScheduledJob),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (s *Scheduler) WithNotifier(n Notifier) *Scheduler {
	s.notifier = n
	return s
}

func (s *Scheduler) WithTickInterval(d time.Duration) *Scheduler {
	if d > 0 {
		s.tickInterval = d
	}
	return s
}

func chavePar(processoID, tribunalID string) string {
	return processoID + "|" + tribunalID
}

// Agendar registra o monitoramento. Um segundo registro para o mesmo par
// substitui o anterior, preservando só a identidade do par; registrar com
// Ativo=false cancela o monitoramento existente.
func (s *Scheduler) Agendar(req ScheduleRequest) (models.ScheduledJob, error) {
	if req.ProcessoID == "" || req.TribunalID == "" {
		return models.ScheduledJob{}, faults.New(faults.SistemaNaoConfigurado,
			"monitoramento exige processo e tribunal")
	}
	if req.Ativo != nil && !*req.Ativo {
		s.Cancelar(req.ProcessoID, req.TribunalID)
		return models.ScheduledJob{ProcessoID: req.ProcessoID, TribunalID: req.TribunalID}, nil
	}
	if err := ValidarRecorrencia(req.Recorrencia); err != nil {
		return models.ScheduledJob{}, err
	}

	maxErros := req.MaxErros
	if maxErros <= 0 {
		maxErros = defaultMaxErros
	}
	agora := s.now().UTC()
	job := &models.ScheduledJob{
		ID:             uuid.NewString(),
		ProcessoID:     req.ProcessoID,
		NumeroProcesso: req.NumeroProcesso,
		TribunalID:     req.TribunalID,
		Operacoes:      req.Operacoes,
		Recorrencia:    req.Recorrencia,
		Notificacoes:   req.Notificacoes,
		Ativo:          true,
		ProximaExecucao: ProximaExecucao(agora, req.Recorrencia),
		MaxErros:       maxErros,
		CriadoEm:       agora,
		AtualizadoEm:   agora,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	chave := chavePar(req.ProcessoID, req.TribunalID)
	if antigo, ok := s.porPar[chave]; ok {
		delete(s.jobs, antigo)
	}
	s.porPar[chave] = job.ID
	s.jobs[job.ID] = job

	s.logger.Info("monitoramento registrado",
		"job", job.ID, "processo", req.ProcessoID, "tribunal", req.TribunalID,
		"proximaExecucao", job.ProximaExecucao)
	return *job, nil
}

// Cancelar remove o monitoramento do par.
func (s *Scheduler) Cancelar(processoID, tribunalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	chave := chavePar(processoID, tribunalID)
	id, ok := s.porPar[chave]
	if !ok {
		return false
	}
	delete(s.porPar, chave)
	delete(s.jobs, id)
	return true
}

// Listar devolve todos os jobs, ordenados pela próxima execução.
func (s *Scheduler) Listar() []models.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ScheduledJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProximaExecucao.Before(out[j].ProximaExecucao) })
	return out
}

// Detalhes devolve um job pelo identificador.
func (s *Scheduler) Detalhes(id string) (models.ScheduledJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return models.ScheduledJob{}, false
	}
	return *j, true
}

// Alternar liga/desliga um job. Reativar um job com disparo no passado
// reprograma a partir de agora.
func (s *Scheduler) Alternar(id string, ativo bool) (models.ScheduledJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return models.ScheduledJob{}, false
	}
	agora := s.now().UTC()
	j.Ativo = ativo
	j.AtualizadoEm = agora
	if ativo && j.ProximaExecucao.Before(agora) {
		j.ProximaExecucao = ProximaExecucao(agora, j.Recorrencia)
	}
	return *j, true
}

// ZerarErros limpa o contador de falhas consecutivas e reativa o job; um
// monitoramento desligado pelo limite de erros volta à agenda por aqui.
func (s *Scheduler) ZerarErros(id string) (models.ScheduledJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return models.ScheduledJob{}, false
	}
	agora := s.now().UTC()
	j.ErrosConsecutivos = 0
	j.Ativo = true
	if j.ProximaExecucao.Before(agora) {
		j.ProximaExecucao = ProximaExecucao(agora, j.Recorrencia)
	}
	j.AtualizadoEm = agora
	return *j, true
}

// ExecutarAgora dispara o job imediatamente, fora da agenda. A execução
// conta para o ciclo normal: sucesso reprograma, falha incrementa erros.
func (s *Scheduler) ExecutarAgora(ctx context.Context, id string) (models.ConsultaResultado, error) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return models.ConsultaResultado{}, faults.New(faults.SistemaNaoConfigurado,
			"monitoramento %s não encontrado", id)
	}
	copia := *j
	s.mu.Unlock()

	return s.executar(ctx, copia), nil
}

// Trigger força um ciclo imediato (melhor esforço, não bloqueia).
func (s *Scheduler) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	JobsAtivos     int        `json:"jobsAtivos"`
	JobsTotal      int        `json:"jobsTotal"`
	TotalExecucoes int64      `json:"totalExecucoes"`
	TotalErros     int64      `json:"totalErros"`
	LastError      string     `json:"lastError,omitempty"`
}

func (s *Scheduler) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, s.startedAtUnixNano).UTC(),
		TotalExecucoes: s.totalExecucoes.Load(),
		TotalErros:     s.totalErros.Load(),
	}
	if n := s.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	s.mu.Lock()
	st.JobsTotal = len(s.jobs)
	for _, j := range s.jobs {
		if j.Ativo {
			st.JobsAtivos++
		}
	}
	s.mu.Unlock()
	s.lastErrorMu.Lock()
	st.LastError = s.lastError
	s.lastErrorMu.Unlock()
	return st
}

// Run roda o laço mestre até o contexto encerrar.
func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.tickInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.runOnce(ctx)
		case <-s.triggerCh:
			s.runOnce(ctx)
		}
	}
}

// runOnce executa todos os jobs vencidos deste tick, em sequência.
func (s *Scheduler) runOnce(ctx context.Context) {
	agora := s.now().UTC()
	s.lastCycleUnixNano.Store(agora.UnixNano())

	s.mu.Lock()
	var vencidos []models.ScheduledJob
	for _, j := range s.jobs {
		if Expirada(j.Recorrencia, agora) {
			// monitoramento vencido sai da agenda
			delete(s.porPar, chavePar(j.ProcessoID, j.TribunalID))
			delete(s.jobs, j.ID)
			s.logger.Info("monitoramento expirado", "job", j.ID)
			continue
		}
		if j.Ativo && !j.ProximaExecucao.After(agora) {
			vencidos = append(vencidos, *j)
		}
	}
	s.mu.Unlock()

	sort.Slice(vencidos, func(i, j int) bool {
		return vencidos[i].ProximaExecucao.Before(vencidos[j].ProximaExecucao)
	})
	for _, j := range vencidos {
		if ctx.Err() != nil {
			return
		}
		s.executar(ctx, j)
	}
}

// executar roda uma passada do job e reprograma conforme o desfecho.
func (s *Scheduler) executar(ctx context.Context, job models.ScheduledJob) models.ConsultaResultado {
	s.totalExecucoes.Add(1)

	_, res, err := s.disp.ConsultarProcesso(ctx, registry.ConsultaRequest{
		ProcessoID:      job.ProcessoID,
		NumeroProcesso:  job.NumeroProcesso,
		TribunalID:      job.TribunalID,
		Operacoes:       job.Operacoes,
		MonitoramentoID: job.ID,
	})
	if err != nil {
		res = models.ConsultaResultado{
			Sucesso:  false,
			Erro:     err.Error(),
			ErroTipo: string(faults.KindOf(err)),
		}
	}

	agora := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	atual, ok := s.jobs[job.ID]
	if !ok {
		// cancelado durante a execução
		return res
	}
	atual.UltimaExecucao = &agora
	atual.AtualizadoEm = agora

	if res.Sucesso {
		atual.ErrosConsecutivos = 0
		atual.ProximaExecucao = ProximaExecucao(agora, atual.Recorrencia)
		return res
	}

	s.totalErros.Add(1)
	s.lastErrorMu.Lock()
	s.lastError = res.Erro
	s.lastErrorMu.Unlock()

	atual.ErrosConsecutivos++
	// com AoErrar, cada falha gera aviso; a desativação no limite avisa sempre
	avisado := false
	if s.notifier != nil && atual.Notificacoes.AoErrar {
		avisado = true
		if nerr := s.notifier.NotificarErro(ctx, *atual, res.Erro); nerr != nil {
			s.logger.Error("falha ao notificar erro de execução", "job", atual.ID, "error", nerr)
		}
	}
	if atual.ErrosConsecutivos >= atual.MaxErros {
		atual.Ativo = false
		s.logger.Warn("monitoramento desativado por falhas consecutivas",
			"job", atual.ID, "erros", atual.ErrosConsecutivos, "ultimoErro", res.Erro)
		if s.notifier != nil && !avisado {
			if nerr := s.notifier.NotificarErro(ctx, *atual, res.Erro); nerr != nil {
				s.logger.Error("falha ao notificar desativação", "job", atual.ID, "error", nerr)
			}
		}
		return res
	}

	atual.ProximaExecucao = agora.Add(retryDelay)
	s.logger.Warn("execução de monitoramento falhou, reagendada",
		"job", atual.ID, "erros", atual.ErrosConsecutivos, "proximaExecucao", atual.ProximaExecucao)
	return res
}
