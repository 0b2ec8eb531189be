package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JusTrack/JusTrack/internal/cnj"
	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/models"
)

// Repository persiste consultas, resultados e snapshots de movimentações.
type Repository interface {
	GravarConsulta(ctx context.Context, c *models.ConsultaTribunal) error
	AtualizarConsulta(ctx context.Context, c *models.ConsultaTribunal) error
	GravarResultado(ctx context.Context, res models.ConsultaResultado) error
	// RegistrarMovimentacoes grava o snapshot do processo e devolve apenas
	// as movimentações que ainda não constavam do último snapshot.
	RegistrarMovimentacoes(ctx context.Context, processoID, tribunalID string, movs []models.Movimentacao) ([]models.Movimentacao, error)
	EstatisticasTribunal(ctx context.Context, tribunalID string) (models.TribunalStats, error)
}

// Publisher emite o evento de processo atualizado quando uma consulta
// detecta movimentações novas.
type Publisher interface {
	PublicarAtualizacao(ctx context.Context, processoID, numeroProcesso, tribunalID string, novas []models.Movimentacao) error
}

// Limiter aplica o rate-limit compartilhado entre instâncias (Redis).
// Nulo, vale só o espaçamento local do transport de cada tribunal.
type Limiter interface {
	Allow(ctx context.Context, chave string, limite int, janela time.Duration) (bool, error)
}

// ConsultaRequest descreve uma consulta individual a despachar.
type ConsultaRequest struct {
	ProcessoID      string
	NumeroProcesso  string
	TribunalID      string
	Operacoes       []string
	Prioridade      int
	MonitoramentoID string
	LoteID          string
}

// LoteRequest expande em produto cartesiano: cada processo contra cada
// tribunal listado.
type LoteRequest struct {
	Processos  []ProcessoRef
	Tribunais  []string
	Operacoes  []string
	Prioridade int
}

type ProcessoRef struct {
	ProcessoID     string
	NumeroProcesso string
}

const (
	// delayEntreConsultasLote espaça as consultas de um lote, somado ao
	// rate-limit próprio de cada tribunal.
	delayEntreConsultasLote = 2 * time.Second
	esperaLimiter           = 500 * time.Millisecond
)

// Dispatcher despacha consultas através do Registry, registra cada
// tentativa e resultado, e detecta alterações contra o último snapshot.
// Erros de adapter nunca atravessam a fronteira como erro de Go: viram
// ConsultaResultado com Sucesso=false e o tipo da falha.
type Dispatcher struct {
	reg     *Registry
	repo    Repository
	pub     Publisher
	limiter Limiter
	logger  *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	lotes map[string]*models.LoteConsultas
}

func NewDispatcher(reg *Registry, repo Repository, pub Publisher, limiter Limiter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		reg:     reg,
		repo:    repo,
		pub:     pub,
		limiter: limiter,
		logger:  logger.With("component", "dispatcher"),
		now:     time.Now,
		sleep:   sleepCtx,
		lotes:   make(map[string]*models.LoteConsultas),
	}
}

// transicionar aplica o novo status só se a máquina de estados permitir;
// uma consulta encerrada nunca regride.
func transicionar(job *models.ConsultaTribunal, novo string) {
	if job.PodeTransicionar(novo) {
		job.Status = novo
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ConsultarProcesso valida e executa uma consulta individual. Falhas de
// validação (tribunal não registrado/inativo, número malformado, operação
// não declarada) retornam erro tipado antes de qualquer chamada de rede;
// falhas de execução vêm dentro do ConsultaResultado.
func (d *Dispatcher) ConsultarProcesso(ctx context.Context, req ConsultaRequest) (models.ConsultaTribunal, models.ConsultaResultado, error) {
	if err := d.validar(req); err != nil {
		return models.ConsultaTribunal{}, models.ConsultaResultado{}, err
	}
	job := d.novaConsulta(req)
	if err := d.repo.GravarConsulta(ctx, &job); err != nil {
		return models.ConsultaTribunal{}, models.ConsultaResultado{}, err
	}
	res := d.executar(ctx, &job)
	return job, res, nil
}

func (d *Dispatcher) validar(req ConsultaRequest) error {
	_, cfg, err := d.reg.ClientPara(req.TribunalID)
	if err != nil {
		return err
	}
	if !cnj.ValidarNumeroProcesso(req.NumeroProcesso) {
		return faults.New(faults.NumeroProcessoInvalido,
			"número %q fora do padrão NNNNNNN-DD.AAAA.J.TR.OOOO", req.NumeroProcesso)
	}
	for _, op := range req.Operacoes {
		if !cfg.SuportaOperacao(op) {
			return faults.New(faults.OperacaoNaoSuportada,
				"tribunal %s não declara a operação %s", cfg.ID, op)
		}
	}
	return nil
}

func (d *Dispatcher) novaConsulta(req ConsultaRequest) models.ConsultaTribunal {
	ops := req.Operacoes
	if len(ops) == 0 {
		ops = []string{models.OperacaoConsultaProcesso}
	}
	return models.ConsultaTribunal{
		ID:              uuid.NewString(),
		ProcessoID:      req.ProcessoID,
		NumeroProcesso:  req.NumeroProcesso,
		TribunalID:      req.TribunalID,
		Operacoes:       ops,
		Status:          models.ConsultaPendente,
		Prioridade:      req.Prioridade,
		MaxTentativas:   3,
		LoteID:          req.LoteID,
		MonitoramentoID: req.MonitoramentoID,
		CriadaEm:        d.now().UTC(),
	}
}

// executar roda a consulta já validada e persistida, do EM_ANDAMENTO ao
// desfecho. Sempre devolve um resultado, mesmo em falha.
func (d *Dispatcher) executar(ctx context.Context, job *models.ConsultaTribunal) models.ConsultaResultado {
	inicio := d.now()
	iniciada := inicio.UTC()
	transicionar(job, models.ConsultaEmAndamento)
	job.IniciadaEm = &iniciada
	job.Tentativas++
	if err := d.repo.AtualizarConsulta(ctx, job); err != nil {
		d.logger.Error("falha ao marcar consulta em andamento", "consulta", job.ID, "error", err)
	}

	res := models.ConsultaResultado{
		ConsultaID:   job.ID,
		ConsultadoEm: iniciada,
	}

	dados, err := d.consultarExterno(ctx, job)
	res.LatenciaMs = d.now().Sub(inicio).Milliseconds()

	if err != nil {
		kind := faults.KindOf(err)
		res.Sucesso = false
		res.Erro = err.Error()
		res.ErroTipo = string(kind)
		job.UltimoErro = err.Error()
		if kind == faults.TransporteTimeout {
			transicionar(job, models.ConsultaTimeout)
		} else {
			transicionar(job, models.ConsultaFalhou)
		}
		d.logger.Warn("consulta externa falhou",
			"consulta", job.ID, "tribunal", job.TribunalID,
			"tipo", res.ErroTipo, "latenciaMs", res.LatenciaMs)
	} else {
		res.Sucesso = true
		res.Dados = &dados
		transicionar(job, models.ConsultaConcluida)

		novas, derr := d.repo.RegistrarMovimentacoes(ctx, job.ProcessoID, job.TribunalID, dados.Movimentacoes)
		if derr != nil {
			d.logger.Error("falha na detecção de alterações", "consulta", job.ID, "error", derr)
		} else if len(novas) > 0 {
			res.TemAlteracoes = true
			res.NovasMovimentacoes = novas
			d.publicar(ctx, job, novas)
		}
		d.logger.Info("consulta externa concluída",
			"consulta", job.ID, "tribunal", job.TribunalID,
			"movimentacoes", len(dados.Movimentacoes), "novas", len(novas),
			"latenciaMs", res.LatenciaMs)
	}

	concluida := d.now().UTC()
	job.ConcluidaEm = &concluida
	if err := d.repo.AtualizarConsulta(ctx, job); err != nil {
		d.logger.Error("falha ao gravar desfecho da consulta", "consulta", job.ID, "error", err)
	}
	if err := d.repo.GravarResultado(ctx, res); err != nil {
		d.logger.Error("falha ao gravar resultado", "consulta", job.ID, "error", err)
	}
	return res
}

func (d *Dispatcher) consultarExterno(ctx context.Context, job *models.ConsultaTribunal) (models.ProcessoTribunalData, error) {
	client, cfg, err := d.reg.ClientPara(job.TribunalID)
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}
	if err := d.aguardarLimiter(ctx, cfg); err != nil {
		return models.ProcessoTribunalData{}, err
	}
	return client.ConsultarProcesso(ctx, cfg, job.NumeroProcesso)
}

// aguardarLimiter segura a consulta até o rate-limit compartilhado liberar
// uma vaga na janela do tribunal.
func (d *Dispatcher) aguardarLimiter(ctx context.Context, cfg models.TribunalConfig) error {
	if d.limiter == nil || cfg.RateLimitPorMinuto <= 0 {
		return nil
	}
	for {
		ok, err := d.limiter.Allow(ctx, "tribunal:"+cfg.ID, cfg.RateLimitPorMinuto, time.Minute)
		if err != nil {
			// Limiter compartilhado indisponível: segue só com o local.
			d.logger.Warn("rate-limiter compartilhado indisponível", "tribunal", cfg.ID, "error", err)
			return nil
		}
		if ok {
			return nil
		}
		if err := d.sleep(ctx, esperaLimiter); err != nil {
			return faults.Wrap(err, faults.TransporteTimeout, "cancelado aguardando rate-limit")
		}
	}
}

// ConsultarProcessosLote expande processos × tribunais, confirma na hora
// com o identificador do lote e a estimativa de conclusão, e processa em
// segundo plano, sequencialmente, com intervalo fixo entre consultas.
// Falha de uma consulta não interrompe as demais.
func (d *Dispatcher) ConsultarProcessosLote(ctx context.Context, req LoteRequest) (models.LoteConsultas, error) {
	if len(req.Processos) == 0 || len(req.Tribunais) == 0 {
		return models.LoteConsultas{}, faults.New(faults.NumeroProcessoInvalido,
			"lote exige ao menos um processo e um tribunal")
	}

	loteID := uuid.NewString()
	jobs := make([]models.ConsultaTribunal, 0, len(req.Processos)*len(req.Tribunais))
	for _, p := range req.Processos {
		for _, t := range req.Tribunais {
			job := d.novaConsulta(ConsultaRequest{
				ProcessoID:     p.ProcessoID,
				NumeroProcesso: p.NumeroProcesso,
				TribunalID:     t,
				Operacoes:      req.Operacoes,
				Prioridade:     req.Prioridade,
				LoteID:         loteID,
			})
			if err := d.repo.GravarConsulta(ctx, &job); err != nil {
				return models.LoteConsultas{}, err
			}
			jobs = append(jobs, job)
		}
	}

	agora := d.now().UTC()
	lote := &models.LoteConsultas{
		ID:                  loteID,
		TotalConsultas:      len(jobs),
		Status:              models.LoteEmAndamento,
		CriadoEm:            agora,
		EstimativaConclusao: agora.Add(time.Duration(len(jobs)) * delayEntreConsultasLote),
	}
	for _, j := range jobs {
		lote.ConsultaIDs = append(lote.ConsultaIDs, j.ID)
	}
	d.mu.Lock()
	d.lotes[loteID] = lote
	d.mu.Unlock()

	go d.processarLote(context.WithoutCancel(ctx), lote, jobs)

	d.logger.Info("lote aceito", "lote", loteID, "consultas", len(jobs))
	return *lote, nil
}

func (d *Dispatcher) processarLote(ctx context.Context, lote *models.LoteConsultas, jobs []models.ConsultaTribunal) {
	for i := range jobs {
		if i > 0 {
			if err := d.sleep(ctx, delayEntreConsultasLote); err != nil {
				return
			}
		}
		job := jobs[i]

		var res models.ConsultaResultado
		if err := d.validar(ConsultaRequest{
			NumeroProcesso: job.NumeroProcesso,
			TribunalID:     job.TribunalID,
			Operacoes:      job.Operacoes,
		}); err != nil {
			// Entrada inválida do lote vira resultado de falha, sem rede.
			res = d.falharSemExecutar(ctx, &job, err)
		} else {
			res = d.executar(ctx, &job)
		}

		d.mu.Lock()
		lote.Concluidas++
		if !res.Sucesso {
			lote.Falhas++
		}
		if lote.Concluidas == lote.TotalConsultas {
			lote.Status = models.LoteConcluido
		}
		d.mu.Unlock()
	}
	d.logger.Info("lote concluído", "lote", lote.ID, "falhas", lote.Falhas)
}

func (d *Dispatcher) falharSemExecutar(ctx context.Context, job *models.ConsultaTribunal, err error) models.ConsultaResultado {
	agora := d.now().UTC()
	transicionar(job, models.ConsultaFalhou)
	job.UltimoErro = err.Error()
	job.ConcluidaEm = &agora
	if uerr := d.repo.AtualizarConsulta(ctx, job); uerr != nil {
		d.logger.Error("falha ao gravar consulta inválida", "consulta", job.ID, "error", uerr)
	}
	res := models.ConsultaResultado{
		ConsultaID:   job.ID,
		Sucesso:      false,
		ConsultadoEm: agora,
		Erro:         err.Error(),
		ErroTipo:     string(faults.KindOf(err)),
	}
	if uerr := d.repo.GravarResultado(ctx, res); uerr != nil {
		d.logger.Error("falha ao gravar resultado", "consulta", job.ID, "error", uerr)
	}
	return res
}

// ObterLote devolve o andamento de um lote aceito nesta instância.
func (d *Dispatcher) ObterLote(id string) (models.LoteConsultas, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.lotes[id]
	if !ok {
		return models.LoteConsultas{}, false
	}
	return *l, true
}

// Stats agrega o histórico registrado do tribunal.
func (d *Dispatcher) Stats(ctx context.Context, tribunalID string) (models.TribunalStats, error) {
	if _, ok := d.reg.Obter(tribunalID); !ok {
		return models.TribunalStats{}, faults.New(faults.SistemaNaoConfigurado,
			"tribunal %s não registrado", tribunalID)
	}
	return d.repo.EstatisticasTribunal(ctx, tribunalID)
}

func (d *Dispatcher) publicar(ctx context.Context, job *models.ConsultaTribunal, novas []models.Movimentacao) {
	if d.pub == nil {
		return
	}
	if err := d.pub.PublicarAtualizacao(ctx, job.ProcessoID, job.NumeroProcesso, job.TribunalID, novas); err != nil {
		d.logger.Error("falha ao publicar atualização de processo",
			"processo", job.ProcessoID, "tribunal", job.TribunalID, "error", err)
	}
}
