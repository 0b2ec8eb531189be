// Package consultas_api expõe a API JSON do serviço: consultas avulsas e em
// lote, tabela de tribunais, histórico e gestão de monitoramentos. O contrato
// de erro de consulta é sempre um objeto de resultado com sucesso=false e o
// tipo da falha; exceções cruas não atravessam esta fronteira.
package consultas_api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/registry"
	"github.com/JusTrack/JusTrack/internal/services/consultas"
	"github.com/JusTrack/JusTrack/internal/services/scheduler"
)

type ConsultasAPI struct {
	reg    *registry.Registry
	disp   *registry.Dispatcher
	agenda *scheduler.Scheduler
	svc    *consultas.Service
}

func New(reg *registry.Registry, disp *registry.Dispatcher, agenda *scheduler.Scheduler, svc *consultas.Service) *ConsultasAPI {
	return &ConsultasAPI{reg: reg, disp: disp, agenda: agenda, svc: svc}
}

// Routes monta o roteador da API.
func (a *ConsultasAPI) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/consultas", a.consultar)
		r.Post("/consultas/lote", a.consultarLote)
		r.Get("/consultas/{id}", a.obterConsulta)
		r.Get("/lotes/{id}", a.obterLote)

		r.Get("/tribunais", a.listarTribunais)
		r.Get("/tribunais/{id}", a.obterTribunal)
		r.Put("/tribunais/{id}", a.atualizarTribunal)
		r.Get("/tribunais/{id}/stats", a.statsTribunal)

		r.Get("/processos/{processoId}/tribunais/{tribunalId}/retrato", a.retrato)
		r.Get("/processos/{processoId}/tribunais/{tribunalId}/resultados", a.historico)
		r.Get("/processos/{processoId}/tribunais/{tribunalId}/movimentacoes", a.movimentacoes)

		r.Post("/monitoramentos", a.agendar)
		r.Get("/monitoramentos", a.listarMonitoramentos)
		r.Get("/monitoramentos/{id}", a.obterMonitoramento)
		r.Delete("/monitoramentos/{id}", a.cancelarMonitoramento)
		r.Post("/monitoramentos/{id}/executar", a.executarMonitoramento)
		r.Post("/monitoramentos/{id}/alternar", a.alternarMonitoramento)
		r.Post("/monitoramentos/{id}/zerar-erros", a.zerarErros)
	})

	return r
}

type consultaRequest struct {
	ProcessoID     string   `json:"processoId"`
	NumeroProcesso string   `json:"numeroProcesso"`
	TribunalID     string   `json:"tribunalId"`
	Operacoes      []string `json:"operacoes,omitempty"`
	Prioridade     int      `json:"prioridade,omitempty"`
}

type consultaResponse struct {
	Consulta  models.ConsultaTribunal  `json:"consulta"`
	Resultado models.ConsultaResultado `json:"resultado"`
	Stats     *models.TribunalStats    `json:"stats,omitempty"`
}

// erroResponse segue o contrato de resultado mesmo para falhas de validação.
type erroResponse struct {
	Sucesso  bool   `json:"sucesso"`
	Erro     string `json:"erro"`
	ErroTipo string `json:"erroTipo"`
}

func (a *ConsultasAPI) consultar(w http.ResponseWriter, r *http.Request) {
	var req consultaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, erroResponse{Erro: "corpo inválido", ErroTipo: string(faults.NumeroProcessoInvalido)})
		return
	}

	job, res, err := a.disp.ConsultarProcesso(r.Context(), registry.ConsultaRequest{
		ProcessoID:     req.ProcessoID,
		NumeroProcesso: req.NumeroProcesso,
		TribunalID:     req.TribunalID,
		Operacoes:      req.Operacoes,
		Prioridade:     req.Prioridade,
	})
	if err != nil {
		writeFault(w, err)
		return
	}
	if res.Sucesso && res.Dados != nil {
		a.svc.GuardarRetrato(r.Context(), req.ProcessoID, req.TribunalID, res.Dados)
	}
	resp := consultaResponse{Consulta: job, Resultado: res}
	if st, serr := a.disp.Stats(r.Context(), req.TribunalID); serr == nil {
		resp.Stats = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

type loteRequest struct {
	Processos []struct {
		ProcessoID     string `json:"processoId"`
		NumeroProcesso string `json:"numeroProcesso"`
	} `json:"processos"`
	Tribunais  []string `json:"tribunais"`
	Operacoes  []string `json:"operacoes,omitempty"`
	Prioridade int      `json:"prioridade,omitempty"`
}

func (a *ConsultasAPI) consultarLote(w http.ResponseWriter, r *http.Request) {
	var req loteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, erroResponse{Erro: "corpo inválido", ErroTipo: string(faults.NumeroProcessoInvalido)})
		return
	}

	lr := registry.LoteRequest{Tribunais: req.Tribunais, Operacoes: req.Operacoes, Prioridade: req.Prioridade}
	for _, p := range req.Processos {
		lr.Processos = append(lr.Processos, registry.ProcessoRef{
			ProcessoID:     p.ProcessoID,
			NumeroProcesso: p.NumeroProcesso,
		})
	}

	lote, err := a.disp.ConsultarProcessosLote(r.Context(), lr)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, lote)
}

func (a *ConsultasAPI) obterConsulta(w http.ResponseWriter, r *http.Request) {
	c, err := a.svc.ObterConsulta(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, erroResponse{Erro: err.Error(), ErroTipo: string(faults.TransporteHTTP)})
		return
	}
	if c == nil {
		writeJSON(w, http.StatusNotFound, erroResponse{Erro: "consulta não encontrada", ErroTipo: string(faults.NaoEncontrado)})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *ConsultasAPI) obterLote(w http.ResponseWriter, r *http.Request) {
	lote, ok := a.disp.ObterLote(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, erroResponse{Erro: "lote não encontrado", ErroTipo: string(faults.NaoEncontrado)})
		return
	}
	writeJSON(w, http.StatusOK, lote)
}

func (a *ConsultasAPI) listarTribunais(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.reg.Listar())
}

func (a *ConsultasAPI) obterTribunal(w http.ResponseWriter, r *http.Request) {
	cfg, ok := a.reg.Obter(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, erroResponse{Erro: "tribunal não registrado", ErroTipo: string(faults.SistemaNaoConfigurado)})
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (a *ConsultasAPI) atualizarTribunal(w http.ResponseWriter, r *http.Request) {
	var cfg models.TribunalConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, erroResponse{Erro: "corpo inválido", ErroTipo: string(faults.SistemaNaoConfigurado)})
		return
	}
	cfg.ID = chi.URLParam(r, "id")
	if err := a.reg.AtualizarConfig(cfg); err != nil {
		writeFault(w, err)
		return
	}
	atual, _ := a.reg.Obter(cfg.ID)
	writeJSON(w, http.StatusOK, atual)
}

func (a *ConsultasAPI) statsTribunal(w http.ResponseWriter, r *http.Request) {
	st, err := a.disp.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *ConsultasAPI) retrato(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.RetratoAtual(r.Context(), chi.URLParam(r, "processoId"), chi.URLParam(r, "tribunalId"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, erroResponse{Erro: err.Error(), ErroTipo: string(faults.TransporteHTTP)})
		return
	}
	if d == nil {
		writeJSON(w, http.StatusNotFound, erroResponse{Erro: "nenhum retrato conhecido", ErroTipo: string(faults.NaoEncontrado)})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *ConsultasAPI) historico(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hs, err := a.svc.HistoricoResultados(r.Context(), chi.URLParam(r, "processoId"), chi.URLParam(r, "tribunalId"), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, erroResponse{Erro: err.Error(), ErroTipo: string(faults.TransporteHTTP)})
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

func (a *ConsultasAPI) movimentacoes(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ms, err := a.svc.Movimentacoes(r.Context(), chi.URLParam(r, "processoId"), chi.URLParam(r, "tribunalId"), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, erroResponse{Erro: err.Error(), ErroTipo: string(faults.TransporteHTTP)})
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

type agendarRequest struct {
	ProcessoID     string                    `json:"processoId"`
	NumeroProcesso string                    `json:"numeroProcesso"`
	TribunalID     string                    `json:"tribunalId"`
	Operacoes      []string                  `json:"operacoes,omitempty"`
	Recorrencia    models.RecurringConfig    `json:"recorrencia"`
	Notificacoes   models.NotificationConfig `json:"notificacoes"`
	MaxErros       int                       `json:"maxErros,omitempty"`
	// Ativo omitido ou true registra; false cancela o monitoramento do par.
	Ativo *bool `json:"ativo,omitempty"`
}

func (a *ConsultasAPI) agendar(w http.ResponseWriter, r *http.Request) {
	var req agendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, erroResponse{Erro: "corpo inválido", ErroTipo: string(faults.OperacaoNaoSuportada)})
		return
	}
	job, err := a.agenda.Agendar(scheduler.ScheduleRequest{
		ProcessoID:     req.ProcessoID,
		NumeroProcesso: req.NumeroProcesso,
		TribunalID:     req.TribunalID,
		Operacoes:      req.Operacoes,
		Recorrencia:    req.Recorrencia,
		Notificacoes:   req.Notificacoes,
		MaxErros:       req.MaxErros,
		Ativo:          req.Ativo,
	})
	if err != nil {
		writeFault(w, err)
		return
	}
	if job.ID == "" {
		// ativo=false: monitoramento do par cancelado
		writeJSON(w, http.StatusOK, job)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (a *ConsultasAPI) listarMonitoramentos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.agenda.Listar())
}

func (a *ConsultasAPI) obterMonitoramento(w http.ResponseWriter, r *http.Request) {
	job, ok := a.agenda.Detalhes(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, erroResponse{Erro: "monitoramento não encontrado", ErroTipo: string(faults.NaoEncontrado)})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *ConsultasAPI) cancelarMonitoramento(w http.ResponseWriter, r *http.Request) {
	job, ok := a.agenda.Detalhes(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, erroResponse{Erro: "monitoramento não encontrado", ErroTipo: string(faults.NaoEncontrado)})
		return
	}
	a.agenda.Cancelar(job.ProcessoID, job.TribunalID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *ConsultasAPI) executarMonitoramento(w http.ResponseWriter, r *http.Request) {
	res, err := a.agenda.ExecutarAgora(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type alternarRequest struct {
	Ativo bool `json:"ativo"`
}

func (a *ConsultasAPI) alternarMonitoramento(w http.ResponseWriter, r *http.Request) {
	var req alternarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, erroResponse{Erro: "corpo inválido", ErroTipo: string(faults.OperacaoNaoSuportada)})
		return
	}
	job, ok := a.agenda.Alternar(chi.URLParam(r, "id"), req.Ativo)
	if !ok {
		writeJSON(w, http.StatusNotFound, erroResponse{Erro: "monitoramento não encontrado", ErroTipo: string(faults.NaoEncontrado)})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *ConsultasAPI) zerarErros(w http.ResponseWriter, r *http.Request) {
	job, ok := a.agenda.ZerarErros(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, erroResponse{Erro: "monitoramento não encontrado", ErroTipo: string(faults.NaoEncontrado)})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// writeFault traduz a taxonomia de erros em status HTTP, mantendo o corpo
// no contrato de resultado.
func writeFault(w http.ResponseWriter, err error) {
	kind := faults.KindOf(err)
	status := http.StatusBadGateway
	switch kind {
	case faults.NumeroProcessoInvalido, faults.OperacaoNaoSuportada:
		status = http.StatusBadRequest
	case faults.SistemaNaoConfigurado, faults.NaoEncontrado:
		status = http.StatusNotFound
	case faults.SistemaInativo:
		status = http.StatusConflict
	case faults.TransporteTimeout:
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, erroResponse{Erro: err.Error(), ErroTipo: string(kind)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
