package consultas_api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/registry"
	"github.com/JusTrack/JusTrack/internal/services/consultas"
	"github.com/JusTrack/JusTrack/internal/services/scheduler"
)

// memRepo implementa o repositório do dispatcher e da camada de leitura.
type memRepo struct {
	mu         sync.Mutex
	consultas  map[string]models.ConsultaTribunal
	resultados []models.ConsultaResultado
	movs       map[string][]models.Movimentacao
	vistos     map[string]map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		consultas: make(map[string]models.ConsultaTribunal),
		movs:      make(map[string][]models.Movimentacao),
		vistos:    make(map[string]map[string]bool),
	}
}

func (r *memRepo) GravarConsulta(_ context.Context, c *models.ConsultaTribunal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consultas[c.ID] = *c
	return nil
}

func (r *memRepo) AtualizarConsulta(ctx context.Context, c *models.ConsultaTribunal) error {
	return r.GravarConsulta(ctx, c)
}

func (r *memRepo) GravarResultado(_ context.Context, res models.ConsultaResultado) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resultados = append(r.resultados, res)
	return nil
}

func (r *memRepo) RegistrarMovimentacoes(_ context.Context, processoID, tribunalID string, movs []models.Movimentacao) ([]models.Movimentacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chave := processoID + "|" + tribunalID
	if r.vistos[chave] == nil {
		r.vistos[chave] = make(map[string]bool)
	}
	var novas []models.Movimentacao
	for _, m := range movs {
		if !r.vistos[chave][m.ID] {
			r.vistos[chave][m.ID] = true
			r.movs[chave] = append(r.movs[chave], m)
			novas = append(novas, m)
		}
	}
	return novas, nil
}

func (r *memRepo) EstatisticasTribunal(_ context.Context, tribunalID string) (models.TribunalStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := models.TribunalStats{TribunalID: tribunalID}
	for _, res := range r.resultados {
		c := r.consultas[res.ConsultaID]
		if c.TribunalID != tribunalID {
			continue
		}
		st.TotalConsultas++
		if res.Sucesso {
			st.Sucessos++
		} else {
			st.Falhas++
		}
	}
	if st.TotalConsultas > 0 {
		st.TaxaSucesso = float64(st.Sucessos) / float64(st.TotalConsultas)
	}
	return st, nil
}

func (r *memRepo) ObterConsulta(_ context.Context, id string) (*models.ConsultaTribunal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consultas[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memRepo) ListarResultados(_ context.Context, processoID, tribunalID string, _ int) ([]models.ConsultaResultado, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ConsultaResultado
	for i := len(r.resultados) - 1; i >= 0; i-- {
		res := r.resultados[i]
		c := r.consultas[res.ConsultaID]
		if c.ProcessoID == processoID && c.TribunalID == tribunalID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *memRepo) ListarMovimentacoes(_ context.Context, processoID, tribunalID string, _ int) ([]models.Movimentacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.OrdenarMovimentacoes(r.movs[processoID+"|"+tribunalID]), nil
}

const corpoREST = `{
  "numeroProcesso": "0001234-56.2023.3.00.0000",
  "classe": "Recurso Especial",
  "movimentos": [
    {"data": "2023-03-10T09:00:00Z", "descricao": "Conclusos ao relator"},
    {"data": "2023-02-01T00:00:00Z", "descricao": "Protocolado"}
  ]
}`

type apiDeTeste struct {
	srv  *httptest.Server
	reg  *registry.Registry
	repo *memRepo
}

func montarAPI(t *testing.T) *apiDeTeste {
	t.Helper()

	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(corpoREST))
	}))
	t.Cleanup(portal.Close)

	reg := registry.New(registry.Options{})
	require.NoError(t, reg.AtualizarConfig(models.TribunalConfig{
		ID: "TESTE", Nome: "Tribunal de Teste",
		Jurisdicao: models.JurisdicaoSuperior,
		APIFamily:  models.APIFamilyREST,
		BaseURL:    portal.URL,
		Timeout:    5 * time.Second,
		Ativo:      true,
		Operacoes:  []string{models.OperacaoConsultaProcesso, models.OperacaoConsultaMovimentacao},
	}))

	repo := newMemRepo()
	disp := registry.NewDispatcher(reg, repo, nil, nil, nil)
	agenda := scheduler.New(disp, nil)
	svc := consultas.New(repo, nil, 0)

	api := New(reg, disp, agenda, svc)
	srv := httptest.NewServer(api.Routes())
	t.Cleanup(srv.Close)

	return &apiDeTeste{srv: srv, reg: reg, repo: repo}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAPI_ConsultaCompleta(t *testing.T) {
	a := montarAPI(t)

	resp := postJSON(t, a.srv.URL+"/api/v1/consultas", map[string]any{
		"processoId":     "proc-1",
		"numeroProcesso": "0001234-56.2023.3.00.0000",
		"tribunalId":     "TESTE",
		"prioridade":     3,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeJSON[struct {
		Consulta  models.ConsultaTribunal  `json:"consulta"`
		Resultado models.ConsultaResultado `json:"resultado"`
		Stats     *models.TribunalStats    `json:"stats"`
	}](t, resp)
	require.True(t, out.Resultado.Sucesso)
	require.Equal(t, models.ConsultaConcluida, out.Consulta.Status)
	require.Equal(t, 3, out.Consulta.Prioridade)

	// a resposta já carrega o agregado do tribunal
	require.NotNil(t, out.Stats)
	require.Equal(t, int64(1), out.Stats.TotalConsultas)

	// consulta registrada e recuperável
	resp, err := http.Get(a.srv.URL + "/api/v1/consultas/" + out.Consulta.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// retrato disponível a partir do histórico
	resp, err = http.Get(a.srv.URL + "/api/v1/processos/proc-1/tribunais/TESTE/retrato")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	retrato := decodeJSON[models.ProcessoTribunalData](t, resp)
	require.Equal(t, "Recurso Especial", retrato.Classe)

	// movimentações consolidadas
	resp, err = http.Get(a.srv.URL + "/api/v1/processos/proc-1/tribunais/TESTE/movimentacoes")
	require.NoError(t, err)
	movs := decodeJSON[[]models.Movimentacao](t, resp)
	require.Len(t, movs, 2)

	// estatísticas refletem a consulta
	resp, err = http.Get(a.srv.URL + "/api/v1/tribunais/TESTE/stats")
	require.NoError(t, err)
	st := decodeJSON[models.TribunalStats](t, resp)
	require.Equal(t, int64(1), st.TotalConsultas)
	require.Equal(t, int64(1), st.Sucessos)
}

func TestAPI_ValidacaoViraObjetoDeErro(t *testing.T) {
	a := montarAPI(t)

	resp := postJSON(t, a.srv.URL+"/api/v1/consultas", map[string]any{
		"processoId":     "proc-1",
		"numeroProcesso": "123",
		"tribunalId":     "TESTE",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeJSON[map[string]any](t, resp)
	require.Equal(t, false, out["sucesso"])
	require.Equal(t, "NUMERO_PROCESSO_INVALIDO", out["erroTipo"])

	resp = postJSON(t, a.srv.URL+"/api/v1/consultas", map[string]any{
		"processoId":     "proc-1",
		"numeroProcesso": "0001234-56.2023.3.00.0000",
		"tribunalId":     "TJXX",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	out = decodeJSON[map[string]any](t, resp)
	require.Equal(t, "SISTEMA_NAO_CONFIGURADO", out["erroTipo"])
}

func TestAPI_TribunalDesativadoRetornaConflito(t *testing.T) {
	a := montarAPI(t)

	cfg, ok := a.reg.Obter("TESTE")
	require.True(t, ok)
	cfg.Ativo = false
	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, a.srv.URL+"/api/v1/tribunais/TESTE", bytes.NewReader(b))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, putResp.StatusCode)
	putResp.Body.Close()

	resp := postJSON(t, a.srv.URL+"/api/v1/consultas", map[string]any{
		"processoId":     "proc-1",
		"numeroProcesso": "0001234-56.2023.3.00.0000",
		"tribunalId":     "TESTE",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	out := decodeJSON[map[string]any](t, resp)
	require.Equal(t, "SISTEMA_INATIVO", out["erroTipo"])
}

func TestAPI_Lote(t *testing.T) {
	a := montarAPI(t)

	resp := postJSON(t, a.srv.URL+"/api/v1/consultas/lote", map[string]any{
		"processos": []map[string]string{
			{"processoId": "p1", "numeroProcesso": "0001234-56.2023.3.00.0000"},
			{"processoId": "p2", "numeroProcesso": "0007654-32.2022.5.02.0011"},
		},
		"tribunais": []string{"TESTE"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	lote := decodeJSON[models.LoteConsultas](t, resp)
	require.Equal(t, 2, lote.TotalConsultas)
	require.NotEmpty(t, lote.ID)

	require.Eventually(t, func() bool {
		r, err := http.Get(a.srv.URL + "/api/v1/lotes/" + lote.ID)
		if err != nil {
			return false
		}
		l := decodeJSON[models.LoteConsultas](t, r)
		return l.Status == models.LoteConcluido
	}, 15*time.Second, 100*time.Millisecond)
}

func TestAPI_Monitoramentos(t *testing.T) {
	a := montarAPI(t)

	resp := postJSON(t, a.srv.URL+"/api/v1/monitoramentos", map[string]any{
		"processoId":     "proc-1",
		"numeroProcesso": "0001234-56.2023.3.00.0000",
		"tribunalId":     "TESTE",
		"recorrencia":    map[string]any{"intervalo": "DIA", "frequencia": 1},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	job := decodeJSON[models.ScheduledJob](t, resp)
	require.True(t, job.Ativo)

	resp, err := http.Get(a.srv.URL + "/api/v1/monitoramentos")
	require.NoError(t, err)
	lista := decodeJSON[[]models.ScheduledJob](t, resp)
	require.Len(t, lista, 1)

	// execução imediata
	resp = postJSON(t, a.srv.URL+"/api/v1/monitoramentos/"+job.ID+"/executar", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeJSON[models.ConsultaResultado](t, resp)
	require.True(t, res.Sucesso)

	// desliga e religa
	resp = postJSON(t, a.srv.URL+"/api/v1/monitoramentos/"+job.ID+"/alternar", map[string]any{"ativo": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	alterado := decodeJSON[models.ScheduledJob](t, resp)
	require.False(t, alterado.Ativo)

	resp = postJSON(t, a.srv.URL+"/api/v1/monitoramentos/"+job.ID+"/zerar-erros", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// remoção
	req, err := http.NewRequest(http.MethodDelete, a.srv.URL+"/api/v1/monitoramentos/"+job.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp, err = http.Get(a.srv.URL + "/api/v1/monitoramentos/" + job.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// recorrência inválida
	resp = postJSON(t, a.srv.URL+"/api/v1/monitoramentos", map[string]any{
		"processoId": "proc-1", "tribunalId": "TESTE",
		"recorrencia": map[string]any{"intervalo": "QUINZENA", "frequencia": 1},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_MonitoramentoDesativadoPorAtivoFalso(t *testing.T) {
	a := montarAPI(t)

	resp := postJSON(t, a.srv.URL+"/api/v1/monitoramentos", map[string]any{
		"processoId":     "proc-1",
		"numeroProcesso": "0001234-56.2023.3.00.0000",
		"tribunalId":     "TESTE",
		"recorrencia":    map[string]any{"intervalo": "DIA", "frequencia": 1},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// o mesmo endpoint com ativo=false cancela o monitoramento do par
	resp = postJSON(t, a.srv.URL+"/api/v1/monitoramentos", map[string]any{
		"processoId": "proc-1",
		"tribunalId": "TESTE",
		"ativo":      false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelado := decodeJSON[models.ScheduledJob](t, resp)
	require.Empty(t, cancelado.ID)
	require.False(t, cancelado.Ativo)

	resp, err := http.Get(a.srv.URL + "/api/v1/monitoramentos")
	require.NoError(t, err)
	lista := decodeJSON[[]models.ScheduledJob](t, resp)
	require.Empty(t, lista)
}
