package models

import "time"

// Status de uma ConsultaTribunal. A transição é monotônica:
// PENDENTE -> EM_ANDAMENTO -> {CONCLUIDA | FALHOU | TIMEOUT}, nunca regride.
const (
	ConsultaPendente    = "PENDENTE"
	ConsultaEmAndamento = "EM_ANDAMENTO"
	ConsultaConcluida   = "CONCLUIDA"
	ConsultaFalhou      = "FALHOU"
	ConsultaTimeout     = "TIMEOUT"
)

// ConsultaTribunal é uma unidade de trabalho: uma consulta de um processo
// contra um sistema externo.
type ConsultaTribunal struct {
	ID             string `json:"id"`
	ProcessoID     string `json:"processoId"`
	NumeroProcesso string `json:"numeroProcesso"`
	TribunalID     string `json:"tribunalId"`
	Operacoes      []string `json:"operacoes"`

	Status        string `json:"status"`
	Tentativas    int    `json:"tentativas"`
	MaxTentativas int    `json:"maxTentativas"`
	Prioridade    int    `json:"prioridade"`

	LoteID        string  `json:"loteId,omitempty"`
	MonitoramentoID string `json:"monitoramentoId,omitempty"`

	CriadaEm    time.Time  `json:"criadaEm"`
	IniciadaEm  *time.Time `json:"iniciadaEm,omitempty"`
	ConcluidaEm *time.Time `json:"concluidaEm,omitempty"`

	UltimoErro string `json:"ultimoErro,omitempty"`
}

// statusRank garante a monotonicidade da transição de status.
var statusRank = map[string]int{
	ConsultaPendente:    0,
	ConsultaEmAndamento: 1,
	ConsultaConcluida:   2,
	ConsultaFalhou:      2,
	ConsultaTimeout:     2,
}

// PodeTransicionar informa se a consulta pode mudar para o status dado
// sem regredir na máquina de estados.
func (c *ConsultaTribunal) PodeTransicionar(novo string) bool {
	cur, ok := statusRank[c.Status]
	if !ok {
		return false
	}
	next, ok := statusRank[novo]
	if !ok {
		return false
	}
	return next > cur
}

// Status de um lote de consultas.
const (
	LoteEmAndamento = "EM_ANDAMENTO"
	LoteConcluido   = "CONCLUIDO"
)

// LoteConsultas acompanha um conjunto de consultas disparadas juntas
// (expansão processos × tribunais). A resposta ao chamador é imediata;
// o processamento segue em segundo plano.
type LoteConsultas struct {
	ID             string    `json:"id"`
	TotalConsultas int       `json:"totalConsultas"`
	Concluidas     int       `json:"concluidas"`
	Falhas         int       `json:"falhas"`
	Status         string    `json:"status"`
	CriadoEm       time.Time `json:"criadoEm"`
	// EstimativaConclusao assume processamento sequencial com intervalo
	// fixo entre consultas.
	EstimativaConclusao time.Time `json:"estimativaConclusao"`
	ConsultaIDs         []string  `json:"consultaIds"`
}

// TribunalStats agrega o histórico de consultas de um tribunal.
type TribunalStats struct {
	TribunalID      string     `json:"tribunalId"`
	TotalConsultas  int64      `json:"totalConsultas"`
	Sucessos        int64      `json:"sucessos"`
	Falhas          int64      `json:"falhas"`
	TaxaSucesso     float64    `json:"taxaSucesso"`
	LatenciaMediaMs float64    `json:"latenciaMediaMs"`
	UltimaConsulta  *time.Time `json:"ultimaConsulta,omitempty"`
}

// ConsultaResultado é o desfecho de uma consulta, sucesso ou não.
// Erros de adapter/transporte são capturados aqui, nunca propagados
// através da fronteira do dispatcher.
type ConsultaResultado struct {
	ConsultaID string    `json:"consultaId"`
	Sucesso    bool      `json:"sucesso"`
	ConsultadoEm time.Time `json:"consultadoEm"`
	LatenciaMs int64     `json:"latenciaMs"`

	Dados *ProcessoTribunalData `json:"dados,omitempty"`

	Erro     string `json:"erro,omitempty"`
	ErroTipo string `json:"erroTipo,omitempty"`

	TemAlteracoes      bool           `json:"temAlteracoes"`
	NovasMovimentacoes []Movimentacao `json:"novasMovimentacoes,omitempty"`
}
