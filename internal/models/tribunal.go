package models

import "time"

// Famílias de API suportadas pelos adapters.
const (
	APIFamilyESAJ    = "ESAJ"     // portal estadual via form-post HTML
	APIFamilyPJE     = "PJE"      // portal JSF com ViewState
	APIFamilySOAP    = "SOAP"
	APIFamilyREST    = "REST"
	APIFamilyScraping = "SCRAPING" // regra declarativa interpretada
)

// Classes de jurisdição.
const (
	JurisdicaoEstadual     = "ESTADUAL"
	JurisdicaoFederal      = "FEDERAL"
	JurisdicaoTrabalhista  = "TRABALHISTA"
	JurisdicaoSuperior     = "SUPERIOR"
	JurisdicaoAdministrativa = "ADMINISTRATIVA"
)

// TribunalConfig descreve como alcançar um sistema externo (tribunal ou órgão).
// Uma entrada por identificador; mutável somente via Registry.AtualizarConfig.
type TribunalConfig struct {
	ID         string `json:"id"` // ex.: "TJSP", "TRT2", "INSS"
	Nome       string `json:"nome"`
	Jurisdicao string `json:"jurisdicao"`
	APIFamily  string `json:"apiFamily"`
	BaseURL    string `json:"baseUrl"`

	RequerCertificado bool `json:"requerCertificado"`
	RequerCaptcha     bool `json:"requerCaptcha"`

	RateLimitPorMinuto int           `json:"rateLimitPorMinuto"`
	Timeout            time.Duration `json:"timeout"`

	Ativo     bool     `json:"ativo"`
	Operacoes []string `json:"operacoes"` // operações declaradas como suportadas
}

// Operações que um sistema externo pode declarar.
const (
	OperacaoConsultaProcesso    = "CONSULTA_PROCESSO"
	OperacaoConsultaMovimentacao = "CONSULTA_MOVIMENTACAO"
	OperacaoConsultaAudiencia   = "CONSULTA_AUDIENCIA"
	OperacaoConsultaDocumento   = "CONSULTA_DOCUMENTO"
)

func (c TribunalConfig) SuportaOperacao(op string) bool {
	for _, o := range c.Operacoes {
		if o == op {
			return true
		}
	}
	return false
}
