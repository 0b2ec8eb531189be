// Package scraping interpreta regras declarativas de extração: uma tabela de
// seletores por tribunal, um único interpretador. Suportar um tribunal novo é
// adicionar uma Rule, nunca código novo no interpretador.
package scraping

import "strings"

// Placeholder substituído pelo número do processo nos parâmetros de busca.
const PlaceholderNumero = "{numeroProcesso}"

// Campos lógicos reconhecidos pelo interpretador.
const (
	CampoNumeroProcesso  = "numeroProcesso"
	CampoClasse          = "classe"
	CampoAssunto         = "assunto"
	CampoSituacao        = "situacao"
	CampoOrgaoJulgador   = "orgaoJulgador"
	CampoMagistrado      = "magistrado"
	CampoValorCausa      = "valorCausa"
	CampoDataAjuizamento = "dataAjuizamento"
	CampoPartes          = "partes"        // seletor de linhas
	CampoMovimentacoes   = "movimentacoes" // seletor de linhas
)

// Rule é dado declarativo, não código: descreve como buscar e extrair um
// processo de um portal.
type Rule struct {
	TribunalID string

	BaseURL      string
	SearchPath   string
	SearchMethod string            // "GET" ou "POST"
	SearchParams map[string]string // valores podem conter {numeroProcesso}

	// Selectors mapeia campo lógico -> seletor CSS.
	Selectors map[string]string

	// ErrorMessage é verificado antes de qualquer extração; presente no
	// documento, a consulta falha rápido com NaoEncontrado.
	ErrorMessageSelector string

	RequiresCaptcha     bool
	RequiresCertificate bool

	// RateLimitPorMinuto sobrepõe o limite do config do tribunal quando > 0.
	RateLimitPorMinuto int

	// Execução via browser: fallbacks de seletor para preencher o formulário,
	// tentados em ordem até um funcionar.
	NumeroInputSelectors []string
	SubmitSelectors      []string
	CaptchaImageSelector string
	CaptchaInputSelector string
	ResultWaitSelector   string
}

// PrecisaBrowser: sem nenhuma capacidade especial exigida, a regra roda em
// HTTP puro.
func (r Rule) PrecisaBrowser() bool {
	return r.RequiresCaptcha || r.RequiresCertificate
}

// SearchURL monta a URL de busca com o placeholder resolvido (modo GET).
func (r Rule) SearchURL(numero string) string {
	u := strings.TrimRight(r.BaseURL, "/") + r.SearchPath
	return strings.ReplaceAll(u, PlaceholderNumero, numero)
}
