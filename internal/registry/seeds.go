package registry

import (
	"fmt"
	"time"

	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/scraping"
)

// opsPadrao é o conjunto mínimo que todo sistema integrado declara.
var opsPadrao = []string{models.OperacaoConsultaProcesso, models.OperacaoConsultaMovimentacao}

// SeedConfigs devolve a tabela completa de sistemas externos conhecidos,
// carregada na inicialização do Registry. Uma entrada por tribunal/órgão.
func SeedConfigs() []models.TribunalConfig {
	var out []models.TribunalConfig

	esaj := func(id, nome, uf string) models.TribunalConfig {
		return models.TribunalConfig{
			ID: id, Nome: nome, Jurisdicao: models.JurisdicaoEstadual,
			APIFamily: models.APIFamilyESAJ,
			BaseURL:   fmt.Sprintf("https://esaj.%s.jus.br", uf),
			RateLimitPorMinuto: 30, Timeout: 30 * time.Second,
			Ativo:     true,
			Operacoes: append(append([]string{}, opsPadrao...), models.OperacaoConsultaAudiencia),
		}
	}
	out = append(out,
		esaj("TJSP", "Tribunal de Justiça de São Paulo", "tjsp"),
		esaj("TJAL", "Tribunal de Justiça de Alagoas", "tjal"),
		esaj("TJAM", "Tribunal de Justiça do Amazonas", "tjam"),
		esaj("TJAC", "Tribunal de Justiça do Acre", "tjac"),
		esaj("TJCE", "Tribunal de Justiça do Ceará", "tjce"),
		esaj("TJMS", "Tribunal de Justiça de Mato Grosso do Sul", "tjms"),
		esaj("TJRN", "Tribunal de Justiça do Rio Grande do Norte", "tjrn"),
		esaj("TJSC", "Tribunal de Justiça de Santa Catarina", "tjsc"),
	)

	pje := func(id, nome, jurisdicao, host string) models.TribunalConfig {
		return models.TribunalConfig{
			ID: id, Nome: nome, Jurisdicao: jurisdicao,
			APIFamily: models.APIFamilyPJE,
			BaseURL:   fmt.Sprintf("https://%s/pje", host),
			RateLimitPorMinuto: 20, Timeout: 45 * time.Second,
			Ativo:     true,
			Operacoes: append([]string{}, opsPadrao...),
		}
	}
	out = append(out,
		pje("TJMG", "Tribunal de Justiça de Minas Gerais", models.JurisdicaoEstadual, "pje.tjmg.jus.br"),
		pje("TJPB", "Tribunal de Justiça da Paraíba", models.JurisdicaoEstadual, "pje.tjpb.jus.br"),
		pje("TJPE", "Tribunal de Justiça de Pernambuco", models.JurisdicaoEstadual, "pje.tjpe.jus.br"),
		pje("TJRO", "Tribunal de Justiça de Rondônia", models.JurisdicaoEstadual, "pje.tjro.jus.br"),
		pje("TJRR", "Tribunal de Justiça de Roraima", models.JurisdicaoEstadual, "pje.tjrr.jus.br"),
		pje("TJDFT", "Tribunal de Justiça do Distrito Federal e Territórios", models.JurisdicaoEstadual, "pje.tjdft.jus.br"),
		pje("TRF1", "Tribunal Regional Federal da 1ª Região", models.JurisdicaoFederal, "pje1g.trf1.jus.br"),
		pje("TRF3", "Tribunal Regional Federal da 3ª Região", models.JurisdicaoFederal, "pje1g.trf3.jus.br"),
		pje("TRF5", "Tribunal Regional Federal da 5ª Região", models.JurisdicaoFederal, "pje.trf5.jus.br"),
	)

	// Justiça do Trabalho roda PJe em todas as regiões.
	for i := 1; i <= 24; i++ {
		out = append(out, pje(
			fmt.Sprintf("TRT%d", i),
			fmt.Sprintf("Tribunal Regional do Trabalho da %dª Região", i),
			models.JurisdicaoTrabalhista,
			fmt.Sprintf("pje.trt%d.jus.br", i),
		))
	}

	rest := func(id, nome, jurisdicao, base string) models.TribunalConfig {
		return models.TribunalConfig{
			ID: id, Nome: nome, Jurisdicao: jurisdicao,
			APIFamily: models.APIFamilyREST,
			BaseURL:   base,
			RateLimitPorMinuto: 60, Timeout: 30 * time.Second,
			Ativo:     true,
			Operacoes: append(append([]string{}, opsPadrao...), models.OperacaoConsultaDocumento),
		}
	}
	out = append(out,
		rest("TRF2", "Tribunal Regional Federal da 2ª Região", models.JurisdicaoFederal, "https://eproc.trf2.jus.br"),
		rest("TRF4", "Tribunal Regional Federal da 4ª Região", models.JurisdicaoFederal, "https://eproc.trf4.jus.br"),
		rest("TRF6", "Tribunal Regional Federal da 6ª Região", models.JurisdicaoFederal, "https://eproc.trf6.jus.br"),
		rest("TST", "Tribunal Superior do Trabalho", models.JurisdicaoSuperior, "https://api.tst.jus.br"),
		rest("STJ", "Superior Tribunal de Justiça", models.JurisdicaoSuperior, "https://api.stj.jus.br"),
		rest("STF", "Supremo Tribunal Federal", models.JurisdicaoSuperior, "https://api.stf.jus.br"),
		rest("DATAJUD", "Base Nacional de Dados do Poder Judiciário (CNJ)", models.JurisdicaoSuperior, "https://api-publica.datajud.cnj.jus.br"),
	)

	soap := func(id, nome, base string) models.TribunalConfig {
		return models.TribunalConfig{
			ID: id, Nome: nome, Jurisdicao: models.JurisdicaoAdministrativa,
			APIFamily: models.APIFamilySOAP,
			BaseURL:   base,
			RequerCertificado: true,
			RateLimitPorMinuto: 10, Timeout: 60 * time.Second,
			Ativo:     true,
			Operacoes: append([]string{}, opsPadrao...),
		}
	}
	out = append(out,
		soap("RECEITA", "Receita Federal — Processos Administrativos Fiscais", "https://ws.receita.fazenda.gov.br/processos"),
		soap("INSS", "INSS — Processos Administrativos Previdenciários", "https://ws.inss.gov.br/processos"),
	)

	// Portais sem interface de máquina: cobertos por regra de scraping.
	scrapingCfg := func(id, nome string, captcha bool) models.TribunalConfig {
		return models.TribunalConfig{
			ID: id, Nome: nome, Jurisdicao: models.JurisdicaoEstadual,
			APIFamily:     models.APIFamilyScraping,
			RequerCaptcha: captcha,
			RateLimitPorMinuto: 10, Timeout: 60 * time.Second,
			Ativo:     true,
			Operacoes: append([]string{}, opsPadrao...),
		}
	}
	tjrj := scrapingCfg("TJRJ", "Tribunal de Justiça do Rio de Janeiro", true)
	tjrj.BaseURL = "https://www3.tjrj.jus.br"
	tjgo := scrapingCfg("TJGO", "Tribunal de Justiça de Goiás", false)
	tjgo.BaseURL = "https://projudi.tjgo.jus.br"
	tjba := scrapingCfg("TJBA", "Tribunal de Justiça da Bahia", false)
	tjba.BaseURL = "https://consultapublicapje.tjba.jus.br"
	out = append(out, tjrj, tjgo, tjba)

	return out
}

// SeedRules devolve as regras declarativas dos tribunais cobertos por
// scraping. Tribunal novo dessa família = entrada nova aqui, sem código novo.
func SeedRules() map[string]scraping.Rule {
	return map[string]scraping.Rule{
		"TJRJ": {
			TribunalID:   "TJRJ",
			BaseURL:      "https://www3.tjrj.jus.br",
			SearchPath:   "/consultaprocessual/#/consultapublica",
			SearchMethod: "GET",
			RequiresCaptcha: true,
			RateLimitPorMinuto: 6,
			Selectors: map[string]string{
				scraping.CampoNumeroProcesso: ".processo-numero",
				scraping.CampoClasse:         ".processo-classe",
				scraping.CampoAssunto:        ".processo-assunto",
				scraping.CampoOrgaoJulgador:  ".processo-vara",
				scraping.CampoMovimentacoes:  ".lista-movimentos .movimento",
			},
			ErrorMessageSelector: ".mensagem-erro, .sem-resultados",
			NumeroInputSelectors: []string{"#numProcesso", "input[name='numeroProcesso']", "input.campo-processo"},
			SubmitSelectors:      []string{"#btnPesquisar", "button[type='submit']"},
			CaptchaImageSelector: "#imgCaptcha",
			CaptchaInputSelector: "#captchaInput",
			ResultWaitSelector:   ".processo-numero",
		},
		"TJGO": {
			TribunalID:   "TJGO",
			BaseURL:      "https://projudi.tjgo.jus.br",
			SearchPath:   "/BuscaProcessoPublica",
			SearchMethod: "POST",
			SearchParams: map[string]string{
				"ProcessoNumero": scraping.PlaceholderNumero,
				"PaginaAtual":    "2",
			},
			Selectors: map[string]string{
				scraping.CampoNumeroProcesso: "#ProcessoNumero, .numero-processo",
				scraping.CampoClasse:         "#ProcessoClasse",
				scraping.CampoAssunto:        "#ProcessoAssunto",
				scraping.CampoValorCausa:     "#ProcessoValor",
				scraping.CampoPartes:         "table#Partes tr",
				scraping.CampoMovimentacoes:  "table#Movimentacoes tr",
			},
			ErrorMessageSelector: ".msgErro, #mensagemSemResultado",
		},
		"TJBA": {
			TribunalID:   "TJBA",
			BaseURL:      "https://consultapublicapje.tjba.jus.br",
			SearchPath:   "/consulta",
			SearchMethod: "GET",
			SearchParams: map[string]string{
				"numero": scraping.PlaceholderNumero,
			},
			Selectors: map[string]string{
				scraping.CampoNumeroProcesso: ".numero-processo",
				scraping.CampoClasse:         ".classe-judicial",
				scraping.CampoAssunto:        ".assunto",
				scraping.CampoOrgaoJulgador:  ".orgao-julgador",
				scraping.CampoMovimentacoes:  ".movimentacoes tr",
			},
			ErrorMessageSelector: ".alert-warning",
		},
	}
}
