// Package esajhttp consulta portais da família ESAJ: GET do formulário de
// consulta pública, extração dos campos ocultos de sessão/anti-forgery e POST
// do número do processo.
package esajhttp

import (
	"context"
	"net/url"
	"strings"

	"github.com/JusTrack/JusTrack/internal/cnj"
	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/scraping"
	"github.com/JusTrack/JusTrack/internal/transport"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

const (
	pathAbrir  = "/cpopg/open.do"
	pathBuscar = "/cpopg/search.do"
)

type Client struct {
	tc *transport.Client
}

func New(tc *transport.Client) *Client {
	return &Client{tc: tc}
}

func (c *Client) ConsultarProcesso(ctx context.Context, cfg models.TribunalConfig, numero string) (models.ProcessoTribunalData, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")

	abrir, err := c.tc.Get(ctx, base+pathAbrir)
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}
	formDoc, err := abrir.HTML()
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}

	form := url.Values{}
	// Campos ocultos carregam token de sessão e afins; replicamos todos.
	formDoc.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if name == "" {
			return
		}
		value, _ := s.Attr("value")
		form.Set(name, value)
	})

	seg, err := cnj.Decompor(numero)
	if err != nil {
		return models.ProcessoTribunalData{}, faults.Wrap(err, faults.NumeroProcessoInvalido, "decompor número")
	}
	form.Set("cbPesquisa", "NUMPROC")
	form.Set("tipoNuProcesso", "UNIFICADO")
	form.Set("numeroDigitoAnoUnificado", seg.Sequencial+"-"+seg.Digito+"."+seg.Ano)
	form.Set("foroNumeroUnificado", seg.Origem)
	form.Set("dadosConsulta.valorConsultaNuUnificado", numero)
	form.Set("dadosConsulta.tipoNuProcesso", "UNIFICADO")

	resp, err := c.tc.PostForm(ctx, base+pathBuscar, form)
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}
	doc, err := resp.HTML()
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}

	return parseResultado(doc, cfg.ID, numero)
}

func parseResultado(doc *goquery.Document, tribunalID, numero string) (models.ProcessoTribunalData, error) {
	if msg := scraping.LimparTexto(doc.Find("#mensagemRetorno, .mensagemRetorno").Text()); msg != "" {
		return models.ProcessoTribunalData{}, faults.New(faults.NaoEncontrado, "%s: %s", tribunalID, msg)
	}
	if doc.Find("#numeroProcesso, .unj-larger-1").Length() == 0 {
		return models.ProcessoTribunalData{}, errors.Errorf("%s: página de resultado sem estrutura conhecida", tribunalID)
	}

	texto := func(sel string) string {
		return scraping.LimparTexto(doc.Find(sel).First().Text())
	}

	p := models.ProcessoTribunalData{
		NumeroProcesso: texto("#numeroProcesso, .unj-larger-1"),
		Classe:         texto("#classeProcesso, .classeProcesso"),
		Assunto:        texto("#assuntoProcesso, .assuntoProcesso"),
		Situacao:       texto("#labelSituacaoProcesso, .unj-tag"),
		OrgaoJulgador:  texto("#varaProcesso, .varaProcesso"),
		Magistrado:     texto("#juizProcesso, .juizProcesso"),
	}
	if p.NumeroProcesso == "" {
		p.NumeroProcesso = numero
	}

	if txt := texto("#dataHoraDistribuicaoProcesso"); txt != "" {
		if t, ok := scraping.ParseDataBR(txt); ok {
			p.DataAjuizamento = &t
		}
	}
	if txt := texto("#valorAcaoProcesso"); txt != "" {
		if v, ok := scraping.NormalizarMoeda(txt); ok {
			p.ValorCausa = &v
		}
	}

	doc.Find("#tableTodasPartes tr, #tablePartesPrincipais tr").Each(func(_ int, row *goquery.Selection) {
		tipo := scraping.LimparTexto(row.Find(".label, .tipoDeParticipacao").Text())
		nome := scraping.LimparTexto(row.Find(".nomeParteEAdvogado").Text())
		if nome == "" {
			return
		}
		// A célula mistura parte e advogados ("Advogado: Fulano OAB ...").
		principal, advs := separarAdvogados(nome)
		if principal != "" {
			p.Partes = append(p.Partes, models.Parte{
				Nome:      principal,
				Tipo:      classificarTipoParte(tipo),
				Documento: scraping.ExtrairCPFCNPJ(principal),
			})
		}
		p.Advogados = append(p.Advogados, advs...)
	})

	var movs []models.Movimentacao
	doc.Find("#tabelaTodasMovimentacoes tr, #tabelaUltimasMovimentacoes tr").Each(func(_ int, row *goquery.Selection) {
		dataTxt := scraping.LimparTexto(row.Find(".dataMovimentacao, td:first-child").First().Text())
		descTxt := scraping.LimparTexto(row.Find(".descricaoMovimentacao, td:last-child").First().Text())
		data, ok := scraping.ParseDataBR(dataTxt)
		if !ok || descTxt == "" {
			return
		}
		movs = append(movs, models.NovaMovimentacao(data, descTxt))
	})
	p.Movimentacoes = models.OrdenarMovimentacoes(movs)

	doc.Find("#tabelaTodasAudiencias tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		data, ok := scraping.ParseDataBR(scraping.LimparTexto(cells.Eq(0).Text()))
		if !ok {
			return
		}
		p.Audiencias = append(p.Audiencias, models.Audiencia{
			Data:     data,
			Tipo:     scraping.LimparTexto(cells.Eq(1).Text()),
			Situacao: scraping.LimparTexto(cells.Eq(2).Text()),
		})
	})

	return p, nil
}

func classificarTipoParte(rotulo string) string {
	switch strings.ToLower(strings.TrimRight(rotulo, ":")) {
	case "autor", "autora", "requerente", "exequente", "reclamante", "impetrante", "embargante":
		return models.ParteAutor
	case "réu", "ré", "reu", "requerido", "requerida", "executado", "executada", "reclamado", "reclamada", "impetrado", "embargado":
		return models.ParteReu
	case "terceiro", "terceiro interessado":
		return models.ParteTerceiro
	default:
		return models.ParteOutro
	}
}

var rotulosAdvogado = []string{"Advogado:", "Advogada:"}

// separarAdvogados divide a célula "Nome da Parte Advogado: Fulano ..." em
// parte principal e lista de advogados com OAB quando presente.
func separarAdvogados(texto string) (string, []models.Advogado) {
	principal := texto
	var advs []models.Advogado
	for _, rotulo := range rotulosAdvogado {
		for {
			idx := strings.Index(principal, rotulo)
			if idx < 0 {
				break
			}
			trecho := scraping.LimparTexto(principal[idx+len(rotulo):])
			principal = scraping.LimparTexto(principal[:idx])
			nome, oab, uf := extrairOAB(trecho)
			if nome != "" {
				advs = append(advs, models.Advogado{Nome: nome, OAB: oab, UF: uf})
			}
		}
	}
	return principal, advs
}

func extrairOAB(texto string) (nome, oab, uf string) {
	nome = texto
	if idx := strings.Index(texto, "OAB"); idx >= 0 {
		nome = scraping.LimparTexto(texto[:idx])
		resto := strings.Trim(strings.TrimPrefix(texto[idx:], "OAB"), " :/")
		partes := strings.SplitN(resto, "/", 2)
		oab = strings.TrimSpace(partes[0])
		if len(partes) == 2 {
			uf = strings.TrimSpace(partes[1])
		}
	}
	return nome, oab, uf
}
