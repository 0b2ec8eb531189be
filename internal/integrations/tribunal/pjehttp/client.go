// Package pjehttp consulta a família PJe: portal JSF stateful que exige o
// ViewState do servidor reapresentado a cada POST, com o número CNJ decomposto
// campo a campo no formulário.
package pjehttp

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

const pathConsulta = "/ConsultaPublica/listView.seam"

type Client struct {
	tc *transport.Client
}

func New(tc *transport.Client) *Client {
	return &Client{tc: tc}
}

func (c *Client) ConsultarProcesso(ctx context.Context, cfg models.TribunalConfig, numero string) (models.ProcessoTribunalData, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")

	// 1) GET da view pública: estabelece a sessão JSF e entrega o ViewState.
	viewResp, err := c.tc.Get(ctx, base+pathConsulta)
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}
	viewDoc, err := viewResp.HTML()
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}
	viewState, ok := viewDoc.Find(`input[name="javax.faces.ViewState"]`).First().Attr("value")
	if !ok || viewState == "" {
		return models.ProcessoTribunalData{}, errors.Errorf("%s: ViewState ausente na view pública", cfg.ID)
	}

	// 2) POST do formulário reconstruído com o número decomposto por posição.
	seg, err := cnj.Decompor(numero)
	if err != nil {
		return models.ProcessoTribunalData{}, faults.Wrap(err, faults.NumeroProcessoInvalido, "decompor número")
	}

	form := url.Values{}
	form.Set("AJAXREQUEST", "_viewRoot")
	form.Set("javax.faces.ViewState", viewState)
	form.Set("fPP", "fPP")
	form.Set("fPP:numProcesso-inputNumeroProcessoDecomposto:numeroSequencial", seg.Sequencial)
	form.Set("fPP:numProcesso-inputNumeroProcessoDecomposto:numeroDigitoVerificador", seg.Digito)
	form.Set("fPP:numProcesso-inputNumeroProcessoDecomposto:Ano", seg.Ano)
	form.Set("fPP:numProcesso-inputNumeroProcessoDecomposto:ramoJustica", seg.Segmento)
	form.Set("fPP:numProcesso-inputNumeroProcessoDecomposto:respectivoTribunal", seg.Tribunal)
	form.Set("fPP:numProcesso-inputNumeroProcessoDecomposto:NumeroOrgaoJustica", seg.Origem)
	form.Set("fPP:searchProcessos", "fPP:searchProcessos")

	resp, err := c.tc.PostForm(ctx, base+pathConsulta, form)
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}

	// A resposta é um fragmento AJAX parcial; o goquery aceita fragmento.
	doc, err := resp.HTML()
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}

	return parseParcial(doc, cfg.ID, numero)
}

func parseParcial(doc *goquery.Document, tribunalID, numero string) (models.ProcessoTribunalData, error) {
	corpo := scraping.LimparTexto(doc.Text())
	if strings.Contains(corpo, "Nenhum resultado encontrado") ||
		strings.Contains(corpo, "nenhum registro encontrado") {
		return models.ProcessoTribunalData{}, faults.New(faults.NaoEncontrado,
			"%s: nenhum resultado para %s", tribunalID, numero)
	}

	texto := func(sel string) string {
		return scraping.LimparTexto(doc.Find(sel).First().Text())
	}

	p := models.ProcessoTribunalData{
		NumeroProcesso: texto(".numero-processo, #numeroProcesso"),
		Classe:         texto(".classe-judicial, #classeJudicial"),
		Assunto:        texto(".assunto-principal, #assunto"),
		OrgaoJulgador:  texto(".orgao-julgador, #orgaoJulgador"),
		Situacao:       texto(".situacao-processo"),
	}
	if p.NumeroProcesso == "" {
		p.NumeroProcesso = numero
	}

	if txt := texto(".data-autuacao, #dataAutuacao"); txt != "" {
		if t, ok := scraping.ParseDataBR(txt); ok {
			p.DataAjuizamento = &t
		}
	}

	doc.Find(".rich-table-row .polo-ativo, .polo-ativo li").Each(func(_ int, s *goquery.Selection) {
		if nome := scraping.LimparTexto(s.Text()); nome != "" {
			p.Partes = append(p.Partes, models.Parte{
				Nome: nome, Tipo: models.ParteAutor,
				Documento: scraping.ExtrairCPFCNPJ(nome),
			})
		}
	})
	doc.Find(".rich-table-row .polo-passivo, .polo-passivo li").Each(func(_ int, s *goquery.Selection) {
		if nome := scraping.LimparTexto(s.Text()); nome != "" {
			p.Partes = append(p.Partes, models.Parte{
				Nome: nome, Tipo: models.ParteReu,
				Documento: scraping.ExtrairCPFCNPJ(nome),
			})
		}
	})

	var movs []models.Movimentacao
	doc.Find(".rich-table tr.rich-table-row, table.movimentacoes tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		data, ok := scraping.ParseDataBR(scraping.LimparTexto(cells.Eq(0).Text()))
		if !ok {
			return
		}
		desc := scraping.LimparTexto(cells.Eq(1).Text())
		if desc == "" {
			return
		}
		movs = append(movs, models.NovaMovimentacao(data, desc))
	})
	p.Movimentacoes = models.OrdenarMovimentacoes(movs)

	return p, nil
}
