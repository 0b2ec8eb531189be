package scraping

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/transport"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// Engine executa regras declarativas. Um único interpretador para todos os
// tribunais cobertos por Rule.
type Engine struct {
	solver CaptchaSolver
}

func NewEngine(solver CaptchaSolver) *Engine {
	if solver == nil {
		solver = ManualSolver{}
	}
	return &Engine{solver: solver}
}

// Executar busca o processo conforme a regra e devolve o registro canônico.
// Regras sem capacidade especial rodam em HTTP puro; com CAPTCHA, via browser.
// Certificado digital não é suportado neste contexto de execução.
func (e *Engine) Executar(ctx context.Context, client *transport.Client, rule Rule, numero string) (models.ProcessoTribunalData, error) {
	if rule.RequiresCertificate {
		return models.ProcessoTribunalData{}, faults.New(faults.CapacidadeIndisponivel,
			"tribunal %s exige certificado digital", rule.TribunalID)
	}

	var doc *goquery.Document
	var err error
	if rule.PrecisaBrowser() {
		doc, err = e.executarBrowser(ctx, client, rule, numero)
	} else {
		doc, err = e.executarHTTP(ctx, client, rule, numero)
	}
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}

	return e.extrair(doc, rule, numero)
}

func (e *Engine) executarHTTP(ctx context.Context, client *transport.Client, rule Rule, numero string) (*goquery.Document, error) {
	params := url.Values{}
	for k, v := range rule.SearchParams {
		params.Set(k, strings.ReplaceAll(v, PlaceholderNumero, numero))
	}

	var resp *transport.Response
	var err error
	if strings.EqualFold(rule.SearchMethod, http.MethodPost) {
		resp, err = client.PostForm(ctx, rule.SearchURL(numero), params)
	} else {
		u := rule.SearchURL(numero)
		if len(params) > 0 {
			sep := "?"
			if strings.Contains(u, "?") {
				sep = "&"
			}
			u += sep + params.Encode()
		}
		resp, err = client.Get(ctx, u)
	}
	if err != nil {
		return nil, err
	}
	return resp.HTML()
}

func (e *Engine) executarBrowser(ctx context.Context, client *transport.Client, rule Rule, numero string) (*goquery.Document, error) {
	html, err := client.Scrape(ctx, rule.SearchURL(numero), func(ctx context.Context, s transport.Session) error {
		if err := tentarSeletores(ctx, rule.NumeroInputSelectors, func(sel string) error {
			return s.Fill(ctx, sel, numero)
		}); err != nil {
			return errors.Wrap(err, "preencher número do processo")
		}

		if rule.RequiresCaptcha && rule.CaptchaImageSelector != "" {
			img, err := s.CaptchaImage(ctx, rule.CaptchaImageSelector)
			if err != nil {
				return errors.Wrap(err, "capturar captcha")
			}
			texto, err := e.solver.Solve(ctx, img)
			if err != nil {
				return errors.Wrap(err, "resolver captcha")
			}
			if texto != "" && rule.CaptchaInputSelector != "" {
				if err := s.Fill(ctx, rule.CaptchaInputSelector, texto); err != nil {
					return errors.Wrap(err, "preencher captcha")
				}
			}
		}

		if err := tentarSeletores(ctx, rule.SubmitSelectors, func(sel string) error {
			return s.Click(ctx, sel)
		}); err != nil {
			return errors.Wrap(err, "submeter busca")
		}

		if rule.ResultWaitSelector != "" {
			if err := s.WaitVisible(ctx, rule.ResultWaitSelector); err != nil {
				return errors.Wrap(err, "aguardar resultado")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// tentarSeletores aplica fn em cada seletor da lista até um funcionar.
// Portais mudam de markup; os fallbacks absorvem parte da deriva.
func tentarSeletores(ctx context.Context, seletores []string, fn func(sel string) error) error {
	if len(seletores) == 0 {
		return errors.New("regra sem seletores configurados")
	}
	var lastErr error
	for _, sel := range seletores {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(sel); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

func (e *Engine) extrair(doc *goquery.Document, rule Rule, numero string) (models.ProcessoTribunalData, error) {
	// A mensagem de erro do próprio portal tem precedência: resultado vazio
	// nunca vira registro parcialmente populado.
	if rule.ErrorMessageSelector != "" {
		if msg := LimparTexto(doc.Find(rule.ErrorMessageSelector).Text()); msg != "" {
			return models.ProcessoTribunalData{}, faults.New(faults.NaoEncontrado,
				"tribunal %s: %s", rule.TribunalID, msg)
		}
	}

	campo := func(nome string) string {
		sel, ok := rule.Selectors[nome]
		if !ok || sel == "" {
			return ""
		}
		return LimparTexto(doc.Find(sel).First().Text())
	}

	p := models.ProcessoTribunalData{
		NumeroProcesso: campo(CampoNumeroProcesso),
		Classe:         campo(CampoClasse),
		Assunto:        campo(CampoAssunto),
		Situacao:       campo(CampoSituacao),
		OrgaoJulgador:  campo(CampoOrgaoJulgador),
		Magistrado:     campo(CampoMagistrado),
	}
	if p.NumeroProcesso == "" {
		p.NumeroProcesso = numero
	}

	if txt := campo(CampoDataAjuizamento); txt != "" {
		if t, ok := ParseDataBR(txt); ok {
			p.DataAjuizamento = &t
		}
	}
	if txt := campo(CampoValorCausa); txt != "" {
		if v, ok := NormalizarMoeda(txt); ok {
			p.ValorCausa = &v
		}
	}

	if sel := rule.Selectors[CampoPartes]; sel != "" {
		doc.Find(sel).Each(func(_ int, row *goquery.Selection) {
			if parte, ok := parseParte(LimparTexto(row.Text())); ok {
				p.Partes = append(p.Partes, parte)
			}
		})
	}

	if sel := rule.Selectors[CampoMovimentacoes]; sel != "" {
		var movs []models.Movimentacao
		doc.Find(sel).Each(func(_ int, row *goquery.Selection) {
			if m, ok := parseMovimentacao(LimparTexto(row.Text())); ok {
				movs = append(movs, m)
			}
		})
		p.Movimentacoes = models.OrdenarMovimentacoes(movs)
	}

	return p, nil
}

var padraoTipoParte = regexp.MustCompile(`(?i)^(autor|requerente|exequente|reclamante|impetrante|r[ée]u?|requerid[oa]|executad[oa]|reclamad[oa]|impetrad[oa]|terceiro)[\s:]+`)

func parseParte(texto string) (models.Parte, bool) {
	if texto == "" {
		return models.Parte{}, false
	}
	tipo := models.ParteOutro
	nome := texto
	if m := padraoTipoParte.FindStringSubmatch(texto); m != nil {
		switch strings.ToLower(strings.TrimRight(m[1], ":")) {
		case "autor", "requerente", "exequente", "reclamante", "impetrante":
			tipo = models.ParteAutor
		case "terceiro":
			tipo = models.ParteTerceiro
		default:
			tipo = models.ParteReu
		}
		nome = LimparTexto(texto[len(m[0]):])
	}
	doc := ExtrairCPFCNPJ(texto)
	if doc != "" {
		nome = LimparTexto(strings.Replace(nome, doc, "", 1))
		nome = strings.TrimRight(nome, " ,-–")
		for _, rotulo := range []string{"CPF", "CNPJ", "cpf", "cnpj"} {
			nome = strings.TrimSpace(strings.TrimSuffix(nome, rotulo))
		}
	}
	if nome == "" {
		return models.Parte{}, false
	}
	return models.Parte{Nome: nome, Tipo: tipo, Documento: doc}, true
}

func parseMovimentacao(texto string) (models.Movimentacao, bool) {
	data, ok := ParseDataBR(texto)
	if !ok {
		return models.Movimentacao{}, false
	}
	desc := LimparTexto(padraoDataBR.ReplaceAllString(texto, ""))
	if desc == "" {
		return models.Movimentacao{}, false
	}
	return models.NovaMovimentacao(data, desc), true
}
