// Package soapws consulta serviços SOAP de órgãos administrativos (Receita,
// INSS) e de tribunais que expõem o padrão de intercomunicação: envelope XML
// montado à mão, POST com header SOAPAction, resposta XML decodificada.
package soapws

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/transport"
	"github.com/pkg/errors"
)

const soapAction = "consultarProcesso"

type Client struct {
	tc *transport.Client
}

func New(tc *transport.Client) *Client {
	return &Client{tc: tc}
}

type envelopeRequest struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	NSSoap  string   `xml:"xmlns:soapenv,attr"`
	NSSer   string   `xml:"xmlns:ser,attr"`
	Body    struct {
		Consulta struct {
			NumeroProcesso string `xml:"ser:numeroProcesso"`
			Movimentos     bool   `xml:"ser:movimentos"`
		} `xml:"ser:consultarProcesso"`
	} `xml:"soapenv:Body"`
}

type envelopeResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Resposta struct {
			Sucesso  bool   `xml:"sucesso"`
			Mensagem string `xml:"mensagem"`
			Processo struct {
				Numero       string `xml:"dadosBasicos>numero"`
				Classe       string `xml:"dadosBasicos>classeProcessual"`
				Assunto      string `xml:"dadosBasicos>assunto"`
				OrgaoJulgador struct {
					Nome string `xml:"nomeOrgao,attr"`
				} `xml:"dadosBasicos>orgaoJulgador"`
				DataAjuizamento string `xml:"dadosBasicos>dataAjuizamento"` // AAAAMMDDHHMMSS
				Polos           []struct {
					Polo   string `xml:"polo,attr"`
					Partes []struct {
						Nome     string `xml:"pessoa>nome"`
						Documento string `xml:"pessoa>numeroDocumentoPrincipal"`
					} `xml:"parte"`
				} `xml:"dadosBasicos>polo"`
				Movimentos []struct {
					DataHora  string `xml:"dataHora,attr"`
					Descricao string `xml:"movimentoLocal>descricao"`
					Complemento string `xml:"complemento"`
				} `xml:"movimento"`
			} `xml:"processo"`
		} `xml:"consultarProcessoResposta"`
	} `xml:"Body"`
}

func (c *Client) ConsultarProcesso(ctx context.Context, cfg models.TribunalConfig, numero string) (models.ProcessoTribunalData, error) {
	var env envelopeRequest
	env.NSSoap = "http://schemas.xmlsoap.org/soap/envelope/"
	env.NSSer = "http://www.cnj.jus.br/servico-intercomunicacao-2.2.2/"
	env.Body.Consulta.NumeroProcesso = numero
	env.Body.Consulta.Movimentos = true

	payload, err := xml.Marshal(env)
	if err != nil {
		return models.ProcessoTribunalData{}, errors.Wrap(err, "montar envelope")
	}
	payload = append([]byte(xml.Header), payload...)

	resp, err := c.tc.Do(ctx, transport.RequestSpec{
		Method:      http.MethodPost,
		URL:         cfg.BaseURL,
		Body:        payload,
		ContentType: "text/xml; charset=utf-8",
		Header:      http.Header{"SOAPAction": []string{soapAction}},
	})
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}

	var out envelopeResponse
	if err := resp.XML(&out); err != nil {
		return models.ProcessoTribunalData{}, err
	}

	r := out.Body.Resposta
	if !r.Sucesso {
		if strings.Contains(strings.ToLower(r.Mensagem), "não encontrado") ||
			strings.Contains(strings.ToLower(r.Mensagem), "nao encontrado") ||
			strings.Contains(strings.ToLower(r.Mensagem), "inexistente") {
			return models.ProcessoTribunalData{}, faults.New(faults.NaoEncontrado, "%s: %s", cfg.ID, r.Mensagem)
		}
		return models.ProcessoTribunalData{}, errors.Errorf("%s: serviço recusou a consulta: %s", cfg.ID, r.Mensagem)
	}

	p := models.ProcessoTribunalData{
		NumeroProcesso: r.Processo.Numero,
		Classe:         r.Processo.Classe,
		Assunto:        r.Processo.Assunto,
		OrgaoJulgador:  r.Processo.OrgaoJulgador.Nome,
	}
	if p.NumeroProcesso == "" {
		p.NumeroProcesso = numero
	}
	if t, ok := parseDataMNI(r.Processo.DataAjuizamento); ok {
		p.DataAjuizamento = &t
	}

	for _, polo := range r.Processo.Polos {
		tipo := models.ParteOutro
		switch strings.ToUpper(polo.Polo) {
		case "AT":
			tipo = models.ParteAutor
		case "PA":
			tipo = models.ParteReu
		case "TC", "TJ":
			tipo = models.ParteTerceiro
		}
		for _, parte := range polo.Partes {
			if parte.Nome == "" {
				continue
			}
			p.Partes = append(p.Partes, models.Parte{Nome: parte.Nome, Tipo: tipo, Documento: parte.Documento})
		}
	}

	var movs []models.Movimentacao
	for _, mv := range r.Processo.Movimentos {
		data, ok := parseDataMNI(mv.DataHora)
		if !ok {
			continue
		}
		desc := mv.Descricao
		if desc == "" {
			desc = mv.Complemento
		}
		if desc == "" {
			continue
		}
		m := models.NovaMovimentacao(data, desc)
		m.Complemento = mv.Complemento
		movs = append(movs, m)
	}
	p.Movimentacoes = models.OrdenarMovimentacoes(movs)

	return p, nil
}

// parseDataMNI interpreta o timestamp compacto AAAAMMDDHHMMSS do padrão de
// intercomunicação (segundos opcionais em alguns serviços).
func parseDataMNI(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"20060102150405", "200601021504", "20060102"} {
		if len(s) == len(layout) {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
