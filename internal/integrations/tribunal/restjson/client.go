// Package restjson consulta tribunais com API REST documentada ou
// semi-documentada (DataJud, tribunais superiores).
package restjson

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JusTrack/JusTrack/internal/cnj"
	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/transport"
)

type Client struct {
	tc *transport.Client
}

func New(tc *transport.Client) *Client {
	return &Client{tc: tc}
}

type respProcesso struct {
	NumeroProcesso  string  `json:"numeroProcesso"`
	Classe          string  `json:"classe"`
	Assunto         string  `json:"assunto"`
	Situacao        string  `json:"situacao"`
	OrgaoJulgador   string  `json:"orgaoJulgador"`
	Magistrado      string  `json:"magistrado"`
	DataAjuizamento string  `json:"dataAjuizamento"` // ISO 8601
	ValorCausa      *float64 `json:"valorCausa"`

	Partes []struct {
		Nome      string `json:"nome"`
		Polo      string `json:"polo"`
		Documento string `json:"documento"`
	} `json:"partes"`

	Advogados []struct {
		Nome string `json:"nome"`
		OAB  string `json:"oab"`
		UF   string `json:"uf"`
	} `json:"advogados"`

	Movimentos []struct {
		Data      string `json:"data"`
		Descricao string `json:"descricao"`
		Complemento string `json:"complemento"`
		Orgao     string `json:"orgao"`
	} `json:"movimentos"`

	Audiencias []struct {
		Data  string `json:"data"`
		Tipo  string `json:"tipo"`
		Local string `json:"local"`
	} `json:"audiencias"`
}

func (c *Client) ConsultarProcesso(ctx context.Context, cfg models.TribunalConfig, numero string) (models.ProcessoTribunalData, error) {
	// A API aceita só dígitos no path.
	u := fmt.Sprintf("%s/api/v1/processos/%s",
		strings.TrimRight(cfg.BaseURL, "/"), url.PathEscape(cnj.SomenteDigitos(numero)))

	resp, err := c.tc.Get(ctx, u)
	if err != nil {
		return models.ProcessoTribunalData{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return models.ProcessoTribunalData{}, faults.New(faults.NaoEncontrado,
			"%s: processo %s não encontrado", cfg.ID, numero)
	}

	var r respProcesso
	if err := resp.JSON(&r); err != nil {
		return models.ProcessoTribunalData{}, err
	}

	p := models.ProcessoTribunalData{
		NumeroProcesso: r.NumeroProcesso,
		Classe:         r.Classe,
		Assunto:        r.Assunto,
		Situacao:       r.Situacao,
		OrgaoJulgador:  r.OrgaoJulgador,
		Magistrado:     r.Magistrado,
		ValorCausa:     r.ValorCausa,
	}
	if p.NumeroProcesso == "" {
		p.NumeroProcesso = numero
	}
	if t, ok := parseISO(r.DataAjuizamento); ok {
		p.DataAjuizamento = &t
	}

	for _, parte := range r.Partes {
		tipo := models.ParteOutro
		switch strings.ToUpper(parte.Polo) {
		case "ATIVO", "AT":
			tipo = models.ParteAutor
		case "PASSIVO", "PA":
			tipo = models.ParteReu
		case "TERCEIRO", "TC":
			tipo = models.ParteTerceiro
		}
		p.Partes = append(p.Partes, models.Parte{Nome: parte.Nome, Tipo: tipo, Documento: parte.Documento})
	}
	for _, adv := range r.Advogados {
		p.Advogados = append(p.Advogados, models.Advogado{Nome: adv.Nome, OAB: adv.OAB, UF: adv.UF})
	}

	var movs []models.Movimentacao
	for _, mv := range r.Movimentos {
		data, ok := parseISO(mv.Data)
		if !ok || mv.Descricao == "" {
			continue
		}
		m := models.NovaMovimentacao(data, mv.Descricao)
		m.Complemento = mv.Complemento
		m.Orgao = mv.Orgao
		movs = append(movs, m)
	}
	p.Movimentacoes = models.OrdenarMovimentacoes(movs)

	for _, a := range r.Audiencias {
		data, ok := parseISO(a.Data)
		if !ok {
			continue
		}
		p.Audiencias = append(p.Audiencias, models.Audiencia{Data: data, Tipo: a.Tipo, Local: a.Local})
	}

	return p, nil
}

func parseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
