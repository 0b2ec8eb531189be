package scraping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/transport"
	"github.com/stretchr/testify/require"
)

const paginaResultado = `
<html><body>
  <span id="numero">0001234-56.2023.8.26.0100</span>
  <span id="classe">Procedimento Comum Cível</span>
  <span id="assunto">Indenização por Dano Moral</span>
  <span id="valor">R$ 15.000,00</span>
  <span id="distribuicao">Distribuído em 10/01/2023</span>
  <table id="partes">
    <tr class="parte"><td>Autor: Maria Souza CPF 123.456.789-01</td></tr>
    <tr class="parte"><td>Réu: Banco Z S/A CNPJ 12.345.678/0001-99</td></tr>
  </table>
  <table id="movs">
    <tr class="mov"><td>05/03/2023</td><td>Juntada de petição</td></tr>
    <tr class="mov"><td>10/01/2023</td><td>Distribuído por sorteio</td></tr>
    <tr class="mov"><td>20/04/2023</td><td>Conclusos para despacho</td></tr>
    <tr class="mov"><td>20/04/2023</td><td>Conclusos para despacho</td></tr>
  </table>
</body></html>`

const paginaSemResultado = `
<html><body>
  <div class="mensagemRetorno">Não existem informações disponíveis para os parâmetros informados.</div>
</body></html>`

func regraTeste(baseURL string) Rule {
	return Rule{
		TribunalID:   "TJXX",
		BaseURL:      baseURL,
		SearchPath:   "/busca",
		SearchMethod: "GET",
		SearchParams: map[string]string{"numero": PlaceholderNumero},
		Selectors: map[string]string{
			CampoNumeroProcesso:  "#numero",
			CampoClasse:          "#classe",
			CampoAssunto:         "#assunto",
			CampoValorCausa:      "#valor",
			CampoDataAjuizamento: "#distribuicao",
			CampoPartes:          "tr.parte",
			CampoMovimentacoes:   "tr.mov",
		},
		ErrorMessageSelector: ".mensagemRetorno",
	}
}

func TestEngine_Executar_HTTP(t *testing.T) {
	var gotNumero string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotNumero = r.URL.Query().Get("numero")
		_, _ = w.Write([]byte(paginaResultado))
	}))
	defer srv.Close()

	e := NewEngine(nil)
	c := transport.New(transport.Options{Timeout: 5 * time.Second})

	p, err := e.Executar(context.Background(), c, regraTeste(srv.URL), "0001234-56.2023.8.26.0100")
	require.NoError(t, err)
	require.Equal(t, "0001234-56.2023.8.26.0100", gotNumero)

	require.Equal(t, "0001234-56.2023.8.26.0100", p.NumeroProcesso)
	require.Equal(t, "Procedimento Comum Cível", p.Classe)
	require.Equal(t, "Indenização por Dano Moral", p.Assunto)
	require.NotNil(t, p.ValorCausa)
	require.InDelta(t, 15000.0, *p.ValorCausa, 0.001)
	require.NotNil(t, p.DataAjuizamento)
	require.Equal(t, time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), *p.DataAjuizamento)

	require.Len(t, p.Partes, 2)
	require.Equal(t, "AUTOR", p.Partes[0].Tipo)
	require.Equal(t, "123.456.789-01", p.Partes[0].Documento)
	require.Equal(t, "REU", p.Partes[1].Tipo)

	// deduplicado (4 linhas, 1 repetida) e ordenado decrescente por data
	require.Len(t, p.Movimentacoes, 3)
	for i := 1; i < len(p.Movimentacoes); i++ {
		require.False(t, p.Movimentacoes[i].Data.After(p.Movimentacoes[i-1].Data))
	}
	ids := map[string]struct{}{}
	for _, m := range p.Movimentacoes {
		_, dup := ids[m.ID]
		require.False(t, dup, "movimentação duplicada: %s", m.ID)
		ids[m.ID] = struct{}{}
	}
}

func TestEngine_Executar_ErrorSelector_NaoEncontrado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(paginaSemResultado))
	}))
	defer srv.Close()

	e := NewEngine(nil)
	c := transport.New(transport.Options{Timeout: 5 * time.Second})

	_, err := e.Executar(context.Background(), c, regraTeste(srv.URL), "0001234-56.2023.8.26.0100")
	require.Error(t, err)
	require.Equal(t, faults.NaoEncontrado, faults.KindOf(err))
}

func TestEngine_Executar_CertificadoExigido(t *testing.T) {
	e := NewEngine(nil)
	c := transport.New(transport.Options{Timeout: time.Second})

	r := regraTeste("http://example.test")
	r.RequiresCertificate = true

	_, err := e.Executar(context.Background(), c, r, "0001234-56.2023.8.26.0100")
	require.Error(t, err)
	require.Equal(t, faults.CapacidadeIndisponivel, faults.KindOf(err))
}

func TestEngine_Executar_CamposAusentesNaoQuebram(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><span id="classe">Execução Fiscal</span></body></html>`))
	}))
	defer srv.Close()

	e := NewEngine(nil)
	c := transport.New(transport.Options{Timeout: 5 * time.Second})

	p, err := e.Executar(context.Background(), c, regraTeste(srv.URL), "0001234-56.2023.8.26.0100")
	require.NoError(t, err)
	require.Equal(t, "Execução Fiscal", p.Classe)
	// campo não encontrado vira vazio, número cai no valor consultado
	require.Equal(t, "0001234-56.2023.8.26.0100", p.NumeroProcesso)
	require.Empty(t, p.Assunto)
	require.Nil(t, p.ValorCausa)
	require.Empty(t, p.Movimentacoes)
}
