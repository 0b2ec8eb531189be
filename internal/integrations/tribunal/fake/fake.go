// Package fake é o adapter de desenvolvimento: resposta determinística por
// (tribunal, número), sem rede. Usado quando nenhum portal real está
// configurado e nos ambientes de teste de carga.
package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/models"
)

type Client struct{}

func New() *Client { return &Client{} }

func (f *Client) ConsultarProcesso(ctx context.Context, cfg models.TribunalConfig, numero string) (models.ProcessoTribunalData, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(cfg.ID))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(numero))
	v := h.Sum32()

	// ~10% dos números não existem, para exercitar o caminho NaoEncontrado.
	if v%10 == 0 {
		return models.ProcessoTribunalData{}, faults.New(faults.NaoEncontrado,
			"%s: processo %s não encontrado", cfg.ID, numero)
	}

	base := time.Date(2023, time.January, 2, 12, 0, 0, 0, time.UTC).
		Add(time.Duration(v%360) * 24 * time.Hour)

	movs := []models.Movimentacao{
		models.NovaMovimentacao(base, "Distribuído por sorteio"),
		models.NovaMovimentacao(base.Add(10*24*time.Hour), "Juntada de petição inicial"),
	}
	// Parte dos processos ganha um andamento recente, para exercitar a
	// detecção de alterações no monitoramento.
	if v%3 == 0 {
		movs = append(movs, models.NovaMovimentacao(
			time.Now().UTC().Truncate(time.Hour), "Conclusos para decisão"))
	}

	ajuizamento := base
	return models.ProcessoTribunalData{
		NumeroProcesso:  numero,
		Classe:          "Procedimento Comum Cível",
		Assunto:         "Obrigação de Fazer",
		Situacao:        "Em andamento",
		OrgaoJulgador:   "1ª Vara Cível",
		DataAjuizamento: &ajuizamento,
		Partes: []models.Parte{
			{Nome: "Parte Autora de Teste", Tipo: models.ParteAutor},
			{Nome: "Parte Ré de Teste", Tipo: models.ParteReu},
		},
		Movimentacoes: models.OrdenarMovimentacoes(movs),
	}, nil
}
