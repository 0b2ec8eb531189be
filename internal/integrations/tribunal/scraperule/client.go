// Package scraperule adapta o engine de scraping ao contrato de adapter:
// tribunais sem interface de máquina são cobertos por uma Rule declarativa.
package scraperule

import (
	"context"

	"github.com/JusTrack/JusTrack/internal/models"
	"github.com/JusTrack/JusTrack/internal/scraping"
	"github.com/JusTrack/JusTrack/internal/transport"
	"github.com/pkg/errors"
)

type Client struct {
	tc     *transport.Client
	engine *scraping.Engine
	rule   scraping.Rule
}

func New(tc *transport.Client, engine *scraping.Engine, rule scraping.Rule) *Client {
	return &Client{tc: tc, engine: engine, rule: rule}
}

func (c *Client) ConsultarProcesso(ctx context.Context, cfg models.TribunalConfig, numero string) (models.ProcessoTribunalData, error) {
	if c.rule.TribunalID != cfg.ID {
		return models.ProcessoTribunalData{}, errors.Errorf(
			"regra %s não serve o tribunal %s", c.rule.TribunalID, cfg.ID)
	}
	return c.engine.Executar(ctx, c.tc, c.rule, numero)
}
