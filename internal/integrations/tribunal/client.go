// Package tribunal define o contrato comum dos adapters de protocolo: cada
// família de API (ESAJ form-post, PJe ViewState, SOAP, REST, scraping por
// regra) vira (config, número de processo) no registro canônico.
package tribunal

import (
	"context"

	"github.com/JusTrack/JusTrack/internal/models"
)

// Client é o contrato de todo adapter. Falha com faults.NaoEncontrado quando
// o próprio alvo reporta "sem resultados", e com fault de transporte quando o
// transport.Client esgota as tentativas. Campos ausentes na resposta nunca
// derrubam a consulta: ficam vazios. Movimentações voltam sempre ordenadas da
// mais recente para a mais antiga, sem IDs duplicados.
type Client interface {
	ConsultarProcesso(ctx context.Context, cfg models.TribunalConfig, numero string) (models.ProcessoTribunalData, error)
}
