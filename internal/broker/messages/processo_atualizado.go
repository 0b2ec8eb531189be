package messages

import "time"

// TopicoProcessoAtualizado carrega os eventos de alteração detectada.
const TopicoProcessoAtualizado = "processo.atualizado"

// ProcessoAtualizado é emitido quando uma consulta encontra movimentações
// que não constavam do último snapshot. Consumidores (API, notificadores)
// decidem o que fazer com isso.
type ProcessoAtualizado struct {
	ProcessoID     string    `json:"processoId"`
	NumeroProcesso string    `json:"numeroProcesso"`
	TribunalID     string    `json:"tribunalId"`
	AtualizadoEm   time.Time `json:"atualizadoEm"`

	NovasMovimentacoes []Movimentacao `json:"novasMovimentacoes"`
}

type Movimentacao struct {
	ID          string    `json:"id"`
	Data        time.Time `json:"data"`
	Descricao   string    `json:"descricao"`
	Complemento string    `json:"complemento,omitempty"`
	Orgao       string    `json:"orgao,omitempty"`
}
