package models

import "time"

// Unidades de intervalo da recorrência.
const (
	IntervaloHora    = "HORA"
	IntervaloDia     = "DIA"
	IntervaloSemana  = "SEMANA"
	IntervaloMes     = "MES"
)

// RecurringConfig define a cadência de um monitoramento:
// intervalo × frequência, com restrições opcionais de horário e dia da semana.
type RecurringConfig struct {
	Intervalo  string `json:"intervalo"`
	Frequencia int    `json:"frequencia"`

	// HoraDoDia em "HH:MM" (24h). Vazio = sem restrição.
	HoraDoDia string `json:"horaDoDia,omitempty"`
	// DiaDaSemana 0=domingo..6=sábado. Nil = sem restrição.
	DiaDaSemana *int `json:"diaDaSemana,omitempty"`

	TerminaEm *time.Time `json:"terminaEm,omitempty"`
}

// NotificationConfig decide QUANDO disparar; a entrega (email/WhatsApp/push)
// é responsabilidade de consumidores externos do tópico.
type NotificationConfig struct {
	NovaMovimentacao bool `json:"novaMovimentacao"`
	NovaAudiencia    bool `json:"novaAudiencia"`
	NovoPrazo        bool `json:"novoPrazo"`
	AoErrar          bool `json:"aoErrar"`

	Canais []string `json:"canais,omitempty"`
}

// ScheduledJob é um monitoramento recorrente de um par (processo, tribunal).
// Um job por par; re-registrar substitui o anterior.
type ScheduledJob struct {
	ID         string `json:"id"`
	ProcessoID string `json:"processoId"`
	NumeroProcesso string `json:"numeroProcesso"`
	TribunalID string `json:"tribunalId"`
	Operacoes  []string `json:"operacoes"`

	Recorrencia  RecurringConfig    `json:"recorrencia"`
	Notificacoes NotificationConfig `json:"notificacoes"`

	Ativo bool `json:"ativo"`

	ProximaExecucao time.Time  `json:"proximaExecucao"`
	UltimaExecucao  *time.Time `json:"ultimaExecucao,omitempty"`

	ErrosConsecutivos int `json:"errosConsecutivos"`
	MaxErros          int `json:"maxErros"`

	CriadoEm     time.Time `json:"criadoEm"`
	AtualizadoEm time.Time `json:"atualizadoEm"`
}
