package scheduler

import (
	"strconv"
	"strings"
	"time"

	"github.com/JusTrack/JusTrack/internal/faults"
	"github.com/JusTrack/JusTrack/internal/models"
)

var intervalosValidos = map[string]bool{
	models.IntervaloHora:   true,
	models.IntervaloDia:    true,
	models.IntervaloSemana: true,
	models.IntervaloMes:    true,
}

// ValidarRecorrencia rejeita cadências sem sentido antes de aceitar o job.
func ValidarRecorrencia(rec models.RecurringConfig) error {
	if !intervalosValidos[rec.Intervalo] {
		return faults.New(faults.OperacaoNaoSuportada, "intervalo de recorrência desconhecido: %q", rec.Intervalo)
	}
	if rec.Frequencia <= 0 {
		return faults.New(faults.OperacaoNaoSuportada, "frequência deve ser positiva, veio %d", rec.Frequencia)
	}
	if rec.HoraDoDia != "" {
		if _, _, ok := parseHora(rec.HoraDoDia); !ok {
			return faults.New(faults.OperacaoNaoSuportada, "horário %q fora do formato HH:MM", rec.HoraDoDia)
		}
	}
	if rec.DiaDaSemana != nil && (*rec.DiaDaSemana < 0 || *rec.DiaDaSemana > 6) {
		return faults.New(faults.OperacaoNaoSuportada, "dia da semana %d fora de 0..6", *rec.DiaDaSemana)
	}
	return nil
}

func parseHora(s string) (int, int, bool) {
	partes := strings.SplitN(s, ":", 2)
	if len(partes) != 2 {
		return 0, 0, false
	}
	hh, err1 := strconv.Atoi(partes[0])
	mm, err2 := strconv.Atoi(partes[1])
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, false
	}
	return hh, mm, true
}

// ProximaExecucao calcula o próximo disparo depois de `apos`: avança
// intervalo × frequência e ajusta para as restrições de horário e dia da
// semana, quando definidas.
func ProximaExecucao(apos time.Time, rec models.RecurringConfig) time.Time {
	n := rec.Frequencia
	if n <= 0 {
		n = 1
	}

	var prox time.Time
	switch rec.Intervalo {
	case models.IntervaloHora:
		return apos.Add(time.Duration(n) * time.Hour)
	case models.IntervaloSemana:
		prox = apos.AddDate(0, 0, 7*n)
	case models.IntervaloMes:
		prox = apos.AddDate(0, n, 0)
	default: // DIA
		prox = apos.AddDate(0, 0, n)
	}

	if rec.DiaDaSemana != nil && rec.Intervalo == models.IntervaloSemana {
		for int(prox.Weekday()) != *rec.DiaDaSemana {
			prox = prox.AddDate(0, 0, 1)
		}
	}
	if hh, mm, ok := parseHora(rec.HoraDoDia); ok {
		prox = time.Date(prox.Year(), prox.Month(), prox.Day(), hh, mm, 0, 0, prox.Location())
	}
	return prox
}

// Expirada informa se a recorrência já passou do seu término.
func Expirada(rec models.RecurringConfig, agora time.Time) bool {
	return rec.TerminaEm != nil && agora.After(*rec.TerminaEm)
}
