package scraping

import (
	"context"
	"time"
)

// CaptchaSolver é capacidade injetável. Resolução real exige integração com
// serviço de terceiros; o default é manual/no-op.
type CaptchaSolver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// ManualSolver aguarda um intervalo fixo (janela para intervenção humana em
// ambiente assistido) e devolve texto vazio.
type ManualSolver struct {
	Espera time.Duration
}

func (m ManualSolver) Solve(ctx context.Context, image []byte) (string, error) {
	espera := m.Espera
	if espera <= 0 {
		espera = 5 * time.Second
	}
	t := time.NewTimer(espera)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.C:
		return "", nil
	}
}
