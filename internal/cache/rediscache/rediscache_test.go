package rediscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/JusTrack/JusTrack/internal/models"
)

func TestRedisCache_Processo(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	ctx := context.Background()

	_, ok, err := c.GetProcesso(ctx, "proc-1", "TJSP")
	require.NoError(t, err)
	require.False(t, ok)

	dados := &models.ProcessoTribunalData{
		NumeroProcesso: "0001234-56.2023.8.26.0100",
		Classe:         "Procedimento Comum Cível",
	}
	require.NoError(t, c.SetProcesso(ctx, "proc-1", "TJSP", dados, time.Minute))

	lido, ok, err := c.GetProcesso(ctx, "proc-1", "TJSP")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, dados.NumeroProcesso, lido.NumeroProcesso)

	// tribunal diferente = chave diferente
	_, ok, err = c.GetProcesso(ctx, "proc-1", "TJRJ")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.InvalidarProcesso(ctx, "proc-1", "TJSP"))
	_, ok, _ = c.GetProcesso(ctx, "proc-1", "TJSP")
	require.False(t, ok)
}

func TestRedisCache_EntradaCorrompida(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, ChaveProcesso("proc-1", "TJSP"), []byte("{lixo"), time.Minute))
	_, ok, err := c.GetProcesso(ctx, "proc-1", "TJSP")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())
	ctx := context.Background()

	ok, err := rl.Allow(ctx, "tribunal:TJSP", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _ = rl.Allow(ctx, "tribunal:TJSP", 2, time.Minute)
	require.True(t, ok)

	ok, _ = rl.Allow(ctx, "tribunal:TJSP", 2, time.Minute)
	require.False(t, ok)

	// outra chave não é afetada
	ok, _ = rl.Allow(ctx, "tribunal:TJRJ", 2, time.Minute)
	require.True(t, ok)
}
