package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/JusTrack/JusTrack/internal/broker/messages"
	"github.com/JusTrack/JusTrack/internal/models"
)

type fakeWriter struct {
	last []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.last = append([]kafka.Message{}, msgs...)
	return w.err
}

func TestProducer_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)

	require.NoError(t, p.Publish(context.Background(), "t", []byte("k"), []byte("v")))
	require.Len(t, fw.last, 1)
	require.Equal(t, "t", fw.last[0].Topic)
	require.Equal(t, []byte("k"), fw.last[0].Key)
	require.Equal(t, []byte("v"), fw.last[0].Value)
}

func TestAtualizacoesProducer_Publicar(t *testing.T) {
	fw := &fakeWriter{}
	a := &AtualizacoesProducer{p: newProducerWithWriter(fw), topic: messages.TopicoProcessoAtualizado}

	novas := []models.Movimentacao{
		models.NovaMovimentacao(time.Date(2023, 3, 10, 9, 0, 0, 0, time.UTC), "Conclusos ao relator"),
	}
	require.NoError(t, a.PublicarAtualizacao(context.Background(), "proc-1", "0001234-56.2023.3.00.0000", "STJ", novas))

	require.Len(t, fw.last, 1)
	require.Equal(t, messages.TopicoProcessoAtualizado, fw.last[0].Topic)
	require.Equal(t, []byte("proc-1"), fw.last[0].Key)

	var msg messages.ProcessoAtualizado
	require.NoError(t, json.Unmarshal(fw.last[0].Value, &msg))
	require.Equal(t, "proc-1", msg.ProcessoID)
	require.Equal(t, "STJ", msg.TribunalID)
	require.Len(t, msg.NovasMovimentacoes, 1)
	require.Equal(t, "Conclusos ao relator", msg.NovasMovimentacoes[0].Descricao)
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:0"})
	require.NotNil(t, p)
}
