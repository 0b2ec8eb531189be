package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/JusTrack/JusTrack/internal/broker/messages"
	"github.com/JusTrack/JusTrack/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Producer struct {
	w messageWriter
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func newProducerWithWriter(w messageWriter) *Producer {
	return &Producer{w: w}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

// AtualizacoesProducer publica ProcessoAtualizado; a chave é o processo,
// garantindo ordem por partição para o mesmo processo.
type AtualizacoesProducer struct {
	p     *Producer
	topic string
}

func NewAtualizacoesProducer(brokers []string, topic string) *AtualizacoesProducer {
	if topic == "" {
		topic = messages.TopicoProcessoAtualizado
	}
	return &AtualizacoesProducer{p: NewProducer(brokers), topic: topic}
}

func (a *AtualizacoesProducer) PublicarAtualizacao(ctx context.Context, processoID, numeroProcesso, tribunalID string, novas []models.Movimentacao) error {
	msg := messages.ProcessoAtualizado{
		ProcessoID:     processoID,
		NumeroProcesso: numeroProcesso,
		TribunalID:     tribunalID,
		AtualizadoEm:   time.Now().UTC(),
	}
	for _, m := range novas {
		msg.NovasMovimentacoes = append(msg.NovasMovimentacoes, messages.Movimentacao{
			ID:          m.ID,
			Data:        m.Data,
			Descricao:   m.Descricao,
			Complemento: m.Complemento,
			Orgao:       m.Orgao,
		})
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal processo atualizado")
	}
	return a.p.Publish(ctx, a.topic, []byte(processoID), b)
}
