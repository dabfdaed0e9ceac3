package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"kbqa/internal/model"
)

// TurnPublisher sends answered turn pairs to the archive queue. It reuses one
// channel and reopens it after the broker closes it.
type TurnPublisher struct {
	conn      *amqp.Connection
	queueName string
	now       func() time.Time

	mu sync.Mutex
	ch *amqp.Channel
}

func NewTurnPublisher(conn *amqp.Connection, queueName string) *TurnPublisher {
	return &TurnPublisher{
		conn:      conn,
		queueName: queueName,
		now:       time.Now,
	}
}

func (p *TurnPublisher) PublishTurns(ctx context.Context, sessionID string, turns []model.Turn) error {
	payload, err := EncodeTurnBatch(model.TurnBatch{
		SessionID:  sessionID,
		Turns:      turns,
		AnsweredAt: p.now().UTC(),
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish turns failed: %w", err)
	}
	return nil
}

func (p *TurnPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *TurnPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}

// EncodeTurnBatch is the wire format shared with the archive worker.
func EncodeTurnBatch(batch model.TurnBatch) ([]byte, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal turn batch failed: %w", err)
	}
	return payload, nil
}

func DecodeTurnBatch(body []byte) (model.TurnBatch, error) {
	var batch model.TurnBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return model.TurnBatch{}, fmt.Errorf("unmarshal turn batch failed: %w", err)
	}
	if batch.SessionID == "" || len(batch.Turns) == 0 {
		return model.TurnBatch{}, fmt.Errorf("turn batch is incomplete")
	}
	return batch, nil
}
