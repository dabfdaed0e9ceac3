package worker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"kbqa/internal/model"
	"kbqa/internal/platform/rabbitmq"
)

// TurnSink stores archived turns.
type TurnSink interface {
	CreateBatch(ctx context.Context, records []model.TurnRecord) error
}

// TurnArchiveWorker drains the archive queue into a TurnSink.
type TurnArchiveWorker struct {
	conn      *amqp.Connection
	sink      TurnSink
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTurnArchiveWorker(conn *amqp.Connection, sink TurnSink, queueName string, logger *zap.Logger) *TurnArchiveWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnArchiveWorker{
		conn:      conn,
		sink:      sink,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *TurnArchiveWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("archive delivery channel closed")
					return
				}
				w.process(workerCtx, d.Body, d)
			}
		}
	}()

	w.logger.Info("archive worker started", zap.String("queue", w.queueName))
	return nil
}

// acknowledger is the settling half of an amqp.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// process stores one message and settles it. A failure caused by shutdown
// requeues the message; any other failure drops it.
func (w *TurnArchiveWorker) process(ctx context.Context, body []byte, ack acknowledger) {
	if err := w.Handle(ctx, body); err != nil {
		if ctx.Err() != nil {
			w.logger.Info("archive interrupted by shutdown, requeueing", zap.Error(err))
			_ = ack.Nack(false, true)
			return
		}
		w.logger.Warn("archive turns failed", zap.Error(err))
		_ = ack.Nack(false, false)
		return
	}
	_ = ack.Ack(false)
}

// Handle decodes one archive message and stores its turns.
func (w *TurnArchiveWorker) Handle(ctx context.Context, body []byte) error {
	batch, err := rabbitmq.DecodeTurnBatch(body)
	if err != nil {
		return err
	}
	if err := w.sink.CreateBatch(ctx, batch.Records()); err != nil {
		return fmt.Errorf("persist session %s: %w", batch.SessionID, err)
	}
	return nil
}

func (w *TurnArchiveWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
