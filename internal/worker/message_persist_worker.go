package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"resumerag/internal/model"
)

// MessageStore persists conversation messages.
type MessageStore interface {
	Create(msg *model.ConversationMessage) error
}

// ConversationStore resolves conversations and tracks their activity.
type ConversationStore interface {
	GetByOwnerAndConversationID(ownerID uint, conversationID string) (*model.Conversation, error)
	TouchActivity(conversationID string, at time.Time) error
}

// MessagePersistWorker drains the conversation message queue into MySQL and
// keeps each conversation's activity counters current. Messages whose
// conversation was deleted while they sat in the queue are dropped instead of
// resurrecting rows for it.
type MessagePersistWorker struct {
	conn      *amqp.Connection
	messages  MessageStore
	convs     ConversationStore
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMessagePersistWorker(
	conn *amqp.Connection,
	messages MessageStore,
	convs ConversationStore,
	queueName string,
) *MessagePersistWorker {
	return &MessagePersistWorker{
		conn:      conn,
		messages:  messages,
		convs:     convs,
		queueName: queueName,
	}
}

func (w *MessagePersistWorker) Start(ctx context.Context) error {
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

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
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
					return
				}

				var msg model.ConversationMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					log.Printf("worker decode message failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.persistMessage(msg); err != nil {
					log.Printf("worker persist message failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// persistMessage writes one queued message. A nil error means the delivery
// can be acked, including the case where the conversation is gone and the
// message is dropped.
func (w *MessagePersistWorker) persistMessage(msg model.ConversationMessage) error {
	conv, err := w.convs.GetByOwnerAndConversationID(msg.OwnerID, msg.ConversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		log.Printf("worker dropping message for deleted conversation %s", msg.ConversationID)
		return nil
	}

	if err := w.messages.Create(&msg); err != nil {
		return err
	}
	if err := w.convs.TouchActivity(msg.ConversationID, msg.CreatedAt); err != nil {
		log.Printf("worker touch conversation failed: %v", err)
	}
	return nil
}

func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
