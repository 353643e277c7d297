// Package queue carries provider engagement callbacks (delivered, opened,
// clicked, replied) from the webhook endpoint to the worker that appends
// them onto dispatch records. The broker decouples webhook latency from
// database writes.
package queue

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/crmforge/outreach-backend/internal/log"
)

// EngagementEvent is the wire payload for one provider callback.
type EngagementEvent struct {
	ProviderRef string    `json:"provider_ref"`
	Event       string    `json:"event"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// KnownEvent filters the callback types the pipeline records.
func KnownEvent(event string) bool {
	switch event {
	case "delivered", "opened", "clicked", "replied":
		return true
	}
	return false
}

type Publisher interface {
	Publish(ev EngagementEvent) error
}

// AMQPPublisher publishes engagement events to a durable queue.
type AMQPPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewAMQPPublisher(url, queueName string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, errors.Wrap(err, "declare queue")
	}
	return &AMQPPublisher{conn: conn, ch: ch, queue: queueName}, nil
}

func (p *AMQPPublisher) Publish(ev EngagementEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.ch.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (p *AMQPPublisher) Close() {
	p.ch.Close()
	p.conn.Close()
}

const retryCountHeader = "x-retry-count"

// Consume reads engagement events off the queue and applies each through
// handler. A failing handler's message is republished with an incremented
// x-retry-count header and the original acked; a plain nack would redeliver
// with unchanged headers and never count down. After maxRetries the message
// is dropped with a log line rather than poisoning the queue. Blocks until
// the channel closes.
func Consume(url, queueName string, maxRetries int, handler func(EngagementEvent) error) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return errors.Wrap(err, "dial amqp")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "declare queue")
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "register consumer")
	}

	republish := func(body []byte, retries int) error {
		return ch.Publish("", queueName, false, false, amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Headers:     amqp.Table{retryCountHeader: int32(retries)},
		})
	}
	consumeLoop(msgs, maxRetries, handler, republish)
	return nil
}

func consumeLoop(msgs <-chan amqp.Delivery, maxRetries int, handler func(EngagementEvent) error, republish func(body []byte, retries int) error) {
	logger := log.GetLogger()
	for d := range msgs {
		var ev EngagementEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			logger.Warnf("dropping malformed engagement event: %v", err)
			d.Ack(false)
			continue
		}

		if err := handler(ev); err != nil {
			retries := retryCount(d.Headers)
			if retries < maxRetries {
				if pubErr := republish(d.Body, retries+1); pubErr != nil {
					logger.Errorf("engagement event %s/%s: requeue failed: %v", ev.ProviderRef, ev.Event, pubErr)
					d.Nack(false, true)
					continue
				}
				logger.Warnf("engagement event %s/%s failed (attempt %d): %v", ev.ProviderRef, ev.Event, retries+1, err)
				d.Ack(false)
				continue
			}
			logger.Errorf("engagement event %s/%s permanently failed after %d attempts: %v", ev.ProviderRef, ev.Event, maxRetries, err)
		}
		d.Ack(false)
	}
}

func retryCount(headers amqp.Table) int {
	switch v := headers[retryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// InMemoryPublisher applies events straight to its handlers. Used in tests
// and single-process local runs where no broker is available.
type InMemoryPublisher struct {
	mu       sync.Mutex
	handlers []func(EngagementEvent) error
}

func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

func (q *InMemoryPublisher) Subscribe(handler func(EngagementEvent) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

func (q *InMemoryPublisher) Publish(ev EngagementEvent) error {
	q.mu.Lock()
	handlers := append([]func(EngagementEvent) error{}, q.handlers...)
	q.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(ev); err != nil {
			return err
		}
	}
	return nil
}

var _ Publisher = (*AMQPPublisher)(nil)
var _ Publisher = (*InMemoryPublisher)(nil)
