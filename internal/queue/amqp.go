package queue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const retryHeader = "x-retry-count"

// amqpChannel is the subset of *amqp.Channel the queue uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPQueue publishes JSON payloads to one durable RabbitMQ queue. The topic
// travels in the message Type so a single consumer can dispatch by topic.
type AMQPQueue struct {
	conn       *amqp.Connection
	ch         amqpChannel
	name       string
	MaxRetries int
	Log        *zap.Logger

	mu       sync.Mutex
	handlers map[string]func(payload any) error
	started  bool
}

// DialAMQP connects to url and declares the durable queue name.
func DialAMQP(url, name string, log *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := newAMQPQueue(ch, name, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	q.conn = conn
	return q, nil
}

func newAMQPQueue(ch amqpChannel, name string, log *zap.Logger) (*AMQPQueue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return &AMQPQueue{
		ch:         ch,
		name:       name,
		MaxRetries: 3,
		Log:        log,
		handlers:   make(map[string]func(payload any) error),
	}, nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	return q.publish(topic, payload, 0)
}

func (q *AMQPQueue) publish(topic string, payload any, retries int32) error {
	body, ok := payload.([]byte)
	if !ok {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encode %s payload: %w", topic, err)
		}
	}
	return q.ch.Publish("", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         topic,
		Headers:      amqp.Table{retryHeader: retries},
		Body:         body,
	})
}

// Subscribe registers handler for topic and starts consuming on first call.
// Handlers receive the raw JSON body.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	q.handlers[topic] = handler
	start := !q.started
	q.started = true
	q.mu.Unlock()

	if !start {
		return nil
	}
	msgs, err := q.ch.Consume(
		q.name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	go q.consume(msgs)
	return nil
}

func (q *AMQPQueue) consume(msgs <-chan amqp.Delivery) {
	for d := range msgs {
		q.handle(d)
	}
}

func (q *AMQPQueue) handle(d amqp.Delivery) {
	q.mu.Lock()
	handler := q.handlers[d.Type]
	q.mu.Unlock()

	if handler == nil {
		q.Log.Warn("no handler for message", zap.String("topic", d.Type))
		d.Ack(false)
		return
	}

	err := handler(d.Body)
	if err == nil {
		d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)
	q.Log.Warn("job failed", zap.String("topic", d.Type), zap.Int32("attempt", retries+1), zap.Error(err))
	if int(retries) < q.MaxRetries {
		if perr := q.publish(d.Type, d.Body, retries+1); perr != nil {
			q.Log.Error("requeue failed", zap.Error(perr))
			d.Nack(false, true)
			return
		}
	} else {
		q.Log.Error("job permanently failed", zap.String("topic", d.Type), zap.ByteString("body", d.Body))
	}
	d.Ack(false)
}

func retryCount(h amqp.Table) int32 {
	switch v := h[retryHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	err := q.ch.Close()
	if q.conn != nil {
		if cerr := q.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
