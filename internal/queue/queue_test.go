package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	key      string
	msg      amqp.Publishing
	deadline time.Time
}

type fakeChannel struct {
	declared   []string
	declareErr error
	published  []sentMessage
	publishErr error
	prefetch   int
	deliveries chan amqp.Delivery
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if c.declareErr != nil {
		return amqp.Queue{}, c.declareErr
	}
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	c.prefetch = prefetchCount
	return nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	deadline, _ := ctx.Deadline()
	c.published = append(c.published, sentMessage{key: key, msg: msg, deadline: deadline})
	return c.publishErr
}

// acker 记录消息的确认结果
type acker struct {
	acked    []uint64
	nacked   []uint64
	requeued []bool
}

func (a *acker) Ack(tag uint64, multiple bool) error {
	a.acked = append(a.acked, tag)
	return nil
}

func (a *acker) Nack(tag uint64, multiple bool, requeue bool) error {
	a.nacked = append(a.nacked, tag)
	a.requeued = append(a.requeued, requeue)
	return nil
}

func (a *acker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestDeclare(t *testing.T) {
	ch := &fakeChannel{}
	require.NoError(t, Declare(ch, "schedule_queue", "email_queue"))
	assert.Equal(t, []string{"schedule_queue", "email_queue"}, ch.declared)

	ch = &fakeChannel{declareErr: errors.New("access refused")}
	assert.Error(t, Declare(ch, "schedule_queue"))
}

func TestPublishJSON(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, 5*time.Second)

	before := time.Now()
	require.NoError(t, p.PublishJSON(context.Background(), "schedule_queue", map[string]string{"jobID": "j1"}))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "schedule_queue", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.JSONEq(t, `{"jobID":"j1"}`, string(got.msg.Body))
	assert.WithinDuration(t, before.Add(5*time.Second), got.deadline, time.Second)
}

func TestPublishJSONErrors(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, time.Second)

	var unsupported *json.UnsupportedTypeError
	err := p.PublishJSON(context.Background(), "schedule_queue", make(chan int))
	assert.ErrorAs(t, err, &unsupported)
	assert.Empty(t, ch.published)

	ch.publishErr = amqp.ErrClosed
	assert.ErrorIs(t, p.PublishJSON(context.Background(), "schedule_queue", "x"), amqp.ErrClosed)
}

func TestConsume(t *testing.T) {
	ack := &acker{}
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 3)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("retry")}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("drop")}
	close(ch.deliveries)

	var bodies []string
	err := Consume(context.Background(), ch, "schedule_queue", func(ctx context.Context, body []byte) (bool, error) {
		bodies = append(bodies, string(body))
		switch string(body) {
		case "retry":
			return true, errors.New("redis down")
		case "drop":
			return false, errors.New("bad message")
		}
		return false, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ch.prefetch)
	assert.Equal(t, []string{"ok", "retry", "drop"}, bodies)
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2, 3}, ack.nacked)
	assert.Equal(t, []bool{true, false}, ack.requeued)
}

func TestConsumeStopsOnCancel(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Consume(ctx, ch, "schedule_queue", func(ctx context.Context, body []byte) (bool, error) {
		t.Fatal("不应该收到消息")
		return false, nil
	})
	assert.NoError(t, err)
}
