package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/config"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// fakeAcknowledger 记录确认结果
type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
	done    chan struct{}
}

func newFakeAcknowledger(expected int) *fakeAcknowledger {
	return &fakeAcknowledger{done: make(chan struct{}, expected)}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acked = append(a.acked, tag)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-a.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for acknowledgement %d/%d", i+1, n)
		}
	}
}

// fakeBroker 内存中的消息来源
type fakeBroker struct {
	deliveries chan amqp.Delivery
	reconnect  chan struct{}
}

func (b *fakeBroker) Consume() (<-chan amqp.Delivery, error) {
	return b.deliveries, nil
}

func (b *fakeBroker) StartConnectionWatcher() {}

func (b *fakeBroker) GetReconnectChan() <-chan struct{} {
	return b.reconnect
}

func (b *fakeBroker) Reconnect(ctx context.Context) error {
	return nil
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: []byte(body)}
}

func TestDecodeScanMessage(t *testing.T) {
	msg, err := DecodeScanMessage([]byte(`{"job_id":"job-1","device":"emulator-5554","scan_type":"CUSTOM","packages":["com.foo"]}`))
	require.NoError(t, err)
	assert.Equal(t, "job-1", msg.JobID)
	assert.Equal(t, domain.ScanTypeCustom, msg.ScanType)

	job := msg.ToJob()
	assert.Equal(t, "emulator-5554", job.Device)
	assert.Equal(t, []string{"com.foo"}, job.Packages)
	assert.Equal(t, msg, MessageFromJob(job))

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing job id", `{"scan_type":"QUICK"}`},
		{"invalid scan type", `{"job_id":"x","scan_type":"FULL"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeScanMessage([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestAMQPURL(t *testing.T) {
	cfg := config.RabbitMQConfig{Host: "mq", Port: 5672, User: "scanner", Password: "p@ss", VHost: ""}
	assert.Equal(t, "amqp://scanner:p%40ss@mq:5672/", amqpURL(cfg))

	cfg.VHost = "prod"
	assert.Equal(t, "amqp://scanner:p%40ss@mq:5672/prod", amqpURL(cfg))
}

func TestConsumer_AcksAndNacks(t *testing.T) {
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery, 4), reconnect: make(chan struct{})}
	ack := newFakeAcknowledger(3)

	var mu sync.Mutex
	var handled []string
	handler := func(ctx context.Context, msg *ScanMessage) error {
		mu.Lock()
		handled = append(handled, msg.JobID)
		mu.Unlock()
		if msg.JobID == "job-fail" {
			return errors.New("device offline")
		}
		return nil
	}

	consumer := NewConsumer(broker, handler, 1, testLogger())
	require.NoError(t, consumer.Start(context.Background()))
	assert.True(t, consumer.IsRunning())

	broker.deliveries <- delivery(ack, 1, `{"job_id":"job-ok","scan_type":"QUICK"}`)
	broker.deliveries <- delivery(ack, 2, `{"job_id":"job-fail","scan_type":"QUICK"}`)
	broker.deliveries <- delivery(ack, 3, `garbage`)
	ack.wait(t, 3)

	consumer.Stop()
	assert.False(t, consumer.IsRunning())

	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2, 3}, ack.nacked)
	assert.Equal(t, []bool{false, false}, ack.requeue)
	assert.Equal(t, []string{"job-ok", "job-fail"}, handled)
}

func TestConsumer_RequeuesWhenPoolFull(t *testing.T) {
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery, 1), reconnect: make(chan struct{})}
	ack := newFakeAcknowledger(1)

	handler := func(ctx context.Context, msg *ScanMessage) error {
		return fmt.Errorf("%w (size 1)", worker.ErrQueueFull)
	}

	consumer := NewConsumer(broker, handler, 1, testLogger())
	require.NoError(t, consumer.Start(context.Background()))

	broker.deliveries <- delivery(ack, 9, `{"job_id":"job-1","scan_type":"DEEP"}`)
	ack.wait(t, 1)
	consumer.Stop()

	assert.Equal(t, []uint64{9}, ack.nacked)
	assert.Equal(t, []bool{true}, ack.requeue)
}

func TestConsumer_RequeuesWhenPoolStopped(t *testing.T) {
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery, 1), reconnect: make(chan struct{})}
	ack := newFakeAcknowledger(1)

	handler := func(ctx context.Context, msg *ScanMessage) error {
		return worker.ErrPoolStopped
	}

	consumer := NewConsumer(broker, handler, 1, testLogger())
	require.NoError(t, consumer.Start(context.Background()))

	broker.deliveries <- delivery(ack, 4, `{"job_id":"job-1","scan_type":"QUICK"}`)
	ack.wait(t, 1)
	consumer.Stop()

	assert.Equal(t, []uint64{4}, ack.nacked)
	assert.Equal(t, []bool{true}, ack.requeue)
}

func TestSettle(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want settlement
	}{
		{"success", context.Background(), nil, settleAck},
		{"pool full", context.Background(), fmt.Errorf("%w (size 4)", worker.ErrQueueFull), settleRequeueLater},
		{"pool stopped", context.Background(), worker.ErrPoolStopped, settleRequeue},
		{"shutting down", canceled, context.Canceled, settleRequeue},
		{"scan failed", context.Background(), errors.New("device offline"), settleDrop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, settle(tt.ctx, tt.err))
		})
	}
}

// fakePublisher 记录发布的消息
type fakePublisher struct {
	bodies [][]byte
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

func (p *fakePublisher) GetQueueStats() (int, int, error) {
	return len(p.bodies), 1, nil
}

func TestProducer_PublishScan(t *testing.T) {
	pub := &fakePublisher{}
	producer := NewProducer(pub, testLogger())

	err := producer.PublishScan(context.Background(), &ScanMessage{JobID: "job-1", Device: "emulator-5554", ScanType: domain.ScanTypeQuick})
	require.NoError(t, err)
	require.Len(t, pub.bodies, 1)

	var decoded ScanMessage
	require.NoError(t, json.Unmarshal(pub.bodies[0], &decoded))
	assert.Equal(t, "job-1", decoded.JobID)

	size, err := producer.GetQueueSize()
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	pub.err = ErrChannelClosed
	err = producer.PublishScan(context.Background(), &ScanMessage{JobID: "job-2"})
	assert.ErrorIs(t, err, ErrChannelClosed)
}
