package outboxrelay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/service/notifications"
	"github.com/m04kA/SMC-ReservationService/internal/testutil"
	"github.com/m04kA/SMC-ReservationService/pkg/logger"
)

var now = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

type fakeOutbox struct {
	mu       sync.Mutex
	messages []*domain.OutboxMessage
	claimErr error
}

func (f *fakeOutbox) add(code string, attempts int) *domain.OutboxMessage {
	msg := &domain.OutboxMessage{
		ID:            uuid.New(),
		BookingID:     uuid.New(),
		BookingCode:   code,
		EventType:     notifications.EventStateChanged,
		PreviousState: domain.StateConfirmedPendingPayment,
		NewState:      domain.StatePaidPendingAssignment,
		Payload:       []byte(`{"booking_code":"` + code + `"}`),
		Status:        domain.OutboxPending,
		Attempts:      attempts,
		NextAttemptAt: now.Add(-time.Minute),
		CreatedAt:     now.Add(-time.Hour),
	}
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
	return msg
}

func (f *fakeOutbox) ClaimDue(_ context.Context, at time.Time, limit int) ([]*domain.OutboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	out := make([]*domain.OutboxMessage, 0)
	for _, m := range f.messages {
		if len(out) == limit {
			break
		}
		if m.Status == domain.OutboxPending && !m.NextAttemptAt.After(at) {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeOutbox) find(id uuid.UUID) *domain.OutboxMessage {
	for _, m := range f.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(id)
	m.Status = domain.OutboxSent
	m.SentAt = &at
	return nil
}

func (f *fakeOutbox) MarkRetry(_ context.Context, id uuid.UUID, attempts int, next time.Time, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(id)
	m.Attempts = attempts
	m.NextAttemptAt = next
	m.LastError = &lastError
	return nil
}

func (f *fakeOutbox) MarkDead(_ context.Context, id uuid.UUID, attempts int, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(id)
	m.Status = domain.OutboxDead
	m.Attempts = attempts
	m.LastError = &lastError
	return nil
}

type published struct {
	key  string
	body []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	sent []published
}

func (p *fakePublisher) Publish(_ context.Context, key string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{key: key, body: body})
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type passthroughTx struct{}

func (passthroughTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	outbox    *fakeOutbox
	publisher *fakePublisher
	metrics   *testutil.Metrics
	relay     *Relay
}

func newFixture(cfg Config) *fixture {
	f := &fixture{outbox: &fakeOutbox{}, publisher: &fakePublisher{}, metrics: testutil.NewMetrics()}
	f.relay = NewRelay(f.outbox, f.publisher, passthroughTx{}, f.metrics, logger.NewNop(), cfg).
		WithTimeProvider(&testutil.Clock{T: now})
	return f
}

func TestProcessBatch_PublishesEnvelope(t *testing.T) {
	f := newFixture(Config{})
	msg := f.outbox.add("RESABC123", 0)

	n, err := f.relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, f.publisher.sent, 1)
	assert.Equal(t, "RESABC123", f.publisher.sent[0].key)

	var env notifications.Envelope
	require.NoError(t, json.Unmarshal(f.publisher.sent[0].body, &env))
	assert.Equal(t, msg.ID.String(), env.EventID)
	assert.Equal(t, notifications.EventStateChanged, env.EventType)
	assert.Equal(t, notifications.EventVersion, env.EventVersion)
	assert.Equal(t, notifications.Producer, env.Producer)
	assert.Equal(t, "RESABC123", env.CorrelationID)
	assert.JSONEq(t, `{"booking_code":"RESABC123"}`, string(env.Payload))

	stored := f.outbox.find(msg.ID)
	assert.Equal(t, domain.OutboxSent, stored.Status)
	assert.Equal(t, now, *stored.SentAt)
	assert.Equal(t, 1, f.metrics.OutboxDeliveries[ResultSent])

	// Отправленное сообщение больше не забирается
	n, err = f.relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, f.publisher.count())
}

func TestProcessBatch_RetryWithBackoff(t *testing.T) {
	f := newFixture(Config{BaseBackoff: time.Second, MaxAttempts: 5})
	msg := f.outbox.add("RESABC123", 2)
	f.publisher.err = errors.New("broker down")

	_, err := f.relay.ProcessBatch(context.Background())
	require.NoError(t, err)

	stored := f.outbox.find(msg.ID)
	assert.Equal(t, domain.OutboxPending, stored.Status)
	assert.Equal(t, 3, stored.Attempts)
	assert.Equal(t, now.Add(4*time.Second), stored.NextAttemptAt)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "broker down", *stored.LastError)
	assert.Equal(t, 1, f.metrics.OutboxDeliveries[ResultRetry])
}

func TestProcessBatch_DeadAfterMaxAttempts(t *testing.T) {
	f := newFixture(Config{MaxAttempts: 3})
	msg := f.outbox.add("RESABC123", 2)
	f.publisher.err = errors.New("broker down")

	_, err := f.relay.ProcessBatch(context.Background())
	require.NoError(t, err)

	stored := f.outbox.find(msg.ID)
	assert.Equal(t, domain.OutboxDead, stored.Status)
	assert.Equal(t, 3, stored.Attempts)
	assert.Equal(t, 1, f.metrics.OutboxDeliveries[ResultDead])
}

func TestProcessBatch_UnencodablePayloadIsDead(t *testing.T) {
	f := newFixture(Config{})
	msg := f.outbox.add("RESABC123", 0)
	msg.Payload = []byte("{broken")

	_, err := f.relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxDead, f.outbox.find(msg.ID).Status)
	assert.Equal(t, 0, f.publisher.count())
}

func TestProcessBatch_RespectsBatchSize(t *testing.T) {
	f := newFixture(Config{BatchSize: 2})
	for i := 0; i < 3; i++ {
		f.outbox.add("RESABC12"+string(rune('0'+i)), 0)
	}

	n, err := f.relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, f.publisher.count())
}

func TestProcessBatch_ClaimError(t *testing.T) {
	f := newFixture(Config{})
	f.outbox.claimErr = errors.New("connection refused")

	_, err := f.relay.ProcessBatch(context.Background())
	assert.Error(t, err)
}

func TestBackoff(t *testing.T) {
	r := NewRelay(nil, nil, nil, nil, logger.NewNop(), Config{BaseBackoff: time.Second, MaxBackoff: 10 * time.Second})

	assert.Equal(t, time.Second, r.backoff(1))
	assert.Equal(t, 2*time.Second, r.backoff(2))
	assert.Equal(t, 8*time.Second, r.backoff(4))
	assert.Equal(t, 10*time.Second, r.backoff(5))
	assert.Equal(t, 10*time.Second, r.backoff(30))
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(Config{PollInterval: 10 * time.Millisecond})
	f.outbox.add("RESABC123", 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.relay.Run(ctx) }()

	require.Eventually(t, func() bool { return f.publisher.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
