package kafkapub

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{w: w}

	require.NoError(t, p.Publish(context.Background(), "RESABC123", []byte(`{"event_type":"x"}`)))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("RESABC123"), w.msgs[0].Key)
	assert.JSONEq(t, `{"event_type":"x"}`, string(w.msgs[0].Value))
	assert.Equal(t, "content-type", w.msgs[0].Headers[0].Key)
}

func TestPublisher_PublishError(t *testing.T) {
	p := &Publisher{w: &fakeWriter{err: errors.New("leader not available")}}

	err := p.Publish(context.Background(), "RESABC123", []byte(`{}`))
	assert.ErrorIs(t, err, ErrPublish)
}
