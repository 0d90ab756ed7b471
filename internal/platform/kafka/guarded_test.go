package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verigate/pkg/platform/circuit"
)

type stubSink struct {
	err   error
	calls int
}

func (s *stubSink) Publish(context.Context, string, []byte) error {
	s.calls++
	return s.err
}

func TestGuardedSink(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("passes through while healthy", func(t *testing.T) {
		sink := &stubSink{}
		g := NewGuardedSink(sink, circuit.New("audit"), logger)
		require.NoError(t, g.Publish(context.Background(), "user", []byte("{}")))
		assert.Equal(t, 1, sink.calls)
	})

	t.Run("skips the broker once the circuit opens", func(t *testing.T) {
		sink := &stubSink{err: errors.New("broker down")}
		g := NewGuardedSink(sink, circuit.New("audit", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour)), logger)

		for i := 0; i < 2; i++ {
			assert.Error(t, g.Publish(context.Background(), "user", []byte("{}")))
		}
		err := g.Publish(context.Background(), "user", []byte("{}"))
		assert.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, 2, sink.calls)
	})
}
