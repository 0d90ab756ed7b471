package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "verigate/pkg/domain"
)

func TestRequestContext(t *testing.T) {
	t.Run("zero values without middleware", func(t *testing.T) {
		ctx := context.Background()
		assert.True(t, UserID(ctx).IsNil())
		assert.True(t, SessionID(ctx).IsNil())
		assert.True(t, ReviewerID(ctx).IsNil())
		assert.Empty(t, RequestID(ctx))
		assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
	})

	t.Run("values survive nesting", func(t *testing.T) {
		pinned := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		sid := id.NewSessionID()
		ctx := WithTime(context.Background(), pinned)
		ctx = WithSessionID(ctx, sid)
		ctx = WithClientMetadata(ctx, "10.0.0.1", "curl/8.0")
		ctx = WithRequestID(ctx, "req-1")

		assert.Equal(t, pinned, Now(ctx))
		assert.Equal(t, sid, SessionID(ctx))
		assert.Equal(t, "10.0.0.1", ClientIP(ctx))
		assert.Equal(t, "curl/8.0", UserAgent(ctx))
		assert.Equal(t, "req-1", RequestID(ctx))
	})
}
