package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake-notifications/internal/common/logger"
)

func TestNew_PrometheusMeter(t *testing.T) {
	o := New("intake-notifications-test", "", logger.NewTestLogger(t))
	require.NotNil(t, o)
	defer o.Shutdown()

	assert.NotNil(t, o.Tracer())
	assert.NotNil(t, o.dispatchCounter)
	assert.NotNil(t, o.dispatchDuration)
	assert.Nil(t, o.shutdownTracing)

	o.RecordDispatch(context.Background(), "sent", 2, 2)
	o.RecordDispatchDuration(context.Background(), 120*time.Millisecond, "sent")
}

func TestNoop_RecordsNothing(t *testing.T) {
	o := NewNoop()
	assert.NotNil(t, o.Tracer())
	o.RecordDispatch(context.Background(), "failed", 1, 0)
	o.RecordDispatchDuration(context.Background(), time.Second, "failed")
	o.Shutdown()

	var missing *Observability
	assert.NotNil(t, missing.Tracer())
	missing.Shutdown()
}
