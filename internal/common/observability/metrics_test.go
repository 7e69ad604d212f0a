package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObservability_RecordAndShutdown(t *testing.T) {
	obs := New("voice-agent-test")
	assert.NotNil(t, obs)

	assert.NotPanics(t, func() {
		obs.RecordCommand(context.Background(), "search", true)
		obs.RecordStage(context.Background(), "documents", 120*time.Millisecond, false)
		obs.Shutdown()
	})
}

func TestObservability_ZeroValueIsNoOp(t *testing.T) {
	var nilObs *Observability
	empty := &Observability{}

	assert.NotPanics(t, func() {
		nilObs.RecordCommand(context.Background(), "search", true)
		nilObs.Shutdown()
		empty.RecordStage(context.Background(), "faultPatterns", time.Second, true)
		empty.Shutdown()
	})
}
