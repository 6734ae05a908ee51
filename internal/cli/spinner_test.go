package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinnerStop(t *testing.T) {
	s := newSpinner("Running pipeline...")
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	assert.False(t, s.Cancelled())
}

func TestSpinnerContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinnerWithContext(ctx, "Walking down...")
	s.Start()
	cancel()

	assert.Eventually(t, s.Cancelled, time.Second, 10*time.Millisecond)
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("Stopping twice...")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	done := make(chan struct{})
	go func() {
		newSpinner("Never started").Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a spinner that never started")
	}
}

func TestSpinnerStopWithMessage(t *testing.T) {
	s := newSpinner("Finishing...")
	s.Start()
	s.StopWithSuccess("Done")

	s = newSpinner("Failing...")
	s.Start()
	s.StopWithError("Failed")
}
