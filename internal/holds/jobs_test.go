package holds

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripstock/internal/capacity"
)

func TestJobProcessor_RunPasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.capacity(t, 10, 0, 0, func(in *capacity.CreateInput) {
		cutoff := f.clock.Now().Add(time.Hour)
		in.CutoffAt = &cutoff
	})

	res, err := f.svc.AcquireHold(ctx, f.cart(c.ID, 2))
	require.NoError(t, err)

	jp := NewJobProcessor(f.svc, f.capacitySvc, nil, nil)
	f.clock.Advance(2 * time.Hour)

	jp.RunReclaim(ctx)
	h, err := f.svc.GetHold(ctx, res.Hold.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, *h.ReleaseReason)

	jp.RunTransitions(ctx)
	assert.Equal(t, capacity.StatusClosed, f.stored(t, c.ID).Status)
}

func TestJobProcessor_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	promoter := &countingPromoter{}
	jp := NewJobProcessor(f.svc, f.capacitySvc, promoter, &JobConfig{
		ReclaimInterval:    time.Millisecond,
		TransitionInterval: time.Millisecond,
		PromotionInterval:  time.Millisecond,
		BatchSize:          10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	jp.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		jp.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job processor did not stop")
	}
	assert.Equal(t, "running", jp.GetJobStatus()["status"])
	assert.Positive(t, promoter.passes.Load())
}

type countingPromoter struct {
	passes atomic.Int32
}

func (p *countingPromoter) PromotePending(context.Context) (int, error) {
	p.passes.Add(1)
	return 0, nil
}
