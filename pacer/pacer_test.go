package pacer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencouncil/orchestrator/core"
)

func TestAcquireRespectsConcurrency(t *testing.T) {
	p := New(core.RateLimitConfig{RPS: 1000, Burst: 1000, Concurrency: 2})

	ctx := context.Background()
	rel1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	rel2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}

	acquired := int32(0)
	done := make(chan struct{})
	go func() {
		rel3, err := p.Acquire(ctx)
		if err != nil {
			t.Errorf("Acquire 3: %v", err)
			return
		}
		atomic.StoreInt32(&acquired, 1)
		rel3()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&acquired) != 0 {
		t.Fatal("third acquire should be blocked while two slots are held")
	}

	rel1()
	rel2()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("third acquire never unblocked after release")
	}
}

func TestAcquireCancellation(t *testing.T) {
	p := New(core.RateLimitConfig{RPS: 1000, Burst: 1, Concurrency: 1})

	ctx := context.Background()
	rel, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer rel()

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Acquire(cancelCtx)
	if err == nil {
		t.Fatal("expected Acquire to fail on a pre-cancelled context")
	}
	if core.KindOf(err) != core.ErrKindCancelled {
		t.Fatalf("expected ErrKindCancelled, got %v", core.KindOf(err))
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := New(core.RateLimitConfig{RPS: 1000, Burst: 1, Concurrency: 1})

	rel, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	rel()
	rel() // must not panic or double-release the semaphore

	rel2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second Acquire after release: %v", err)
	}
	rel2()
}

func TestRegistryReusesPacerPerProvider(t *testing.T) {
	r := NewRegistry()
	p1 := r.For(core.OpenAIFamily)
	p2 := r.For(core.OpenAIFamily)
	if p1 != p2 {
		t.Fatal("Registry.For should return the same Pacer instance for repeated calls")
	}

	p3 := r.For(core.GeminiFamily)
	if p3 == p1 {
		t.Fatal("Registry.For should return distinct Pacers per provider")
	}
}
