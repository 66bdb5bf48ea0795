package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type collectingService struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (s *collectingService) Process(_ context.Context, ev domain.AuthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *collectingService) snapshot() []domain.AuthEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuthEvent(nil), s.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestDispatcher_DeliversInOrderPerSubject(t *testing.T) {
	svc := &collectingService{}
	d := NewDispatcher(3, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	kinds := []domain.AuthEventKind{domain.EventRegister, domain.EventLogin, domain.EventRefresh, domain.EventLogout}
	for _, k := range kinds {
		d.Record(domain.AuthEvent{Kind: k, Outcome: domain.OutcomeSuccess, Subject: "a@x.com"})
	}

	waitFor(t, func() bool { return len(svc.snapshot()) == len(kinds) })

	got := svc.snapshot()
	for i, k := range kinds {
		if got[i].Kind != k {
			t.Fatalf("event %d: expected %s, got %s", i, k, got[i].Kind)
		}
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(5, &collectingService{}, zerolog.Nop())
	for _, subject := range []string{"", "a@x.com", "bob", "carol@example.com"} {
		first := d.shardIndex(shardKey(domain.AuthEvent{Subject: subject}))
		if first < 0 || first >= 5 {
			t.Fatalf("shard %d out of range", first)
		}
		if again := d.shardIndex(shardKey(domain.AuthEvent{Subject: subject})); again != first {
			t.Fatalf("shard for %q changed: %d vs %d", subject, first, again)
		}
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	svc := &collectingService{}
	d := newDispatcher(1, 1, svc, zerolog.Nop())

	// Not started: the single buffered slot fills and further events are dropped.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Record(domain.AuthEvent{Kind: domain.EventLogin, Outcome: domain.OutcomeFailure, Subject: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Record blocked on a full buffer")
	}
	if n := len(d.workers[0]); n != 1 {
		t.Fatalf("expected 1 buffered event, got %d", n)
	}
}

func TestShardKey_PrefersUserID(t *testing.T) {
	byEmail := shardKey(domain.AuthEvent{UserID: 7, Subject: "a@x.com"})
	byName := shardKey(domain.AuthEvent{UserID: 7, Subject: "alice"})
	if byEmail != byName {
		t.Fatalf("same account keyed differently: %q vs %q", byEmail, byName)
	}
	if shardKey(domain.AuthEvent{Subject: "a@x.com"}) == shardKey(domain.AuthEvent{Subject: "b@x.com"}) {
		t.Fatalf("anonymous subjects should key on the subject")
	}
}

func TestDispatcher_SameAccountStaysOrderedAcrossSubjects(t *testing.T) {
	svc := &collectingService{}
	d := NewDispatcher(8, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	seq := []domain.AuthEvent{
		{Kind: domain.EventRegister, Outcome: domain.OutcomeSuccess, UserID: 42, Subject: "alice@x.com"},
		{Kind: domain.EventLogin, Outcome: domain.OutcomeSuccess, UserID: 42, Subject: "alice@x.com"},
		{Kind: domain.EventRefresh, Outcome: domain.OutcomeSuccess, UserID: 42, Subject: "alice"},
		{Kind: domain.EventLogout, Outcome: domain.OutcomeSuccess, UserID: 42, Subject: "alice"},
	}
	for _, ev := range seq {
		d.Record(ev)
	}

	waitFor(t, func() bool { return len(svc.snapshot()) == len(seq) })
	got := svc.snapshot()
	for i, ev := range seq {
		if got[i].Kind != ev.Kind {
			t.Fatalf("event %d: expected %s, got %s", i, ev.Kind, got[i].Kind)
		}
	}
}

func TestDispatcher_FlushesBufferOnShutdown(t *testing.T) {
	svc := &collectingService{}
	d := newDispatcher(2, 16, svc, zerolog.Nop())

	for i := 0; i < 10; i++ {
		d.Record(domain.AuthEvent{Kind: domain.EventLogin, Outcome: domain.OutcomeSuccess, UserID: int64(i + 1)})
	}

	// Already cancelled: workers go straight to the flush path.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("workers did not stop")
	}

	if n := len(svc.snapshot()); n != 10 {
		t.Fatalf("expected all 10 buffered events stored, got %d", n)
	}
}

type ctxCheckingService struct {
	collectingService
	cancelled int
}

func (s *ctxCheckingService) Process(ctx context.Context, ev domain.AuthEvent) error {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.cancelled++
	}
	s.mu.Unlock()
	return s.collectingService.Process(ctx, ev)
}

func TestDispatcher_FlushUsesLiveContext(t *testing.T) {
	svc := &ctxCheckingService{}
	d := newDispatcher(1, 4, svc, zerolog.Nop())
	d.Record(domain.AuthEvent{Kind: domain.EventLogout, Outcome: domain.OutcomeSuccess, UserID: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	if len(svc.snapshot()) != 1 {
		t.Fatalf("expected the buffered event to be stored")
	}
	if svc.cancelled != 0 {
		t.Fatalf("store writes during shutdown received a cancelled context")
	}
}

func TestNewDispatcher_DefaultWorkers(t *testing.T) {
	d := NewDispatcher(0, &collectingService{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
}
