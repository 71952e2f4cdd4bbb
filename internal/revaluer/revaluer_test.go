package revaluer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourorg/appraisal-api/internal/appraisal"
	"github.com/yourorg/appraisal-api/internal/events"
	"github.com/yourorg/appraisal-api/internal/refresh"
	"github.com/yourorg/appraisal-api/internal/store"
)

type recordingService struct {
	mu          sync.Mutex
	recomputed  []string
	invalidated []string
	err         error
}

func (s *recordingService) Recompute(_ context.Context, id string) (appraisal.Valuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputed = append(s.recomputed, id)
	return appraisal.Valuation{AppraisalID: id}, s.err
}

func (s *recordingService) Invalidate(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, id)
}

func (s *recordingService) snapshot() ([]string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recomputed...), append([]string(nil), s.invalidated...)
}

func TestRevaluer_EventsTriggerRecompute(t *testing.T) {
	pub := events.NewInMemory(8)
	svc := &recordingService{}
	rv := &Revaluer{Pub: pub, Service: svc}
	q := refresh.New(8, 1, time.Second, rv.Revalue)
	rv.Queue = q

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rv.Run(ctx)
		close(done)
	}()

	pub.PublishAppraisalChanged(ctx, events.AppraisalChanged{AppraisalID: "a1", Reason: "comparable.created"})
	pub.PublishAppraisalChanged(ctx, events.AppraisalChanged{AppraisalID: "a2", Reason: "adjustment.created"})

	assert.Eventually(t, func() bool {
		rec, _ := svc.snapshot()
		return len(rec) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	q.Close()

	rec, inv := svc.snapshot()
	assert.ElementsMatch(t, []string{"a1", "a2"}, rec)
	assert.Equal(t, []string{"a1", "a2"}, inv)
}

func TestRevalue_SwallowsMissingAppraisal(t *testing.T) {
	svc := &recordingService{err: store.ErrNotFound}
	rv := &Revaluer{Service: svc}
	rv.Revalue(context.Background(), refresh.Job{Key: "gone"})
	rec, _ := svc.snapshot()
	assert.Equal(t, []string{"gone"}, rec)
}

func TestRevaluer_StopsBeforeQueueCloses(t *testing.T) {
	pub := events.NewInMemory(64)
	svc := &recordingService{}
	rv := &Revaluer{Pub: pub, Service: svc}
	q := refresh.New(64, 1, time.Second, rv.Revalue)
	rv.Queue = q

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		rv.Run(ctx)
	}()

	stopPublishing := make(chan struct{})
	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		for i := 0; ; i++ {
			select {
			case <-stopPublishing:
				return
			default:
				pub.PublishAppraisalChanged(context.Background(), events.AppraisalChanged{AppraisalID: fmt.Sprintf("a%d", i), Reason: "comparable.updated"})
			}
		}
	}()

	cancel()
	<-done
	assert.NotPanics(t, q.Close)

	close(stopPublishing)
	<-publisherDone
	assert.False(t, q.Enqueue(refresh.Job{Key: "late"}))
}
