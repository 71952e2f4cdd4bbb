package events

import (
	"context"
)

// AppraisalChanged is published whenever data feeding an appraisal's valuation
// is written: the appraisal itself, its comparables or their adjustments.
type AppraisalChanged struct {
	AppraisalID string
	Reason      string
}

type Publisher interface {
	PublishAppraisalChanged(ctx context.Context, evt AppraisalChanged)
	SubscribeAppraisalChanged() <-chan AppraisalChanged
}

type inMemory struct{ ch chan AppraisalChanged }

// NewInMemory returns a single-subscriber publisher. Publish never blocks;
// events are dropped when the buffer is full.
func NewInMemory(buffer int) Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemory{ch: make(chan AppraisalChanged, buffer)}
}

func (m *inMemory) PublishAppraisalChanged(_ context.Context, evt AppraisalChanged) {
	select {
	case m.ch <- evt:
	default:
	}
}

func (m *inMemory) SubscribeAppraisalChanged() <-chan AppraisalChanged { return m.ch }
