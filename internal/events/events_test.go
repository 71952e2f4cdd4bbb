package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemory_DeliversInOrder(t *testing.T) {
	pub := NewInMemory(4)
	ctx := context.Background()
	pub.PublishAppraisalChanged(ctx, AppraisalChanged{AppraisalID: "a1", Reason: "comparable.created"})
	pub.PublishAppraisalChanged(ctx, AppraisalChanged{AppraisalID: "a2", Reason: "appraisal.updated"})

	sub := pub.SubscribeAppraisalChanged()
	assert.Equal(t, "a1", (<-sub).AppraisalID)
	assert.Equal(t, "a2", (<-sub).AppraisalID)
}

func TestInMemory_DropsWhenFull(t *testing.T) {
	pub := NewInMemory(1)
	ctx := context.Background()
	pub.PublishAppraisalChanged(ctx, AppraisalChanged{AppraisalID: "kept"})
	pub.PublishAppraisalChanged(ctx, AppraisalChanged{AppraisalID: "dropped"})

	sub := pub.SubscribeAppraisalChanged()
	assert.Equal(t, "kept", (<-sub).AppraisalID)
	select {
	case evt := <-sub:
		t.Fatalf("unexpected event %+v", evt)
	default:
	}
}
