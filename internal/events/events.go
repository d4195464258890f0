package events

import (
	"context"
)

// HOAUpdated announces that stored HOA data changed.
type HOAUpdated struct {
	HOAID  string
	Reason string
}

const (
	ReasonEnriched = "enriched"
	ReasonAnalyzed = "analyzed"
)

type Publisher interface {
	PublishHOAUpdated(ctx context.Context, evt HOAUpdated)
	SubscribeHOAUpdated() <-chan HOAUpdated
}

type inMemory struct{ ch chan HOAUpdated }

// NewInMemory returns a single-consumer publisher. Events are dropped when
// the buffer is full.
func NewInMemory(buffer int) Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemory{ch: make(chan HOAUpdated, buffer)}
}

func (m *inMemory) PublishHOAUpdated(_ context.Context, evt HOAUpdated) {
	select {
	case m.ch <- evt:
	default:
	}
}

func (m *inMemory) SubscribeHOAUpdated() <-chan HOAUpdated { return m.ch }
