package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
)

type collectingSink struct {
	delivered []domain.Event
	failAfter int
}

func (s *collectingSink) Deliver(_ context.Context, event domain.Event) error {
	if s.failAfter > 0 && len(s.delivered) >= s.failAfter {
		return errors.New("broker unavailable")
	}
	s.delivered = append(s.delivered, event)
	return nil
}

func TestOutboxRelay_DrainMarksDispatched(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")
	e.submitTotal(t, rfq, "sup-a", 500)

	sink := &collectingSink{}
	relay := NewOutboxRelay(e.store, sink, quietLogger(), 50)

	n, err := relay.DrainOnce(context.Background())
	require.NoError(t, err)
	// RfqPublished, BiddingOpened, QuoteSubmitted.
	require.Equal(t, 3, n)
	require.Len(t, sink.delivered, 3)
	require.Equal(t, domain.EventRFQPublished, sink.delivered[0].Kind)

	pending, err := e.store.PendingEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, pending)

	// A second pass has nothing left to deliver.
	n, err = relay.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestOutboxRelay_SinkFailureRetainsUndelivered(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")
	e.submitTotal(t, rfq, "sup-a", 500)

	sink := &collectingSink{failAfter: 1}
	relay := NewOutboxRelay(e.store, sink, quietLogger(), 50)

	n, err := relay.DrainOnce(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, n)

	// The failed and subsequent events stay pending for the next pass.
	pending, err := e.store.PendingEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	sink.failAfter = 0
	n, err = relay.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, sink.delivered, 3)
}

func TestOutboxRelay_BatchLimitRespected(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	rfq := e.openForBidding(t, nil, "sup-a")
	e.submitTotal(t, rfq, "sup-a", 500)

	sink := &collectingSink{}
	relay := NewOutboxRelay(e.store, sink, quietLogger(), 2)

	n, err := relay.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = relay.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
