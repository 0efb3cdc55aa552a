package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

func TestGateway_ChargesUntilCeiling(t *testing.T) {
	t.Parallel()

	// Room for exactly two search-page charges.
	g := New(0.004, nil)
	ctx := context.Background()

	res, err := g.Charge(ctx, harvest.EventSearchPage)
	require.NoError(t, err)
	require.True(t, res.Charged)
	require.False(t, res.LimitReached)

	res, err = g.Charge(ctx, harvest.EventSearchPage)
	require.NoError(t, err)
	require.True(t, res.Charged)
	require.True(t, res.LimitReached)

	res, err = g.Charge(ctx, harvest.EventSearchPage)
	require.NoError(t, err)
	require.False(t, res.Charged)
	require.True(t, res.LimitReached)

	require.InDelta(t, 0.004, g.Total(), 1e-9)
}

func TestGateway_RefusesChargeThatWouldExceed(t *testing.T) {
	t.Parallel()

	g := New(0.010, nil)
	ctx := context.Background()

	res, err := g.Charge(ctx, harvest.EventFullProfile)
	require.NoError(t, err)
	require.True(t, res.Charged)

	// 0.002 left; an email-tier charge must be refused, the total untouched.
	res, err = g.Charge(ctx, harvest.EventProfileWithEmail)
	require.NoError(t, err)
	require.False(t, res.Charged)
	require.True(t, res.LimitReached)
	require.InDelta(t, 0.008, g.Total(), 1e-9)
}

func TestGateway_UnknownEvent(t *testing.T) {
	t.Parallel()

	g := New(1, nil)
	_, err := g.Charge(context.Background(), "mystery-event")
	require.Error(t, err)
}
