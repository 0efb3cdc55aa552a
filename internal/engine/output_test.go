package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/billing/local"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/budget"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
	sinkmemory "github.com/HarvestAPI/apify-linkedin-profile-search/internal/sink/memory"
)

func newOutput(mode harvest.ScraperMode, ceiling float64) (*Output, *sinkmemory.Sink, *budget.Governor) {
	sink := sinkmemory.NewSink()
	governor := budget.NewGovernor(local.New(ceiling, nil), nil)
	return NewOutput(sink, governor, mode, nil), sink, governor
}

func TestEmitIgnoresSkippedAndFailed(t *testing.T) {
	t.Parallel()

	out, sink, _ := newOutput(harvest.ModeFull, 100)

	res, err := out.Emit(context.Background(), Routed{Skipped: true}, nil)
	require.NoError(t, err)
	assert.False(t, res.Written)

	res, err = out.Emit(context.Background(), Routed{Failed: true}, nil)
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Zero(t, sink.Len())
}

func TestEmitShortModeUncharged(t *testing.T) {
	t.Parallel()

	out, sink, governor := newOutput(harvest.ModeShort, 100)
	hit := &harvest.SearchHit{ID: "abc", LinkedinURL: "https://www.linkedin.com/in/abc"}

	res, err := out.Emit(context.Background(), Routed{Hit: hit}, &harvest.Pagination{Page: 1})
	require.NoError(t, err)
	assert.True(t, res.Written)

	writes := sink.Writes()
	require.Len(t, writes, 1)
	assert.Empty(t, writes[0].Category)
	assert.Equal(t, "abc", writes[0].Item.Hit.ID)
	require.NotNil(t, writes[0].Item.Meta.Pagination)
	assert.Empty(t, governor.Counts(), "hits are covered by the page charge")
}

func TestEmitFullModeChargesPerItem(t *testing.T) {
	t.Parallel()

	out, sink, governor := newOutput(harvest.ModeFull, 100)
	profile := &harvest.Profile{ID: "profile-abc"}

	res, err := out.Emit(context.Background(), Routed{Profile: profile}, nil)
	require.NoError(t, err)
	assert.True(t, res.Written)

	writes := sink.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, harvest.EventFullProfile, writes[0].Category)
	assert.Equal(t, 1, governor.Counts()[harvest.EventFullProfile])
}

func TestEmitEmailModeChargesByPayments(t *testing.T) {
	t.Parallel()

	out, sink, governor := newOutput(harvest.ModeEmail, 100)

	_, err := out.Emit(context.Background(), Routed{
		Profile:  &harvest.Profile{ID: "with-email", Email: "a@b.c"},
		Payments: []string{harvest.PaymentProfileWithEmail},
	}, nil)
	require.NoError(t, err)

	_, err = out.Emit(context.Background(), Routed{
		Profile: &harvest.Profile{ID: "without-email"},
	}, nil)
	require.NoError(t, err)

	writes := sink.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, harvest.EventProfileWithEmail, writes[0].Category)
	assert.Equal(t, harvest.EventFullProfile, writes[1].Category)
	assert.Equal(t, 1, governor.Counts()[harvest.EventProfileWithEmail])
	assert.Equal(t, 1, governor.Counts()[harvest.EventFullProfile])
}

// A refused charge yields no write; the item that paid the last cent is
// still delivered.
func TestEmitRefusedChargeDropsItem(t *testing.T) {
	t.Parallel()

	out, sink, _ := newOutput(harvest.ModeFull, 0.008)

	res, err := out.Emit(context.Background(), Routed{Profile: &harvest.Profile{ID: "one"}}, nil)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.True(t, res.LimitReached, "the last affordable charge reports the ceiling")

	res, err = out.Emit(context.Background(), Routed{Profile: &harvest.Profile{ID: "two"}}, nil)
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.True(t, res.LimitReached)
	assert.Equal(t, 1, sink.Len())
}
