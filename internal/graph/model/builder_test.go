package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecom-graph/backend/internal/clickstream"
)

func tsPtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed := clickstream.ParseTimestamp(value)
	require.NotNil(t, parsed, "failed to parse %q", value)
	return parsed
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestBuild_SingleSessionWalk(t *testing.T) {
	records := []clickstream.Record{
		{
			UserID: "7", SessionLocalID: "s1",
			Timestamp: tsPtr(t, "2024-03-01T10:00:00Z"),
			EventType: "view", ProductID: strPtr("p1"),
		},
		{
			UserID: "7", SessionLocalID: "s1",
			Timestamp: tsPtr(t, "2024-03-01T10:00:10Z"),
			EventType: "click", ProductID: strPtr("p1"),
		},
		{
			UserID: "7", SessionLocalID: "s1",
			Timestamp: tsPtr(t, "2024-03-01T10:00:40Z"),
			EventType: "purchase", ProductID: strPtr("p1"), Amount: floatPtr(9.99),
		},
	}

	m := Build(clickstream.Bucket(records))

	require.Equal(t, []string{"7"}, m.Users)
	require.Equal(t, []string{"7_s1"}, m.Sessions)
	require.Equal(t, []string{"p1"}, m.Products)

	require.Len(t, m.Events, 3)
	require.Equal(t, "7_s1#0001", m.Events[0].EventID)
	require.Equal(t, "7_s1#0002", m.Events[1].EventID)
	require.Equal(t, "7_s1#0003", m.Events[2].EventID)

	require.Equal(t, []StartedEdge{{UserID: "7", SessionID: "7_s1"}}, m.Started)
	require.Len(t, m.Contains, 3)

	require.Equal(t, []NextEdge{
		{FromEventID: "7_s1#0001", ToEventID: "7_s1#0002", DeltaS: 10},
		{FromEventID: "7_s1#0002", ToEventID: "7_s1#0003", DeltaS: 30},
	}, m.Next)

	require.Len(t, m.About, 3)
	require.Equal(t, []Outcome{{EventID: "7_s1#0003", Amount: floatPtr(9.99)}}, m.Outcomes)
}

func TestBuild_NextSkipsMissingTimestampsButCursorAdvances(t *testing.T) {
	records := []clickstream.Record{
		{UserID: "1", SessionLocalID: "a", Timestamp: tsPtr(t, "2024-03-01T10:00:00Z"), EventType: "view"},
		{UserID: "1", SessionLocalID: "a", EventType: "click"},
		{UserID: "1", SessionLocalID: "a", Timestamp: tsPtr(t, "2024-03-01T10:00:20Z"), EventType: "view"},
	}

	m := Build(clickstream.Bucket(records))

	// The untimed middle event breaks the chain on both sides: no edge into
	// it, and the following event has no timed predecessor to link from.
	require.Empty(t, m.Next)
	require.Len(t, m.Events, 3)
}

func TestBuild_NextResumesAfterGap(t *testing.T) {
	records := []clickstream.Record{
		{UserID: "1", SessionLocalID: "a", EventType: "view"},
		{UserID: "1", SessionLocalID: "a", Timestamp: tsPtr(t, "2024-03-01T10:00:00Z"), EventType: "click"},
		{UserID: "1", SessionLocalID: "a", Timestamp: tsPtr(t, "2024-03-01T10:00:05Z"), EventType: "view"},
	}

	m := Build(clickstream.Bucket(records))

	require.Equal(t, []NextEdge{
		{FromEventID: "1_a#0002", ToEventID: "1_a#0003", DeltaS: 5},
	}, m.Next)
}

func TestBuild_DeltaClampedAtZero(t *testing.T) {
	// Equal-timestamp ties keep encounter order, and a later event can
	// still carry sub-second regressions. Either way the gap reports zero.
	buckets := map[clickstream.SessionKey][]clickstream.Record{
		{UserID: "1", SessionID: "1_a"}: {
			{UserID: "1", SessionLocalID: "a", Timestamp: tsPtr(t, "2024-03-01T10:00:00.900000Z"), EventType: "view"},
			{UserID: "1", SessionLocalID: "a", Timestamp: tsPtr(t, "2024-03-01T10:00:00.100000Z"), EventType: "click"},
		},
	}

	m := Build(buckets)
	require.Len(t, m.Next, 1)
	require.Equal(t, int64(0), m.Next[0].DeltaS)
}

func TestBuild_StartedDeduplicatedAcrossSessions(t *testing.T) {
	records := []clickstream.Record{
		{UserID: "1", SessionLocalID: "a", EventType: "view"},
		{UserID: "1", SessionLocalID: "b", EventType: "view"},
		{UserID: "2", SessionLocalID: "a", EventType: "view"},
	}

	m := Build(clickstream.Bucket(records))

	require.ElementsMatch(t, []StartedEdge{
		{UserID: "1", SessionID: "1_a"},
		{UserID: "1", SessionID: "1_b"},
		{UserID: "2", SessionID: "2_a"},
	}, m.Started)
	require.Equal(t, []string{"1", "2"}, m.Users)
}

func TestBuild_AboutOnlyForProductEvents(t *testing.T) {
	records := []clickstream.Record{
		{UserID: "1", SessionLocalID: "a", EventType: "page_view"},
		{UserID: "1", SessionLocalID: "a", EventType: "view", ProductID: strPtr("p9")},
	}

	m := Build(clickstream.Bucket(records))

	require.Len(t, m.About, 1)
	require.Equal(t, "p9", m.About[0].ProductID)
	require.Equal(t, []string{"p9"}, m.Products)
}

func TestBuild_PurchaseWithoutAmountStillYieldsOutcome(t *testing.T) {
	records := []clickstream.Record{
		{UserID: "1", SessionLocalID: "a", EventType: "purchase"},
	}

	m := Build(clickstream.Bucket(records))

	require.Len(t, m.Outcomes, 1)
	require.Equal(t, "1_a#0001", m.Outcomes[0].EventID)
	require.Nil(t, m.Outcomes[0].Amount)
}

func TestBuild_Deterministic(t *testing.T) {
	records := []clickstream.Record{
		{UserID: "3", SessionLocalID: "z", EventType: "view", ProductID: strPtr("p2")},
		{UserID: "1", SessionLocalID: "a", EventType: "purchase", Amount: floatPtr(5)},
		{UserID: "2", SessionLocalID: "m", EventType: "view", ProductID: strPtr("p1")},
	}

	first := Build(clickstream.Bucket(records))
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Build(clickstream.Bucket(records)))
	}
}

func TestModelCounts(t *testing.T) {
	m := &Model{
		Users:    []string{"1"},
		Sessions: []string{"1_a"},
		Products: []string{"p1"},
		Events:   []Event{{EventID: "1_a#0001"}, {EventID: "1_a#0002"}},
		Started:  []StartedEdge{{UserID: "1", SessionID: "1_a"}},
		Contains: []ContainsEdge{{SessionID: "1_a", EventID: "1_a#0001"}, {SessionID: "1_a", EventID: "1_a#0002"}},
		Next:     []NextEdge{{FromEventID: "1_a#0001", ToEventID: "1_a#0002", DeltaS: 3}},
		About:    []AboutEdge{{EventID: "1_a#0001", ProductID: "p1"}},
		Outcomes: []Outcome{{EventID: "1_a#0002"}},
	}

	require.Equal(t, 6, m.NodeCount())
	require.Equal(t, 6, m.EdgeCount())
}
