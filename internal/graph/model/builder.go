package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/ecom-graph/backend/internal/clickstream"
)

// Build walks every session bucket once, in sorted key order, and emits
// the full node and edge set. Given the same input records the output is
// identical, independent of map iteration order.
func Build(buckets map[clickstream.SessionKey][]clickstream.Record) *Model {
	m := &Model{}

	userSet := make(map[string]struct{})
	productSet := make(map[string]struct{})
	startedSet := make(map[StartedEdge]struct{})

	for _, key := range clickstream.SortedKeys(buckets) {
		userSet[key.UserID] = struct{}{}
		m.Sessions = append(m.Sessions, key.SessionID)

		started := StartedEdge{UserID: key.UserID, SessionID: key.SessionID}
		if _, seen := startedSet[started]; !seen {
			startedSet[started] = struct{}{}
			m.Started = append(m.Started, started)
		}

		var lastEventID string
		var lastTS *time.Time

		for i, rec := range buckets[key] {
			// Sequences are fixed at four digits; a session past 9999
			// events would collide. Documented limitation, not wrapped.
			eventID := fmt.Sprintf("%s#%04d", key.SessionID, i+1)

			m.Events = append(m.Events, Event{
				EventID:   eventID,
				SessionID: key.SessionID,
				Timestamp: rec.Timestamp,
				TypeRaw:   rec.EventType,
			})
			m.Contains = append(m.Contains, ContainsEdge{
				SessionID: key.SessionID,
				EventID:   eventID,
			})

			if lastEventID != "" && lastTS != nil && rec.Timestamp != nil {
				m.Next = append(m.Next, NextEdge{
					FromEventID: lastEventID,
					ToEventID:   eventID,
					DeltaS:      secondsBetween(*lastTS, *rec.Timestamp),
				})
			}
			// The chain cursor advances even when no edge was emitted, so
			// the event after a missing-timestamp gap links to its
			// positional predecessor.
			lastEventID, lastTS = eventID, rec.Timestamp

			if rec.ProductID != nil {
				productSet[*rec.ProductID] = struct{}{}
				m.About = append(m.About, AboutEdge{
					EventID:   eventID,
					ProductID: *rec.ProductID,
				})
			}

			if rec.EventType == EventTypePurchase {
				m.Outcomes = append(m.Outcomes, Outcome{
					EventID: eventID,
					Amount:  rec.Amount,
				})
			}
		}
	}

	m.Users = sortedSet(userSet)
	m.Products = sortedSet(productSet)

	return m
}

// secondsBetween is the whole-second gap from t1 to t2, clamped at zero
// when the timestamps are inverted or equal.
func secondsBetween(t1, t2 time.Time) int64 {
	delta := int64(t2.Sub(t1) / time.Second)
	if delta < 0 {
		return 0
	}
	return delta
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
