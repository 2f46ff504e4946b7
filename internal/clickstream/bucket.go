package clickstream

import "sort"

// SessionKey identifies one session bucket. SessionID already carries the
// user prefix; UserID is kept alongside so the graph builder never has to
// split the composite back apart.
type SessionKey struct {
	UserID    string
	SessionID string
}

// Bucket groups normalized records by (user, session) and sorts each group
// chronologically. The sort is stable: records without a resolvable
// timestamp hold their encounter position relative to their neighbors.
func Bucket(records []Record) map[SessionKey][]Record {
	buckets := make(map[SessionKey][]Record)
	for _, rec := range records {
		key := SessionKey{UserID: rec.UserID, SessionID: rec.SessionID()}
		buckets[key] = append(buckets[key], rec)
	}

	for key, items := range buckets {
		sort.SliceStable(items, func(i, j int) bool {
			ti, tj := items[i].Timestamp, items[j].Timestamp
			if ti == nil || tj == nil {
				return false
			}
			return ti.Before(*tj)
		})
		buckets[key] = items
	}

	return buckets
}

// SortedKeys returns bucket keys in a deterministic order so bucket
// iteration is reproducible run to run.
func SortedKeys(buckets map[SessionKey][]Record) []SessionKey {
	keys := make([]SessionKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].UserID != keys[j].UserID {
			return keys[i].UserID < keys[j].UserID
		}
		return keys[i].SessionID < keys[j].SessionID
	})
	return keys
}
