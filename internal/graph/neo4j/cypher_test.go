package neo4j

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecom-graph/backend/internal/graph/model"
)

func TestValidateLabelKey(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		keyField string
		wantErr  string
	}{
		{"known label and key", model.LabelUser, model.KeyUser, ""},
		{"outcome merges on event id", model.LabelOutcome, model.KeyOutcome, ""},
		{"unknown label", "Admin", "user_id", "unknown node label"},
		{"wrong key for label", model.LabelUser, "session_id", "merges on user_id"},
		{"injection attempt", "User) DETACH DELETE (n", "user_id", "unknown node label"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateLabelKey(tc.label, tc.keyField)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateRelType(t *testing.T) {
	for _, relType := range []string{
		model.RelStarted, model.RelContains, model.RelNext, model.RelAbout, model.RelResultedIn,
	} {
		require.NoError(t, validateRelType(relType))
	}

	require.Error(t, validateRelType("KNOWS"))
	require.Error(t, validateRelType("NEXT]->() DETACH DELETE"))
}

func TestValidatePropKeys(t *testing.T) {
	require.NoError(t, validatePropKeys(nil))
	require.NoError(t, validatePropKeys(map[string]any{"delta_s": int64(3), "amount": 1.5}))
	require.Error(t, validatePropKeys(map[string]any{"delta s": 3}))
	require.Error(t, validatePropKeys(map[string]any{"x: 1} DETACH DELETE (n) //": 3}))
}

func TestNodeMergeQuery(t *testing.T) {
	require.Equal(t,
		"MERGE (n:User {user_id: $key}) SET n += $props",
		nodeMergeQuery(model.LabelUser, model.KeyUser))
}

func TestRelationshipMergeQuery_NoProps(t *testing.T) {
	got := relationshipMergeQuery(
		Endpoint{Label: model.LabelUser, KeyField: model.KeyUser, KeyValue: "7"},
		Endpoint{Label: model.LabelSession, KeyField: model.KeySession, KeyValue: "7_s1"},
		model.RelStarted, nil)

	require.Equal(t,
		"MERGE (a:User {user_id: $from_key})\n"+
			"MERGE (b:Session {session_id: $to_key})\n"+
			"MERGE (a)-[r:STARTED]->(b)",
		got)
}

func TestRelationshipMergeQuery_PropsInsidePattern(t *testing.T) {
	got := relationshipMergeQuery(
		Endpoint{Label: model.LabelEvent, KeyField: model.KeyEvent, KeyValue: "a#0001"},
		Endpoint{Label: model.LabelEvent, KeyField: model.KeyEvent, KeyValue: "a#0002"},
		model.RelNext, map[string]any{"delta_s": int64(10)})

	require.Contains(t, got, "MERGE (a)-[r:NEXT {delta_s: $p_delta_s}]->(b)")
}

func TestRelPropsPattern_SortedKeys(t *testing.T) {
	got := relPropsPattern(map[string]any{"zeta": 1, "amount": 2, "mid": 3})
	require.Equal(t, " {amount: $p_amount, mid: $p_mid, zeta: $p_zeta}", got)
}
