package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecom-graph/backend/internal/graph/model"
	"github.com/ecom-graph/backend/internal/graph/neo4j"
)

// fakeStore records every upsert and simulates duplicates the way a real
// MERGE does: re-writing an existing node or relationship is a no-op.
type fakeStore struct {
	nodes map[string]map[string]any
	rels  map[string]struct{}
	calls []string

	failNodeKeys map[string]error
	failRelTypes map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:        make(map[string]map[string]any),
		rels:         make(map[string]struct{}),
		failNodeKeys: make(map[string]error),
		failRelTypes: make(map[string]error),
	}
}

func (f *fakeStore) MergeNode(_ context.Context, label, keyField, keyValue string, props map[string]any) error {
	if err, ok := f.failNodeKeys[keyValue]; ok {
		return err
	}
	f.calls = append(f.calls, "node:"+label)
	f.nodes[label+"/"+keyField+"="+keyValue] = props
	return nil
}

func (f *fakeStore) MergeRelationship(_ context.Context, from, to neo4j.Endpoint, relType string, props map[string]any) error {
	if err, ok := f.failRelTypes[relType]; ok {
		return err
	}
	f.calls = append(f.calls, "rel:"+relType)

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	identity := fmt.Sprintf("%s|%s=%s|%s=%s", relType, from.Label, from.KeyValue, to.Label, to.KeyValue)
	for _, k := range keys {
		identity += fmt.Sprintf("|%s=%v", k, props[k])
	}
	f.rels[identity] = struct{}{}
	return nil
}

func purchaseModel() *model.Model {
	amt := 9.99
	return &model.Model{
		Users:    []string{"7"},
		Sessions: []string{"7_s1"},
		Products: []string{"p1"},
		Events: []model.Event{
			{EventID: "7_s1#0001", SessionID: "7_s1", TypeRaw: "view"},
			{EventID: "7_s1#0002", SessionID: "7_s1", TypeRaw: "purchase"},
		},
		Started:  []model.StartedEdge{{UserID: "7", SessionID: "7_s1"}},
		Contains: []model.ContainsEdge{{SessionID: "7_s1", EventID: "7_s1#0001"}, {SessionID: "7_s1", EventID: "7_s1#0002"}},
		Next:     []model.NextEdge{{FromEventID: "7_s1#0001", ToEventID: "7_s1#0002", DeltaS: 12}},
		About:    []model.AboutEdge{{EventID: "7_s1#0001", ProductID: "p1"}},
		Outcomes: []model.Outcome{{EventID: "7_s1#0002", Amount: &amt}},
	}
}

func TestLoad_WritesEveryNodeAndRelationship(t *testing.T) {
	store := newFakeStore()
	result, err := NewLoader(store).Load(context.Background(), purchaseModel())
	require.NoError(t, err)

	require.Equal(t, map[string]int{
		model.LabelUser:    1,
		model.LabelSession: 1,
		model.LabelProduct: 1,
		model.LabelOutcome: 1,
		model.LabelEvent:   2,
	}, result.NodesByLabel)
	require.Equal(t, 6, result.NodesCreated())

	require.Equal(t, map[string]int{
		model.RelStarted:    1,
		model.RelContains:   2,
		model.RelNext:       1,
		model.RelAbout:      1,
		model.RelResultedIn: 1,
	}, result.RelationshipsByType)
	require.Equal(t, 6, result.RelationshipsAttempted)
	require.Equal(t, 6, result.RelationshipsCreated)
	require.Empty(t, result.Failures)
}

func TestLoad_NodesBeforeRelationships(t *testing.T) {
	store := newFakeStore()
	_, err := NewLoader(store).Load(context.Background(), purchaseModel())
	require.NoError(t, err)

	firstRel := -1
	lastNode := -1
	for i, call := range store.calls {
		switch call[:4] {
		case "node":
			lastNode = i
		case "rel:":
			if firstRel == -1 {
				firstRel = i
			}
		}
	}
	require.Greater(t, firstRel, lastNode)
}

func TestLoad_Idempotent(t *testing.T) {
	store := newFakeStore()
	loader := NewLoader(store)

	_, err := loader.Load(context.Background(), purchaseModel())
	require.NoError(t, err)
	nodesAfterFirst := len(store.nodes)
	relsAfterFirst := len(store.rels)

	_, err = loader.Load(context.Background(), purchaseModel())
	require.NoError(t, err)
	require.Equal(t, nodesAfterFirst, len(store.nodes))
	require.Equal(t, relsAfterFirst, len(store.rels))
}

func TestLoad_NodeFailureAborts(t *testing.T) {
	store := newFakeStore()
	store.failNodeKeys["7_s1"] = errors.New("connection reset")

	result, err := NewLoader(store).Load(context.Background(), purchaseModel())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Session 7_s1")

	require.Equal(t, 0, result.RelationshipsAttempted)
	for _, call := range store.calls {
		require.NotContains(t, call, "rel:")
	}
}

func TestLoad_RelationshipFailureIsRecordedAndSkipped(t *testing.T) {
	store := newFakeStore()
	store.failRelTypes[model.RelNext] = errors.New("deadlock detected")

	result, err := NewLoader(store).Load(context.Background(), purchaseModel())
	require.NoError(t, err)

	require.Equal(t, 6, result.RelationshipsAttempted)
	require.Equal(t, 5, result.RelationshipsCreated)
	require.Len(t, result.Failures, 1)
	require.Equal(t, model.RelNext, result.Failures[0].RelType)
	require.Equal(t, "7_s1#0001", result.Failures[0].FromKey)
	require.Equal(t, "7_s1#0002", result.Failures[0].ToKey)
	require.Contains(t, result.Failures[0].Reason, "deadlock")

	_, hasAbout := result.RelationshipsByType[model.RelAbout]
	require.True(t, hasAbout, "later relationship kinds still load after a failure")
}

func TestLoad_OutcomePropsAndNilAmount(t *testing.T) {
	store := newFakeStore()
	m := &model.Model{
		Events:   []model.Event{{EventID: "1_a#0001", SessionID: "1_a", TypeRaw: "purchase"}},
		Sessions: []string{"1_a"},
		Users:    []string{"1"},
		Outcomes: []model.Outcome{{EventID: "1_a#0001", Amount: nil}},
	}

	_, err := NewLoader(store).Load(context.Background(), m)
	require.NoError(t, err)

	props := store.nodes[model.LabelOutcome+"/"+model.KeyOutcome+"=1_a#0001"]
	require.Equal(t, model.OutcomeNamePurchase, props["name"])
	require.Equal(t, 0.0, props["amount"])
}
