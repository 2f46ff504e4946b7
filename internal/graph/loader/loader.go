// Package loader materializes a derived graph model into the store.
// Nodes go first, relationships second, and every write is an idempotent
// upsert: loading the same model twice leaves the graph unchanged.
package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ecom-graph/backend/internal/clickstream"
	"github.com/ecom-graph/backend/internal/graph/model"
	"github.com/ecom-graph/backend/internal/graph/neo4j"
	"github.com/ecom-graph/backend/pkg/logger"
)

// Store is the slice of the graph store the loader needs. The concrete
// *neo4j.Client satisfies it; tests substitute a fake.
type Store interface {
	MergeNode(ctx context.Context, label, keyField, keyValue string, props map[string]any) error
	MergeRelationship(ctx context.Context, from, to neo4j.Endpoint, relType string, props map[string]any) error
}

// FailedRelationship records one relationship upsert that the store
// rejected, with enough context to replay it by hand.
type FailedRelationship struct {
	RelType string
	FromKey string
	ToKey   string
	Reason  string
}

// Result is the structured outcome of one load: what was written, what
// was attempted, and exactly which relationships failed.
type Result struct {
	NodesByLabel           map[string]int
	RelationshipsByType    map[string]int
	RelationshipsAttempted int
	RelationshipsCreated   int
	Failures               []FailedRelationship
}

// NodesCreated is the total node upsert count across labels.
func (r *Result) NodesCreated() int {
	total := 0
	for _, n := range r.NodesByLabel {
		total += n
	}
	return total
}

type Loader struct {
	store Store
}

func NewLoader(store Store) *Loader {
	return &Loader{store: store}
}

// Load writes the model into the store. A node failure aborts the run,
// because every relationship depends on its endpoints existing. A
// relationship failure is logged, recorded in the result, and skipped;
// the load is best-effort past the node phase.
func (l *Loader) Load(ctx context.Context, m *model.Model) (*Result, error) {
	result := &Result{
		NodesByLabel:        make(map[string]int),
		RelationshipsByType: make(map[string]int),
	}

	if err := l.loadNodes(ctx, m, result); err != nil {
		return result, err
	}
	l.loadRelationships(ctx, m, result)

	logger.Info("Graph load finished",
		zap.Int("nodes", result.NodesCreated()),
		zap.Int("relationships_attempted", result.RelationshipsAttempted),
		zap.Int("relationships_created", result.RelationshipsCreated),
		zap.Int("relationships_failed", len(result.Failures)),
	)

	return result, nil
}

func (l *Loader) loadNodes(ctx context.Context, m *model.Model, result *Result) error {
	for _, userID := range m.Users {
		if err := l.mergeNode(ctx, result, model.LabelUser, model.KeyUser, userID, nil); err != nil {
			return err
		}
	}

	for _, sessionID := range m.Sessions {
		if err := l.mergeNode(ctx, result, model.LabelSession, model.KeySession, sessionID, nil); err != nil {
			return err
		}
	}

	for _, productID := range m.Products {
		props := map[string]any{"name": productID}
		if err := l.mergeNode(ctx, result, model.LabelProduct, model.KeyProduct, productID, props); err != nil {
			return err
		}
	}

	for _, outcome := range m.Outcomes {
		props := map[string]any{
			"name":   model.OutcomeNamePurchase,
			"amount": amountOrZero(outcome.Amount),
		}
		if err := l.mergeNode(ctx, result, model.LabelOutcome, model.KeyOutcome, outcome.EventID, props); err != nil {
			return err
		}
	}

	for _, event := range m.Events {
		props := map[string]any{
			"session_id": event.SessionID,
			"type_raw":   event.TypeRaw,
		}
		if event.Timestamp != nil {
			props["ts"] = clickstream.FormatTimestamp(*event.Timestamp)
		}
		if err := l.mergeNode(ctx, result, model.LabelEvent, model.KeyEvent, event.EventID, props); err != nil {
			return err
		}
	}

	return nil
}

func (l *Loader) mergeNode(ctx context.Context, result *Result, label, keyField, keyValue string, props map[string]any) error {
	if err := l.store.MergeNode(ctx, label, keyField, keyValue, props); err != nil {
		return fmt.Errorf("node load aborted at %s %s: %w", label, keyValue, err)
	}
	result.NodesByLabel[label]++
	return nil
}

func (l *Loader) loadRelationships(ctx context.Context, m *model.Model, result *Result) {
	for _, edge := range m.Started {
		l.mergeRelationship(ctx, result,
			endpoint(model.LabelUser, model.KeyUser, edge.UserID),
			endpoint(model.LabelSession, model.KeySession, edge.SessionID),
			model.RelStarted, nil)
	}

	for _, edge := range m.Contains {
		l.mergeRelationship(ctx, result,
			endpoint(model.LabelSession, model.KeySession, edge.SessionID),
			endpoint(model.LabelEvent, model.KeyEvent, edge.EventID),
			model.RelContains, nil)
	}

	for _, edge := range m.Next {
		l.mergeRelationship(ctx, result,
			endpoint(model.LabelEvent, model.KeyEvent, edge.FromEventID),
			endpoint(model.LabelEvent, model.KeyEvent, edge.ToEventID),
			model.RelNext, map[string]any{"delta_s": edge.DeltaS})
	}

	for _, edge := range m.About {
		l.mergeRelationship(ctx, result,
			endpoint(model.LabelEvent, model.KeyEvent, edge.EventID),
			endpoint(model.LabelProduct, model.KeyProduct, edge.ProductID),
			model.RelAbout, nil)
	}

	for _, outcome := range m.Outcomes {
		l.mergeRelationship(ctx, result,
			endpoint(model.LabelEvent, model.KeyEvent, outcome.EventID),
			endpoint(model.LabelOutcome, model.KeyOutcome, outcome.EventID),
			model.RelResultedIn, map[string]any{"amount": amountOrZero(outcome.Amount)})
	}
}

func (l *Loader) mergeRelationship(ctx context.Context, result *Result, from, to neo4j.Endpoint, relType string, props map[string]any) {
	result.RelationshipsAttempted++

	if err := l.store.MergeRelationship(ctx, from, to, relType, props); err != nil {
		logger.Error("Relationship upsert failed",
			zap.String("type", relType),
			zap.String("from", from.KeyValue),
			zap.String("to", to.KeyValue),
			zap.Error(err),
		)
		result.Failures = append(result.Failures, FailedRelationship{
			RelType: relType,
			FromKey: from.KeyValue,
			ToKey:   to.KeyValue,
			Reason:  err.Error(),
		})
		return
	}

	result.RelationshipsCreated++
	result.RelationshipsByType[relType]++
}

func endpoint(label, keyField, keyValue string) neo4j.Endpoint {
	return neo4j.Endpoint{Label: label, KeyField: keyField, KeyValue: keyValue}
}

func amountOrZero(amount *float64) float64 {
	if amount == nil {
		return 0.0
	}
	return *amount
}
