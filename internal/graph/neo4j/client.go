// Package neo4j is the pipeline's boundary to the property-graph store.
// All writes are merge-based upserts so re-running a load never duplicates
// nodes or relationships.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ecom-graph/backend/pkg/circuitbreaker"
	"github.com/ecom-graph/backend/pkg/logger"
	"github.com/ecom-graph/backend/pkg/retry"
)

type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// Row is one record of a read query, keyed by return column name.
type Row map[string]any

func NewClient(uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri))

	return &Client{
		driver:      driver,
		database:    database,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// MergeNode upserts a node by its natural key, creating it if absent and
// overlaying props if present. Label and key field must match the schema
// whitelist.
func (c *Client) MergeNode(ctx context.Context, label, keyField, keyValue string, props map[string]any) error {
	if err := validateLabelKey(label, keyField); err != nil {
		return err
	}
	if err := validatePropKeys(props); err != nil {
		return err
	}

	query := nodeMergeQuery(label, keyField)
	params := map[string]any{
		"key":   keyValue,
		"props": props,
	}
	if props == nil {
		params["props"] = map[string]any{}
	}

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		_, err := session.Run(ctx, query, params)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to merge %s node %s: %w", label, keyValue, err)
	}

	logger.Debug("Node merged", zap.String("label", label), zap.String("key", keyValue))
	return nil
}

// MergeRelationship upserts a relationship, treating the
// (from-key, type, to-key, attributes) tuple as its identity. Endpoints
// are merged first so an edge never dangles.
func (c *Client) MergeRelationship(ctx context.Context, from, to Endpoint, relType string, props map[string]any) error {
	if err := validateLabelKey(from.Label, from.KeyField); err != nil {
		return err
	}
	if err := validateLabelKey(to.Label, to.KeyField); err != nil {
		return err
	}
	if err := validateRelType(relType); err != nil {
		return err
	}
	if err := validatePropKeys(props); err != nil {
		return err
	}

	query := relationshipMergeQuery(from, to, relType, props)
	params := map[string]any{
		"from_key": from.KeyValue,
		"to_key":   to.KeyValue,
	}
	for key, value := range props {
		params["p_"+key] = value
	}

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		_, err := session.Run(ctx, query, params)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to merge %s relationship %s->%s: %w",
			relType, from.KeyValue, to.KeyValue, err)
	}

	logger.Debug("Relationship merged",
		zap.String("type", relType),
		zap.String("from", from.KeyValue),
		zap.String("to", to.KeyValue),
	)
	return nil
}

// DeleteAll wipes the graph. The model is rebuilt from scratch every run.
func (c *Client) DeleteAll(ctx context.Context) error {
	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		_, err := session.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}

	logger.Info("Graph cleared")
	return nil
}

// PurgeDetachedOutcomes removes Outcome nodes that lack an originating
// event reference. Such nodes come from an older schema that shared one
// outcome node across events; none should survive a load.
func (c *Client) PurgeDetachedOutcomes(ctx context.Context) (int64, error) {
	var purged int64

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		result, err := session.Run(ctx, `
			MATCH (o:Outcome)
			WHERE o.event_id IS NULL
			DETACH DELETE o
			RETURN count(o) AS purged
		`, nil)
		if err != nil {
			return err
		}

		record, err := result.Single(ctx)
		if err != nil {
			return err
		}
		if v, ok := record.Get("purged"); ok {
			purged, _ = v.(int64)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge detached outcomes: %w", err)
	}

	if purged > 0 {
		logger.Warn("Detached outcome nodes purged", zap.Int64("count", purged))
	}
	return purged, nil
}

// ReadRows runs a read-only query and collects the result as tabular rows.
func (c *Client) ReadRows(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	var rows []Row

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		result, err := session.Run(ctx, query, params)
		if err != nil {
			return err
		}

		rows = nil
		for result.Next(ctx) {
			record := result.Record()
			row := make(Row, len(record.Keys))
			for _, key := range record.Keys {
				value, _ := record.Get(key)
				row[key] = value
			}
			rows = append(rows, row)
		}
		return result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("read query failed: %w", err)
	}

	return rows, nil
}
