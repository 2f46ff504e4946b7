package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ecom-graph/backend/internal/cache/redis"
	"github.com/ecom-graph/backend/internal/clickstream"
	"github.com/ecom-graph/backend/internal/graph/loader"
	"github.com/ecom-graph/backend/internal/graph/model"
	"github.com/ecom-graph/backend/internal/graph/neo4j"
	"github.com/ecom-graph/backend/internal/storage/models"
	"github.com/ecom-graph/backend/internal/storage/sqlite"
	"github.com/ecom-graph/backend/pkg/logger"
)

func newLoadCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Rebuild the property graph from a JSON dataset",
		Long:  "Reads the dataset, buckets records into sessions, derives the node/edge model, clears the graph store, and loads the model with idempotent upserts. The run result is persisted to the run-history database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				inputPath = cfg.Data.JSONPath
			}
			return runLoad(context.Background(), inputPath)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "JSON dataset path (default from config)")

	return cmd
}

func runLoad(ctx context.Context, inputPath string) error {
	raws, err := clickstream.ReadJSON(inputPath)
	if err != nil {
		return fmt.Errorf("cannot read input file: %w", err)
	}

	records := clickstream.NormalizeAll(raws)
	buckets := clickstream.Bucket(records)
	m := model.Build(buckets)

	logger.Info("Graph model derived",
		zap.Int("records", len(records)),
		zap.Int("users", len(m.Users)),
		zap.Int("sessions", len(m.Sessions)),
		zap.Int("events", len(m.Events)),
		zap.Int("products", len(m.Products)),
		zap.Int("nodes", m.NodeCount()),
		zap.Int("edges", m.EdgeCount()),
	)

	store, err := neo4j.NewClient(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
	)
	if err != nil {
		return fmt.Errorf("graph store unreachable: %w", err)
	}
	defer store.Close(ctx)

	startedAt := time.Now()

	if err := store.DeleteAll(ctx); err != nil {
		return err
	}

	result, loadErr := loader.NewLoader(store).Load(ctx, m)

	var purged int64
	if loadErr == nil {
		purged, err = store.PurgeDetachedOutcomes(ctx)
		if err != nil {
			logger.Warn("Outcome cleanup failed", zap.Error(err))
		}
	}

	recordRun(inputPath, m, result, loadErr, purged, startedAt, len(records))
	invalidateReportCache(ctx)

	printLoadSummary(m, result, purged)

	return loadErr
}

func recordRun(inputPath string, m *model.Model, result *loader.Result, loadErr error, purged int64, startedAt time.Time, records int) {
	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		logger.Warn("Run history unavailable", zap.Error(err))
		return
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		logger.Warn("Run history schema init failed", zap.Error(err))
		return
	}

	status := models.RunStatusSucceeded
	if loadErr != nil {
		status = models.RunStatusFailed
	} else if len(result.Failures) > 0 {
		status = models.RunStatusPartial
	}

	run := &models.LoadRun{
		ID:             uuid.New().String(),
		InputPath:      inputPath,
		Records:        records,
		Users:          len(m.Users),
		Sessions:       len(m.Sessions),
		Events:         len(m.Events),
		NodesCreated:   result.NodesCreated(),
		RelsAttempted:  result.RelationshipsAttempted,
		RelsCreated:    result.RelationshipsCreated,
		RelsFailed:     len(result.Failures),
		OutcomesPurged: purged,
		Status:         status,
		StartedAt:      startedAt,
		FinishedAt:     time.Now(),
	}

	if err := db.InsertLoadRun(run); err != nil {
		logger.Warn("Failed to record load run", zap.Error(err))
		return
	}

	for _, failure := range result.Failures {
		err := db.InsertLoadFailure(&models.LoadFailure{
			RunID:   run.ID,
			RelType: failure.RelType,
			FromKey: failure.FromKey,
			ToKey:   failure.ToKey,
			Reason:  failure.Reason,
		})
		if err != nil {
			logger.Warn("Failed to record load failure", zap.Error(err))
		}
	}
}

func invalidateReportCache(ctx context.Context) {
	if !cfg.Redis.Enabled {
		return
	}

	cache, err := redis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.Redis.TTLSec)*time.Second,
	)
	if err != nil {
		logger.Warn("Report cache unreachable, skipping invalidation", zap.Error(err))
		return
	}
	defer cache.Close()

	if err := cache.Invalidate(ctx); err != nil {
		logger.Warn("Report cache invalidation failed", zap.Error(err))
	}
}

func printLoadSummary(m *model.Model, result *loader.Result, purged int64) {
	fmt.Printf("Load finished\n")
	fmt.Printf("  users=%d sessions=%d events=%d products=%d outcomes=%d\n",
		len(m.Users), len(m.Sessions), len(m.Events), len(m.Products), len(m.Outcomes))
	fmt.Printf("  nodes created: %d\n", result.NodesCreated())
	fmt.Printf("  relationships: %d/%d created", result.RelationshipsCreated, result.RelationshipsAttempted)
	if len(result.Failures) > 0 {
		fmt.Printf(" (%d failed)", len(result.Failures))
	}
	fmt.Println()
	if purged > 0 {
		fmt.Printf("  detached outcomes purged: %d\n", purged)
	}
}
