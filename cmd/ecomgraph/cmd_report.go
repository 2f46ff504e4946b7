package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ecom-graph/backend/internal/analytics"
	"github.com/ecom-graph/backend/internal/cache/redis"
	"github.com/ecom-graph/backend/internal/graph/neo4j"
	"github.com/ecom-graph/backend/pkg/logger"
)

func newReportCmd() *cobra.Command {
	var topProducts int
	var topCustomers int
	var topPaths int
	var product string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the analytics reports over the loaded graph",
		Long:  "Prints top products with session-level conversion, top customers by purchases, ranked pre-purchase path patterns, and the strict view/click/add-to-cart/purchase funnel.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if topProducts <= 0 {
				topProducts = cfg.Report.TopProducts
			}
			if topCustomers <= 0 {
				topCustomers = cfg.Report.TopCustomers
			}
			if topPaths <= 0 {
				topPaths = cfg.Report.TopPaths
			}

			var productFilter *string
			if product != "" {
				productFilter = &product
			}

			return runReports(context.Background(), topProducts, topCustomers, topPaths, productFilter)
		},
	}

	cmd.Flags().IntVar(&topProducts, "top-products", 0, "number of products in the top-products report (default from config)")
	cmd.Flags().IntVar(&topCustomers, "top-customers", 0, "number of customers in the top-customers report (default from config)")
	cmd.Flags().IntVar(&topPaths, "paths", 0, "number of path patterns to rank (default from config)")
	cmd.Flags().StringVar(&product, "product", "", "restrict path and funnel reports to one product id")

	return cmd
}

func runReports(ctx context.Context, topProducts, topCustomers, topPaths int, productFilter *string) error {
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

	var cache analytics.Cache
	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			logger.Warn("Report cache unreachable, reading directly", zap.Error(err))
		} else {
			cache = rc
			defer rc.Close()
		}
	}

	client := analytics.NewClient(store, cache)
	reporter := analytics.NewReporter(client, os.Stdout)

	if err := reporter.TopProductsWithConversion(ctx, topProducts); err != nil {
		return err
	}
	if err := reporter.TopCustomers(ctx, topCustomers); err != nil {
		return err
	}
	if err := reporter.PathsBeforePurchase(ctx, topPaths, productFilter); err != nil {
		return err
	}
	return reporter.Funnel(ctx, productFilter)
}
