package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecom-graph/backend/pkg/config"
	"github.com/ecom-graph/backend/pkg/logger"
)

var cfg *config.Config

func main() {
	root := &cobra.Command{
		Use:           "ecomgraph",
		Short:         "Clickstream-to-graph pipeline and analytics",
		Long:          "Ingests e-commerce clickstream records, projects them into a Neo4j property graph, and reports behavioral analytics over the loaded graph.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
	}

	root.AddCommand(newPrepareCmd())
	root.AddCommand(newLoadCmd())
	root.AddCommand(newReportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
