package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ecom-graph/backend/internal/clickstream"
	"github.com/ecom-graph/backend/pkg/logger"
)

func newPrepareCmd() *cobra.Command {
	var csvPath string
	var jsonPath string
	var subsetPath string
	var userCap int

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Convert the raw clickstream CSV into the normalized JSON dataset",
		Long:  "Reads the raw CSV export, normalizes nulls, timestamps and amounts, writes the full JSON dataset, and optionally a subset capped to the first N users encountered.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath == "" {
				csvPath = cfg.Data.CSVPath
			}
			if jsonPath == "" {
				jsonPath = cfg.Data.JSONPath
			}
			if subsetPath == "" {
				subsetPath = cfg.Data.SubsetPath
			}
			if userCap < 0 {
				userCap = cfg.Data.UserCap
			}

			raws, err := clickstream.ReadCSV(csvPath)
			if err != nil {
				return fmt.Errorf("cannot read input file: %w", err)
			}

			records := clickstream.NormalizeAll(raws)
			if err := clickstream.WriteJSON(jsonPath, records); err != nil {
				return err
			}

			if userCap > 0 {
				subset := clickstream.SubsetByUsers(records, userCap)
				if err := clickstream.WriteJSON(subsetPath, subset); err != nil {
					return err
				}
			}

			logger.Info("Dataset prepared",
				zap.String("csv", csvPath),
				zap.String("json", jsonPath),
				zap.Int("records", len(records)),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "raw clickstream CSV path (default from config)")
	cmd.Flags().StringVar(&jsonPath, "out", "", "output JSON dataset path (default from config)")
	cmd.Flags().StringVar(&subsetPath, "subset-out", "", "output path for the user-capped subset (default from config)")
	cmd.Flags().IntVar(&userCap, "users", -1, "cap the subset to the first N users encountered; 0 disables the subset (default from config)")

	return cmd
}
