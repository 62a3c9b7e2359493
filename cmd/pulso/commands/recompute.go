package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulsohq/pulso/internal/batch"
	"github.com/pulsohq/pulso/internal/engine"
	"github.com/pulsohq/pulso/internal/period"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/pkg/config"
	"github.com/pulsohq/pulso/pkg/database"
	"github.com/pulsohq/pulso/pkg/logger"
)

// recomputeCmd represents the recompute command
var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute weekly performance records",
	Long: `Recomputes the weekly performance record for one venue-week,
or for every active venue when --all is set.

Year and week default to the current ISO week.

Example:
  go run ./cmd/pulso recompute --venue 7 --year 2026 --week 35
  go run ./cmd/pulso recompute --all --year 2026 --week 34
  go run ./cmd/pulso recompute --all --create-missing`,
	RunE: runRecompute,
}

var (
	recomputeVenue   int64
	recomputeYear    int
	recomputeWeek    int
	recomputeAll     bool
	recomputeLimit   int
	recomputeMissing bool
)

func init() {
	rootCmd.AddCommand(recomputeCmd)

	recomputeCmd.Flags().Int64Var(&recomputeVenue, "venue", 0, "venue ID")
	recomputeCmd.Flags().IntVar(&recomputeYear, "year", 0, "ISO year (defaults to current)")
	recomputeCmd.Flags().IntVar(&recomputeWeek, "week", 0, "ISO week number (defaults to current)")
	recomputeCmd.Flags().BoolVar(&recomputeAll, "all", false, "recompute every active venue")
	recomputeCmd.Flags().IntVar(&recomputeLimit, "limit", 0, "limit the number of venues with --all")
	recomputeCmd.Flags().BoolVar(&recomputeMissing, "create-missing", false, "create missing weekly rows before recomputing")
}

func runRecompute(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Pulso Weekly Recompute ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	var week period.Week
	if recomputeYear == 0 && recomputeWeek == 0 {
		week = period.Of(time.Now())
	} else if week, err = period.For(recomputeYear, recomputeWeek); err != nil {
		return err
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := engine.NewRepository(db.Pool)
	reader := source.NewPGReader(db.Pool, log)
	orch := engine.NewOrchestrator(repo, reader, engine.DefaultConfig(), log)

	ctx := context.Background()

	if !recomputeAll {
		if recomputeVenue <= 0 {
			return fmt.Errorf("either --venue or --all is required")
		}
		if recomputeMissing {
			if err := orch.EnsureWeek(ctx, recomputeVenue, week); err != nil {
				return fmt.Errorf("ensure weekly row: %w", err)
			}
		}
		result, err := orch.Recompute(ctx, recomputeVenue, week)
		if err != nil {
			return fmt.Errorf("recompute venue %d week %d/%d: %w", recomputeVenue, week.Year, week.Number, err)
		}
		fmt.Printf("Venue %d, week %d/%d recomputed in %v (%d degraded sections)\n",
			recomputeVenue, week.Year, week.Number, result.Duration, len(result.Degraded))
		for _, d := range result.Degraded {
			fmt.Printf("  degraded %s: %s\n", d.Section, d.Reason)
		}
		return nil
	}

	venueIDs, err := repo.ActiveVenueIDs(ctx)
	if err != nil {
		return fmt.Errorf("list active venues: %w", err)
	}
	if recomputeLimit > 0 && recomputeLimit < len(venueIDs) {
		venueIDs = venueIDs[:recomputeLimit]
	}
	fmt.Printf("Recomputing week %d/%d for %d venues...\n", week.Year, week.Number, len(venueIDs))

	driver := batch.NewDriver(orch, batch.Config{
		GroupSize:     cfg.Batch.GroupSize,
		GroupDelay:    cfg.Batch.GroupDelay,
		CreateMissing: recomputeMissing,
	}, log)

	summary, err := driver.Run(ctx, batch.Expand(venueIDs, week))
	if err != nil {
		return fmt.Errorf("batch recompute: %w", err)
	}

	fmt.Printf("\nDone in %v: %d succeeded, %d failed\n", summary.Duration, summary.Succeeded, summary.Failed)
	for _, r := range summary.Results {
		if r.Error != "" {
			fmt.Printf("  venue %d failed: %s\n", r.Unit.VenueID, r.Error)
		}
	}
	return nil
}
