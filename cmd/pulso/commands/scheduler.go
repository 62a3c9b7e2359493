package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulsohq/pulso/internal/batch"
	"github.com/pulsohq/pulso/internal/engine"
	"github.com/pulsohq/pulso/internal/scheduler"
	"github.com/pulsohq/pulso/internal/scheduler/jobs"
	"github.com/pulsohq/pulso/internal/source"
	"github.com/pulsohq/pulso/pkg/config"
	"github.com/pulsohq/pulso/pkg/database"
	"github.com/pulsohq/pulso/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the recompute scheduler",
	Long: `Starts the scheduler daemon with the periodic recompute jobs.

Registered jobs:
- weekly_close:    Mondays at 5 AM (previous week, all active venues)
- current_refresh: every day at 6 AM (running week, all active venues)

Example:
  go run ./cmd/pulso scheduler start
  go run ./cmd/pulso scheduler run weekly_close`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func buildScheduler(cfg *config.Config, log *logger.Logger, db *database.DB) (*scheduler.Scheduler, error) {
	repo := engine.NewRepository(db.Pool)
	reader := source.NewPGReader(db.Pool, log)
	orch := engine.NewOrchestrator(repo, reader, engine.DefaultConfig(), log)
	driver := batch.NewDriver(orch, batch.Config{
		GroupSize:     cfg.Batch.GroupSize,
		GroupDelay:    cfg.Batch.GroupDelay,
		CreateMissing: true,
	}, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewWeeklyCloseJob(driver, repo, log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewCurrentRefreshJob(driver, repo, log)); err != nil {
		return nil, err
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Pulso Scheduler ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	sched, err := buildScheduler(cfg, log, db)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	sched.Start()
	fmt.Println("Scheduler running. Press Ctrl+C to stop")
	for _, name := range sched.Jobs() {
		fmt.Printf("  registered: %s\n", name)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	sched, err := buildScheduler(cfg, log, db)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	jobName := args[0]
	fmt.Printf("Running job %s...\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return err
	}

	// RunJob is asynchronous; block until the result lands in history.
	for {
		time.Sleep(500 * time.Millisecond)
		history, err := sched.History(jobName)
		if err != nil {
			return err
		}
		if len(history.Results) > 0 {
			last := history.Results[len(history.Results)-1]
			if !last.Success {
				return fmt.Errorf("job %s failed: %s", jobName, last.Error)
			}
			fmt.Printf("Job %s completed in %v\n", jobName, last.Duration)
			return nil
		}
	}
}
