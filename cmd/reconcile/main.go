// Command reconcile recomputes every course's enrolled counter from its selection rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	appServices "github.com/yigit/enrollment/internal/app/services"
	"github.com/yigit/enrollment/internal/bootstrap"
	"github.com/yigit/enrollment/internal/pkg/logger"
)

func main() {
	configPath := pflag.StringP("config", "c", bootstrap.DefaultConfigPath, "path to the YAML configuration file")
	dryRun := pflag.Bool("dry-run", false, "report drift without repairing it")
	pflag.Parse()

	if err := run(*configPath, *dryRun); err != nil {
		logger.Error().Err(err).Msg("Reconciliation failed")
		os.Exit(1)
	}
}

func run(configPath string, dryRun bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return err
	}
	// never seed from a maintenance run
	cfg.Database.Seed = false

	database, err := bootstrap.SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer database.Close()

	reconciler := appServices.NewReconciliationService(database.Repositories().Enrollment, lgr)

	reconcile := reconciler.ReconcileAll
	if dryRun {
		reconcile = reconciler.VerifyAll
	}
	report, err := reconcile(ctx)
	if report != nil {
		fmt.Printf("checked=%d drifted=%d repaired=%d dry_run=%t\n", report.Checked, len(report.Violations), report.Repaired, report.DryRun)
		for _, v := range report.Violations {
			fmt.Printf("  course %d (%s): cached=%d actual=%d capacity=%d over_capacity=%t\n",
				v.CourseID, v.Code, v.Cached, v.Actual, v.Capacity, v.OverCapacity())
		}
	}
	if err != nil {
		return err
	}
	if len(report.Violations) > 0 && dryRun {
		return fmt.Errorf("%d courses have drifted counters", len(report.Violations))
	}
	return nil
}
