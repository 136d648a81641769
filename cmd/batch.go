/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/valpere/qualitran/internal/batch"
	"github.com/valpere/qualitran/internal/quality"
)

var (
	batchDBPath       string
	batchProject      string
	batchForceAI      bool
	batchNoLangCheck  bool
	batchScheduleOnly bool
	batchMetricsAddr  string
)

// serveMetrics exposes the Prometheus registry for the duration of a batch
// run, so long jobs can be watched from the outside.
func serveMetrics(addr string) {
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Warn("metrics listener failed", "addr", addr, "error", err)
		}
	}()
}

var batchCmd = &cobra.Command{
	Use:   "batch [translation-id ...]",
	Short: "Evaluate a set of translations as one job",
	Long: `Evaluate many translations as a single job.

Without arguments, every translation of the project is included. The job
is pre-filtered first: pairs whose stored score still matches their
content fingerprint are counted as cached and skipped, so re-running a
batch only pays for what changed.

Use --schedule to record the job without running it; the printed job ID
can be executed later with "qualitran batch run <job-id>".

Example:
  qualitran batch --project p1
  qualitran batch t_1 t_2 t_3 --project p1 --force-ai`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		db, err := openStore(batchDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		svc, err := buildService(ctx, db, batchProject, !batchNoLangCheck)
		if err != nil {
			return err
		}

		ids := args
		if len(ids) == 0 {
			ids, err = db.TranslationIDs(ctx, batchProject)
			if err != nil {
				return fmt.Errorf("failed to list translations: %w", err)
			}
		}
		if len(ids) == 0 {
			fmt.Println("Nothing to evaluate.")
			return nil
		}

		serveMetrics(batchMetricsAddr)

		scheduler := batch.NewScheduler(svc, db, slog.Default())
		opts := quality.Options{ForceAI: batchForceAI}

		receipt, err := scheduler.Schedule(ctx, ids, opts)
		if err != nil {
			return fmt.Errorf("failed to schedule job: %w", err)
		}

		fmt.Printf("Job %s: %d total, %d cached, %d queued\n",
			receipt.JobID, receipt.Total, receipt.Cached, receipt.Queued)

		if batchScheduleOnly {
			return nil
		}
		return runBatchJob(ctx, scheduler, receipt.JobID, opts)
	},
}

var batchRunCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Run a previously scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		db, err := openStore(batchDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		svc, err := buildService(ctx, db, batchProject, !batchNoLangCheck)
		if err != nil {
			return err
		}

		scheduler := batch.NewScheduler(svc, db, slog.Default())
		return runBatchJob(ctx, scheduler, args[0], quality.Options{ForceAI: batchForceAI})
	},
}

func runBatchJob(ctx context.Context, scheduler *batch.Scheduler, jobID string, opts quality.Options) error {
	result, err := scheduler.Run(ctx, jobID, opts)
	if err != nil {
		return fmt.Errorf("failed to run job: %w", err)
	}

	passed, fallbacks := 0, 0
	for _, score := range result.Results {
		if score.Passed {
			passed++
		}
		if score.AIFallback {
			fallbacks++
		}
	}

	fmt.Printf("Scored %d pairs: %d passed, %d failed", len(result.Results), passed, len(result.Results)-passed)
	if fallbacks > 0 {
		fmt.Printf(" (%d heuristic fallbacks)", fallbacks)
	}
	fmt.Println()

	for _, failure := range result.Failures {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", failure.ID, failure.Error)
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d pairs failed", len(result.Failures))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.AddCommand(batchRunCmd)

	batchCmd.PersistentFlags().StringVar(&batchDBPath, "db", "", "Database path (defaults to config)")
	batchCmd.PersistentFlags().StringVarP(&batchProject, "project", "p", "", "Project ID")
	batchCmd.PersistentFlags().BoolVar(&batchForceAI, "force-ai", false, "Escalate every uncached pair to AI")
	batchCmd.PersistentFlags().BoolVar(&batchNoLangCheck, "no-langcheck", false, "Skip language detection")
	batchCmd.Flags().BoolVar(&batchScheduleOnly, "schedule", false, "Record the job without running it")
	batchCmd.Flags().StringVar(&batchMetricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address during the run (e.g. :9090)")
	batchCmd.MarkPersistentFlagRequired("project")
}
