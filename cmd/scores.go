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
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	scoresDBPath  string
	scoresProject string
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Manage stored quality scores",
	Long:  `List, inspect, and invalidate the cached quality scores.`,
}

var scoresListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scores, worst first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(scoresDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := db.ListScores(context.Background(), scoresProject)
		if err != nil {
			return fmt.Errorf("failed to list scores: %w", err)
		}

		if len(rows) == 0 {
			fmt.Println("No stored scores.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKEY\tLANG\tSCORE\tPASSED\tTYPE\tFALLBACK\tUPDATED")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%v\t%s\t%v\t%s\n",
				r.TranslationID, r.KeyName, r.Lang, r.Score, r.Passed,
				r.EvaluationType, r.AIFallback, r.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var scoresStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show score cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(scoresDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total scores:   %d\n", stats.Total)
		fmt.Printf("Passed:         %d\n", stats.Passed)
		fmt.Printf("Failed:         %d\n", stats.Failed)
		fmt.Printf("AI evaluated:   %d\n", stats.AIEvaluated)
		fmt.Printf("AI fallbacks:   %d\n", stats.Fallbacks)
		fmt.Printf("Average score:  %.1f\n", stats.AverageScore)
		fmt.Printf("Tokens spent:   %d\n", stats.TotalTokens)
		return nil
	},
}

var scoresInvalidateCmd = &cobra.Command{
	Use:   "invalidate <translation-id>",
	Short: "Drop a stored score so it gets re-evaluated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(scoresDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.InvalidateScore(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to invalidate score: %w", err)
		}
		fmt.Printf("Invalidated score for: %s\n", args[0])
		return nil
	},
}

var scoresClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(scoresDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearScores(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear scores: %w", err)
		}
		fmt.Printf("Cleared %d stored scores.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoresCmd)

	scoresCmd.PersistentFlags().StringVar(&scoresDBPath, "db", "", "Database path (defaults to config)")
	scoresListCmd.Flags().StringVarP(&scoresProject, "project", "p", "", "Filter by project ID")

	scoresCmd.AddCommand(scoresListCmd)
	scoresCmd.AddCommand(scoresStatsCmd)
	scoresCmd.AddCommand(scoresInvalidateCmd)
	scoresCmd.AddCommand(scoresClearCmd)
}
