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
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/valpere/qualitran/internal"
	"github.com/valpere/qualitran/internal/quality"
)

var (
	evalDBPath      string
	evalProject     string
	evalKey         bool
	evalForceAI     bool
	evalJSON        bool
	evalNoLangCheck bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <translation-id>",
	Short: "Evaluate the quality of a translation",
	Long: `Evaluate one translation pair through the tiered pipeline.

The pipeline runs the free tiers first (content-fingerprint cache,
structural heuristics, glossary, language detection) and escalates to the
project's AI evaluator only when a check flags the pair or --force-ai is
set. A valid cached score short-circuits everything, including --force-ai.

With --key the argument is a translation key ID instead, and every target
language of that key is scored in a single AI call.

Example:
  qualitran evaluate t_12345 --project p1
  qualitran evaluate k_button_save --project p1 --key`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		db, err := openStore(evalDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		svc, err := buildService(ctx, db, evalProject, !evalNoLangCheck)
		if err != nil {
			return err
		}

		opts := quality.Options{ForceAI: evalForceAI}

		if evalKey {
			scores, err := svc.EvaluateKey(ctx, args[0], opts)
			if err != nil {
				return fmt.Errorf("failed to evaluate key: %w", err)
			}
			return printKeyScores(scores)
		}

		score, err := svc.Evaluate(ctx, args[0], opts)
		if err != nil {
			return fmt.Errorf("failed to evaluate: %w", err)
		}
		return printScore(score)
	},
}

func printScore(score *internal.QualityScore) error {
	if evalJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(score)
	}

	verdict := "FAIL"
	if score.Passed {
		verdict = "PASS"
	}
	origin := string(score.EvaluationType)
	if score.Cached {
		origin += ", cached"
	}
	if score.AIFallback {
		origin += ", AI fallback"
	}

	fmt.Printf("Score:  %.1f  [%s]  (%s)\n", score.Score, verdict, origin)
	if score.Accuracy != nil {
		fmt.Printf("  accuracy:    %.1f\n", *score.Accuracy)
	}
	if score.Fluency != nil {
		fmt.Printf("  fluency:     %.1f\n", *score.Fluency)
	}
	if score.Terminology != nil {
		fmt.Printf("  terminology: %.1f\n", *score.Terminology)
	}
	fmt.Printf("  format:      %.1f\n", score.Format)
	if score.Provider != "" {
		fmt.Printf("Provider: %s (%s)\n", score.Provider, score.Model)
	}
	if score.Usage != nil {
		fmt.Printf("Tokens:   %d\n", score.Usage.TotalTokens)
	}
	for _, issue := range score.Issues {
		fmt.Printf("  [%s/%s] %s\n", issue.Type, issue.Severity, issue.Message)
	}
	return nil
}

func printKeyScores(scores map[string]*internal.QualityScore) error {
	if evalJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scores)
	}

	langs := make([]string, 0, len(scores))
	for lang := range scores {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		fmt.Printf("--- %s ---\n", lang)
		if err := printScore(scores[lang]); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalDBPath, "db", "", "Database path (defaults to config)")
	evaluateCmd.Flags().StringVarP(&evalProject, "project", "p", "", "Project ID")
	evaluateCmd.Flags().BoolVar(&evalKey, "key", false, "Treat the argument as a key ID and score every language")
	evaluateCmd.Flags().BoolVar(&evalForceAI, "force-ai", false, "Escalate to AI even when heuristics pass")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "Print the full score as JSON")
	evaluateCmd.Flags().BoolVar(&evalNoLangCheck, "no-langcheck", false, "Skip language detection")
	evaluateCmd.MarkFlagRequired("project")
}
