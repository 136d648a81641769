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
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	importDBPath  string
	importProject string
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import translation keys and texts from a CSV file",
	Long: `Import translations from a CSV file into a project.

Expected columns (with header row):
  key_name, file, component, line, lang, text, approved

Rows sharing a key_name accumulate as translations of one key. The
"approved" column accepts true/false and defaults to false. Re-importing
updates existing rows in place; changed texts get a new fingerprint, so
their stored scores stop matching and the next evaluation recomputes them.

Example:
  qualitran import translations.csv --project p1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input CSV: %w", err)
		}
		defer f.Close()

		records, err := csv.NewReader(f).ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read CSV: %w", err)
		}
		if len(records) < 2 {
			return fmt.Errorf("CSV file has no data rows")
		}

		db, err := openStore(importDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := db.Project(ctx, importProject); err != nil {
			return err
		}

		keyIDs := make(map[string]string)
		keys, translations := 0, 0

		// Skip the header row.
		for i, record := range records[1:] {
			if len(record) < 6 {
				return fmt.Errorf("row %d: expected at least 6 columns, got %d", i+2, len(record))
			}
			keyName, file, component := record[0], record[1], record[2]
			lang, text := record[4], record[5]

			line := -1
			if record[3] != "" {
				line, err = strconv.Atoi(record[3])
				if err != nil {
					return fmt.Errorf("row %d: invalid line number %q", i+2, record[3])
				}
			}
			approved := false
			if len(record) > 6 && record[6] != "" {
				approved, err = strconv.ParseBool(record[6])
				if err != nil {
					return fmt.Errorf("row %d: invalid approved value %q", i+2, record[6])
				}
			}

			keyID, ok := keyIDs[keyName]
			if !ok {
				keyID = uuid.NewString()
				if err := db.UpsertKey(ctx, keyID, importProject, keyName, file, component, line); err != nil {
					return fmt.Errorf("row %d: failed to import key: %w", i+2, err)
				}
				keyIDs[keyName] = keyID
				keys++
			}

			if err := db.UpsertTranslation(ctx, uuid.NewString(), keyID, lang, text, approved); err != nil {
				return fmt.Errorf("row %d: failed to import translation: %w", i+2, err)
			}
			translations++
		}

		fmt.Printf("Imported %d keys and %d translations into project %s\n", keys, translations, importProject)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importDBPath, "db", "", "Database path (defaults to config)")
	importCmd.Flags().StringVarP(&importProject, "project", "p", "", "Project ID")
	importCmd.MarkFlagRequired("project")
}
