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

	"github.com/spf13/cobra"

	"github.com/valpere/qualitran/internal/store"
)

var (
	projectDBPath     string
	projectName       string
	projectSourceLang string
	projectAIEnabled  bool
	projectAIProvider string
	projectAIModel    string
	projectAIKey      string
	projectAIBaseURL  string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects and their AI evaluator settings",
}

var projectSetCmd = &cobra.Command{
	Use:   "set <project-id>",
	Short: "Create or update a project",
	Long: `Create or update a project, including its AI evaluator configuration.

Supported AI providers: openai, openrouter, ollama.

Example:
  qualitran project set p1 --name webapp --source en \
    --ai --ai-provider openai --ai-model gpt-4o-mini --ai-key sk-...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectSourceLang == "" {
			return fmt.Errorf("--source language flag is required")
		}

		db, err := openStore(projectDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		name := projectName
		if name == "" {
			name = args[0]
		}

		err = db.UpsertProject(context.Background(), store.Project{
			ID:         args[0],
			Name:       name,
			SourceLang: projectSourceLang,
			AIEnabled:  projectAIEnabled,
			AIProvider: projectAIProvider,
			AIModel:    projectAIModel,
			AIAPIKey:   projectAIKey,
			AIBaseURL:  projectAIBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to save project: %w", err)
		}
		fmt.Printf("Saved project %s\n", args[0])
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project's settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(projectDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		p, err := db.Project(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:          %s\n", p.ID)
		fmt.Printf("Name:        %s\n", p.Name)
		fmt.Printf("Source lang: %s\n", p.SourceLang)
		fmt.Printf("AI enabled:  %v\n", p.AIEnabled)
		if p.AIEnabled {
			fmt.Printf("AI provider: %s\n", p.AIProvider)
			fmt.Printf("AI model:    %s\n", p.AIModel)
			if p.AIBaseURL != "" {
				fmt.Printf("AI base URL: %s\n", p.AIBaseURL)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)

	projectCmd.PersistentFlags().StringVar(&projectDBPath, "db", "", "Database path (defaults to config)")

	projectSetCmd.Flags().StringVar(&projectName, "name", "", "Project display name (defaults to the ID)")
	projectSetCmd.Flags().StringVarP(&projectSourceLang, "source", "s", "", "Source language code (e.g. en)")
	projectSetCmd.Flags().BoolVar(&projectAIEnabled, "ai", false, "Enable AI evaluation")
	projectSetCmd.Flags().StringVar(&projectAIProvider, "ai-provider", "", "AI provider (openai, openrouter, ollama)")
	projectSetCmd.Flags().StringVar(&projectAIModel, "ai-model", "", "AI model name")
	projectSetCmd.Flags().StringVar(&projectAIKey, "ai-key", "", "AI provider API key")
	projectSetCmd.Flags().StringVar(&projectAIBaseURL, "ai-base-url", "", "AI provider base URL override")

	projectCmd.AddCommand(projectSetCmd)
	projectCmd.AddCommand(projectShowCmd)
}
