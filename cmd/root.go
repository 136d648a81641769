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
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "qualitran",
	Short: "Translation quality scoring engine",
	Long: `Scores translation pairs through tiered evaluation: deterministic
structural heuristics first, then an AI evaluator (MQM dimensions:
accuracy, fluency, terminology) for pairs the heuristics flag.

Scores are cached by content fingerprint, so unchanged pairs are never
re-evaluated and never cost tokens twice.

Use "qualitran evaluate --help" for evaluation options.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./qualitran.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// initConfig reads the optional config file and binds QUALITRAN_* environment
// variables. Flags still win over both.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("qualitran")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("QUALITRAN")
	viper.AutomaticEnv()

	viper.SetDefault("db", "./data/qualitran.db")
	viper.SetDefault("ai.timeout", "30s")
	viper.SetDefault("retry.max_retries", 3)
	viper.SetDefault("retry.initial_delay", "1s")
	viper.SetDefault("retry.max_delay", "30s")
	viper.SetDefault("retry.multiplier", 2.0)
	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.cooldown", "1m")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read config file", "error", err)
		}
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
