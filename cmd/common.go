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
	"sync"

	"github.com/spf13/viper"

	"github.com/valpere/qualitran/internal/langcheck"
	"github.com/valpere/qualitran/internal/provider"
	"github.com/valpere/qualitran/internal/quality"
	"github.com/valpere/qualitran/internal/resilience"
	"github.com/valpere/qualitran/internal/store"
)

// breakers is process-wide on purpose: circuit state per (provider,
// credential) must survive across commands within one invocation.
var (
	breakersOnce sync.Once
	breakers     *resilience.Registry
)

func breakerRegistry() *resilience.Registry {
	breakersOnce.Do(func() {
		breakers = resilience.NewRegistry(resilience.BreakerConfig{
			FailureThreshold: viper.GetUint32("breaker.failure_threshold"),
			Cooldown:         viper.GetDuration("breaker.cooldown"),
		}, slog.Default())
	})
	return breakers
}

func openStore(dbPath string) (*store.Store, error) {
	if dbPath == "" {
		dbPath = viper.GetString("db")
	}
	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func retryPolicy() resilience.RetryPolicy {
	return resilience.RetryPolicy{
		MaxRetries:   viper.GetInt("retry.max_retries"),
		InitialDelay: viper.GetDuration("retry.initial_delay"),
		MaxDelay:     viper.GetDuration("retry.max_delay"),
		Multiplier:   viper.GetFloat64("retry.multiplier"),
	}
}

// buildService assembles the orchestrator for one project. The AI tier is
// wired only when the project enables it; config-file and environment values
// fill in anything the project record leaves blank.
func buildService(ctx context.Context, db *store.Store, projectID string, withLangCheck bool) (*quality.Service, error) {
	project, err := db.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var evaluator provider.Evaluator
	var circuitKey string
	if project.AIEnabled {
		cfg := provider.Config{
			Provider: project.AIProvider,
			Model:    project.AIModel,
			APIKey:   project.AIAPIKey,
			BaseURL:  project.AIBaseURL,
			Timeout:  viper.GetDuration("ai.timeout"),
		}
		if cfg.APIKey == "" {
			cfg.APIKey = viper.GetString("ai.api_key")
		}
		evaluator, err = provider.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build AI evaluator: %w", err)
		}
		circuitKey = resilience.CircuitKey(cfg.Provider, cfg.APIKey)
	}

	var checker *langcheck.Checker
	if withLangCheck {
		checker = langcheck.New()
	}

	return quality.NewService(db, db, db, db, quality.Config{
		Evaluator:   evaluator,
		CircuitKey:  circuitKey,
		Retry:       retryPolicy(),
		Breakers:    breakerRegistry(),
		LangChecker: checker,
		AITimeout:   viper.GetDuration("ai.timeout"),
		Logger:      slog.Default(),
	}), nil
}
