package main

import (
	"fmt"
	"time"

	"riskgate/internal/client"
	"riskgate/internal/config"
	"riskgate/internal/models"
	"riskgate/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// bindFlags binds the running command's flags to viper keys. Binding at run
// time keeps commands that share a key from overriding each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

// loadConfig reads the environment and applies any value set through a flag,
// a RISKGATE_ variable or config.yaml on top.
func loadConfig() config.Config {
	cfg := config.Load()

	overrideString := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}
	overrideInt := func(key string, dst *int) {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}

	overrideInt("backtest.workers", &cfg.Backtest.Workers)
	overrideInt("backtest.batch_size", &cfg.Backtest.BatchSize)
	overrideInt("backtest.progress_every", &cfg.Backtest.ProgressEvery)
	overrideString("backtest.sink", &cfg.Backtest.ResultsSink)
	overrideString("evaluator.url", &cfg.Backtest.EvaluatorURL)
	if viper.IsSet("evaluator.timeout") {
		cfg.Backtest.CallTimeout = viper.GetDuration("evaluator.timeout")
	}
	overrideString("auth.secret", &cfg.AuthSecret)
	overrideString("bigquery.project", &cfg.BigQuery.Project)
	overrideString("bigquery.dataset", &cfg.BigQuery.Dataset)
	overrideString("bigquery.table", &cfg.BigQuery.Table)
	return cfg
}

// newHTTPEvaluator signs a service token when an auth secret is configured.
func newHTTPEvaluator(cfg config.Config, ttl time.Duration) (*client.HTTPEvaluator, error) {
	var token string
	if cfg.AuthSecret != "" {
		var err error
		token, err = utils.GenerateServiceToken(cfg.AuthSecret, "riskctl", models.DefaultServicePermissions(), ttl)
		if err != nil {
			return nil, err
		}
	}
	return client.NewHTTPEvaluator(cfg.Backtest.EvaluatorURL, cfg.Backtest.CallTimeout, token), nil
}
