package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow/internal/matching"
	"github.com/sells-group/dealflow/internal/oracle"
	"github.com/sells-group/dealflow/internal/store"
	"github.com/sells-group/dealflow/pkg/anthropic"
	sfpkg "github.com/sells-group/dealflow/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "dealflow.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initOracle() (*oracle.ClaudeOracle, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (DEALFLOW_ANTHROPIC_KEY)")
	}
	client := anthropic.NewClient(cfg.Anthropic.Key)
	return oracle.NewClaude(client, cfg.Anthropic.Model).WithMaxTokens(int64(cfg.Anthropic.MaxTokens)), nil
}

func initDiscovery() (oracle.ContactDiscovery, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, nil
	}
	sf, err := sfpkg.Connect(sfpkg.Config{
		Domain:       cfg.Salesforce.Domain,
		ClientID:     cfg.Salesforce.ClientID,
		ClientSecret: cfg.Salesforce.ClientSecret,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}
	return oracle.NewSalesforceDiscovery(sf), nil
}

func initSession(st store.Store) (*matching.Session, error) {
	scorer, err := initOracle()
	if err != nil {
		return nil, err
	}
	contacts, err := initDiscovery()
	if err != nil {
		return nil, err
	}
	return matching.NewSession(st, scorer, contacts, matching.Config{
		Parallelism:  cfg.Matching.Parallelism,
		ScoreTimeout: time.Duration(cfg.Matching.ScoreTimeoutSecs) * time.Second,
	}), nil
}
