package main

import (
	"context"
	"errors"
	"fmt"

	"bistro/internal/agents"
	"bistro/internal/config"
	"bistro/internal/database"
	"bistro/internal/logging"
	"bistro/internal/models"
	"bistro/internal/monitoring"
	"bistro/internal/search"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// app holds the components shared by every command
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	model     llms.Model
	menu      *models.Menu
	index     *search.MenuIndex
	store     *database.Store
	collector *monitoring.Collector
}

// newApp loads the configuration and builds the components. withStore opens
// the order database.
func newApp(ctx context.Context, withStore bool) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if offline {
		cfg.LLM.Offline = true
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		menu:      models.DefaultMenu(),
		collector: monitoring.NewCollector(),
	}

	a.index, err = search.NewMenuIndex(a.menu)
	if err != nil {
		return nil, err
	}

	a.model, err = a.loadModel(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	if withStore {
		a.store, err = database.Open(cfg.Database.Driver, cfg.Database.URL, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to open order database: %w", err)
		}
	}
	return a, nil
}

// loadModel resolves the configured model. Missing credentials fall back to
// the offline heuristics.
func (a *app) loadModel(ctx context.Context) (llms.Model, error) {
	log := logging.Component(a.logger, "models")
	if a.cfg.LLM.Offline {
		log.Info("running offline, no language model")
		return nil, nil
	}

	registry := models.NewModelRegistry(models.ModelCredentials{
		GoogleAPIKey:    a.cfg.LLM.GoogleAPIKey,
		OpenAIAPIKey:    a.cfg.LLM.OpenAIAPIKey,
		AnthropicAPIKey: a.cfg.LLM.AnthropicAPIKey,
		GitHubToken:     a.cfg.LLM.GitHubToken,
		OllamaURL:       a.cfg.LLM.OllamaURL,
		AzureEndpoint:   a.cfg.LLM.AzureEndpoint,
		AzureAPIKey:     a.cfg.LLM.AzureAPIKey,
		AzureDeployment: a.cfg.LLM.AzureDeployment,
	})

	model, err := registry.GetModel(ctx, a.cfg.LLM.Model)
	if errors.Is(err, models.ErrMissingCredentials) {
		log.Warn("model credentials missing, running offline", zap.String("model", a.cfg.LLM.Model), zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("language model ready", zap.String("model", a.cfg.LLM.Model))
	return model, nil
}

// factory builds a coordinator for a new conversation
func (a *app) factory() (func(sessionID string) *agents.Coordinator, error) {
	taxRate, err := a.cfg.TaxRate()
	if err != nil {
		return nil, err
	}

	settings := agents.Settings{
		MaxOrderItems:      a.cfg.Ordering.MaxOrderItems,
		UpsellingThreshold: a.cfg.Ordering.UpsellingThreshold,
		Temperature:        a.cfg.LLM.Temperature,
		MaxTokens:          a.cfg.LLM.MaxTokens,
		Timeout:            a.cfg.LLM.Timeout,
	}
	stateOpts := models.StateOptions{
		TaxRate:           &taxRate,
		MaxUpsellAttempts: a.cfg.Ordering.MaxUpsellAttempts,
		ErrorThreshold:    a.cfg.Ordering.ErrorThreshold,
	}

	return func(sessionID string) *agents.Coordinator {
		opts := []agents.Option{
			agents.WithSessionID(sessionID),
			agents.WithSettings(settings),
			agents.WithStateOptions(stateOpts),
			agents.WithMenu(a.menu),
			agents.WithIndex(a.index),
			agents.WithMetrics(a.collector),
			agents.WithLogger(a.logger.With(zap.String("session_id", sessionID))),
		}
		if a.store != nil {
			opts = append(opts, agents.WithStore(a.store))
		}
		return agents.NewCoordinator(a.model, opts...)
	}, nil
}

func (a *app) close() {
	if a.index != nil {
		_ = a.index.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close order database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
