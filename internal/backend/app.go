package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expenseai/internal/amqp"
	"expenseai/internal/assistant"
	"expenseai/internal/config"
	"expenseai/internal/services"
	"expenseai/internal/tools"
)

// App is the fully wired service graph shared by the server and the operator CLI.
type App struct {
	Store     *StoreResult
	Models    *ModelResult
	Expenses  *services.ExpenseService
	Tools     *tools.Registry
	Assistant *assistant.Assistant
	Insights  *assistant.InsightGenerator
	Events    *amqp.Client
}

// Build creates the store, model stack and services from the application config.
// AMQP is optional: a failed dial is logged and events are disabled.
func Build(ctx context.Context, appConfig *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := FromAppConfig(appConfig)
	if err != nil {
		return nil, err
	}

	prompts, err := assistant.DefaultPrompts()
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	factory := NewFactory(logger)
	store, err := factory.CreateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	models, err := factory.CreateModels(ctx, cfg)
	if err != nil {
		store.Cleanup()
		return nil, err
	}

	app := &App{Store: store, Models: models}

	opts := []services.Option{services.WithTopExpenses(appConfig.TopExpenses)}
	if appConfig.AMQPURL != "" {
		client, err := amqp.NewClient(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", appConfig.AMQPExchange,
				"queue", appConfig.AMQPQueue)
			app.Events = client
			opts = append(opts, services.WithPublisher(client))
		}
	}

	app.Expenses = services.NewExpenseService(store.Repo, models.Classifier, opts...)
	app.Tools = tools.NewExpenseRegistry(app.Expenses, models.Classifier)
	app.Assistant = assistant.New(models.Chat, app.Tools, prompts,
		assistant.WithMaxToolRounds(appConfig.ChatMaxToolRounds))
	app.Insights = assistant.NewInsightGenerator(app.Expenses, models.Chat, prompts)

	return app, nil
}

// Close releases the broker connection, the model client and the store.
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if a.Models != nil && a.Models.Cleanup != nil {
		errs = append(errs, a.Models.Cleanup())
	}
	if a.Expenses != nil {
		errs = append(errs, a.Expenses.Close())
	}
	return errors.Join(errs...)
}
