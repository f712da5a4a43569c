package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/pdvlabs/balcao/internal/cart"
	"github.com/pdvlabs/balcao/internal/journal"
	"github.com/pdvlabs/balcao/internal/products"
	"github.com/pdvlabs/balcao/internal/settlement"
	"github.com/pdvlabs/balcao/pkg/config"
	"github.com/pdvlabs/balcao/pkg/logger"
	"github.com/pdvlabs/balcao/pkg/posapi"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "pos"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "pos",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"terminal": cfg.Terminal.ID,
	})

	client, err := posapi.NewClient(ctx, cfg.Backend, cfg.Terminal.ID, logg)
	if err != nil {
		logg.Error(ctx, "failed to build backend client", err)
		os.Exit(1)
	}

	if cfg.Terminal.RequireOpenTill {
		status, err := client.CashRegisterStatus(ctx)
		if err != nil {
			logg.Error(ctx, "failed to check cash register", err)
			os.Exit(1)
		}
		if !status.IsOpen {
			logg.Error(ctx, "cash register is closed, open the till before selling", nil)
			os.Exit(1)
		}
	}

	lookup, err := products.NewLookup(client, cfg.Terminal.SearchMinLength, cfg.Terminal.SearchResultCap)
	if err != nil {
		logg.Error(ctx, "failed to build product lookup", err)
		os.Exit(1)
	}

	session, err := cart.NewSession(client, logg)
	if err != nil {
		logg.Error(ctx, "failed to build cart session", err)
		os.Exit(1)
	}

	var shiftJournal *journal.Journal
	if cfg.Journal.Enabled {
		shiftJournal, err = journal.New(ctx, cfg.Journal, cfg.Terminal.ID, cfg.Terminal.Operator, logg)
		if err != nil {
			logg.Error(ctx, "failed to open sale journal", err)
			os.Exit(1)
		}
		defer func() {
			if err := shiftJournal.Close(); err != nil {
				logg.Error(ctx, "error closing sale journal", err)
			}
		}()
	}

	calc := settlement.NewCalculator()
	submitter, err := settlement.NewSubmitter(client, calc)
	if err != nil {
		logg.Error(ctx, "failed to build settlement", err)
		os.Exit(1)
	}

	restored, err := session.Restore(ctx)
	if err != nil {
		logg.Error(ctx, "failed to restore active order", err)
	}
	if restored {
		logg.Info(ctx, "active order restored from backend")
	}

	term := newTerminal(session, lookup, calc, submitter, shiftJournal, client, logg)
	logg.Info(ctx, "pos terminal ready")

	if err := term.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logg.Error(ctx, "pos terminal stopped unexpectedly", err)
		os.Exit(1)
	}
}
