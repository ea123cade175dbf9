package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/api/marketapi"
	"github.com/ksInsandji/pensezy-edition/internal/api/memoapi"
	"github.com/ksInsandji/pensezy-edition/internal/app"
	"github.com/ksInsandji/pensezy-edition/internal/auth"
	"github.com/ksInsandji/pensezy-edition/internal/bot"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/jobs"
	"github.com/ksInsandji/pensezy-edition/internal/notify"
	"github.com/ksInsandji/pensezy-edition/internal/payments"
	"github.com/ksInsandji/pensezy-edition/internal/storage"
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:       "serve marketplace|memoires",
		Short:     "Run one of the HTTP APIs",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"marketplace", "memoires"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			if migrate {
				if err := db.Migrate(ctx, e.db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}
			switch args[0] {
			case "marketplace":
				return serveMarketplace(ctx, e)
			case "memoires":
				return serveMemoires(ctx, e)
			}
			return fmt.Errorf("unknown application %q", args[0])
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func serveMarketplace(ctx context.Context, e *env) error {
	log := e.log.Named("marketplace")

	var files storage.Store = storage.Disabled{}
	if e.cfg.OSS.Enabled() {
		oss, err := storage.NewOSS(e.cfg.OSS, log)
		if err != nil {
			return err
		}
		files = oss
	} else {
		log.Warn("object storage not configured, uploads are disabled")
	}

	h := marketapi.New(marketapi.Deps{
		Store:      db.New(e.db),
		Files:      files,
		Payments:   payments.New(e.cfg.Midtrans),
		Tokens:     auth.NewIssuer(e.cfg.JWTSecret, e.cfg.JWTTTL, "marketplace"),
		Log:        log,
		AdminEmail: e.cfg.IsAdminEmail,
	})
	a := app.New(app.Options{Name: "marketplace", Log: log, DB: e.db})
	h.Routes(a)
	return ignoreClosed(app.Serve(ctx, a, e.cfg.MarketplaceHTTPAddr, log))
}

func serveMemoires(ctx context.Context, e *env) error {
	log := e.log.Named("memoires")
	store := db.New(e.db)

	jobCtx, stopJobs := context.WithCancel(ctx)

	var sender notify.Sender = notify.Nop{}
	if e.cfg.BotToken != "" {
		tg, err := notify.NewTelegram(e.cfg.BotToken)
		if err != nil {
			stopJobs()
			return fmt.Errorf("telegram: %w", err)
		}
		sender = tg
		go bot.New(tg.API(), log).Run(jobCtx)
	} else {
		log.Warn("BOT_TOKEN empty, jury notifications are disabled")
	}
	notifier := notify.New(store, sender, e.cfg.Location, log)

	runner := jobs.New(jobCtx)
	runner.Every(e.cfg.JuryReminderEvery, "jury_reminders", jobs.JuryReminders(store, notifier, e.cfg.JuryReminderAdvance))
	defer func() {
		stopJobs()
		runner.Wait()
	}()

	h := memoapi.New(memoapi.Deps{
		Store:      store,
		Tokens:     auth.NewIssuer(e.cfg.JWTSecret, e.cfg.JWTTTL, "memoires"),
		Notifier:   notifier,
		Location:   e.cfg.Location,
		Log:        log,
		AdminEmail: e.cfg.IsAdminEmail,
	})
	a := app.New(app.Options{Name: "memoires", Log: log, DB: e.db})
	h.Routes(a)
	if err := app.Serve(ctx, a, e.cfg.HTTPAddr, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
		return ignoreClosed(err)
	}
	return nil
}

func ignoreClosed(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
