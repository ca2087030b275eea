package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/card"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/generator"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/group"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/profile"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/router"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/session"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/card-flasher/internal/user/repo"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/database"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/utilities"
)

func main() {
	// best-effort: no .env means real env or defaults
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting card-flasher")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := database.ConfigFromEnv()
	genCfg := generator.ConfigFromEnv()

	var handler http.Handler
	if !dbCfg.Configured() {
		missing := router.Missing(false, genCfg.Configured())
		sugar.Warnw("database is not configured; serving setup page", "missing", missing)
		handler = router.GuardHandler(missing)
	} else {
		db, err := database.Connect(dbCfg)
		if err != nil {
			sugar.Fatalf("db connect: %v", err)
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			sugar.Fatalf("db migrate: %v", err)
		}

		handler, err = buildAPI(ctx, db, genCfg, sugar)
		if err != nil {
			sugar.Fatalf("init: %v", err)
		}
	}

	srv := &http.Server{
		Addr:              addrFromEnv(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// generation of a full batch may take a while
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

func buildAPI(ctx context.Context, db *database.DB, genCfg generator.Config, logger *zap.SugaredLogger) (http.Handler, error) {
	gen, err := generator.New(ctx, genCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}

	sessions := session.NewService(db.DB, session.ConfigFromEnv(), logger)
	users := user.NewUserService(db.DB, userrepo.NewUserRepo(db.DB), user.BcryptHasher{Cost: 12})

	return router.RegisterRoutes(router.Deps{
		Logger:    logger,
		Sessions:  sessions,
		Users:     user.NewHandler(users, sessions, logger),
		Profile:   profile.NewHandler(users, logger),
		Cards:     card.NewHandler(card.NewService(db.DB, gen, users, logger), logger),
		Groups:    group.NewHandler(group.NewService(db.DB), logger),
		AuthLimit: router.RateLimitFromEnv(),
	}), nil
}

func addrFromEnv() string {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		return v
	}
	return "0.0.0.0:8431"
}
