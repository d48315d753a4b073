package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/events"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/handlers"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/store/memory"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/store/postgres"
	"github.com/Prompt-or-Die/ghostspeak-sub001/services/node/internal/api"
	"github.com/Prompt-or-Die/ghostspeak-sub001/services/node/internal/config"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to node config yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	var (
		store  runtime.RecordStore
		ledger runtime.TokenLedger
		faucet api.Faucet
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		store = postgres.NewStore(pool)
		pgLedger := postgres.NewLedger(pool)
		ledger = pgLedger
		if cfg.TrustSigners {
			faucet = pgLedger
		}
		for _, m := range cfg.Mints {
			if err := pgLedger.RegisterMint(ctx, m.Mint, m.Decimals); err != nil {
				log.Fatalf("register mint %s: %v", m.Mint, err)
			}
		}
	} else {
		memLedger := memory.NewLedger()
		store = memory.NewStore()
		ledger = memLedger
		faucet = memLedger
		for _, m := range cfg.Mints {
			_ = memLedger.RegisterMint(ctx, m.Mint, m.Decimals)
		}
		log.Printf("no database_url set, using in-memory store")
	}

	hub := api.NewHub()
	sink := events.Sink(hub)
	if len(cfg.Webhooks) > 0 {
		fan := events.Fanout{hub}
		for _, wh := range cfg.Webhooks {
			fan = append(fan, api.NewWebhookSink(wh.URL, wh.Secret))
		}
		sink = fan
	}
	env := runtime.NewEnv(store, ledger, runtime.SystemClock{}, sink, cfg.Namespace)
	eng := handlers.New(env, cfg.Authority)

	srv := &api.Server{
		Engine:       eng,
		Store:        store,
		Ledger:       ledger,
		Hub:          hub,
		Faucet:       faucet,
		TrustSigners: cfg.TrustSigners,
	}

	log.Printf("node listening on :%s (namespace %s)", cfg.Port, cfg.Namespace)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, srv.Router()))
}
