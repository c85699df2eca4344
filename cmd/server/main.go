package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradepost.gg/internal/config"
	"tradepost.gg/internal/market"
	"tradepost.gg/internal/market/store"
	"tradepost.gg/internal/persistence/tradelog"
	"tradepost.gg/internal/protocol"
	"tradepost.gg/internal/sim/items"
	"tradepost.gg/internal/sim/world"
	"tradepost.gg/internal/transport/status"
)

func main() {
	var (
		addr    = flag.String("addr", "", "http listen address (overrides config)")
		cfgPath = flag.String("config", "./configs/server.yaml", "config path")
		dataDir = flag.String("data", "", "runtime data directory (overrides config)")
		envFile = flag.String("env", ".env", "env file (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("env file: %v", err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if v := os.Getenv("TRADEPOST_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TRADEPOST_DATA"); v != "" {
		cfg.DataDir = v
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	catalog := items.Default()
	if cfg.ItemsPath != "" {
		catalog, err = items.Load(cfg.ItemsPath)
		if err != nil {
			logger.Fatalf("load items: %v", err)
		}
	}

	w := world.New(world.Config{
		TickRateHz:     cfg.TickRateHz,
		Worlds:         cfg.Worlds,
		ShopContainers: cfg.ShopContainers,
	}, catalog, logger)

	reg := market.NewRegistry()
	st := store.New(cfg.DataDir, cfg.KeepArchives, log.New(os.Stdout, "[store] ", log.LstdFlags))

	shops, err := st.Load()
	if err != nil {
		logger.Fatalf("load shops: %v", err)
	}
	reg.Replace(shops)
	logger.Printf("loaded %d shops", len(shops))

	dm := market.NewDisplayManager(w, reg, market.DisplayConfig{
		Enabled:      cfg.Display.Enabled,
		ViewDistance: cfg.Display.ViewDistance,
		Height:       cfg.Display.Height,
		Amplitude:    cfg.Display.Amplitude,
		Frequency:    cfg.Display.Frequency,
		SettleTicks:  cfg.Display.SettleTicks,
	}, log.New(os.Stdout, "[display] ", log.LstdFlags))

	engineCfg := market.EngineConfig{
		LockWait: time.Duration(cfg.LockWaitMs) * time.Millisecond,
		Display:  dm,
		Persist:  st.Save,
	}

	var tlog *tradelog.Log
	if cfg.TradeLog {
		tlog, err = tradelog.Open(filepath.Join(cfg.DataDir, "tradelog.db"), log.New(os.Stdout, "[tradelog] ", log.LstdFlags))
		if err != nil {
			logger.Fatalf("open tradelog: %v", err)
		}
		engineCfg.Recorder = tlog
	}

	engine := market.NewEngine(reg, market.LiveWorld(w), engineCfg, logger)
	engine.ValidateAll()

	dm.Attach(w, cfg.ReconcileEveryTicks)
	dm.Startup()

	w.OnTick(func(tick uint64) {
		if tick%cfg.ValidateEveryTicks == 0 {
			engine.ValidateAll()
		}
	})

	statusSrv := status.NewServer(func() protocol.StatusMsg {
		// Actor state belongs to the loop goroutine; assemble the payload
		// there and hand back a copy.
		out := make(chan protocol.StatusMsg, 1)
		w.Do(func() { out <- snapshot(w, reg) })
		select {
		case msg := <-out:
			return msg
		case <-time.After(time.Second):
			return protocol.StatusMsg{Players: []protocol.PlayerPos{}, Shops: []protocol.ShopInfo{}}
		}
	}, log.New(os.Stdout, "[status] ", log.LstdFlags))

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/status", statusSrv.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http: %v", err)
		}
	}()
	go statusSrv.Run(ctx, time.Duration(cfg.BroadcastMs)*time.Millisecond)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("world loop: %v", err)
	}
	// Unblock any goroutine still marshalling work onto the stopped loop.
	w.Stop()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = httpSrv.Shutdown(shutCtx)

	// Engine first: it flushes the final save and stops producing audit rows.
	engine.Close()
	if tlog != nil {
		_ = tlog.Close()
	}
	logger.Printf("shutdown complete")
}

// snapshot assembles the broadcast payload. It runs on the loop goroutine.
func snapshot(w *world.World, reg *market.Registry) protocol.StatusMsg {
	msg := protocol.StatusMsg{
		Players: []protocol.PlayerPos{},
		Shops:   []protocol.ShopInfo{},
	}
	for _, a := range w.ActorStates() {
		msg.Players = append(msg.Players, protocol.PlayerPos{
			Name:  a.Name,
			World: a.World,
			X:     int(a.Pos.X),
			Z:     int(a.Pos.Z),
		})
	}
	for _, s := range reg.All() {
		msg.Shops = append(msg.Shops, protocol.ShopInfo{
			ID:        s.ID.String(),
			World:     s.Position.World,
			X:         s.Position.X,
			Y:         s.Position.Y,
			Z:         s.Position.Z,
			OwnerName: s.OwnerName,
			Offered:   protocol.ItemStack{Kind: s.Offered.Kind, Amount: s.Offered.Count},
			Asked:     protocol.ItemStack{Kind: s.Asked.Kind, Amount: s.Asked.Count},
		})
	}
	return msg
}
