package main

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/indichess/arena/internal/arena"
	appcfg "github.com/indichess/arena/internal/config"
	"github.com/indichess/arena/internal/archive"
	"github.com/indichess/arena/internal/broadcast"
	"github.com/indichess/arena/internal/msgcat"
	"github.com/indichess/arena/internal/obslog"
	"github.com/indichess/arena/internal/rules"
	"github.com/indichess/arena/internal/store"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	st := store.NewRedisFromClient(rdb)
	notify := broadcast.NewRedis(rdb)

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	// DATABASE_URL is optional; without it completed games stay in Redis
	// until their TTL runs out.
	var archiver arena.Archiver
	var pg *archive.Postgres
	if cfg.DatabaseURL != "" {
		pg, err = archive.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		archiver = pg
	}

	svc := arena.New(arena.Config{
		QueueWindow: time.Duration(cfg.QueueWaitSec) * time.Second,
		Catalog:     cat,
		Logger:      logger,
	}, rules.NewEngine(), st, notify, archiver)

	monitor := &fasthttp.Server{
		Handler:     monitorHandler(svc),
		Name:        "arenad",
		ReadTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("monitor_listen", zap.String("addr", cfg.MonitorAddr))
		if err := monitor.ListenAndServe(cfg.MonitorAddr); err != nil {
			logger.Error("monitor_stopped", zap.Error(err))
		}
	}()

	logger.Info("arenad_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("arenad_stopping")
	_ = monitor.Shutdown()
	if pg != nil {
		_ = pg.Close()
	}
	_ = st.Close()
}

func monitorHandler(svc *arena.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/healthz":
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetBodyString("ok")
		case "/queue":
			ctx.SetContentType("application/json")
			body, _ := json.Marshal(map[string]int{"queued": svc.TotalQueued()})
			ctx.SetBody(body)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}
}
