package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"events-report/internal/config"
	"events-report/internal/logger"
	"events-report/internal/metrics"
	"events-report/internal/report"
	"events-report/internal/server"
	"events-report/internal/stage"
	"events-report/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"k8s.io/utils/clock"
)

func main() {

	// ====================================================================
	// CPU 설정
	// ====================================================================
	// AP / 소형 장비에서 돌기 때문에 기본값은 1 논리 CPU.
	// GOMAXPROCS 환경변수로 재정의 가능.
	if v := os.Getenv("GOMAXPROCS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			runtime.GOMAXPROCS(n)
		}
	} else {
		runtime.GOMAXPROCS(1)
	}

	// ====================================================================
	// Config / Logger / Metrics
	// ====================================================================
	cfg := config.Load()

	logCloser := logger.Init(cfg)
	defer logCloser.Close()

	m := metrics.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		metrics.NewCollector(m),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// ====================================================================
	// Sink: transport + dispatcher
	// ====================================================================
	//
	// reporter → Dispatcher.Send (인코딩 후 큐) → deliverLoop → Transport
	// 실패한 report 는 재시도하지 않는다.
	// ====================================================================
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	transport, err := worker.NewTransport(startCtx, cfg, m)
	cancelStart()
	if err != nil {
		log.Fatal().Err(err).Str("sink", cfg.Sink).Msg("transport init failed")
	}

	dispatcher := worker.NewDispatcher(transport, worker.DispatcherOptions{
		Format:        cfg.SinkFormat,
		QueueSize:     cfg.SinkQueue,
		Timeout:       cfg.SinkTimeout,
		PruneInterval: cfg.ArchivePruneInterval,
	}, m)
	dispatcher.Start()

	// ====================================================================
	// Staging + Reporter
	// ====================================================================
	staging := stage.New(m)

	reporter := report.New(clock.RealClock{}, staging, dispatcher, m)
	reporter.Start()

	if cfg.RequestFile != "" {
		env, err := config.LoadRequestFile(cfg.RequestFile)
		if err != nil {
			log.Fatal().Err(err).Msg("initial request")
		}
		if !reporter.RequestReporting(env.Radio, env.Request) {
			log.Warn().Str("file", cfg.RequestFile).Msg("initial reporting request rejected")
		}
	}

	// ====================================================================
	// HTTP
	// ====================================================================
	h := server.NewHandler(cfg, m, staging, reporter)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      h.Routes(reg),
		ReadTimeout:  8 * time.Second,
		WriteTimeout: 8 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ====================================================================
	// Graceful Shutdown
	// ====================================================================
	//   1) HTTP 종료 (새 이벤트 / 요청 차단)
	//   2) reporter loop 종료 (더 이상 fire 없음)
	//   3) dispatcher: 큐에 남은 report 를 한 번씩 보내고 종료
	//   4) transport 닫기
	// ====================================================================
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		cancel()
	}()

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("sink", transport.Name()).
		Str("format", cfg.SinkFormat).
		Msg("events-report listening")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server terminated")
	}

	reporter.Shutdown()
	dispatcher.Shutdown()
	if err := transport.Close(); err != nil {
		log.Warn().Err(err).Msg("transport close")
	}
	log.Info().Msg("shutdown complete")
}
