package worker

import (
	"context"

	"events-report/internal/config"
	"events-report/internal/model"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// LogTransport 는 report 를 보내지 않고 요약만 로그로 남긴다. 개발/검증용.
type LogTransport struct {
	log zerolog.Logger
}

func NewLogTransport() *LogTransport {
	return &LogTransport{log: zlog.With().Str("component", "log-transport").Logger()}
}

func (t *LogTransport) Name() string { return config.SinkLog }

func (t *LogTransport) Deliver(_ context.Context, p *model.Payload) error {
	t.log.Info().
		Str("report_id", p.ReportID).
		Int64("created_at", p.CreatedAt).
		Int("clients", p.NumClients).
		Int("dhcp", p.NumDhcp).
		Str("format", p.Format).
		Int("bytes", len(p.Body)).
		Msg("events report")
	return nil
}

func (t *LogTransport) Close() error { return nil }
