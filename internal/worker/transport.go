package worker

import (
	"context"
	"fmt"
	"time"

	"events-report/internal/config"
	"events-report/internal/metrics"
	"events-report/internal/model"

	"github.com/nats-io/nats.go"
)

//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks events-report/internal/worker Transport

// Transport 는 인코딩된 report 하나를 upstream 으로 보낸다.
// Deliver 는 한 번만 호출되며 실패해도 재시도하지 않는다.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, p *model.Payload) error
	Close() error
}

// Pruner 를 구현한 transport 는 dispatcher 가 주기적으로 Prune 을 호출한다.
type Pruner interface {
	Prune(now time.Time) int
}

// NewTransport 는 cfg.Sink 에 맞는 transport 를 만든다.
func NewTransport(ctx context.Context, cfg config.Config, m *metrics.Metrics) (Transport, error) {
	switch cfg.Sink {
	case config.SinkLog:
		return NewLogTransport(), nil

	case config.SinkFile:
		a, err := NewArchive(ArchiveOptions{
			Dir:          cfg.ArchiveDir,
			InstanceID:   cfg.InstanceID,
			MaxAge:       cfg.ArchiveMaxAge,
			MaxSizeBytes: cfg.ArchiveMaxSizeBytes,
		}, m)
		if err != nil {
			return nil, err
		}
		return a, nil

	case config.SinkS3:
		t, err := NewS3Transport(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return t, nil

	case config.SinkKafka:
		t, err := NewKafkaTransport(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName)
		if err != nil {
			return nil, err
		}
		return t, nil

	case config.SinkNATS:
		t, err := NewNATSTransport(ctx, cfg.NATSURL, cfg.NATSStream, cfg.NATSSubject,
			nats.Name(cfg.ServiceName+"/"+cfg.InstanceID),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			return nil, err
		}
		return t, nil

	case config.SinkSQLite:
		t, err := NewSQLiteTransport(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	return nil, fmt.Errorf("%w: unknown sink %q", config.ErrInvalid, cfg.Sink)
}
