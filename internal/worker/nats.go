package worker

import (
	"context"
	"errors"
	"fmt"

	"events-report/internal/config"
	"events-report/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSTransport 는 report 를 JetStream subject 로 publish 한다.
// report id 를 Nats-Msg-Id 로 써서 stream 의 duplicate window 안에서는
// 같은 report 가 두 번 저장되지 않는다.
type NATSTransport struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSTransport 는 연결 후 stream 이 없으면 만든다.
func NewNATSTransport(ctx context.Context, url, stream, subject string, opts ...nats.Option) (*NATSTransport, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect NATS %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if _, err := js.Stream(ctx, stream); err != nil {
		if !errors.Is(err, jetstream.ErrStreamNotFound) {
			nc.Close()
			return nil, fmt.Errorf("lookup stream %s: %w", stream, err)
		}

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     stream,
			Subjects: []string{subject},
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create stream %s: %w", stream, err)
		}
	}

	return &NATSTransport{nc: nc, js: js, subject: subject}, nil
}

func (t *NATSTransport) Name() string { return config.SinkNATS }

func (t *NATSTransport) Deliver(ctx context.Context, p *model.Payload) error {
	msg := nats.NewMsg(t.subject)
	msg.Data = p.Body
	msg.Header.Set("Report-Format", p.Format)

	if _, err := t.js.PublishMsg(ctx, msg, jetstream.WithMsgID(p.ReportID)); err != nil {
		return fmt.Errorf("publish report %s: %w", p.ReportID, err)
	}
	return nil
}

func (t *NATSTransport) Close() error {
	return t.nc.Drain()
}
