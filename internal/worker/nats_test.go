package worker

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	srv, err := server.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	require.Eventually(t, func() bool {
		return srv.JetStreamEnabled()
	}, 5*time.Second, 50*time.Millisecond, "embedded NATS server not ready for JetStream")

	t.Cleanup(srv.Shutdown)
	return srv
}

func TestNATSTransportPublishesToStream(t *testing.T) {
	srv := runJetStreamServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tr, err := NewNATSTransport(ctx, srv.ClientURL(), "EVENTS_REPORT", "events.report", nats.Name("test"))
	require.NoError(t, err)
	defer tr.Close()

	p := samplePayload("r-1", `{"id":"r-1"}`)
	require.NoError(t, tr.Deliver(ctx, p))
	// 같은 report id 는 duplicate window 안에서 한 번만 저장된다
	require.NoError(t, tr.Deliver(ctx, p))
	require.NoError(t, tr.Deliver(ctx, samplePayload("r-2", `{"id":"r-2"}`)))

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	stream, err := js.Stream(ctx, "EVENTS_REPORT")
	require.NoError(t, err)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.State.Msgs)

	msg, err := stream.GetLastMsgForSubject(ctx, "events.report")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"r-2"}`, string(msg.Data))
	assert.Equal(t, "json", msg.Header.Get("Report-Format"))
}

func TestNATSTransportReusesExistingStream(t *testing.T) {
	srv := runJetStreamServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := NewNATSTransport(ctx, srv.ClientURL(), "REPORTS", "reports.ap1")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewNATSTransport(ctx, srv.ClientURL(), "REPORTS", "reports.ap1")
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.Deliver(ctx, samplePayload("r-1", "{}")))
}
