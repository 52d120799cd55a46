package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"events-report/internal/config"
	"events-report/internal/metrics"
	"events-report/internal/model"
	"events-report/internal/worker/mocks"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newMockDispatcher(t *testing.T, queue int) (*Dispatcher, *mocks.MockTransport, *metrics.Metrics) {
	t.Helper()

	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	tr.EXPECT().Name().Return("mock").AnyTimes()

	m := metrics.New()
	d := NewDispatcher(tr, DispatcherOptions{
		Format:    config.FormatJSON,
		QueueSize: queue,
		Timeout:   time.Second,
	}, m)

	return d, tr, m
}

func TestDispatcherDeliversEachReportOnce(t *testing.T) {
	d, tr, m := newMockDispatcher(t, 4)

	tr.EXPECT().
		Deliver(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, p *model.Payload) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok, "deliver must run with a timeout")
			assert.Equal(t, "r-1", p.ReportID)
			return nil
		}).
		Times(1)

	d.Start()
	require.NoError(t, d.Send(context.Background(), sampleReport("r-1")))
	d.Shutdown()

	assert.Equal(t, int64(1), m.DeliveredReportsTotal)
	assert.Zero(t, m.DeliveryErrorsTotal)
}

func TestDispatcherDoesNotRetryFailedDelivery(t *testing.T) {
	d, tr, m := newMockDispatcher(t, 4)

	tr.EXPECT().
		Deliver(gomock.Any(), gomock.Any()).
		Return(errors.New("broker down")).
		Times(1)

	d.Start()
	require.NoError(t, d.Send(context.Background(), sampleReport("r-1")))
	d.Shutdown()

	assert.Equal(t, int64(1), m.DeliveryErrorsTotal)
	assert.Zero(t, m.DeliveredReportsTotal)
}

func TestDispatcherQueueFull(t *testing.T) {
	d, tr, m := newMockDispatcher(t, 1)

	// 시작 전이라 큐가 비워지지 않는다
	require.NoError(t, d.Send(context.Background(), sampleReport("r-1")))
	err := d.Send(context.Background(), sampleReport("r-2"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), m.DispatchQueueFullTotal)

	tr.EXPECT().
		Deliver(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *model.Payload) error {
			assert.Equal(t, "r-1", p.ReportID)
			return nil
		}).
		Times(1)

	d.Start()
	d.Shutdown()
}

func TestDispatcherSendAfterShutdown(t *testing.T) {
	d, _, _ := newMockDispatcher(t, 1)
	d.Start()
	d.Shutdown()
	d.Shutdown()

	assert.ErrorIs(t, d.Send(context.Background(), sampleReport("late")), ErrClosed)
}

func TestDispatcherPayloadOutlivesReport(t *testing.T) {
	d, tr, _ := newMockDispatcher(t, 1)

	var body []byte
	tr.EXPECT().
		Deliver(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *model.Payload) error {
			body = p.Body
			return nil
		})

	r := sampleReport("r-1")
	require.NoError(t, d.Send(context.Background(), r))

	// reporter 는 Send 직후 레코드를 pool 로 돌려보낸다
	r.Clients[0].Session = model.ClientSession{SessionID: 999}
	r.Clients = nil

	d.Start()
	d.Shutdown()

	var doc struct {
		Clients []struct {
			Session model.ClientSession `json:"client_session"`
		} `json:"client_event_list"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Len(t, doc.Clients, 2)
	assert.Equal(t, uint64(42), doc.Clients[0].Session.SessionID)
}

type fakePruner struct {
	*LogTransport
	calls chan time.Time
}

func (f *fakePruner) Prune(now time.Time) int {
	select {
	case f.calls <- now:
	default:
	}
	return 0
}

func TestDispatcherPrunesPeriodically(t *testing.T) {
	p := &fakePruner{LogTransport: NewLogTransport(), calls: make(chan time.Time, 1)}
	d := NewDispatcher(p, DispatcherOptions{
		Format:        config.FormatJSON,
		QueueSize:     1,
		Timeout:       time.Second,
		PruneInterval: 10 * time.Millisecond,
	}, metrics.New())

	d.Start()
	defer d.Shutdown()

	select {
	case <-p.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("prune was not called")
	}
}
