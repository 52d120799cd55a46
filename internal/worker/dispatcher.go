// internal/worker/dispatcher.go
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"events-report/internal/metrics"
	"events-report/internal/model"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var (
	ErrQueueFull = errors.New("worker: dispatch queue full")
	ErrClosed    = errors.New("worker: dispatcher closed")
)

// Dispatcher 는 reporter 의 sink 이다.
//
//   - Send: report 를 바로 인코딩(독립 복사본)해서 큐에 넣고 즉시 반환.
//     큐가 가득 차면 ErrQueueFull, 버린다.
//   - deliverLoop: 큐에서 하나씩 꺼내 Transport.Deliver 를 정확히 한 번 호출.
//     실패는 로그/카운트만 하고 재시도하지 않는다.
//   - pruneLoop: transport 가 Pruner 면 주기적으로 정리.
//
// Shutdown 은 새 Send 를 막고, 큐에 남은 payload 를 한 번씩 보낸 뒤 종료한다.
type Dispatcher struct {
	transport Transport
	encoder   *Encoder
	metrics   *metrics.Metrics
	log       zerolog.Logger

	timeout    time.Duration
	pruneEvery time.Duration

	queue chan *model.Payload

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
}

type DispatcherOptions struct {
	Format        string
	QueueSize     int
	Timeout       time.Duration // Deliver 1회 timeout
	PruneInterval time.Duration // 0 이면 pruneLoop 없음
}

func NewDispatcher(t Transport, opts DispatcherOptions, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		transport:  t,
		encoder:    NewEncoder(opts.Format),
		metrics:    m,
		log:        zlog.With().Str("component", "dispatcher").Str("transport", t.Name()).Logger(),
		timeout:    opts.Timeout,
		pruneEvery: opts.PruneInterval,
		queue:      make(chan *model.Payload, opts.QueueSize),
	}
}

func (d *Dispatcher) Start() {
	d.ctx, d.cancel = context.WithCancel(context.Background())

	d.wg.Add(1)
	go d.deliverLoop()

	if p, ok := d.transport.(Pruner); ok && d.pruneEvery > 0 {
		d.wg.Add(1)
		go d.pruneLoop(p)
	}
}

// Send 는 report.Sink 구현. reporter loop 에서 호출되므로 막히지 않는다.
func (d *Dispatcher) Send(_ context.Context, r *model.Report) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	p, err := d.encoder.Encode(r)
	if err != nil {
		atomic.AddInt64(&d.metrics.EncodeErrorsTotal, 1)
		return err
	}

	select {
	case d.queue <- p:
		return nil
	default:
		atomic.AddInt64(&d.metrics.DispatchQueueFullTotal, 1)
		return ErrQueueFull
	}
}

// Shutdown 은 여러 번 호출해도 안전하다. transport 는 닫지 않는다.
func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		if d.cancel != nil {
			d.cancel()
		}
	})
	d.wg.Wait()
}

// deliverLoop 는 queue 가 닫히고 비워질 때까지 돈다.
// shutdown 중에도 남은 payload 는 각자 timeout 으로 한 번씩 보낸다.
func (d *Dispatcher) deliverLoop() {
	defer d.wg.Done()

	for p := range d.queue {
		d.deliver(p)
	}
	d.log.Info().Msg("dispatcher exiting")
}

func (d *Dispatcher) deliver(p *model.Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.transport.Deliver(ctx, p); err != nil {
		atomic.AddInt64(&d.metrics.DeliveryErrorsTotal, 1)
		d.log.Warn().
			Err(err).
			Str("report_id", p.ReportID).
			Int("records", p.NumRecords()).
			Msg("report delivery failed, dropped")
		return
	}

	atomic.AddInt64(&d.metrics.DeliveredReportsTotal, 1)
	d.log.Debug().
		Str("report_id", p.ReportID).
		Int("bytes", len(p.Body)).
		Msg("report delivered")
}

func (d *Dispatcher) pruneLoop(p Pruner) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.pruneEvery)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case now := <-ticker.C:
			if n := p.Prune(now); n > 0 {
				d.log.Info().Int("removed", n).Msg("pruned expired reports")
			}
		}
	}
}
