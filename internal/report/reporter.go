// Package report periodically drains staged client/DHCP events and flushes
// them to a sink as one batch per timer fire.
package report

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"events-report/internal/metrics"
	"events-report/internal/model"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"k8s.io/utils/clock"
)

// Sink 는 완성된 report 를 upstream 으로 넘기는 외부 협력자.
// Send 는 loop 를 막으면 안 되며, 반환 후 report 를 참조해서도 안 된다.
// 반환된 에러는 로그/카운트만 하고 재시도하지 않는다.
type Sink interface {
	Send(ctx context.Context, r *model.Report) error
}

// Source 는 staging 된 이벤트를 도착 순서대로 통째로 넘겨준다.
type Source interface {
	Take() ([]*model.ClientSession, []*model.DhcpTransaction)
}

type op struct {
	fn   func()
	done chan struct{}
}

// Reporter
// ------------------------------------------------------------
// events report context. 아래 "loop 전용" 필드는 loop goroutine 만
// 읽고 쓴다. RequestReporting / Status 는 op 를 loop 로 보내고
// 처리가 끝날 때까지 기다린다.
type Reporter struct {
	clock   clock.Clock
	source  Source
	sink    Sink
	metrics *metrics.Metrics
	log     zerolog.Logger

	ops chan op

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	// loop 전용
	initialized bool
	radio       *model.RadioConfig
	timer       *Timer
	req         model.ReportRequest
	buf         Buffer
	reportTs    time.Time
	fires       uint64
}

func New(c clock.Clock, src Source, sink Sink, m *metrics.Metrics) *Reporter {
	ctx, cancel := context.WithCancel(context.Background())

	return &Reporter{
		clock:   c,
		source:  src,
		sink:    sink,
		metrics: m,
		log:     zlog.With().Str("component", "events-report").Logger(),
		ops:     make(chan op),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (r *Reporter) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Shutdown 은 loop 를 멈춘다. 여러 번 호출해도 안전.
// 멈춘 뒤의 RequestReporting 은 false 를 반환한다.
func (r *Reporter) Shutdown() {
	r.stopOnce.Do(r.cancel)
	r.wg.Wait()
}

func (r *Reporter) loop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			if r.timer != nil {
				r.timer.Disarm()
			}
			return

		case now := <-r.timerC():
			r.fire(now)

		case o := <-r.ops:
			// op 보다 먼저 도착해 있던 tick 은 먼저 처리한다.
			r.firePending()
			o.fn()
			close(o.done)
		}
	}
}

func (r *Reporter) timerC() <-chan time.Time {
	if r.timer == nil {
		return nil
	}
	return r.timer.C()
}

func (r *Reporter) firePending() {
	select {
	case now := <-r.timerC():
		r.fire(now)
	default:
	}
}

// do 는 fn 을 loop goroutine 에서 실행하고 끝날 때까지 기다린다.
func (r *Reporter) do(fn func()) bool {
	o := op{fn: fn, done: make(chan struct{})}

	select {
	case r.ops <- o:
	case <-r.ctx.Done():
		return false
	}

	<-o.done
	return true
}

// fire: drain → (비어있지 않으면) flush → repeat budget 처리 순서를 지킨다.
func (r *Reporter) fire(now time.Time) {
	r.fires++
	atomic.AddInt64(&r.metrics.ReportFiresTotal, 1)

	r.cycle(now)

	if !r.timer.fired() {
		r.log.Debug().Msg("Stopped events reporting (count expired)")
	}
	if r.req.ReportingCount > 0 {
		r.req.ReportingCount = r.timer.Remaining()
		r.log.Debug().Uint32("reporting_count", r.req.ReportingCount).Msg("Updated events reporting count")
	}
}

// Status 는 reporter 상태 스냅샷.
type Status struct {
	Initialized     bool                `json:"initialized"`
	State           string              `json:"state"`
	PeriodSeconds   float64             `json:"period_seconds"`
	Remaining       uint32              `json:"remaining"`
	Fires           uint64              `json:"fires"`
	ReportStart     int64               `json:"report_start,omitempty"`
	BufferedClients int                 `json:"buffered_clients"`
	BufferedDhcp    int                 `json:"buffered_dhcp"`
	Request         model.ReportRequest `json:"request"`
	Radio           *model.RadioConfig  `json:"radio,omitempty"`
}

func (r *Reporter) Status() (Status, bool) {
	var st Status

	ok := r.do(func() {
		st.Initialized = r.initialized
		st.State = Stopped.String()
		if r.timer != nil {
			st.State = r.timer.State().String()
			st.PeriodSeconds = r.timer.Period().Seconds()
			st.Remaining = r.timer.Remaining()
		}
		st.Fires = r.fires
		if !r.reportTs.IsZero() {
			st.ReportStart = r.reportTs.UnixMilli()
		}
		st.BufferedClients, st.BufferedDhcp = r.buf.Len()
		st.Request = r.req
		st.Radio = r.radio
	})

	return st, ok
}
