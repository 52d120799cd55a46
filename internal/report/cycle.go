package report

import (
	"sync/atomic"
	"time"

	"events-report/internal/model"
	"events-report/internal/pool"

	"github.com/google/uuid"
)

// cycle
// ------------------------------------------------------------
// 1) staging 의 client / dhcp 엔트리를 모두 레코드로 옮긴다
// 2) 버퍼가 비어있지 않으면 sink.Send 를 정확히 한 번 호출
// 3) 결과와 관계없이 버퍼를 비운다 (실패한 배치는 버림, 재시도 없음)
func (r *Reporter) cycle(now time.Time) {
	r.drain()

	if r.buf.IsEmpty() {
		return
	}

	clients, dhcp := r.buf.DrainAll()
	defer Release(clients, dhcp)

	rep := &model.Report{
		ID:          uuid.NewString(),
		Ts:          now.UnixMilli(),
		ReportStart: r.reportTs.UnixMilli(),
		Radio:       r.radio,
		Clients:     clients,
		Dhcp:        dhcp,
	}

	r.log.Info().
		Str("report_id", rep.ID).
		Int("clients", len(clients)).
		Int("dhcp", len(dhcp)).
		Msg("Sending events report...")

	atomic.AddInt64(&r.metrics.ReportsSentTotal, 1)
	if err := r.sink.Send(r.ctx, rep); err != nil {
		atomic.AddInt64(&r.metrics.SinkErrorsTotal, 1)
		r.log.Warn().Err(err).Str("report_id", rep.ID).Msg("events report dropped")
	}
}

func (r *Reporter) drain() {
	sessions, transactions := r.source.Take()

	for _, s := range sessions {
		rec := pool.NewClientRecord()
		rec.Session = *s
		r.buf.AppendClient(rec)
	}

	for _, t := range transactions {
		rec := pool.NewDhcpRecord()
		rec.Transaction = *t
		r.buf.AppendDhcp(rec)
	}

	atomic.AddInt64(&r.metrics.ClientRecordsDrainedTotal, int64(len(sessions)))
	atomic.AddInt64(&r.metrics.DhcpRecordsDrainedTotal, int64(len(transactions)))
}
