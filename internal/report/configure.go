package report

import (
	"sync/atomic"
	"time"

	"events-report/internal/model"
)

// RequestReporting
// ------------------------------------------------------------
// reporting 주기/횟수를 (재)설정한다. 유일한 외부 진입점.
//
//   - req == nil 이면 false, 어떤 상태도 바꾸지 않는다 (radio 포함)
//   - 첫 유효 요청에서 context 를 한 번만 초기화
//   - 타이머는 항상 먼저 멈추고, interval > 0 이면 새 주기로 다시 시작
//   - interval == 0 이면 멈춘 채로 두고 요청 설정을 0 으로 초기화
//
// reporter 가 이미 Shutdown 되었으면 false.
func (r *Reporter) RequestReporting(radio *model.RadioConfig, req *model.ReportRequest) bool {
	var ok bool

	if !r.do(func() { ok = r.configure(radio, req) }) {
		return false
	}
	return ok
}

func (r *Reporter) configure(radio *model.RadioConfig, req *model.ReportRequest) bool {
	atomic.AddInt64(&r.metrics.RequestsTotal, 1)

	if req == nil {
		atomic.AddInt64(&r.metrics.RequestsRejectedTotal, 1)
		r.log.Error().Msg("Initializing events reporting (invalid request config)")
		return false
	}

	r.radio = radio

	if !r.initialized {
		r.log.Info().Msg("Initializing events reporting")

		r.req = model.ReportRequest{}
		r.buf.Clear()
		r.timer = NewTimer(r.clock)
		r.initialized = true
	}

	// 필드별로 비교해서 바뀐 것만 로그로 남긴다 (동작에는 영향 없음)
	updateField(r, "reporting_count", &r.req.ReportingCount, req.ReportingCount)
	updateField(r, "reporting_interval", &r.req.ReportingInterval, req.ReportingInterval)
	updateField(r, "reporting_timestamp", &r.req.ReportingTimestamp, req.ReportingTimestamp)

	r.timer.Disarm()

	if r.req.ReportingInterval > 0 {
		r.reportTs = r.clock.Now()
		r.timer.Arm(time.Duration(r.req.ReportingInterval)*time.Second, r.req.ReportingCount)

		r.log.Info().
			Uint32("interval", r.req.ReportingInterval).
			Uint32("count", r.req.ReportingCount).
			Msg("Started events reporting")
	} else {
		r.log.Info().Msg("Stopped events reporting")
		r.req = model.ReportRequest{}
		r.reportTs = time.Time{}
	}

	return true
}

func updateField[T comparable](r *Reporter, name string, dst *T, v T) {
	if *dst == v {
		return
	}

	r.log.Debug().
		Interface("old", *dst).
		Interface("new", v).
		Msgf("Updated event %s", name)

	*dst = v
}
