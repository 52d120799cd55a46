package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics 는 reporter 상태를 나타내는 카운터 모음이다.
// 모든 필드는 sync/atomic 으로만 접근한다.
type Metrics struct {
	// ======================
	// HTTP 레벨 지표
	// ======================

	// HTTPRequestsTotal
	// - /events/*, /report/request 로 들어온 모든 요청 수.
	HTTPRequestsTotal int64

	// HTTPRequestsRejectedTotal
	// - 400/405/413 으로 거절된 요청 수.
	HTTPRequestsRejectedTotal int64

	// ======================
	// Staging (EventSource) 지표
	// ======================

	// ClientEventsStagedTotal / DhcpEventsStagedTotal
	// - producer 가 staging 에 기록한 marker 수 (엔트리 수가 아님).
	ClientEventsStagedTotal int64
	DhcpEventsStagedTotal   int64

	// ======================
	// Reporter 지표
	// ======================

	// RequestsTotal / RequestsRejectedTotal
	// - RequestReporting 호출 수, 그 중 nil request 로 거절된 수.
	RequestsTotal         int64
	RequestsRejectedTotal int64

	// ReportFiresTotal
	// - timer fire 로 실행된 drain/flush cycle 수 (빈 cycle 포함).
	ReportFiresTotal int64

	// ClientRecordsDrainedTotal / DhcpRecordsDrainedTotal
	// - drain 으로 staging → buffer 로 옮겨진 레코드 수.
	ClientRecordsDrainedTotal int64
	DhcpRecordsDrainedTotal   int64

	// ReportsSentTotal / SinkErrorsTotal
	// - sink.Send 호출 수 및 그 중 에러를 반환한 수.
	// - 실패한 배치는 재시도하지 않고 버린다 (at-most-once).
	ReportsSentTotal int64
	SinkErrorsTotal  int64

	// ======================
	// Dispatcher / Transport 지표
	// ======================

	// DispatchQueueFullTotal
	// - 전송 큐가 가득 차서 버린 report 수.
	DispatchQueueFullTotal int64

	// EncodeErrorsTotal
	// - report 인코딩 실패 수.
	EncodeErrorsTotal int64

	// DeliveredReportsTotal / DeliveryErrorsTotal
	// - transport.Deliver 성공/실패 수.
	DeliveredReportsTotal int64
	DeliveryErrorsTotal   int64

	// ======================
	// Archive(file transport) 지표
	// ======================

	ArchiveFilesCurrent      int64 // gauge
	ArchiveSizeBytes         int64 // gauge
	ArchiveFilesExpiredTotal int64 // TTL/용량 정책으로 삭제된 파일 수
	ArchiveDroppedTotal      int64 // 용량 부족으로 저장하지 못한 report 수
}

func New() *Metrics {
	return &Metrics{}
}

// counter 는 text 출력과 prometheus collector 가 공유하는 목록 항목.
type counter struct {
	name  string
	help  string
	gauge bool
	ptr   *int64
}

func (m *Metrics) counters() []counter {
	return []counter{
		{"http_requests_total", "HTTP requests received.", false, &m.HTTPRequestsTotal},
		{"http_requests_rejected_total", "HTTP requests rejected with 4xx.", false, &m.HTTPRequestsRejectedTotal},

		{"client_events_staged_total", "Client event markers recorded into staging.", false, &m.ClientEventsStagedTotal},
		{"dhcp_events_staged_total", "DHCP event markers recorded into staging.", false, &m.DhcpEventsStagedTotal},

		{"report_requests_total", "Reporting requests handled.", false, &m.RequestsTotal},
		{"report_requests_rejected_total", "Reporting requests rejected as invalid.", false, &m.RequestsRejectedTotal},
		{"report_fires_total", "Report timer fires.", false, &m.ReportFiresTotal},
		{"client_records_drained_total", "Client records drained from staging.", false, &m.ClientRecordsDrainedTotal},
		{"dhcp_records_drained_total", "DHCP records drained from staging.", false, &m.DhcpRecordsDrainedTotal},
		{"reports_sent_total", "Reports handed to the sink.", false, &m.ReportsSentTotal},
		{"sink_errors_total", "Reports the sink refused.", false, &m.SinkErrorsTotal},

		{"dispatch_queue_full_total", "Reports dropped because the delivery queue was full.", false, &m.DispatchQueueFullTotal},
		{"encode_errors_total", "Reports that failed to encode.", false, &m.EncodeErrorsTotal},
		{"delivered_reports_total", "Reports delivered by the transport.", false, &m.DeliveredReportsTotal},
		{"delivery_errors_total", "Transport delivery failures.", false, &m.DeliveryErrorsTotal},

		{"archive_files_current", "Files currently in the local archive.", true, &m.ArchiveFilesCurrent},
		{"archive_size_bytes", "Bytes currently in the local archive.", true, &m.ArchiveSizeBytes},
		{"archive_files_expired_total", "Archive files removed by TTL or capacity policy.", false, &m.ArchiveFilesExpiredTotal},
		{"archive_dropped_total", "Reports not archived because capacity was exhausted.", false, &m.ArchiveDroppedTotal},
	}
}

func (m *Metrics) String() string {
	var sb strings.Builder
	sb.Grow(512)

	for _, c := range m.counters() {
		fmt.Fprintf(&sb, "%s=%d\n", c.name, atomic.LoadInt64(c.ptr))
	}

	return sb.String()
}
