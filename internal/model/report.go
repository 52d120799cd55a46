// internal/model/report.go
package model

// RadioConfig
// ------------------------------------------------------------
// 요청과 함께 전달되는 radio/target 설정.
// reporter 는 이 값을 해석하지 않고 report 에 그대로 실어 보낸다.
type RadioConfig struct {
	Type    string `json:"type"`              // 2.4G / 5G / 6G
	IfName  string `json:"if_name,omitempty"` // 예: wlan0
	PhyName string `json:"phy_name,omitempty"`
	Channel uint32 `json:"channel,omitempty"`
}

// ReportRequest
// ------------------------------------------------------------
// cloud 측 reporting 요청 파라미터.
//   - ReportingInterval: 초 단위 주기. 0 이면 reporting 중지
//   - ReportingCount: 남은 fire 횟수. 0 이면 무제한
//   - ReportingTimestamp: 요청 측 기준 시각 (로그용, 해석하지 않음)
type ReportRequest struct {
	ReportingInterval  uint32 `json:"reporting_interval"`
	ReportingCount     uint32 `json:"reporting_count"`
	ReportingTimestamp uint64 `json:"reporting_timestamp"`
}

// RequestEnvelope
// ------------------------------------------------------------
// HTTP /report/request 본문 및 REQUEST_FILE(yaml) 의 형태.
// Request 가 nil 이면 invalid request 로 취급된다.
type RequestEnvelope struct {
	Radio   *RadioConfig   `json:"radio,omitempty"`
	Request *ReportRequest `json:"request"`
}

// Report
// ------------------------------------------------------------
// 한 번의 flush cycle 에서 sink 로 전달되는 배치.
// 레코드 순서 = staging 도착 순서.
type Report struct {
	ID          string               `json:"id"`           // uuid
	Ts          int64                `json:"ts"`           // drain 시각 (UTC epoch ms)
	ReportStart int64                `json:"report_start"` // reporting 시작 baseline (UTC epoch ms)
	Radio       *RadioConfig         `json:"radio,omitempty"`
	Clients     []*ClientEventRecord `json:"client_event_list"`
	Dhcp        []*DhcpEventRecord   `json:"dhcp_event_list"`
}

// Payload
// ------------------------------------------------------------
// Dispatcher 가 Report 를 인코딩한 결과.
// Send 가 반환된 뒤에도 유효해야 하므로 Body 는 독립된 복사본이다.
type Payload struct {
	ReportID   string
	CreatedAt  int64 // UTC epoch seconds
	NumClients int
	NumDhcp    int
	Format     string // "json" / "jsonl.gz"
	Body       []byte
}

// NumRecords 는 payload 에 포함된 전체 레코드 수.
func (p *Payload) NumRecords() int {
	return p.NumClients + p.NumDhcp
}
