package worker

import (
	"bytes"
	"fmt"
	"io"

	"events-report/internal/config"
	"events-report/internal/model"
	"events-report/internal/pool"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// Encoder 는 Report 를 transport 로 넘길 수 있는 독립된 바이트로 직렬화한다.
//
//   - json:     report 전체를 JSON 문서 하나로
//   - jsonl.gz: 첫 줄은 report header, 이후 레코드 한 건당 한 줄, gzip 압축
//
// 버퍼와 gzip.Writer 는 pool 에서 빌려 쓰고, 결과는 항상 새 slice 로 복사해서
// 넘긴다. report 의 레코드는 Send 직후 pool 로 돌아가기 때문.
type Encoder struct {
	format string
}

func NewEncoder(format string) *Encoder {
	return &Encoder{format: format}
}

func (e *Encoder) Format() string {
	return e.format
}

// jsonl.gz 첫 줄
type reportHeader struct {
	ID          string             `json:"id"`
	Ts          int64              `json:"ts"`
	ReportStart int64              `json:"report_start"`
	Radio       *model.RadioConfig `json:"radio,omitempty"`
	NumClients  int                `json:"num_clients"`
	NumDhcp     int                `json:"num_dhcp"`
}

// jsonl.gz 레코드 줄. 둘 중 하나만 채워진다.
type recordLine struct {
	ReportID string                 `json:"report_id"`
	Client   *model.ClientSession   `json:"client_session,omitempty"`
	Dhcp     *model.DhcpTransaction `json:"dhcp_transaction,omitempty"`
}

// Encode 는 r 을 설정된 포맷으로 인코딩한 Payload 를 반환한다.
// Payload.Body 는 호출자 소유.
func (e *Encoder) Encode(r *model.Report) (*model.Payload, error) {
	buf := pool.BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer pool.PutBuffer(buf)

	var err error
	switch e.format {
	case config.FormatJSON:
		err = json.NewEncoder(buf).Encode(r)
	case config.FormatJSONLGZ:
		err = encodeJSONLGZ(buf, r)
	default:
		err = fmt.Errorf("unknown format %q", e.format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode report %s: %w", r.ID, err)
	}

	body := make([]byte, buf.Len())
	copy(body, buf.Bytes())

	return &model.Payload{
		ReportID:   r.ID,
		CreatedAt:  r.Ts / 1000,
		NumClients: len(r.Clients),
		NumDhcp:    len(r.Dhcp),
		Format:     e.format,
		Body:       body,
	}, nil
}

func encodeJSONLGZ(w io.Writer, r *model.Report) error {
	gz := pool.GzipPool.Get().(*gzip.Writer)
	gz.Reset(w)
	defer pool.GzipPool.Put(gz)

	enc := json.NewEncoder(gz)

	err := enc.Encode(reportHeader{
		ID:          r.ID,
		Ts:          r.Ts,
		ReportStart: r.ReportStart,
		Radio:       r.Radio,
		NumClients:  len(r.Clients),
		NumDhcp:     len(r.Dhcp),
	})

	for i := 0; err == nil && i < len(r.Clients); i++ {
		err = enc.Encode(recordLine{ReportID: r.ID, Client: &r.Clients[i].Session})
	}
	for i := 0; err == nil && i < len(r.Dhcp); i++ {
		err = enc.Encode(recordLine{ReportID: r.ID, Dhcp: &r.Dhcp[i].Transaction})
	}

	// 실패해도 writer 는 닫아야 pool 에 돌려줄 수 있다
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	return err
}
