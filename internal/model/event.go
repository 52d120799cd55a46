// internal/model/event.go
package model

// ClientEvent
// ------------------------------------------------------------
// 클라이언트 세션 lifecycle 중 한 시점(auth, assoc, first data,
// disconnect, ip 할당)을 나타내는 marker.
// 세션 레코드 안에서 포인터로 보관되며 nil 이면 "아직 발생하지 않음".
type ClientEvent struct {
	Ts     int64  `json:"ts"`               // 발생 시각 (UTC epoch seconds)
	MAC    string `json:"mac,omitempty"`    // station MAC
	SSID   string `json:"ssid,omitempty"`   // 접속한 SSID
	Band   string `json:"band,omitempty"`   // 2.4G / 5G / 6G
	IP     string `json:"ip,omitempty"`     // ip 이벤트에서만 사용
	Reason uint32 `json:"reason,omitempty"` // disconnect reason / auth status code
}

// ClientSession
// ------------------------------------------------------------
// producer(연결 관리 서브시스템)가 세션 단위로 갱신하는 staged 레코드.
// 같은 세션 ID 의 이벤트는 하나의 엔트리에 marker 로 누적된다.
type ClientSession struct {
	SessionID  uint64       `json:"session_id"`
	Auth       *ClientEvent `json:"auth_event,omitempty"`
	Assoc      *ClientEvent `json:"assoc_event,omitempty"`
	FirstData  *ClientEvent `json:"first_data_event,omitempty"`
	Disconnect *ClientEvent `json:"disconnect_event,omitempty"`
	IP         *ClientEvent `json:"ip_event,omitempty"`
}

// DhcpEvent
// ------------------------------------------------------------
// DHCP 트랜잭션의 한 단계(discover ~ inform)를 나타내는 marker.
type DhcpEvent struct {
	Ts        int64  `json:"ts"`
	ClientMAC string `json:"client_mac,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	ServerIP  string `json:"server_ip,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
	LeaseTime uint32 `json:"lease_time,omitempty"`
}

// DhcpTransaction
// ------------------------------------------------------------
// transaction id(xid) 단위로 누적되는 staged 레코드.
type DhcpTransaction struct {
	XID      uint32     `json:"x_id"`
	Discover *DhcpEvent `json:"dhcp_discover_event,omitempty"`
	Offer    *DhcpEvent `json:"dhcp_offer_event,omitempty"`
	Request  *DhcpEvent `json:"dhcp_request_event,omitempty"`
	Decline  *DhcpEvent `json:"dhcp_decline_event,omitempty"`
	Ack      *DhcpEvent `json:"dhcp_ack_event,omitempty"`
	Nak      *DhcpEvent `json:"dhcp_nak_event,omitempty"`
	Inform   *DhcpEvent `json:"dhcp_inform_event,omitempty"`
}

// ClientEventRecord / DhcpEventRecord
// ------------------------------------------------------------
// drain 시점에 staging 에서 옮겨져 AggregationBuffer 가 소유하는 레코드.
// flush 후에는 pool 로 반환된다 (pool.RecycleClient / RecycleDhcp).
type ClientEventRecord struct {
	Session ClientSession `json:"client_session"`
}

type DhcpEventRecord struct {
	Transaction DhcpTransaction `json:"dhcp_transaction"`
}

// ClientEventKind / DhcpEventKind
// ------------------------------------------------------------
// producer 가 어떤 marker 를 갱신하는지 지정한다.
// HTTP 입력의 "type" 문자열과 1:1 대응.
type ClientEventKind string

const (
	ClientAuth       ClientEventKind = "auth"
	ClientAssoc      ClientEventKind = "assoc"
	ClientFirstData  ClientEventKind = "first_data"
	ClientDisconnect ClientEventKind = "disconnect"
	ClientIP         ClientEventKind = "ip"
)

type DhcpEventKind string

const (
	DhcpDiscover DhcpEventKind = "discover"
	DhcpOffer    DhcpEventKind = "offer"
	DhcpRequest  DhcpEventKind = "request"
	DhcpDecline  DhcpEventKind = "decline"
	DhcpAck      DhcpEventKind = "ack"
	DhcpNak      DhcpEventKind = "nak"
	DhcpInform   DhcpEventKind = "inform"
)

// Set 은 kind 에 해당하는 marker 를 ev 로 교체한다.
// 알 수 없는 kind 이면 false.
func (s *ClientSession) Set(kind ClientEventKind, ev *ClientEvent) bool {
	switch kind {
	case ClientAuth:
		s.Auth = ev
	case ClientAssoc:
		s.Assoc = ev
	case ClientFirstData:
		s.FirstData = ev
	case ClientDisconnect:
		s.Disconnect = ev
	case ClientIP:
		s.IP = ev
	default:
		return false
	}
	return true
}

func (t *DhcpTransaction) Set(kind DhcpEventKind, ev *DhcpEvent) bool {
	switch kind {
	case DhcpDiscover:
		t.Discover = ev
	case DhcpOffer:
		t.Offer = ev
	case DhcpRequest:
		t.Request = ev
	case DhcpDecline:
		t.Decline = ev
	case DhcpAck:
		t.Ack = ev
	case DhcpNak:
		t.Nak = ev
	case DhcpInform:
		t.Inform = ev
	default:
		return false
	}
	return true
}

func ValidClientKind(kind ClientEventKind) bool {
	var s ClientSession
	return s.Set(kind, nil)
}

func ValidDhcpKind(kind DhcpEventKind) bool {
	var t DhcpTransaction
	return t.Set(kind, nil)
}
