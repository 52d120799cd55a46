// Package stage holds lifecycle events recorded by producer subsystems until
// the reporter drains them.
package stage

import (
	"errors"
	"sync"
	"sync/atomic"

	"events-report/internal/metrics"
	"events-report/internal/model"
)

var ErrUnknownKind = errors.New("stage: unknown event type")

// Staging
// ------------------------------------------------------------
// producer 가 append/갱신하고 reporter 가 Take 로 통째로 가져가는 영역.
//
//   - 같은 세션 ID / xid 로 들어온 marker 는 아직 drain 되지 않은
//     엔트리 하나에 in-place 로 누적된다.
//   - Take 이후 같은 ID 로 다시 들어오면 새 엔트리가 생긴다.
//     (이미 보낸 marker 가 다시 복사되는 일은 없다)
//
// producer 는 여러 goroutine(HTTP handler)에서 호출하므로 mutex 로 보호한다.
type Staging struct {
	metrics *metrics.Metrics

	mu        sync.Mutex
	clients   []*model.ClientSession
	dhcp      []*model.DhcpTransaction
	clientIdx map[uint64]*model.ClientSession
	dhcpIdx   map[uint32]*model.DhcpTransaction
}

func New(m *metrics.Metrics) *Staging {
	return &Staging{
		metrics:   m,
		clientIdx: make(map[uint64]*model.ClientSession),
		dhcpIdx:   make(map[uint32]*model.DhcpTransaction),
	}
}

// Client 는 sessionID 엔트리의 kind marker 를 ev 로 갱신한다.
func (s *Staging) Client(sessionID uint64, kind model.ClientEventKind, ev model.ClientEvent) error {
	if !model.ValidClientKind(kind) {
		return ErrUnknownKind
	}

	s.mu.Lock()
	sess, ok := s.clientIdx[sessionID]
	if !ok {
		sess = &model.ClientSession{SessionID: sessionID}
		s.clientIdx[sessionID] = sess
		s.clients = append(s.clients, sess)
	}
	sess.Set(kind, &ev)
	s.mu.Unlock()

	atomic.AddInt64(&s.metrics.ClientEventsStagedTotal, 1)
	return nil
}

// Dhcp 는 xid 엔트리의 kind marker 를 ev 로 갱신한다.
func (s *Staging) Dhcp(xid uint32, kind model.DhcpEventKind, ev model.DhcpEvent) error {
	if !model.ValidDhcpKind(kind) {
		return ErrUnknownKind
	}

	s.mu.Lock()
	tx, ok := s.dhcpIdx[xid]
	if !ok {
		tx = &model.DhcpTransaction{XID: xid}
		s.dhcpIdx[xid] = tx
		s.dhcp = append(s.dhcp, tx)
	}
	tx.Set(kind, &ev)
	s.mu.Unlock()

	atomic.AddInt64(&s.metrics.DhcpEventsStagedTotal, 1)
	return nil
}

// Take
// ------------------------------------------------------------
// 두 시퀀스의 소유권을 도착 순서 그대로 호출자에게 넘기고
// 빈 staging 을 남긴다. 한 번의 lock 안에서 교체하므로
// 부분적으로만 옮겨지는 경우는 없다.
func (s *Staging) Take() ([]*model.ClientSession, []*model.DhcpTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients, dhcp := s.clients, s.dhcp
	s.clients, s.dhcp = nil, nil

	if len(clients) > 0 {
		s.clientIdx = make(map[uint64]*model.ClientSession)
	}
	if len(dhcp) > 0 {
		s.dhcpIdx = make(map[uint32]*model.DhcpTransaction)
	}

	return clients, dhcp
}

// Len 은 현재 staging 된 (client, dhcp) 엔트리 수.
func (s *Staging) Len() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients), len(s.dhcp)
}
