package report

import (
	"events-report/internal/model"
	"events-report/internal/pool"
)

// Buffer 는 마지막 flush 이후 drain 된 레코드를 도착 순서대로 보관한다.
// 같은 ID 의 레코드도 합치지 않는다. reporter loop goroutine 전용이라 lock 이 없다.
type Buffer struct {
	clients []*model.ClientEventRecord
	dhcp    []*model.DhcpEventRecord
}

func (b *Buffer) AppendClient(r *model.ClientEventRecord) {
	b.clients = append(b.clients, r)
}

func (b *Buffer) AppendDhcp(r *model.DhcpEventRecord) {
	b.dhcp = append(b.dhcp, r)
}

func (b *Buffer) IsEmpty() bool {
	return len(b.clients) == 0 && len(b.dhcp) == 0
}

func (b *Buffer) Len() (int, int) {
	return len(b.clients), len(b.dhcp)
}

// DrainAll 은 두 시퀀스의 소유권을 넘기고 버퍼를 비운다.
func (b *Buffer) DrainAll() ([]*model.ClientEventRecord, []*model.DhcpEventRecord) {
	clients, dhcp := b.clients, b.dhcp
	b.clients, b.dhcp = nil, nil
	return clients, dhcp
}

// Clear 는 남아 있는 레코드를 모두 pool 로 돌려보낸다.
func (b *Buffer) Clear() {
	Release(b.DrainAll())
}

// Release 는 DrainAll 로 넘겨받은 레코드를 pool 로 반환한다.
// sink 전송 결과와 관계없이 호출된다.
func Release(clients []*model.ClientEventRecord, dhcp []*model.DhcpEventRecord) {
	for i, r := range clients {
		pool.RecycleClient(r)
		clients[i] = nil
	}
	for i, r := range dhcp {
		pool.RecycleDhcp(r)
		dhcp[i] = nil
	}
}
