package pool

import (
	"bytes"
	"sync"

	"events-report/internal/model"

	"github.com/klauspost/compress/gzip"
)

// ---------------------------------------------------------------
// Pool 구성 목적
//
// reporter 는 매 cycle 마다 staging 엔트리 수만큼 레코드를 만들고
// flush 직후 모두 버린다. producer HTTP body, 인코딩 버퍼도 마찬가지.
//
// 아래 Pool들은 cycle 사이의 할당/GC 를 줄이기 위한 것.
// ---------------------------------------------------------------

var (
	// ClientRecordPool / DhcpRecordPool:
	//   - drain 시 생성되는 레코드 재사용
	//   - Buffer.Clear() 에서 반환된다
	ClientRecordPool = sync.Pool{
		New: func() any { return new(model.ClientEventRecord) },
	}
	DhcpRecordPool = sync.Pool{
		New: func() any { return new(model.DhcpEventRecord) },
	}

	// BodyPool:
	//   - producer POST body 임시 버퍼
	//   - 이벤트 한 건은 수백 바이트 수준이라 초기 용량 4KB 면 충분
	BodyPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 4*1024))
		},
	}

	// BufferPool:
	//   - report 인코딩 결과를 담는 임시 버퍼
	//   - 1MB 초과 버퍼는 풀에 넣지 않음
	BufferPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 64*1024))
		},
	}

	// GzipPool:
	//   - gzip.Writer 재사용, BestSpeed
	GzipPool = sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
			return w
		},
	}
)

// Pool에 되돌려줄 최대 인코딩 버퍼 용량
const MaxBufferCap = 1 * 1024 * 1024 // 1MB

// NewClientRecord / NewDhcpRecord:
//   - pool 에서 꺼낸 레코드는 항상 zero 상태로 반환한다.
func NewClientRecord() *model.ClientEventRecord {
	r := ClientRecordPool.Get().(*model.ClientEventRecord)
	*r = model.ClientEventRecord{}
	return r
}

func NewDhcpRecord() *model.DhcpEventRecord {
	r := DhcpRecordPool.Get().(*model.DhcpEventRecord)
	*r = model.DhcpEventRecord{}
	return r
}

// RecycleClient / RecycleDhcp:
//   - marker 포인터까지 끊어서 반환 (이전 cycle 데이터가 남지 않도록)
func RecycleClient(r *model.ClientEventRecord) {
	*r = model.ClientEventRecord{}
	ClientRecordPool.Put(r)
}

func RecycleDhcp(r *model.DhcpEventRecord) {
	*r = model.DhcpEventRecord{}
	DhcpRecordPool.Put(r)
}

// PutBody:
//   - maxCap(보통 MaxBodySize*2)보다 크면 버려서 GC로.
func PutBody(buf *bytes.Buffer, maxCap int64) {
	if int64(buf.Cap()) <= maxCap {
		buf.Reset()
		BodyPool.Put(buf)
	}
}

// PutBuffer:
//   - 인코딩 결과 버퍼 반환, 1MB 이하만 재사용
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= MaxBufferCap {
		buf.Reset()
		BufferPool.Put(buf)
	}
}
