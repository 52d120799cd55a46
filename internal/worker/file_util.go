// internal/worker/file_util.go
package worker

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// file_util.go
// ------------------------------------------------------------
// archive 파일과 S3 object 에 같은 이름 규칙을 쓴다.
//
//	<unix>_<instance>_<counter>.<format>
//
// 예:
//
//	1764721594_ap1_000042.jsonl.gz
//
// 문자열 정렬 = 시간 정렬이라 archive 의 가장 오래된 파일 선택과
// TTL 판단에 파일명만 있으면 된다.
var globalCounter uint64

// NextCounter 는 1e6 에서 0 으로 돌아가는 순번.
// 같은 초 안의 파일을 구분하는 용도라 wrap 되어도 충돌하지 않는다.
// 단, 한 초 안에 999999 → 000000 으로 넘어가면 이름순 정렬(Archive.dataFiles)
// 에서 새 파일이 앞에 오고 eviction 순서가 뒤집힌다. report 주기(초 단위)로는
// 한 초에 1e6 개가 나올 수 없어 무시한다.
func NextCounter() uint64 {
	return atomic.AddUint64(&globalCounter, 1) % 1_000_000
}

// NewFilename 은 format(json / jsonl.gz)을 확장자로 붙인 파일명을 만든다.
func NewFilename(instanceID, format string) string {
	return fmt.Sprintf("%d_%s_%06d.%s", Unix(), instanceID, NextCounter(), format)
}

// BuildS3Key
// ------------------------------------------------------------
//
//	<prefix>/dt=<YYYY-MM-DD>/hr=<HH>/<filename>
//
// Athena / Glue 파티션 구조 (UTC 기준).
func BuildS3Key(prefix, filename string) string {
	return fmt.Sprintf("%s/dt=%s/hr=%s/%s", strings.TrimSuffix(prefix, "/"), DT(), HR(), filename)
}

// extractUnixFromFilename 은 파일명 prefix 의 Unix seconds 를 파싱한다.
func extractUnixFromFilename(name string) (int64, bool) {
	idx := strings.IndexByte(name, '_')
	if idx <= 0 {
		return 0, false
	}
	sec, err := strconv.ParseInt(name[:idx], 10, 64)
	if err != nil || sec <= 0 {
		return 0, false
	}
	return sec, true
}
