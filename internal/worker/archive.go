// internal/worker/archive.go
package worker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"events-report/internal/config"
	"events-report/internal/metrics"
	"events-report/internal/model"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const metaSuffix = ".meta.json"

var ErrArchiveFull = errors.New("worker: archive full")

// Archive 는 SINK=file transport. report 하나당 data 파일 하나와
// .meta.json sidecar 를 로컬 디렉토리에 남긴다.
//
//   - 용량(MaxSizeBytes) 초과 시 가장 오래된 파일부터 지운다
//   - TTL(MaxAge) 은 파일명 prefix 의 Unix timestamp 기준 (Prune)
//   - 시작 시 기존 파일을 스캔해 용량/파일 수를 복원한다
type Archive struct {
	opts    ArchiveOptions
	metrics *metrics.Metrics
	log     zerolog.Logger

	mu        sync.Mutex
	sizeBytes int64
	files     int64
}

type ArchiveOptions struct {
	Dir          string
	InstanceID   string
	MaxAge       time.Duration // 0 이면 TTL 없음
	MaxSizeBytes int64         // 0 이면 제한 없음
}

type archiveMeta struct {
	ReportID   string `json:"report_id"`
	NumClients int    `json:"num_clients"`
	NumDhcp    int    `json:"num_dhcp"`
	Format     string `json:"format"`
}

// NewArchive 는 디렉토리를 만들고 기존 파일을 스캔한다.
//   - data 없이 남은 .meta.json 은 삭제
//   - 첫 줄을 읽을 수 없는 jsonl.gz 파일은 삭제 (쓰다 만 파일)
func NewArchive(opts ArchiveOptions, m *metrics.Metrics) (*Archive, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	a := &Archive{
		opts:    opts,
		metrics: m,
		log:     zlog.With().Str("component", "archive").Logger(),
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan archive dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name := e.Name()
		full := filepath.Join(opts.Dir, name)

		if strings.HasSuffix(name, metaSuffix) {
			dataName := strings.TrimSuffix(name, metaSuffix)
			if _, err := os.Stat(filepath.Join(opts.Dir, dataName)); os.IsNotExist(err) {
				_ = os.Remove(full)
			}
			continue
		}

		if strings.HasSuffix(name, "."+config.FormatJSONLGZ) && !validGzipJSONL(full) {
			a.log.Warn().Str("file", name).Msg("corrupt archive file removed")
			_ = os.Remove(full)
			_ = os.Remove(full + metaSuffix)
			atomic.AddInt64(&m.ArchiveDroppedTotal, 1)
			continue
		}

		if info, err := e.Info(); err == nil {
			a.sizeBytes += info.Size()
			a.files++
		}
	}

	atomic.AddInt64(&m.ArchiveSizeBytes, a.sizeBytes)
	atomic.AddInt64(&m.ArchiveFilesCurrent, a.files)

	return a, nil
}

func (a *Archive) Name() string { return config.SinkFile }

func (a *Archive) Close() error { return nil }

// Deliver 는 payload 를 파일로 남긴다. 용량을 확보할 수 없으면 ErrArchiveFull.
func (a *Archive) Deliver(ctx context.Context, p *model.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(p.Body) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	size := int64(len(p.Body))
	if !a.ensureCapacity(size) {
		atomic.AddInt64(&a.metrics.ArchiveDroppedTotal, 1)
		return fmt.Errorf("%w: report %s bytes=%d", ErrArchiveFull, p.ReportID, size)
	}

	dataPath := filepath.Join(a.opts.Dir, NewFilename(a.opts.InstanceID, p.Format))

	if err := os.WriteFile(dataPath, p.Body, 0o600); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}

	// sidecar 가 없어도 data 파일은 유효하다. 실패는 로그만 남긴다.
	if err := writeMeta(dataPath, p); err != nil {
		a.log.Warn().
			Err(err).
			Str("report_id", p.ReportID).
			Str("file", filepath.Base(dataPath)).
			Msg("archive meta write failed")
	}

	a.sizeBytes += size
	a.files++
	atomic.AddInt64(&a.metrics.ArchiveSizeBytes, size)
	atomic.AddInt64(&a.metrics.ArchiveFilesCurrent, 1)

	return nil
}

func writeMeta(dataPath string, p *model.Payload) error {
	meta, err := json.Marshal(archiveMeta{
		ReportID:   p.ReportID,
		NumClients: p.NumClients,
		NumDhcp:    p.NumDhcp,
		Format:     p.Format,
	})
	if err != nil {
		return fmt.Errorf("marshal archive meta: %w", err)
	}
	if err := os.WriteFile(dataPath+metaSuffix, meta, 0o600); err != nil {
		return fmt.Errorf("write archive meta: %w", err)
	}
	return nil
}

// ensureCapacity 는 incoming 이 들어갈 때까지 가장 오래된 파일을 지운다.
// 지울 파일이 없는데도 모자라면 false. a.mu 를 잡은 상태로 호출.
func (a *Archive) ensureCapacity(incoming int64) bool {
	max := a.opts.MaxSizeBytes
	if max <= 0 {
		return true
	}
	if incoming > max {
		return false
	}

	for a.sizeBytes+incoming > max {
		names := a.dataFiles()
		if len(names) == 0 {
			return false
		}
		a.remove(names[0])
		atomic.AddInt64(&a.metrics.ArchiveFilesExpiredTotal, 1)
		a.log.Warn().Str("file", names[0]).Msg("archive capacity, removed oldest")
	}
	return true
}

// Prune 은 MaxAge 를 넘긴 파일을 지우고 지운 개수를 반환한다.
func (a *Archive) Prune(now time.Time) int {
	if a.opts.MaxAge <= 0 {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for _, name := range a.dataFiles() {
		sec, ok := extractUnixFromFilename(name)
		if !ok {
			continue
		}
		// 정렬되어 있으므로 TTL 안쪽 파일을 만나면 끝
		if now.Sub(time.Unix(sec, 0)) <= a.opts.MaxAge {
			break
		}
		a.remove(name)
		atomic.AddInt64(&a.metrics.ArchiveFilesExpiredTotal, 1)
		removed++
	}
	return removed
}

// Len 은 (파일 수, 바이트) 현재값.
func (a *Archive) Len() (int64, int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.files, a.sizeBytes
}

func (a *Archive) remove(name string) {
	dataPath := filepath.Join(a.opts.Dir, name)

	if info, err := os.Stat(dataPath); err == nil {
		a.sizeBytes -= info.Size()
		atomic.AddInt64(&a.metrics.ArchiveSizeBytes, -info.Size())
	}

	_ = os.Remove(dataPath)
	_ = os.Remove(dataPath + metaSuffix)

	a.files--
	atomic.AddInt64(&a.metrics.ArchiveFilesCurrent, -1)
}

// dataFiles 는 meta / 숨김 파일을 뺀 data 파일명을 오래된 순으로 반환한다.
// ReadDir 순서는 보장되지 않으므로 정렬이 필요하다.
func (a *Archive) dataFiles() []string {
	entries, err := os.ReadDir(a.opts.Dir)
	if err != nil {
		return nil
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "" || name[0] == '.' || strings.HasSuffix(name, metaSuffix) {
			continue
		}
		files = append(files, name)
	}

	sort.Strings(files)
	return files
}

// validGzipJSONL 은 gzip 을 풀어 첫 줄이 JSON 인지 본다.
func validGzipJSONL(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return false
	}
	defer gz.Close()

	line, err := bufio.NewReader(gz).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return false
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return false
	}

	var tmp map[string]any
	return json.Unmarshal(line, &tmp) == nil
}
