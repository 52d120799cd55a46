package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"events-report/internal/metrics"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listDir(t *testing.T, dir string) (data, meta []string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), metaSuffix) {
			meta = append(meta, e.Name())
		} else {
			data = append(data, e.Name())
		}
	}
	return data, meta
}

func TestArchiveDeliverWritesDataAndMeta(t *testing.T) {
	dir := t.TempDir()
	m := metrics.New()

	a, err := NewArchive(ArchiveOptions{Dir: dir, InstanceID: "ap1"}, m)
	require.NoError(t, err)

	require.NoError(t, a.Deliver(context.Background(), samplePayload("r-1", `{"id":"r-1"}`)))

	data, meta := listDir(t, dir)
	require.Len(t, data, 1)
	require.Len(t, meta, 1)
	assert.Contains(t, data[0], "_ap1_")
	assert.True(t, strings.HasSuffix(data[0], ".json"))

	raw, err := os.ReadFile(filepath.Join(dir, meta[0]))
	require.NoError(t, err)
	var am archiveMeta
	require.NoError(t, json.Unmarshal(raw, &am))
	assert.Equal(t, "r-1", am.ReportID)
	assert.Equal(t, 2, am.NumClients)

	files, size := a.Len()
	assert.Equal(t, int64(1), files)
	assert.Equal(t, int64(len(`{"id":"r-1"}`)), size)
	assert.Equal(t, int64(1), m.ArchiveFilesCurrent)
}

func TestArchiveMetaFailureIsLogged(t *testing.T) {
	dir := t.TempDir()

	a, err := NewArchive(ArchiveOptions{Dir: dir, InstanceID: "ap1"}, metrics.New())
	require.NoError(t, err)

	var logs bytes.Buffer
	a.log = zerolog.New(&logs)

	// 다음 파일명의 sidecar 자리에 디렉토리를 만들어 meta 쓰기를 막는다.
	next := (atomic.LoadUint64(&globalCounter) + 1) % 1_000_000
	now := Unix()
	for sec := now - 1; sec <= now+2; sec++ {
		name := fmt.Sprintf("%d_ap1_%06d.json%s", sec, next, metaSuffix)
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o700))
	}

	require.NoError(t, a.Deliver(context.Background(), samplePayload("r-9", `{"id":"r-9"}`)))

	files, _ := a.Len()
	assert.Equal(t, int64(1), files, "data file is kept without its sidecar")

	out := logs.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"report_id":"r-9"`)
	assert.Contains(t, out, "archive meta write failed")
}

func TestWriteMetaMissingDir(t *testing.T) {
	err := writeMeta(filepath.Join(t.TempDir(), "missing", "x.json"), samplePayload("r-1", "{}"))
	assert.Error(t, err)
}

func TestArchiveEvictsOldestOverCapacity(t *testing.T) {
	dir := t.TempDir()
	m := metrics.New()

	a, err := NewArchive(ArchiveOptions{Dir: dir, InstanceID: "ap1", MaxSizeBytes: 250}, m)
	require.NoError(t, err)

	body := strings.Repeat("x", 100)
	for _, id := range []string{"r-1", "r-2", "r-3"} {
		require.NoError(t, a.Deliver(context.Background(), samplePayload(id, body)))
	}

	files, size := a.Len()
	assert.Equal(t, int64(2), files)
	assert.Equal(t, int64(200), size)
	assert.Equal(t, int64(1), m.ArchiveFilesExpiredTotal)

	// 남은 것은 r-2, r-3
	_, meta := listDir(t, dir)
	var ids []string
	for _, name := range meta {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		var am archiveMeta
		require.NoError(t, json.Unmarshal(raw, &am))
		ids = append(ids, am.ReportID)
	}
	assert.ElementsMatch(t, []string{"r-2", "r-3"}, ids)
}

func TestArchiveRejectsOversizedPayload(t *testing.T) {
	m := metrics.New()
	a, err := NewArchive(ArchiveOptions{Dir: t.TempDir(), InstanceID: "ap1", MaxSizeBytes: 10}, m)
	require.NoError(t, err)

	err = a.Deliver(context.Background(), samplePayload("big", strings.Repeat("x", 11)))
	assert.ErrorIs(t, err, ErrArchiveFull)
	assert.Equal(t, int64(1), m.ArchiveDroppedTotal)
}

func TestArchivePruneRemovesExpired(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour).Unix()

	oldName := filepath.Join(dir, strconv.FormatInt(old, 10)+"_ap1_000001.json")
	require.NoError(t, os.WriteFile(oldName, []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(oldName+metaSuffix, []byte("{}"), 0o600))

	m := metrics.New()
	a, err := NewArchive(ArchiveOptions{Dir: dir, InstanceID: "ap1", MaxAge: time.Hour}, m)
	require.NoError(t, err)
	require.NoError(t, a.Deliver(context.Background(), samplePayload("fresh", "{}")))

	files, _ := a.Len()
	require.Equal(t, int64(2), files)

	assert.Equal(t, 1, a.Prune(time.Now()))

	data, meta := listDir(t, dir)
	assert.Len(t, data, 1)
	assert.Len(t, meta, 1)
	assert.NoFileExists(t, oldName)
	assert.Equal(t, int64(1), m.ArchiveFilesExpiredTotal)

	assert.Zero(t, a.Prune(time.Now()))
}

func TestArchiveStartupScan(t *testing.T) {
	dir := t.TempDir()

	// data 없는 meta
	orphan := filepath.Join(dir, "100_ap1_000001.json"+metaSuffix)
	require.NoError(t, os.WriteFile(orphan, []byte("{}"), 0o600))

	// 깨진 gzip
	corrupt := filepath.Join(dir, "100_ap1_000002.jsonl.gz")
	require.NoError(t, os.WriteFile(corrupt, []byte("not gzip"), 0o600))

	// 정상 gzip
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte(`{"id":"ok"}` + "\n"))
	require.NoError(t, gz.Close())
	valid := filepath.Join(dir, "100_ap1_000003.jsonl.gz")
	require.NoError(t, os.WriteFile(valid, buf.Bytes(), 0o600))

	m := metrics.New()
	a, err := NewArchive(ArchiveOptions{Dir: dir, InstanceID: "ap1"}, m)
	require.NoError(t, err)

	assert.NoFileExists(t, orphan)
	assert.NoFileExists(t, corrupt)
	assert.FileExists(t, valid)

	files, size := a.Len()
	assert.Equal(t, int64(1), files)
	assert.Equal(t, int64(buf.Len()), size)
	assert.Equal(t, int64(1), m.ArchiveDroppedTotal)
	assert.Equal(t, int64(buf.Len()), m.ArchiveSizeBytes)
}

func TestExtractUnixFromFilename(t *testing.T) {
	sec, ok := extractUnixFromFilename("1764721594_ap1_000042.jsonl.gz")
	assert.True(t, ok)
	assert.Equal(t, int64(1764721594), sec)

	_, ok = extractUnixFromFilename("nounderscore.json")
	assert.False(t, ok)
	_, ok = extractUnixFromFilename("abc_ap1_000001.json")
	assert.False(t, ok)
}
