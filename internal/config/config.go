// internal/config/config.go
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// 지원하는 sink transport 종류
const (
	SinkLog    = "log"
	SinkFile   = "file"
	SinkS3     = "s3"
	SinkKafka  = "kafka"
	SinkNATS   = "nats"
	SinkSQLite = "sqlite"
)

// 지원하는 payload 인코딩
const (
	FormatJSON    = "json"
	FormatJSONLGZ = "jsonl.gz"
)

var ErrInvalid = errors.New("config: invalid")

// Config
//
// 프로세스 시작 시 Load() 로 한 번 채워지고 이후에는 읽기 전용.
// sink 별 설정은 선택된 SINK 에 대해서만 필수로 검사한다.
type Config struct {

	// ---------------------------
	// 서버 식별자 / 네트워크
	// ---------------------------

	ServiceName string // 로그 service 필드
	InstanceID  string // hostname, 실패 시 랜덤 hex
	HTTPAddr    string // 예: ":8080"
	MaxBodySize int64  // producer / request body 최대 크기 (바이트)

	// ---------------------------
	// 로깅
	// ---------------------------

	LogLevel          string
	LogPretty         bool
	LogSampleN        uint32 // 1 이하면 샘플링 안 함
	LogFile           string // 비어 있으면 stdout
	LogFileMaxMB      int
	LogFileBackups    int
	LogFileMaxAgeDays int

	// ---------------------------
	// Sink dispatcher
	// ---------------------------

	Sink        string        // log | file | s3 | kafka | nats | sqlite
	SinkFormat  string        // json | jsonl.gz
	SinkQueue   int           // 인코딩된 payload 대기열 크기
	SinkTimeout time.Duration // Deliver 1회 timeout

	// ---------------------------
	// S3
	// ---------------------------
	// SDK retry 는 항상 0. 실패한 report 는 재시도하지 않는다.

	AWSRegion string
	S3Bucket  string
	S3Prefix  string
	S3Timeout time.Duration

	// ---------------------------
	// 로컬 archive (SINK=file)
	// ---------------------------

	ArchiveDir           string
	ArchiveMaxAge        time.Duration // 0 이면 TTL 없음
	ArchiveMaxSizeBytes  int64         // 0 이면 용량 제한 없음
	ArchivePruneInterval time.Duration

	// ---------------------------
	// Kafka
	// ---------------------------

	KafkaBrokers []string
	KafkaTopic   string

	// ---------------------------
	// NATS JetStream
	// ---------------------------

	NATSURL     string
	NATSStream  string
	NATSSubject string

	// ---------------------------
	// SQLite
	// ---------------------------

	SQLitePath string

	// 시작 시 한 번 적용할 reporting 요청 (yaml). 비어 있으면 없음.
	RequestFile string
}

// Load
//
// 환경 변수 기반으로 Config 를 채운다.
// 필수 값이 없거나 형식이 잘못되면 즉시 종료(fail-fast).
func Load() Config {
	cfg := Config{
		ServiceName: env("SERVICE_NAME", "events-report"),
		InstanceID:  fallbackInstanceID(),
		HTTPAddr:    must("HTTP_ADDR"),
		MaxBodySize: envInt64("MAX_BODY_SIZE", 64*1024),

		LogLevel:          env("LOG_LEVEL", "info"),
		LogPretty:         envBool("LOG_PRETTY", false),
		LogSampleN:        uint32(envInt("LOG_SAMPLE_N", 0)),
		LogFile:           env("LOG_FILE", ""),
		LogFileMaxMB:      envInt("LOG_FILE_MAX_MB", 100),
		LogFileBackups:    envInt("LOG_FILE_BACKUPS", 5),
		LogFileMaxAgeDays: envInt("LOG_FILE_MAX_AGE_DAYS", 7),

		Sink:        strings.ToLower(env("SINK", SinkLog)),
		SinkFormat:  strings.ToLower(env("SINK_FORMAT", FormatJSON)),
		SinkQueue:   envInt("SINK_QUEUE", 64),
		SinkTimeout: envDur("SINK_TIMEOUT", 5*time.Second),

		AWSRegion: env("AWS_REGION", ""),
		S3Bucket:  env("S3_BUCKET", ""),
		S3Prefix:  env("S3_PREFIX", "events"),
		S3Timeout: envDur("S3_TIMEOUT", 5*time.Second),

		ArchiveDir:           env("ARCHIVE_DIR", "data/archive"),
		ArchiveMaxAge:        envDur("ARCHIVE_MAX_AGE", 72*time.Hour),
		ArchiveMaxSizeBytes:  envInt64("ARCHIVE_MAX_SIZE_BYTES", 512*1024*1024),
		ArchivePruneInterval: envDur("ARCHIVE_PRUNE_INTERVAL", time.Minute),

		KafkaBrokers: envList("KAFKA_BROKERS"),
		KafkaTopic:   env("KAFKA_TOPIC", "events-report"),

		NATSURL:     env("NATS_URL", "nats://127.0.0.1:4222"),
		NATSStream:  env("NATS_STREAM", "EVENTS_REPORT"),
		NATSSubject: env("NATS_SUBJECT", "events.report"),

		SQLitePath: env("SQLITE_PATH", "data/events-report.db"),

		RequestFile: env("REQUEST_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}

// Validate 는 선택된 sink 에 필요한 값과 공통 범위를 검사한다.
func (c Config) Validate() error {
	switch c.SinkFormat {
	case FormatJSON, FormatJSONLGZ:
	default:
		return fmt.Errorf("%w: SINK_FORMAT=%q", ErrInvalid, c.SinkFormat)
	}

	if c.SinkQueue <= 0 {
		return fmt.Errorf("%w: SINK_QUEUE must be > 0", ErrInvalid)
	}
	if c.SinkTimeout <= 0 {
		return fmt.Errorf("%w: SINK_TIMEOUT must be > 0", ErrInvalid)
	}
	if c.MaxBodySize <= 0 {
		return fmt.Errorf("%w: MAX_BODY_SIZE must be > 0", ErrInvalid)
	}

	var missing []string
	need := func(key, v string) {
		if v == "" {
			missing = append(missing, key)
		}
	}

	switch c.Sink {
	case SinkLog:
	case SinkFile:
		need("ARCHIVE_DIR", c.ArchiveDir)
	case SinkS3:
		need("AWS_REGION", c.AWSRegion)
		need("S3_BUCKET", c.S3Bucket)
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			missing = append(missing, "KAFKA_BROKERS")
		}
		need("KAFKA_TOPIC", c.KafkaTopic)
	case SinkNATS:
		need("NATS_URL", c.NATSURL)
		need("NATS_STREAM", c.NATSStream)
		need("NATS_SUBJECT", c.NATSSubject)
	case SinkSQLite:
		need("SQLITE_PATH", c.SQLitePath)
	default:
		return fmt.Errorf("%w: unknown SINK=%q", ErrInvalid, c.Sink)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: SINK=%s requires %s", ErrInvalid, c.Sink, strings.Join(missing, ", "))
	}
	return nil
}

// must
//
// 필수 환경변수가 없으면 즉시 로그 출력 후 종료(fail-fast).
func must(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("missing required env: %s", key)
	}
	return v
}

// env / envInt / envInt64 / envDur / envBool / envList
//
// 선택 값. 비어 있으면 기본값, 형식이 잘못되면 종료.
func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int env %s=%q: %v", key, v, err)
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("invalid int64 env %s=%q: %v", key, v, err)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration env %s=%q: %v", key, v, err)
	}
	return d
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("invalid bool env %s=%q: %v", key, v, err)
	}
	return b
}

// envList 는 콤마로 구분된 목록. 빈 항목은 버린다.
func envList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// fallbackInstanceID
//
// 파일명 / 로그에 쓰는 인스턴스 식별자.
//   - 기본: hostname
//   - fallback: 12자리 랜덤 hex
func fallbackInstanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	var b [6]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
