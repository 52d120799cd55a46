// internal/logger/log.go
package logger

import (
	"io"
	"os"
	"strings"

	"events-report/internal/config"

	stdlog "log"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init
//
// 프로세스 시작 시 한 번 호출한다.
//
//  1. 레벨: LOG_LEVEL (잘못된 값이면 info)
//  2. 출력: LOG_PRETTY=true 면 ConsoleWriter, 아니면 JSON.
//     LOG_FILE 이 있으면 lumberjack 으로 rolling 파일에 쓴다.
//  3. 모든 로그에 service / instance 필드를 붙인다.
//  4. LOG_SAMPLE_N > 1 이면 Debug/Info 만 N 개 중 1 개 기록. Warn 이상은 전부.
//
// 반환된 io.Closer 는 rolling 파일을 닫는다 (stdout 이면 no-op).
func Init(cfg config.Config) io.Closer {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel))); err == nil {
		level = l
	}
	zerolog.SetGlobalLevel(level)

	out, closer := output(cfg)

	var w io.Writer = out
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.LogFile != "",
			TimeFormat: "15:04:05",
		}
	}

	logger := New(w, cfg)
	zlog.Logger = logger

	// 표준 log 패키지도 zerolog 로 보낸다
	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)

	return closer
}

// New 는 cfg 의 공통 필드와 샘플링을 적용한 logger 를 만든다.
func New(w io.Writer, cfg config.Config) zerolog.Logger {
	base := zerolog.New(w).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()

	if cfg.LogSampleN > 1 {
		return base.Sample(&zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: cfg.LogSampleN},
			InfoSampler:  &zerolog.BasicSampler{N: cfg.LogSampleN},
		})
	}
	return base
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func output(cfg config.Config) (io.Writer, io.Closer) {
	if cfg.LogFile == "" {
		return os.Stdout, nopCloser{}
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogFileMaxMB,
		MaxBackups: cfg.LogFileBackups,
		MaxAge:     cfg.LogFileMaxAgeDays,
		Compress:   true,
	}
	return lj, lj
}
