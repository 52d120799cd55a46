package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	"events-report/internal/config"
	"events-report/internal/metrics"
	"events-report/internal/model"
	"events-report/internal/pool"
	"events-report/internal/report"
	"events-report/internal/worker"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Stager 는 producer 이벤트를 staging 에 기록한다 (stage.Staging).
type Stager interface {
	Client(sessionID uint64, kind model.ClientEventKind, ev model.ClientEvent) error
	Dhcp(xid uint32, kind model.DhcpEventKind, ev model.DhcpEvent) error
}

// Reporting 은 reporter 의 외부 진입점 (report.Reporter).
type Reporting interface {
	RequestReporting(radio *model.RadioConfig, req *model.ReportRequest) bool
	Status() (report.Status, bool)
}

type Handler struct {
	cfg      config.Config
	metrics  *metrics.Metrics
	staging  Stager
	reporter Reporting
	log      zerolog.Logger
}

func NewHandler(cfg config.Config, m *metrics.Metrics, st Stager, rep Reporting) *Handler {
	return &Handler{
		cfg:      cfg,
		metrics:  m,
		staging:  st,
		reporter: rep,
		log:      zlog.With().Str("component", "http").Logger(),
	}
}

// Routes
//
//   - POST /events/client  : client 세션 marker 기록
//   - POST /events/dhcp    : DHCP transaction marker 기록
//   - POST /report/request : reporting 주기/횟수 설정
//   - GET  /report/status  : reporter 상태
//   - GET  /metrics        : prometheus (gatherer), /metrics.txt : text dump
//   - GET  /health
func (h *Handler) Routes(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events/client", h.HandleClientEvent)
	mux.HandleFunc("/events/dhcp", h.HandleDhcpEvent)
	mux.HandleFunc("/report/request", h.HandleReportRequest)
	mux.HandleFunc("/report/status", h.HandleReportStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/metrics.txt", h.HandleMetrics)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

type clientEventRequest struct {
	SessionID uint64                `json:"session_id"`
	Type      model.ClientEventKind `json:"type"`
	Event     model.ClientEvent     `json:"event"`
}

type dhcpEventRequest struct {
	XID   uint32              `json:"x_id"`
	Type  model.DhcpEventKind `json:"type"`
	Event model.DhcpEvent     `json:"event"`
}

// HandleClientEvent
//
// 같은 session_id 로 들어온 이벤트는 아직 drain 되지 않은 엔트리에 누적된다.
// event.ts 가 0 이면 수신 시각(UTC epoch seconds)을 쓴다.
func (h *Handler) HandleClientEvent(w http.ResponseWriter, r *http.Request) {
	var req clientEventRequest
	if !h.decodePost(w, r, &req) {
		return
	}

	if req.Event.Ts == 0 {
		req.Event.Ts = worker.Unix()
	}

	if err := h.staging.Client(req.SessionID, req.Type, req.Event); err != nil {
		h.reject(w, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleDhcpEvent(w http.ResponseWriter, r *http.Request) {
	var req dhcpEventRequest
	if !h.decodePost(w, r, &req) {
		return
	}

	if req.Event.Ts == 0 {
		req.Event.Ts = worker.Unix()
	}

	if err := h.staging.Dhcp(req.XID, req.Type, req.Event); err != nil {
		h.reject(w, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleReportRequest
//
// request 가 없거나 null 이면 400, reporter 상태는 그대로.
// reporter 가 이미 종료되었으면 503.
func (h *Handler) HandleReportRequest(w http.ResponseWriter, r *http.Request) {
	var env model.RequestEnvelope
	if !h.decodePost(w, r, &env) {
		return
	}

	h.log.Info().
		Str("from", sourceAddr(r)).
		Interface("request", env.Request).
		Msg("reporting request received")

	ok := h.reporter.RequestReporting(env.Radio, env.Request)
	switch {
	case env.Request == nil:
		h.reject(w, http.StatusBadRequest)
		return
	case !ok:
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	h.HandleReportStatus(w, r)
}

func (h *Handler) HandleReportStatus(w http.ResponseWriter, _ *http.Request) {
	st, ok := h.reporter.Status()
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// HandleMetrics 는 카운터를 name=value 텍스트로 출력한다.
func (h *Handler) HandleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, h.metrics.String())
}

// decodePost
//
// POST 만 허용하고, body 를 MaxBodySize 로 제한해 BodyPool 버퍼로 읽은 뒤
// v 로 decode 한다. 실패하면 응답을 쓰고 false.
func (h *Handler) decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	atomic.AddInt64(&h.metrics.HTTPRequestsTotal, 1)

	if r.Method != http.MethodPost {
		h.reject(w, http.StatusMethodNotAllowed)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodySize)
	defer r.Body.Close()

	buf := pool.BodyPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer pool.PutBody(buf, h.cfg.MaxBodySize*2)

	if _, err := io.Copy(buf, r.Body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, http.StatusRequestEntityTooLarge)
			return false
		}
		h.reject(w, http.StatusBadRequest)
		return false
	}

	if err := json.Unmarshal(buf.Bytes(), v); err != nil {
		h.reject(w, http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) reject(w http.ResponseWriter, code int) {
	atomic.AddInt64(&h.metrics.HTTPRequestsRejectedTotal, 1)
	w.WriteHeader(code)
}
