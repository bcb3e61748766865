// Package web serves the link simulator over HTTP.
package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/francoispqt/gojay"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/linksim/linksim/channel"
	"github.com/linksim/linksim/estimate"
	"github.com/linksim/linksim/internal/metrics"
	"github.com/linksim/linksim/pipeline"
	"github.com/linksim/linksim/textbits"
)

const maxBodyBytes = 1 << 20

// RequestIDHeader carries the per-request identifier on every response.
const RequestIDHeader = "X-Request-Id"

type Options struct {
	// MaxChars rejects longer messages before encoding. Zero disables it.
	MaxChars    int
	CORSOrigins []string
	// Seed feeds the root source that seeds every request's channel.
	Seed    uint64
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Server handles POST /processar. A single pipeline template is shared; each
// request gets its own noise source.
type Server struct {
	tmpl     *pipeline.Pipeline
	text     *textbits.Codec
	maxChars int
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu   sync.Mutex
	root *rand.Rand

	handler http.Handler
}

func NewServer(p *pipeline.Pipeline, tc *textbits.Codec, o Options) *Server {
	s := &Server{
		tmpl:     p,
		text:     tc,
		maxChars: o.MaxChars,
		log:      o.Logger,
		metrics:  o.Metrics,
		root:     rand.New(rand.NewPCG(o.Seed, 0x77656221)),
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := httprouter.New()
	r.POST("/processar", s.process)
	r.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	if s.metrics != nil {
		r.Handler(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, v any) {
		s.log.Error("web.panic", "path", req.URL.Path, "panic", v)
		writeError(w, http.StatusInternalServerError, "internal error")
	}

	origins := o.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{RequestIDHeader},
	})
	s.handler = c.Handler(s.withRequestLog(r))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) nextNoiser() channel.Noiser {
	s.mu.Lock()
	seed := s.root.Uint64()
	s.mu.Unlock()
	return channel.NewSeeded(seed)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := decodeRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if n := textbits.CharCount(req.Text); s.maxChars > 0 && n > s.maxChars {
		writeError(w, http.StatusBadRequest, (&tooLongError{n: n, max: s.maxChars}).Error())
		return
	}

	res, err := s.tmpl.WithNoiser(s.nextNoiser()).TransmitText(s.text, req.Text, req.Variance)
	if err != nil {
		status := http.StatusInternalServerError
		var (
			ee *textbits.EncodingError
			oe *pipeline.OversizeError
		)
		if errors.As(err, &ee) || errors.As(err, &oe) || errors.Is(err, pipeline.ErrInvalidVariance) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	ratio, err := estimate.BitErrorRate(res.Original, res.Decoded)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveTransmission(s.tmpl.Codec().Name(), ratio)
	}
	s.log.Debug("web.processed", "chars", textbits.CharCount(req.Text), "variance", req.Variance, "errors", ratio.String())

	writeJSON(w, http.StatusOK, &processResponse{
		Encoded:    res.Encoded,
		Received:   res.Received,
		Decoded:    res.Decoded,
		Ratio:      ratio.String(),
		InputText:  req.Text,
		OutputText: res.DecodedText,
		Variance:   req.Variance,
	})
}

type tooLongError struct{ n, max int }

func (e *tooLongError) Error() string {
	return fmt.Sprintf("message has %d characters, the limit is %d", e.n, e.max)
}

func writeJSON(w http.ResponseWriter, status int, v gojay.MarshalerJSONObject) {
	b, err := gojay.MarshalJSONObject(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody(msg))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.Info("web.request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
