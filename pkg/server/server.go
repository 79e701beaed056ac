package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/bastiangx/qacbox/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"
)

// Limits bound what a request may ask for.
type Limits struct {
	MinPrefix  int
	MaxPrefix  int
	MaxLimit   int
	RatePerSec float64
	Burst      int
}

// DefaultLimits match the defaults of the [server] config section.
var DefaultLimits = Limits{MinPrefix: 1, MaxPrefix: 60, MaxLimit: 64, RatePerSec: 50, Burst: 100}

// Server handles the IPC for query completions.
type Server struct {
	completer suggest.Completer
	reader    io.Reader
	writer    io.Writer

	mu      sync.RWMutex
	limits  Limits
	limiter *rate.Limiter

	requestCount int
}

// NewServer creates a completion server using stdin/stdout for IPC.
func NewServer(completer suggest.Completer, limits Limits) *Server {
	return NewServerIO(completer, limits, os.Stdin, os.Stdout)
}

// NewServerIO creates a completion server on the given streams.
func NewServerIO(completer suggest.Completer, limits Limits, r io.Reader, w io.Writer) *Server {
	s := &Server{completer: completer, reader: r, writer: w}
	s.SetLimits(limits)
	return s
}

// SetLimits replaces the limits, e.g. after a config reload.
func (s *Server) SetLimits(l Limits) {
	l = l.Normalized()
	s.mu.Lock()
	s.limits = l
	s.limiter = l.Limiter()
	s.mu.Unlock()
	log.Debugf("IPC limits: prefix %d..%d, limit %d, rate %.1f/s burst %d", l.MinPrefix, l.MaxPrefix, l.MaxLimit, l.RatePerSec, l.Burst)
}

// Normalized fills unset bounds from DefaultLimits.
func (l Limits) Normalized() Limits {
	if l.MaxLimit <= 0 {
		l.MaxLimit = DefaultLimits.MaxLimit
	}
	if l.MaxPrefix <= 0 {
		l.MaxPrefix = DefaultLimits.MaxPrefix
	}
	return l
}

// Limiter returns a token bucket for the configured rate. A zero rate
// means unlimited.
func (l Limits) Limiter() *rate.Limiter {
	lim := rate.Inf
	if l.RatePerSec > 0 {
		lim = rate.Limit(l.RatePerSec)
	}
	return rate.NewLimiter(lim, max(l.Burst, 1))
}

func (s *Server) current() (Limits, *rate.Limiter) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits, s.limiter
}

// Start serves requests until the input ends or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting IPC server.")
	dec := msgpack.NewDecoder(s.reader)
	enc := msgpack.NewEncoder(s.writer)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("Reading request: %v", err)
			return fmt.Errorf("decode request: %w", err)
		}
		s.requestCount++
		if err := enc.Encode(s.handle(req)); err != nil {
			log.Errorf("Writing reply: %v", err)
			return fmt.Errorf("encode reply: %w", err)
		}
	}
}

// RequestCount is the number of requests handled so far.
func (s *Server) RequestCount() int { return s.requestCount }

func (s *Server) handle(req Request) Reply {
	limits, limiter := s.current()
	if !limiter.Allow() {
		return errorReply(req.ID, "rate limit exceeded", CodeRateLimited)
	}
	switch req.Op {
	case lookup.OpComplete, "":
		return s.handleComplete(req, limits)
	case lookup.OpInfo:
		return s.handleInfo(req)
	case lookup.OpPing:
		return Reply{ID: req.ID}
	default:
		return errorReply(req.ID, fmt.Sprintf("unknown op: %s", req.Op), CodeBadRequest)
	}
}

func errorReply(id, msg string, code int) Reply {
	log.Debugf("Request %s failed: %s", id, msg)
	return Reply{ID: id, Error: msg, Code: code}
}

// Check returns the limit to use and whether the prefix is completed at all.
// A missing limit becomes suggest.DefaultLimit and anything above MaxLimit is
// clamped. Prefixes shorter than MinPrefix or longer than MaxPrefix are
// answered with an empty result list, never an error.
func (l Limits) Check(prefix string, limit int) (int, bool) {
	if limit < 1 {
		limit = suggest.DefaultLimit
	}
	limit = min(limit, l.MaxLimit)
	n := utf8.RuneCountInString(prefix)
	if n < l.MinPrefix || n > l.MaxPrefix {
		log.Debugf("Prefix of %d characters outside %d..%d, answering empty", n, l.MinPrefix, l.MaxPrefix)
		return limit, false
	}
	return limit, true
}

// handleComplete completes and echoes the request token as the reply timestamp.
func (s *Server) handleComplete(req Request, limits Limits) Reply {
	limit, ok := limits.Check(req.Prefix, req.Limit)
	if !ok {
		return Reply{ID: req.ID, Results: []lookup.Result{}, Timestamp: req.Token}
	}

	start := time.Now()
	results := s.completer.Complete(req.Prefix, limit)
	return Reply{
		ID:        req.ID,
		Results:   results,
		Count:     len(results),
		Timestamp: req.Token,
		TimeTaken: time.Since(start).Microseconds(),
	}
}

func (s *Server) handleInfo(req Request) Reply {
	if req.QID == "" {
		return errorReply(req.ID, "missing qid", CodeBadRequest)
	}
	info, _ := s.completer.Info(req.QID)
	return Reply{ID: req.ID, Info: &info}
}
