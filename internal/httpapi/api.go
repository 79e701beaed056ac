// Package httpapi serves the completion index over HTTP:
//
//	GET /qac?q=<prefix>&t=<token>&l=<limit>  completions, token echoed as "timestamp"
//	GET /tooltip?qid=<id>                    image and abstract of an entity
//	GET /question?q=<question>               question with typed mentions reduced to names
//	GET /metrics                             prometheus metrics
package httpapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bastiangx/qacbox/internal/logger"
	"github.com/bastiangx/qacbox/pkg/document"
	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/bastiangx/qacbox/pkg/server"
	"github.com/bastiangx/qacbox/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// ErrorResponse is the body of every non-200 answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// QuestionResponse is the body of /question.
type QuestionResponse struct {
	Question string `json:"question"`
}

// API holds the handlers. Limits can be replaced while serving.
type API struct {
	completer suggest.Completer
	log       *log.Logger

	mu      sync.RWMutex
	limits  server.Limits
	limiter *rate.Limiter
}

// New returns handlers over completer.
func New(completer suggest.Completer, limits server.Limits) *API {
	a := &API{completer: completer, log: logger.New("httpapi")}
	a.SetLimits(limits)
	return a
}

// SetLimits replaces prefix bounds and the rate limit.
func (a *API) SetLimits(l server.Limits) {
	l = l.Normalized()
	a.mu.Lock()
	a.limits = l
	a.limiter = l.Limiter()
	a.mu.Unlock()
}

func (a *API) current() (server.Limits, *rate.Limiter) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.limits, a.limiter
}

// Router builds the gin engine.
func (a *API) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), a.instrument())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, a.completer.Stats()) })

	api := r.Group("/", a.rateLimit())
	api.GET("/qac", a.HandleQAC)
	api.GET("/tooltip", a.HandleTooltip)
	api.GET("/question", a.HandleQuestion)
	return r
}

func (a *API) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		requestLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
		a.log.Debug("request", "route", route, "status", status, "took", time.Since(start))
	}
}

func (a *API) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, limiter := a.current()
		if !limiter.Allow() {
			rateLimited.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// HandleQAC completes a question prefix. The t parameter is echoed as the
// response timestamp so clients can drop stale answers. Prefixes outside the
// configured length bounds get an empty result list.
func (a *API) HandleQAC(c *gin.Context) {
	limits, _ := a.current()
	q := c.Query("q")

	token, err := optionalInt(c, "t")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "t must be an integer", Code: "INVALID_PARAMETER"})
		return
	}
	want, err := optionalInt(c, "l")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "l must be an integer", Code: "INVALID_PARAMETER"})
		return
	}
	var results []lookup.Result
	if limit, ok := limits.Check(q, int(want)); ok {
		results = a.completer.Complete(q, limit)
	}
	if results == nil {
		results = []lookup.Result{}
	}
	completionResults.Observe(float64(len(results)))
	c.JSON(http.StatusOK, lookup.Response{Results: results, Timestamp: token})
}

// HandleTooltip returns the info of one entity. Unknown entities get an
// empty info rather than an error.
func (a *API) HandleTooltip(c *gin.Context) {
	qid := c.Query("qid")
	if qid == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "qid is required", Code: "MISSING_PARAMETER"})
		return
	}
	info, _ := a.completer.Info(qid)
	c.JSON(http.StatusOK, info)
}

// HandleQuestion echoes a question in the form an answering backend takes.
func (a *API) HandleQuestion(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "q is required", Code: "MISSING_PARAMETER"})
		return
	}
	c.JSON(http.StatusOK, QuestionResponse{Question: document.StripTypedMentions(q)})
}

func optionalInt(c *gin.Context, key string) (int64, error) {
	s := c.Query(key)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
