package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aofei/air"
	"github.com/askcn/ask/base"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// metricRegistry holds the collectors of the site.
	metricRegistry = prometheus.NewRegistry()

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ask",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ask",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method"},
	)

	questionsAskedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ask",
		Name:      "questions_asked_total",
		Help:      "Total number of questions asked.",
	})

	answersPostedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ask",
		Name:      "answers_posted_total",
		Help:      "Total number of answers posted.",
	})

	likesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ask",
		Name:      "likes_total",
		Help:      "Total number of question likes.",
	})

	signupsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ask",
		Name:      "signups_total",
		Help:      "Total number of accounts created.",
	})

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ask",
			Name:      "logins_total",
			Help:      "Total number of login attempts by result.",
		},
		[]string{"result"},
	)

	// metricHandler exposes the collectors of the `metricRegistry`.
	metricHandler = promhttp.HandlerFor(
		metricRegistry,
		promhttp.HandlerOpts{},
	)
)

func init() {
	metricRegistry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		questionsAskedTotal,
		answersPostedTotal,
		likesTotal,
		signupsTotal,
		loginsTotal,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	base.Air.BATCH(getHeadMethods, "/metrics", hMetrics)
}

// hMetrics handles requests to scrape the metrics.
func hMetrics(req *air.Request, res *air.Response) error {
	metricHandler.ServeHTTP(res.HTTPResponseWriter(), req.HTTPRequest())
	return nil
}

// metricGas records the count and the duration of requests.
func metricGas(next air.Handler) air.Handler {
	return func(req *air.Request, res *air.Response) error {
		if req.Path == "/metrics" {
			return next(req, res)
		}

		start := time.Now()
		err := next(req, res)

		status := res.Status
		if err != nil && status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}

		httpRequestsTotal.
			WithLabelValues(req.Method, strconv.Itoa(status)).
			Inc()
		httpRequestDuration.
			WithLabelValues(req.Method).
			Observe(time.Since(start).Seconds())

		return err
	}
}
