package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Metrics struct {
	feedFetches     *prometheus.CounterVec
	unreadMessages  prometheus.Gauge
	callTransitions *prometheus.CounterVec
	typingSignals   prometheus.Counter
	playbackStarts  prometheus.Counter
	storeDuration   *prometheus.HistogramVec
	logger          *zap.Logger
}

func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		feedFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opsdeck_client_feed_fetches_total",
				Help: "Feed poll results by outcome",
			},
			[]string{"result"},
		),
		unreadMessages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opsdeck_client_unread_messages",
				Help: "Unread messages accumulated while scrolled away from the bottom",
			},
		),
		callTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opsdeck_client_call_transitions_total",
				Help: "Call coordinator state transitions",
			},
			[]string{"state"},
		),
		typingSignals: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "opsdeck_client_typing_signals_total",
				Help: "Typing signals broadcast after debounce",
			},
		),
		playbackStarts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "opsdeck_client_playback_starts_total",
				Help: "Voice message playback starts",
			},
		),
		storeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opsdeck_client_store_request_duration_seconds",
				Help:    "Store request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		logger: logger,
	}

	prometheus.MustRegister(
		m.feedFetches,
		m.unreadMessages,
		m.callTransitions,
		m.typingSignals,
		m.playbackStarts,
		m.storeDuration,
	)

	return m
}

func (m *Metrics) ObserveFetch(result string) {
	if m == nil {
		return
	}
	m.feedFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) SetUnread(count int) {
	if m == nil {
		return
	}
	m.unreadMessages.Set(float64(count))
}

func (m *Metrics) ObserveCallTransition(state string) {
	if m == nil {
		return
	}
	m.callTransitions.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveTypingSignal() {
	if m == nil {
		return
	}
	m.typingSignals.Inc()
}

func (m *Metrics) ObservePlaybackStart() {
	if m == nil {
		return
	}
	m.playbackStarts.Inc()
}

func (m *Metrics) ObserveStoreRequest(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Serve exposes the metrics endpoint until the context is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if m != nil && m.logger != nil {
		m.logger.Info("metrics endpoint listening", zap.String("addr", addr))
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
