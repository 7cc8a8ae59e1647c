package api

import (
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"spacewar/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (player labels are indices, capped by config)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spacewar_tick_duration_seconds",
		Help:    "Time spent in a simulation tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	entityCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spacewar_entities",
		Help: "Live entities by kind",
	}, []string{"kind"}) // Bounded: "all", "ship", "projectile"

	matchState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spacewar_match_state",
		Help: "1 for the current lifecycle state, 0 otherwise",
	}, []string{"state"}) // Bounded: "starting", "game", "gameover"

	shipsDestroyed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacewar_ships_destroyed_total",
		Help: "Ships destroyed",
	}, []string{"cause"})

	projectilesFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacewar_projectiles_fired_total",
		Help: "Projectiles spawned by weapons",
	})

	impulsesFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacewar_impulses_total",
		Help: "Thrust bursts fired",
	})

	matchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacewar_matches_total",
		Help: "Finished matches by outcome",
	}, []string{"outcome"}) // Bounded: "win", "tie"

	playerScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spacewar_player_score",
		Help: "Score per player index",
	}, []string{"player"})

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spacewar_event_log_events",
		Help: "Events accepted by the event log since start",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spacewar_event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "invalid", "ws_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is route pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket broadcasts sent",
	})
)

var lifecycleStates = []string{
	game.StateStarting.String(),
	game.StateInGame.String(),
	game.StateGameOver.String(),
}

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // must stay on loopback unless AllowExternal
	AllowExternal bool
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// StartDebugServer starts the internal observability server (pprof, metrics, health)
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if !cfg.AllowExternal && !isLoopback(cfg.ListenAddr) {
		log.Printf("⚠️ Debug server address %s is not loopback, forcing 127.0.0.1:6060", cfg.ListenAddr)
		cfg.ListenAddr = "127.0.0.1:6060"
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}

	var handler http.Handler = debugMux()
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, handler)
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.Serve(ln, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// debugMux builds the debug routes
func debugMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records latency and status per route pattern
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}

// EventLogCounter reports event log totals
type EventLogCounter func() (total, dropped uint64)

// MetricsObserver exports per-tick engine measurements to Prometheus.
// It implements game.TickObserver.
type MetricsObserver struct {
	eventLog EventLogCounter
}

// NewMetricsObserver creates an observer; eventLog may be nil
func NewMetricsObserver(eventLog EventLogCounter) *MetricsObserver {
	return &MetricsObserver{eventLog: eventLog}
}

// ObserveTick implements game.TickObserver
func (m *MetricsObserver) ObserveTick(duration time.Duration, snap *game.GameSnapshot, events *game.FrameEvents) {
	tickDuration.Observe(duration.Seconds())

	entityCount.WithLabelValues("all").Set(float64(snap.EntityCount))
	entityCount.WithLabelValues("ship").Set(float64(snap.ShipCount))
	entityCount.WithLabelValues("projectile").Set(float64(snap.ProjectileCount))

	for _, state := range lifecycleStates {
		v := 0.0
		if state == snap.Lifecycle.State {
			v = 1
		}
		matchState.WithLabelValues(state).Set(v)
	}

	for _, sd := range events.ShipsDestroyed {
		shipsDestroyed.WithLabelValues(sd.Cause.String()).Inc()
	}
	projectilesFired.Add(float64(len(events.ProjectilesCreated)))
	impulsesFired.Add(float64(len(events.ImpulsesFired)))

	if events.Result != nil {
		outcome := "win"
		if events.Result.Tie {
			outcome = "tie"
		}
		matchesFinished.WithLabelValues(outcome).Inc()
		for _, p := range snap.Lifecycle.Players {
			playerScore.WithLabelValues(strconv.Itoa(p.Index)).Set(float64(p.Score))
		}
	}

	if m.eventLog != nil {
		total, dropped := m.eventLog()
		eventLogTotal.Set(float64(total))
		eventLogDropped.Set(float64(dropped))
	}
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "origin", "invalid", "ws_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
