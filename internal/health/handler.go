package health

import (
	"context"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/eleven-am/voice-translator/internal/translator"
	"github.com/eleven-am/voice-translator/internal/transport"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	State     string `json:"state,omitempty"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type QueueStats struct {
	Length     int    `json:"length"`
	Processing bool   `json:"processing"`
	State      string `json:"state"`
}

type RequestStats struct {
	TotalRequests     uint64 `json:"total_requests"`
	ActiveConnections int64  `json:"active_connections"`
}

type Stats struct {
	Queue    QueueStats   `json:"queue"`
	Requests RequestStats `json:"requests"`
	Runtime  RuntimeStats `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type StatusProvider interface {
	Status() translator.Status
}

type Handler struct {
	redis     *redis.Client
	status    StatusProvider
	version   string
	startTime time.Time

	totalRequests     uint64
	activeConnections int64
}

// NewHandler builds the health handler. A nil redis client means the event
// sink is disabled and is left out of the report.
func NewHandler(redis *redis.Client, status StatusProvider, version string) *Handler {
	return &Handler{
		redis:     redis,
		status:    status,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Readiness)
	e.GET("/health/live", h.Liveness)
}

func (h *Handler) IncrementRequests() {
	atomic.AddUint64(&h.totalRequests, 1)
}

func (h *Handler) IncrementConnections() {
	atomic.AddInt64(&h.activeConnections, 1)
}

func (h *Handler) DecrementConnections() {
	atomic.AddInt64(&h.activeConnections, -1)
}

// @Summary      Liveness check
// @Description  Reports that the process is up. It never checks dependencies.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health/live [get]
func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// @Summary      Health check
// @Description  Reports the translate and transcribe channels, the redis event sink, runtime and request statistics.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	snapshot := h.status.Status()

	components := make(map[string]ComponentStatus)
	for _, ch := range []transport.Channel{transport.ChannelTranslate, transport.ChannelTranscribe} {
		components[ch.String()] = checkChannel(snapshot, ch)
	}
	if h.redis != nil {
		components["redis"] = h.checkRedis(ctx)
	}

	overallStatus := computeOverallStatus(components)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := HealthResponse{
		Status:        overallStatus,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Queue: QueueStats{
				Length:     snapshot.QueueLength,
				Processing: snapshot.Processing,
				State:      snapshot.State,
			},
			Requests: RequestStats{
				TotalRequests:     atomic.LoadUint64(&h.totalRequests),
				ActiveConnections: atomic.LoadInt64(&h.activeConnections),
			},
			Runtime: RuntimeStats{
				Goroutines:         runtime.NumGoroutine(),
				MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
				MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
				MemorySysMB:        memStats.Sys / 1024 / 1024,
				NumGC:              memStats.NumGC,
			},
		},
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, resp)
}

// checkChannel reports a channel as degraded while its error flag is set.
// A channel that was never opened is healthy; it dials on first use.
func checkChannel(snapshot translator.Status, ch transport.Channel) ComponentStatus {
	status := ComponentStatus{Status: StatusHealthy}
	if cs, ok := snapshot.Channels[ch]; ok {
		status.State = cs.State
	}
	if evt, ok := snapshot.Errors[ch]; ok {
		status.Status = StatusDegraded
		status.Error = evt.Code
	}
	return status
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	start := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// computeOverallStatus never reports unhealthy: the relay keeps queueing
// while the backend or the event sink is down.
func computeOverallStatus(components map[string]ComponentStatus) Status {
	for _, status := range components {
		if status.Status != StatusHealthy {
			return StatusDegraded
		}
	}
	return StatusHealthy
}
