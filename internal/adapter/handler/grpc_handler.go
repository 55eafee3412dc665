package handler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	StoreServiceName = "inventory.store"
	CacheServiceName = "inventory.cache"

	statusOK          = "ok"
	statusUnavailable = "unavailable"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker pings the store and the cache and publishes the result over
// the standard gRPC health service. The overall status follows the store
// only, since item reads survive a cache outage.
type HealthChecker struct {
	server *health.Server
	store  Pinger
	cache  Pinger
	logger *zap.Logger

	mu     sync.RWMutex
	status map[string]string
}

func NewHealthChecker(store, cache Pinger, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthChecker{
		server: health.NewServer(),
		store:  store,
		cache:  cache,
		logger: logger,
		status: map[string]string{"status": "starting"},
	}
}

func (h *HealthChecker) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Run checks every interval until ctx is done.
func (h *HealthChecker) Run(ctx context.Context, interval time.Duration) {
	h.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

func (h *HealthChecker) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	storeOK := h.ping(ctx, StoreServiceName, h.store)
	cacheOK := h.ping(ctx, CacheServiceName, h.cache)

	overall := healthpb.HealthCheckResponse_SERVING
	if !storeOK {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", overall)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = map[string]string{
		"status": statusText(storeOK),
		"store":  statusText(storeOK),
		"cache":  statusText(cacheOK),
	}
}

func (h *HealthChecker) Snapshot() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string, len(h.status))
	for k, v := range h.status {
		out[k] = v
	}
	return out
}

func (h *HealthChecker) ping(ctx context.Context, name string, p Pinger) bool {
	status := healthpb.HealthCheckResponse_SERVING
	ok := true
	if err := p.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
		ok = false
	}
	h.server.SetServingStatus(name, status)
	return ok
}

func statusText(ok bool) string {
	if ok {
		return statusOK
	}
	return statusUnavailable
}
