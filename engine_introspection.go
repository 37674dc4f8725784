package goGate

import "context"

// Health pings the cache. It reports the startup probe outcome next to the
// live result; a reachable cache does not re-enable a degraded engine.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.cache == nil {
		return HealthStatus{}
	}

	status := HealthStatus{CacheAvailable: e.cache.Available()}
	latency, err := e.cache.Ping(ctx)
	if err != nil {
		e.logger.Debug("cache health ping failed", "error", err)
		return status
	}
	status.CacheReachable = true
	status.CacheLatency = latency
	return status
}
