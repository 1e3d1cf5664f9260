package metrics

import (
	"context"
	"runtime"
	"time"
)

// StartSystemCollector samples memory and goroutine gauges on the global
// manager until ctx is done. It is a no-op when metrics are disabled.
func StartSystemCollector(ctx context.Context) {
	globalManager.startSystemCollector(ctx)
}

func (m *Manager) startSystemCollector(ctx context.Context) {
	if !m.enabled.Load() {
		return
	}
	go func() {
		ticker := time.NewTicker(m.refreshInterval)
		defer ticker.Stop()
		m.sampleSystem()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sampleSystem()
			}
		}
	}()
}

func (m *Manager) sampleSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.systemMemoryUsage.Set(float64(ms.Alloc))
	m.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}
