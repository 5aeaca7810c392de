package worker

import (
	"fmt"
	"sync"
	"time"
)

// HealthStatus classifies pool health.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Health reports the pool's condition.
type Health struct {
	Status      HealthStatus           `json:"status"`
	Message     string                 `json:"message"`
	CheckedAt   time.Time              `json:"checkedAt"`
	Diagnostics map[string]interface{} `json:"diagnostics,omitempty"`
}

// PoolConfig contains pool configuration options.
type PoolConfig struct {
	MinWorkers         int
	MaxWorkers         int
	InitialSize        int
	AutoScale          bool
	ScaleUpThreshold   float64
	ScaleDownThreshold float64
	ScaleCooldown      time.Duration
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinWorkers:         1,
		MaxWorkers:         8,
		InitialSize:        4,
		AutoScale:          true,
		ScaleUpThreshold:   0.8,
		ScaleDownThreshold: 0.2,
		ScaleCooldown:      30 * time.Second,
	}
}

// PoolManager tracks worker pool sizing and health over a dispatcher.
type PoolManager struct {
	mu sync.RWMutex

	config     PoolConfig
	size       int
	dispatcher *Dispatcher

	lastScaleUp   *time.Time
	lastScaleDown *time.Time
}

// NewPoolManager creates a pool manager over the given dispatcher. The
// dispatcher's concurrency bound is aligned with the initial pool size.
func NewPoolManager(dispatcher *Dispatcher, config PoolConfig) *PoolManager {
	p := &PoolManager{
		config:     config,
		dispatcher: dispatcher,
	}
	p.resize(config.InitialSize)
	return p
}

// Size returns the current pool size.
func (p *PoolManager) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// Load returns running workers as a fraction of pool size.
func (p *PoolManager) Load() float64 {
	p.mu.RLock()
	size := p.size
	p.mu.RUnlock()

	if size == 0 || p.dispatcher == nil {
		return 0
	}
	stats := p.dispatcher.GetStats()
	return float64(stats.Running) / float64(size)
}

// SetSize sets the pool size within configured bounds.
func (p *PoolManager) SetSize(size int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if size < p.config.MinWorkers {
		return fmt.Errorf("size %d is below minimum %d", size, p.config.MinWorkers)
	}
	if size > p.config.MaxWorkers {
		return fmt.Errorf("size %d exceeds maximum %d", size, p.config.MaxWorkers)
	}
	p.resize(size)
	return nil
}

// resize records the new size and pushes it to the dispatcher so the
// concurrency bound follows the pool. Callers hold p.mu.
func (p *PoolManager) resize(size int) {
	p.size = size
	if p.dispatcher != nil {
		p.dispatcher.SetConcurrency(size)
	}
}

// ScaleUp increases the pool size.
func (p *PoolManager) ScaleUp(delta int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if delta <= 0 {
		return fmt.Errorf("delta must be positive")
	}
	if p.lastScaleUp != nil && time.Since(*p.lastScaleUp) < p.config.ScaleCooldown {
		return fmt.Errorf("scale up cooldown not elapsed")
	}

	newSize := p.size + delta
	if newSize > p.config.MaxWorkers {
		newSize = p.config.MaxWorkers
	}
	p.resize(newSize)

	now := time.Now()
	p.lastScaleUp = &now
	return nil
}

// ScaleDown decreases the pool size.
func (p *PoolManager) ScaleDown(delta int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if delta <= 0 {
		return fmt.Errorf("delta must be positive")
	}
	if p.lastScaleDown != nil && time.Since(*p.lastScaleDown) < p.config.ScaleCooldown {
		return fmt.Errorf("scale down cooldown not elapsed")
	}

	newSize := p.size - delta
	if newSize < p.config.MinWorkers {
		newSize = p.config.MinWorkers
	}

	if p.dispatcher != nil {
		stats := p.dispatcher.GetStats()
		if newSize < stats.Running {
			return fmt.Errorf("cannot scale below active worker count %d", stats.Running)
		}
	}
	p.resize(newSize)

	now := time.Now()
	p.lastScaleDown = &now
	return nil
}

// CheckAndScale applies auto-scaling when thresholds are crossed.
func (p *PoolManager) CheckAndScale() (string, error) {
	p.mu.RLock()
	autoScale := p.config.AutoScale
	up := p.config.ScaleUpThreshold
	down := p.config.ScaleDownThreshold
	p.mu.RUnlock()

	if !autoScale {
		return "auto-scale disabled", nil
	}

	load := p.Load()
	if load >= up {
		delta := 1
		if p.dispatcher != nil && p.dispatcher.GetStats().Pending > 2 {
			delta = 2
		}
		if err := p.ScaleUp(delta); err != nil {
			return "", err
		}
		return fmt.Sprintf("scaled up by %d workers", delta), nil
	}

	if load <= down && p.Size() > p.config.MinWorkers {
		if err := p.ScaleDown(1); err != nil {
			return "", err
		}
		return "scaled down by 1 worker", nil
	}

	return "no scaling needed", nil
}

// GetHealth returns the pool health status.
func (p *PoolManager) GetHealth() Health {
	size := p.Size()
	load := p.Load()

	var stats Stats
	if p.dispatcher != nil {
		stats = p.dispatcher.GetStats()
	}

	health := Health{
		Status:    HealthHealthy,
		CheckedAt: time.Now(),
		Diagnostics: map[string]interface{}{
			"size":    size,
			"running": stats.Running,
			"pending": stats.Pending,
			"load":    load,
		},
	}

	if load > 0.9 {
		health.Status = HealthDegraded
		health.Message = "pool is under high load"
	}
	if stats.Pending > size {
		health.Status = HealthDegraded
		health.Message = "many pending runs waiting"
	}
	if size == 0 {
		health.Status = HealthUnhealthy
		health.Message = "no workers in pool"
	}
	if health.Status == HealthHealthy {
		health.Message = "pool is operating normally"
	}

	return health
}
