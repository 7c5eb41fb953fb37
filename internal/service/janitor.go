package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpiredSweeper is the part of the cache the janitor drives.
type ExpiredSweeper interface {
	CleanupExpired() int
}

// JanitorConfig holds configuration for the cache janitor.
type JanitorConfig struct {
	// Interval is how often expired entries are swept.
	// Default: 1 minute
	Interval time.Duration
}

// CacheJanitor periodically removes expired cache entries so they do not
// hold capacity until the next lookup.
type CacheJanitor struct {
	cache     ExpiredSweeper
	config    JanitorConfig
	logger    *zap.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewCacheJanitor creates a new cache janitor.
func NewCacheJanitor(c ExpiredSweeper, config JanitorConfig, logger *zap.Logger) *CacheJanitor {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CacheJanitor{
		cache:  c,
		config: config,
		logger: logger.Named("janitor"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the sweep loop. Calling it twice is a no-op.
func (j *CacheJanitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isRunning {
		return
	}
	j.isRunning = true
	j.ticker = time.NewTicker(j.config.Interval)

	j.logger.Info("started", zap.Duration("interval", j.config.Interval))
	go j.run()
}

func (j *CacheJanitor) run() {
	defer close(j.doneCh)
	for {
		select {
		case <-j.ticker.C:
			j.RunNow()
		case <-j.stopCh:
			j.logger.Info("stopped")
			return
		}
	}
}

// RunNow sweeps expired entries immediately and returns how many were removed.
func (j *CacheJanitor) RunNow() int {
	removed := j.cache.CleanupExpired()
	if removed > 0 {
		j.logger.Debug("swept expired entries", zap.Int("removed", removed))
	}
	return removed
}

// Stop stops the janitor and waits for the loop to exit.
func (j *CacheJanitor) Stop() {
	j.stopOnce.Do(func() {
		j.mu.Lock()
		running := j.isRunning
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.stopCh)
		j.isRunning = false
		j.mu.Unlock()

		if running {
			<-j.doneCh
		}
	})
}
