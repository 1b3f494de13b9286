package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits for pack replication and accounting.
type Config struct {
	// MaxConcurrentUploads is the maximum number of files copied in
	// parallel. If 0, defaults to 1.
	MaxConcurrentUploads int64

	// UploadLimitBytesPerSec is the maximum copy throughput.
	// If 0, unlimited.
	UploadLimitBytesPerSec int64
}

// Controller manages shared resources: upload concurrency, upload
// throughput and mapped-memory accounting for loaded packs.
type Controller struct {
	cfg Config

	upSem     *semaphore.Weighted
	ioLimiter *rate.Limiter // nil if unlimited

	mappedBytes atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentUploads <= 0 {
		cfg.MaxConcurrentUploads = 1
	}

	c := &Controller{
		cfg:   cfg,
		upSem: semaphore.NewWeighted(cfg.MaxConcurrentUploads),
	}

	if cfg.UploadLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.UploadLimitBytesPerSec), int(cfg.UploadLimitBytesPerSec))
	}

	return c
}

// AcquireUpload blocks until an upload slot is available.
func (c *Controller) AcquireUpload(ctx context.Context) error {
	return c.upSem.Acquire(ctx, 1)
}

// ReleaseUpload returns an upload slot.
func (c *Controller) ReleaseUpload() {
	c.upSem.Release(1)
}

// AcquireIO blocks until n bytes of throughput budget are available.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c.ioLimiter == nil || n <= 0 {
		return nil
	}
	// WaitN caps n at the limiter burst; split large requests.
	burst := c.ioLimiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := c.ioLimiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// TrackMapped records n bytes of newly mapped memory.
func (c *Controller) TrackMapped(n int64) {
	c.mappedBytes.Add(n)
}

// ReleaseMapped records n bytes of unmapped memory.
func (c *Controller) ReleaseMapped(n int64) {
	c.mappedBytes.Add(-n)
}

// MappedBytes returns the currently tracked mapped memory.
func (c *Controller) MappedBytes() int64 {
	return c.mappedBytes.Load()
}
