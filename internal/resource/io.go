package resource

import (
	"context"
	"io"
)

// RateLimitedReader wraps an io.Reader with the controller's throughput
// limit. It is used to throttle pack uploads.
type RateLimitedReader struct {
	r   io.Reader
	rc  *Controller
	ctx context.Context
}

// NewRateLimitedReader creates a new RateLimitedReader.
func NewRateLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *RateLimitedReader {
	return &RateLimitedReader{
		r:   r,
		rc:  rc,
		ctx: ctx,
	}
}

func (r *RateLimitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if lerr := r.rc.AcquireIO(r.ctx, n); lerr != nil {
			return n, lerr
		}
	}
	return n, err
}
