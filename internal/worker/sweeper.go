// Package worker contains background jobs that run alongside the HTTP
// server. They are fully decoupled from request handling.
package worker

import (
	"context"
	"log"
	"time"
)

// ExpiredDeleter is the slice of the device registry the sweeper needs.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RunDeviceSweeper deletes expired trusted-device rows on a fixed interval
// until ctx is cancelled. The underlying delete is conditional on expiry,
// so an interrupted or doubled-up sweep is harmless; a run with nothing to
// do removes zero rows. One sweep runs immediately at startup so restarts
// do not postpone cleanup by a full interval.
func RunDeviceSweeper(ctx context.Context, devices ExpiredDeleter, interval time.Duration) {
	sweep := func() {
		cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		n, err := devices.DeleteExpired(cctx)
		if err != nil {
			log.Printf("device-sweeper: sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("device-sweeper: removed %d expired device(s)", n)
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
