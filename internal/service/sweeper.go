package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/mindgarden/internal/repository"
)

// OTPSweeper periodically deletes expired challenges from the ledger.
//
// Housekeeping, not correctness: Consume already rejects expired rows, so the
// sweeper can run on any cadence or not at all. Safe to run concurrently with
// issue/verify traffic.
type OTPSweeper struct {
	otps     repository.OTPRepository
	interval time.Duration
	logger   *slog.Logger
}

func NewOTPSweeper(otps repository.OTPRepository, interval time.Duration, logger *slog.Logger) *OTPSweeper {
	return &OTPSweeper{otps: otps, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is cancelled. Call in a goroutine.
func (s *OTPSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.otps.SweepExpired(ctx)
			if err != nil {
				s.logger.Error("otp sweep failed", slog.String("error", err.Error()))
				continue
			}
			if count > 0 {
				s.logger.Info("swept expired otps", slog.Int64("count", count))
			}
		}
	}
}
