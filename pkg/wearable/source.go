package wearable

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
)

// Measurement is one BP value fetched from a device.
type Measurement struct {
	Systolic  int
	Diastolic int
	Timestamp time.Time
}

// Source fetches the latest measurement from a device.
type Source interface {
	Fetch(ctx context.Context, device model.Device) (Measurement, error)
}

// ErrDeviceTimeout is the simulated transient failure.
var ErrDeviceTimeout = errors.New("connection timeout")

// SimulatedSource produces plausible BP values after a fixed latency and
// fails with the configured probability.
type SimulatedSource struct {
	mu          sync.Mutex
	rng         *rand.Rand
	failureRate float64
	latency     time.Duration
	now         func() time.Time
}

// NewSimulatedSource creates a simulated device transport. The seed makes the
// value sequence reproducible.
func NewSimulatedSource(failureRate float64, latency time.Duration, seed uint64) *SimulatedSource {
	return &SimulatedSource{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		failureRate: failureRate,
		latency:     latency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *SimulatedSource) Fetch(ctx context.Context, _ model.Device) (Measurement, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Measurement{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.failureRate {
		return Measurement{}, ErrDeviceTimeout
	}

	systolic := 105 + s.rng.IntN(56) // 105-160
	diastolic := 65 + s.rng.IntN(36) // 65-100
	return Measurement{
		Systolic:  systolic,
		Diastolic: diastolic,
		Timestamp: s.now(),
	}, nil
}
