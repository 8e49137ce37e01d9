package sensor

import (
	"context"
	"math"
	"math/rand"
	"time"
)

const (
	StandardGravity = 9.80665

	DefaultInterval = 20 * time.Millisecond
)

// Simulator produces a device lying flat: gravity on z, gaussian noise
// on every axis, and now and then a damped shake.
type Simulator struct {
	Interval time.Duration
	// Noise is the standard deviation of the per-axis noise, in m/s^2
	Noise float64
	// ShakeChance is the probability of a shake starting at each sample
	ShakeChance float64
	// ShakeAmplitude is the peak acceleration of a shake, in m/s^2
	ShakeAmplitude float64
	// Seed of the random source; zero seeds from the clock
	Seed int64
}

func NewSimulator(interval time.Duration) *Simulator {
	return &Simulator{
		Interval:       interval,
		Noise:          0.05,
		ShakeChance:    0.002,
		ShakeAmplitude: 3.0,
	}
}

type shake struct {
	remaining int
	length    int
	phase     float64
	axis      [3]float64
}

func (s *Simulator) Run(ctx context.Context, emit func(x, y, z float64)) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var current shake
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			x := r.NormFloat64() * s.Noise
			y := r.NormFloat64() * s.Noise
			z := StandardGravity + r.NormFloat64()*s.Noise

			if current.remaining == 0 && r.Float64() < s.ShakeChance {
				current = newShake(r)
			}
			if current.remaining > 0 {
				dx, dy, dz := current.step(s.ShakeAmplitude)
				x, y, z = x+dx, y+dy, z+dz
			}
			emit(x, y, z)
		}
	}
}

func newShake(r *rand.Rand) shake {
	length := 25 + r.Intn(100)
	dir := [3]float64{r.NormFloat64(), r.NormFloat64(), r.NormFloat64()}
	norm := math.Sqrt(dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2])
	if norm == 0 {
		dir, norm = [3]float64{1, 0, 0}, 1
	}
	for i := range dir {
		dir[i] /= norm
	}
	return shake{
		remaining: length,
		length:    length,
		phase:     r.Float64() * 2 * math.Pi,
		axis:      dir,
	}
}

// step returns the shake displacement for the next sample; amplitude
// decays linearly to zero over the shake
func (sh *shake) step(amplitude float64) (float64, float64, float64) {
	progress := float64(sh.length-sh.remaining) / float64(sh.length)
	a := amplitude * (1 - progress) * math.Sin(sh.phase+progress*8*math.Pi)
	sh.remaining--
	return a * sh.axis[0], a * sh.axis[1], a * sh.axis[2]
}
