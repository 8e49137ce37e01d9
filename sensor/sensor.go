// Package sensor provides the motion sensors a yure Streamer can sample.
package sensor

import (
	"fmt"
	"io"
	"time"

	"github.com/sasakulab/yure"
)

const (
	KindSimulator = "simulator"
	KindIIO       = "iio"
	KindStdin     = "stdin"
)

type Options struct {
	Interval time.Duration
	// Device is the iio sysfs directory; empty picks the first accelerometer
	Device string
	// Input feeds the stdin kind
	Input io.Reader
}

// New builds the sensor named by kind.
func New(kind string, opts Options) (yure.Sensor, error) {
	switch kind {
	case KindSimulator, "":
		return NewSimulator(opts.Interval), nil
	case KindIIO:
		device := opts.Device
		if device == "" {
			found, err := FindAccelerometer(DefaultIIORoot)
			if err != nil {
				return nil, err
			}
			device = found
		}
		return &IIO{Device: device, Interval: opts.Interval}, nil
	case KindStdin:
		if opts.Input == nil {
			return nil, fmt.Errorf("sensor %s: no input", kind)
		}
		return &Replay{Reader: opts.Input, Interval: opts.Interval}, nil
	default:
		return nil, fmt.Errorf("unknown sensor kind: %s", kind)
	}
}
