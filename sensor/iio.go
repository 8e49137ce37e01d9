package sensor

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultIIORoot = "/sys/bus/iio/devices"

// IIO polls a Linux Industrial I/O accelerometer through sysfs. Values
// are raw counts converted with in_accel_scale (and in_accel_offset
// when present), which the kernel defines in m/s^2.
type IIO struct {
	// Device is the sysfs directory, e.g. /sys/bus/iio/devices/iio:device0
	Device   string
	Interval time.Duration
}

var ErrNoAccelerometer = errors.New("no iio accelerometer found")

// FindAccelerometer returns the first device under root exposing
// in_accel_x_raw.
func FindAccelerometer(root string) (string, error) {
	if root == "" {
		root = DefaultIIORoot
	}
	matches, err := filepath.Glob(filepath.Join(root, "iio:device*", "in_accel_x_raw"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrNoAccelerometer
	}
	return filepath.Dir(matches[0]), nil
}

type axisCalibration struct {
	scale  float64
	offset float64
}

func (s *IIO) Run(ctx context.Context, emit func(x, y, z float64)) error {
	if _, err := os.Stat(s.Device); err != nil {
		return fmt.Errorf("iio device %s: %s", s.Device, err)
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	calibration := make(map[string]axisCalibration, 3)
	for _, axis := range []string{"x", "y", "z"} {
		cal, err := s.calibration(axis)
		if err != nil {
			return err
		}
		calibration[axis] = cal
	}

	// fail fast when the device cannot be read at all
	if _, _, _, err := s.sample(calibration); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			x, y, z, err := s.sample(calibration)
			if err != nil {
				return err
			}
			emit(x, y, z)
		}
	}
}

func (s *IIO) sample(calibration map[string]axisCalibration) (float64, float64, float64, error) {
	var values [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		raw, err := readFloat(filepath.Join(s.Device, "in_accel_"+axis+"_raw"))
		if err != nil {
			return 0, 0, 0, err
		}
		cal := calibration[axis]
		values[i] = (raw + cal.offset) * cal.scale
	}
	return values[0], values[1], values[2], nil
}

// calibration prefers the per-axis attribute over the shared one
func (s *IIO) calibration(axis string) (axisCalibration, error) {
	cal := axisCalibration{scale: 1}

	scale, ok, err := s.optionalFloat("in_accel_"+axis+"_scale", "in_accel_scale")
	if err != nil {
		return cal, err
	}
	if ok {
		cal.scale = scale
	}

	offset, ok, err := s.optionalFloat("in_accel_"+axis+"_offset", "in_accel_offset")
	if err != nil {
		return cal, err
	}
	if ok {
		cal.offset = offset
	}
	return cal, nil
}

func (s *IIO) optionalFloat(names ...string) (float64, bool, error) {
	for _, name := range names {
		v, err := readFloat(filepath.Join(s.Device, name))
		if err == nil {
			return v, true, nil
		}
		if !os.IsNotExist(err) {
			return 0, false, err
		}
	}
	return 0, false, nil
}

func readFloat(path string) (float64, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %s", path, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parse %s: not a finite value", path)
	}
	return v, nil
}
