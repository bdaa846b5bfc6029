package main

import (
	"math/rand"

	"github.com/krti/uavcore/helpers"
)

// Simulated flight data for running uavd without the sensor bus.
// Battery drains slowly, current jitters around cruise draw, position
// drifts from the launch point.

type simSensors struct {
	rnd     *rand.Rand
	voltage float64
}

func newSimSensors() *simSensors {
	return &simSensors{rnd: helpers.RandUnix(), voltage: 12.6}
}

func (s *simSensors) Read() (float64, float64, error) {
	s.voltage -= 0.0001
	if s.voltage < 9.9 {
		s.voltage = 12.6 // battery swap
	}
	current := 1500 + s.rnd.Float64()*300
	return s.voltage, current, nil
}

type simGPS struct {
	rnd      *rand.Rand
	lat, lng float64
}

func newSimGPS() *simGPS {
	return &simGPS{rnd: helpers.RandUnix(), lat: -5.3584, lng: 105.3117}
}

func (g *simGPS) Coordinate() (float64, float64, bool) {
	g.lat += (g.rnd.Float64() - 0.5) * 0.0001
	g.lng += (g.rnd.Float64() - 0.5) * 0.0001
	return g.lat, g.lng, true
}
