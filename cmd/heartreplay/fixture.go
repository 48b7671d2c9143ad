package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ent0n29/amora/internal/gesture"
)

// fixture is a recorded detector session.
type fixture struct {
	Width      float64        `yaml:"width"`
	Height     float64        `yaml:"height"`
	IntervalMS int            `yaml:"interval_ms"`
	Seed       uint64         `yaml:"seed"`
	Frames     []fixtureFrame `yaml:"frames"`
}

type fixtureFrame struct {
	Hands []gesture.Hand `yaml:"hands"`
	// Repeat emits the same hands this many times.
	Repeat int `yaml:"repeat"`
}

func loadFixture(path string) (fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fixture{}, err
	}
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fixture{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if fx.Width <= 0 || fx.Height <= 0 {
		return fixture{}, fmt.Errorf("%s: width and height must be positive", path)
	}
	if fx.IntervalMS <= 0 {
		fx.IntervalMS = 33
	}
	if len(fx.Frames) == 0 {
		return fixture{}, fmt.Errorf("%s: no frames", path)
	}
	return fx, nil
}

// expand lays the frames out on a fixed clock starting at start.
func (fx fixture) expand(start time.Time) []gesture.Frame {
	step := time.Duration(fx.IntervalMS) * time.Millisecond
	var out []gesture.Frame
	for _, f := range fx.Frames {
		n := f.Repeat
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, gesture.Frame{
				Hands:  f.Hands,
				Width:  fx.Width,
				Height: fx.Height,
				At:     start.Add(time.Duration(len(out)) * step),
			})
		}
	}
	return out
}
