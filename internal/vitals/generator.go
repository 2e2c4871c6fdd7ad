package vitals

import (
	"math"
	"math/rand/v2"
	"time"
)

// Generator produces synthetic readings. It is not safe for concurrent use;
// each monitoring session owns one.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator drawing from src
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewSeededGenerator creates a generator with a fixed seed
func NewSeededGenerator(seed uint64) *Generator {
	return NewGenerator(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewTimeSeededGenerator creates a generator seeded from the wall clock
func NewTimeSeededGenerator() *Generator {
	return NewSeededGenerator(uint64(time.Now().UnixNano()))
}

// Generate draws one reading. Every signal is uniform and independent:
//
//	heartRate        60..100 bpm
//	oxygenLevel      95..100 %
//	systolic         110..140 mmHg
//	diastolic        70..90 mmHg
//	temperature      36.5..37.5 °C, one decimal
//	respiratoryRate  12..20 /min
//
// The upper bounds are only reached when the source returns its very top
// values, where float rounding lands on the bound.
func (g *Generator) Generate() VitalSample {
	return VitalSample{
		HeartRate:       math.Floor(60 + g.rng.Float64()*40),
		OxygenLevel:     math.Floor(95 + g.rng.Float64()*5),
		Systolic:        math.Floor(110 + g.rng.Float64()*30),
		Diastolic:       math.Floor(70 + g.rng.Float64()*20),
		Temperature:     math.Round((36.5+g.rng.Float64())*10) / 10,
		RespiratoryRate: math.Floor(12 + g.rng.Float64()*8),
	}
}
