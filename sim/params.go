package buffon

import (
	"fmt"
	"log/slog"
	"runtime"
)

// Run defaults, filled in wherever the config leaves a field empty.
// Geometry and budget match the classic tabletop setup:
// unit needles on unit-ruled paper, two thousand drops.
const (
	DefaultNeedleLength   = 1.0
	DefaultLineSpacing    = 1.0
	DefaultNeedlesPerTick = 10
	DefaultMaxNeedles     = 2000
	DefaultMinRatio       = 0.01
	DefaultDomainSize     = 10.0
	DefaultSeed           = "aiguille"
)

// Domain is the rectangle that needle centers land in.
// The ruled lines run horizontally, so only the vertical extent
// matters for crossing, but both axes are sampled for display.
type Domain struct {
	MinX float64 `json:"minX" yaml:"minX"`
	MinY float64 `json:"minY" yaml:"minY"`
	MaxX float64 `json:"maxX" yaml:"maxX"`
	MaxY float64 `json:"maxY" yaml:"maxY"`
}

func (d Domain) Width() float64  { return d.MaxX - d.MinX }
func (d Domain) Height() float64 { return d.MaxY - d.MinY }

// ParameterSet holds the validated, immutable run parameters.
// Every collaborator reads the same copy for the life of a run,
// nothing here changes after construction.
type ParameterSet struct {
	NeedleLength   float64 // length of each dropped needle
	LineSpacing    float64 // vertical distance between ruled lines
	NeedlesPerTick int     // batch size per simulation tick
	MaxNeedles     int64   // total needle budget for the run
	Field          Domain  // where needle centers land
	Seed           string  // root seed for all random streams
	MinRatio       float64 // stability floor for the π estimate
	Workers        int     // goroutines per batch
}

// NewParameterSet validates a loaded config into run parameters.
// Every geometry failure wraps ErrInvalidParameter naming the field,
// so one errors.Is check covers all of them.
func NewParameterSet(cf ConfigFile) (*ParameterSet, error) {
	cf = cf.Normalized()

	if cf.NeedleLength <= 0 {
		return nil, fmt.Errorf("%w: needleLength %v is not positive", ErrInvalidParameter, cf.NeedleLength)
	}
	if cf.LineSpacing <= 0 {
		return nil, fmt.Errorf("%w: lineSpacing %v is not positive", ErrInvalidParameter, cf.LineSpacing)
	}
	if cf.NeedlesPerTick <= 0 {
		return nil, fmt.Errorf("%w: needlesPerTick %d is not positive", ErrInvalidParameter, cf.NeedlesPerTick)
	}
	if cf.MaxNeedles <= 0 {
		return nil, fmt.Errorf("%w: maxNeedles %d is not positive", ErrInvalidParameter, cf.MaxNeedles)
	}
	if cf.Field.Width() <= 0 || cf.Field.Height() <= 0 {
		return nil, fmt.Errorf("%w: domain [%v,%v]x[%v,%v] is degenerate", ErrInvalidParameter,
			cf.Field.MinX, cf.Field.MaxX, cf.Field.MinY, cf.Field.MaxY)
	}
	if cf.MinRatio <= 0 || cf.MinRatio >= 1 {
		return nil, fmt.Errorf("%w: minRatio %v is outside (0,1)", ErrInvalidParameter, cf.MinRatio)
	}
	if cf.Workers <= 0 {
		return nil, fmt.Errorf("%w: workers %d is not positive", ErrInvalidParameter, cf.Workers)
	}

	// A needle longer than the spacing is legal, the run just
	// leaves the classic regime where p = 2L/(πD) holds exactly.
	if cf.NeedleLength > cf.LineSpacing {
		slog.Warn("Needle is longer than the line spacing",
			slog.Float64("needleLength", cf.NeedleLength),
			slog.Float64("lineSpacing", cf.LineSpacing))
	}

	return &ParameterSet{
		NeedleLength:   cf.NeedleLength,
		LineSpacing:    cf.LineSpacing,
		NeedlesPerTick: cf.NeedlesPerTick,
		MaxNeedles:     cf.MaxNeedles,
		Field:          cf.Field,
		Seed:           cf.Seed,
		MinRatio:       cf.MinRatio,
		Workers:        cf.Workers,
	}, nil
}

// defaultWorkers sizes the batch worker pool
func defaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}
