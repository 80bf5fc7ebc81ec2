package types

/*

	These are the "immutable" core types of Buffon,
	provided for cross-package use (e.g. Plugins, Displays) and testing.

	There are no functions defined here.
	Struct constructors are housed in their own packages.
	Methods taking these types should create local aliases,
	for example: type Needles []Bt.Needle

*/

// The Needle is the building block of this tool.
// A needle is dropped on a plane ruled with horizontal lines,
// and either crosses a line or lands between two of them.
// Endpoint distance always equals the configured needle length.
type Needle struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// ClassifiedNeedle pairs a dropped needle with its crossing verdict.
// Crosses means the closed segment touches at least one ruled line,
// endpoint contact included.
type ClassifiedNeedle struct {
	Needle
	Crosses bool `json:"crosses"`
}

// RunningStats is the cumulative count state of a run.
// Ratio and PiEstimate travel with their own validity flags:
// RatioOK is false before any needle has dropped, and PiOK is false
// whenever the crossing ratio sits under the stability threshold,
// where inverting it would only amplify noise.
type RunningStats struct {
	TotalNeedles   int64   `json:"totalNeedles"`
	TotalCrossings int64   `json:"totalCrossings"`
	Ratio          float64 `json:"ratio"`
	RatioOK        bool    `json:"ratioOK"`
	PiEstimate     float64 `json:"piEstimate"`
	PiOK           bool    `json:"piOK"`
	Completed      bool    `json:"completed"`
}

// HistoryEntry is one point on the convergence curve,
// appended exactly once per tick and never rewritten.
type HistoryEntry struct {
	Tick           int64   `json:"tick"`
	TotalNeedles   int64   `json:"totalNeedles"`
	TotalCrossings int64   `json:"totalCrossings"`
	Ratio          float64 `json:"ratio"`
	PiEstimate     float64 `json:"piEstimate"`
	PiOK           bool    `json:"piOK"`
}

// Snapshot is the full renderer contract for one tick:
// the needles dropped on that tick, the cumulative stats,
// and a copy of the whole convergence history.
// Displays own every pixel; the engine owns every number.
type Snapshot struct {
	Tick    int64              `json:"tick"`
	Needles []ClassifiedNeedle `json:"needles"`
	Stats   RunningStats       `json:"stats"`
	History []HistoryEntry     `json:"history"`
}

// TickRecord is the storable unit for output adapters,
// one per tick, keyed chronologically by tick number.
type TickRecord struct {
	Tick           int64   `json:"tick"`
	BatchSize      int     `json:"batchSize"`
	BatchCrossings int     `json:"batchCrossings"`
	TotalNeedles   int64   `json:"totalNeedles"`
	TotalCrossings int64   `json:"totalCrossings"`
	Ratio          float64 `json:"ratio"`
	PiEstimate     float64 `json:"piEstimate"`
	PiOK           bool    `json:"piOK"`
	Timestamp      int64   `json:"timestamp"` // Unix nanosecond timestamp
}
