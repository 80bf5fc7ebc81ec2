package buffon

import (
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	Bt "github.com/maroda/buffon/types"
)

// NeedleDataD3 is one dropped needle shaped for the D3 frontend
type NeedleDataD3 struct {
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	X2        float64 `json:"x2"`
	Y2        float64 `json:"y2"`
	Crosses   bool    `json:"crosses"`   // verdict against the ruled lines
	Angle     float64 `json:"angle"`     // orientation, 0-180 degrees
	Intensity float64 `json:"intensity"` // 0.2-1.0, nearness to a line
}

// FrameDataD3 is the websocket frame: the latest batch plus totals
type FrameDataD3 struct {
	Tick           int64          `json:"tick"`
	Needles        []NeedleDataD3 `json:"needles"`
	TotalNeedles   int64          `json:"totalNeedles"`
	TotalCrossings int64          `json:"totalCrossings"`
	Ratio          float64        `json:"ratio"`
	RatioOK        bool           `json:"ratioOK"`
	PiEstimate     float64        `json:"piEstimate"`
	PiOK           bool           `json:"piOK"`
	Completed      bool           `json:"completed"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (v *View) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Send frame data periodically
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			frame := v.GetFrameDataD3()
			if err := conn.WriteJSON(frame); err != nil {
				return // Connection closed
			}
		}
	}
}

func (v *View) GetFrameDataD3() FrameDataD3 {
	// Make sure we're not nil
	driver := v.CurrentDriver()
	if driver == nil {
		return FrameDataD3{}
	}

	snap := v.LatestSnapshot()
	spacing := driver.Params.LineSpacing

	needles := make([]NeedleDataD3, 0, len(snap.Needles))
	for _, nd := range snap.Needles {
		needles = append(needles, NeedleDataD3{
			X1:        nd.X1,
			Y1:        nd.Y1,
			X2:        nd.X2,
			Y2:        nd.Y2,
			Crosses:   nd.Crosses,
			Angle:     CalcNeedleAngle(nd.Needle),
			Intensity: CalcIntensity(nd, spacing),
		})
	}

	return FrameDataD3{
		Tick:           snap.Tick,
		Needles:        needles,
		TotalNeedles:   snap.Stats.TotalNeedles,
		TotalCrossings: snap.Stats.TotalCrossings,
		Ratio:          snap.Stats.Ratio,
		RatioOK:        snap.Stats.RatioOK,
		PiEstimate:     snap.Stats.PiEstimate,
		PiOK:           snap.Stats.PiOK,
		Completed:      snap.Stats.Completed,
	}
}

// CalcNeedleAngle reports the needle orientation in degrees [0,180)
func CalcNeedleAngle(nd Bt.Needle) float64 {
	deg := math.Atan2(nd.Y2-nd.Y1, nd.X2-nd.X1) * 180 / math.Pi
	return math.Mod(deg+360, 180)
}

// CalcIntensity grades how near the needle span comes to a ruled line.
// A crossing needle is full intensity, a miss fades with its gap.
// Clamped to 0.2-1.0 so every needle stays visible.
func CalcIntensity(nd Bt.ClassifiedNeedle, spacing float64) float64 {
	if nd.Crosses {
		return 1.0
	}
	if spacing <= 0 {
		return 0.5
	}

	yMin := math.Min(nd.Y1, nd.Y2)
	yMax := math.Max(nd.Y1, nd.Y2)

	// A miss sits strictly between two adjacent lines
	below := math.Floor(yMin/spacing) * spacing
	above := math.Ceil(yMax/spacing) * spacing
	gap := math.Min(yMin-below, above-yMax)

	intensity := 1.0 - gap/(spacing/2)
	return math.Max(math.Min(intensity, 1.0), 0.2)
}
