package buffon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	Bs "github.com/maroda/buffon/sim"
	Bt "github.com/maroda/buffon/types"
	"github.com/spf13/cast"
)

// SetupMux handles all data serving:
// - Prometheus metric endpoint
// - Websocket specialized for D3.js UI
// - Version for programmatic use
// - Run state, parameters, and convergence data for UI feedback
// - Replay range queries against the tick recorder
func (v *View) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", v.Stats.Handler())
	r.HandleFunc("/ws", v.WebsocketHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(v.StatsMiddleware)
	api.HandleFunc("/version", v.VersionHandler)
	api.HandleFunc("/state", v.StateHandler)
	api.HandleFunc("/params", v.ParamsHandler)
	api.HandleFunc("/history", v.HistoryHandler)
	api.HandleFunc("/convergence", v.ConvergenceHandler)
	api.HandleFunc("/replay", v.ReplayHandler)
	api.PathPrefix("/plugin/").HandlerFunc(v.PluginControlHandler)

	// Static files for D3 frontend
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./web/")))

	return r
}

var Version = "dev"

func (v *View) VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": Version})
}

// StateHandler reports where the run is and its cumulative totals
func (v *View) StateHandler(w http.ResponseWriter, r *http.Request) {
	type RunState struct {
		State string          `json:"state"`
		Tick  int64           `json:"tick"`
		Stats Bt.RunningStats `json:"stats"`
	}

	snap := v.LatestSnapshot()
	out := RunState{
		State: v.CurrentDriver().State().String(),
		Tick:  snap.Tick,
		Stats: snap.Stats,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// ParamsHandler reports the immutable parameters of the active run
func (v *View) ParamsHandler(w http.ResponseWriter, r *http.Request) {
	type RunParams struct {
		NeedleLength   float64   `json:"needleLength"`
		LineSpacing    float64   `json:"lineSpacing"`
		NeedlesPerTick int       `json:"needlesPerTick"`
		MaxNeedles     int64     `json:"maxNeedles"`
		MinRatio       float64   `json:"minRatio"`
		Seed           string    `json:"seed"`
		Field          Bs.Domain `json:"field"`
		Workers        int       `json:"workers"`
	}

	p := v.CurrentDriver().Params
	out := RunParams{
		NeedleLength:   p.NeedleLength,
		LineSpacing:    p.LineSpacing,
		NeedlesPerTick: p.NeedlesPerTick,
		MaxNeedles:     p.MaxNeedles,
		MinRatio:       p.MinRatio,
		Seed:           p.Seed,
		Field:          p.Field,
		Workers:        p.Workers,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// HistoryHandler serves the per-tick convergence record
func (v *View) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	history := v.CurrentDriver().History()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(history)
}

// ConvergenceHandler runs the history through the transformers:
// the smoother that feeds the lane and the estimate deviation
func (v *View) ConvergenceHandler(w http.ResponseWriter, r *http.Request) {
	type ConvergencePoint struct {
		Tick     int64   `json:"tick"`
		Ratio    float64 `json:"ratio"`
		Smoothed float64 `json:"smoothed"`
		PiOK     bool    `json:"piOK"`
		PiError  float64 `json:"piError"`
	}

	history := v.CurrentDriver().History()

	raw := make([]float64, len(history))
	for i, h := range history {
		raw[i] = h.Ratio
	}

	points := make([]ConvergencePoint, len(history))
	for i, h := range history {
		pt := ConvergencePoint{
			Tick:     h.Tick,
			Ratio:    h.Ratio,
			Smoothed: h.Ratio,
			PiOK:     h.PiOK,
		}
		if v.Smoother != nil {
			if s, err := v.Smoother.Transform("ratio", h.Ratio, raw[:i], h.Tick); err == nil {
				pt.Smoothed = s
			}
		}
		if h.PiOK && v.PiErr != nil {
			if dev, err := v.PiErr.Transform("piEstimate", h.PiEstimate, nil, h.Tick); err == nil {
				pt.PiError = dev
			}
		}
		points[i] = pt
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(points)
}

// ReplayHandler serves recorded ticks between ?from= and ?to=,
// both bounds inclusive, defaulting to the whole run so far
func (v *View) ReplayHandler(w http.ResponseWriter, r *http.Request) {
	v.MU.Lock()
	rec := v.Recorder
	v.MU.Unlock()

	if rec == nil {
		http.Error(w, "no output adapter configured", http.StatusInternalServerError)
		return
	}

	from := int64(0)
	to := v.LatestSnapshot().Tick
	if q := r.URL.Query().Get("from"); q != "" {
		n, err := cast.ToInt64E(q)
		if err != nil {
			http.Error(w, "invalid from tick", http.StatusBadRequest)
			return
		}
		from = n
	}
	if q := r.URL.Query().Get("to"); q != "" {
		n, err := cast.ToInt64E(q)
		if err != nil {
			http.Error(w, "invalid to tick", http.StatusBadRequest)
			return
		}
		to = n
	}

	records, err := rec.QueryRange(from, to)
	if err != nil {
		http.Error(w, "replay query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// PluginControlHandler manages the tick recorder over HTTP:
// POST /api/plugin/type  reports the output adapter in use
// POST /api/plugin/flush forces buffered records down
// POST /api/plugin/close flushes and detaches the adapter
func (v *View) PluginControlHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "invalid method", http.StatusMethodNotAllowed)
		return
	}

	v.MU.Lock()
	rec := v.Recorder
	v.MU.Unlock()

	if rec == nil {
		http.Error(w, "no output adapter configured", http.StatusInternalServerError)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 {
		http.Error(w, "invalid plugin path", http.StatusBadRequest)
		return
	}

	switch parts[2] {
	case "type":
		fmt.Fprint(w, rec.Type())
	case "flush":
		if err := rec.Flush(); err != nil {
			http.Error(w, "flush failed", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "FLUSHED")
	case "close":
		if err := rec.Close(); err != nil {
			http.Error(w, "close failed", http.StatusInternalServerError)
			return
		}
		v.MU.Lock()
		v.Recorder = nil
		v.MU.Unlock()
		fmt.Fprint(w, "CLOSED")
	default:
		http.Error(w, "unknown plugin command", http.StatusBadRequest)
	}
}
