package buffon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	Bo "github.com/maroda/buffon/obvy"
	Bp "github.com/maroda/buffon/plugin"
	Bs "github.com/maroda/buffon/sim"
	Bt "github.com/maroda/buffon/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	screenGutter = 4   // rows above the needle field, used for run status
	fieldFade    = 100 // needles older than this draw dimmed
	laneCadence  = 5   // ticks between convergence lane rebuilds
	laneRows     = 3   // rows the convergence lane occupies
	dataservAddr = ":8090"
)

// View is updated by whatever the Driver publishes
type View struct {
	MU         sync.Mutex            // State locks to read data
	Driver     *Bs.Driver            // Simulation run being displayed
	Screen     tcell.Screen          // the screen itself
	Stats      *Bo.StatsInternal     // Internal status for prometheus
	Supervisor *TickSupervisor       // Driving clock for the run
	Recorder   Bp.TickRecorder       // Optional tick record output
	Smoother   Bp.SeriesTransformer  // Ratio smoothing for the lane
	PiErr      *Bp.PiErrorPlugin     // Estimate deviation readout
	server     *http.Server          // Dataserv endpoint
	latest     Bt.Snapshot           // last published snapshot
	field      []Bt.ClassifiedNeedle // every needle dropped, oldest first
	lane       []rune                // cached convergence lane
	ShowLane   bool                  // Display convergence lane
	exhausted  bool                  // budget-spent notice already logged
}

// CurrentDriver hands out the active run under lock,
// a restart swaps the pointer between supervisor cycles
func (v *View) CurrentDriver() *Bs.Driver {
	v.MU.Lock()
	defer v.MU.Unlock()
	return v.Driver
}

// LatestSnapshot is the read side for websocket and API handlers
func (v *View) LatestSnapshot() Bt.Snapshot {
	v.MU.Lock()
	defer v.MU.Unlock()
	return v.latest
}

// AdvanceRun asks the driver for one tick and fans the result out:
// prometheus counters, the optional recorder, and the screen.
// The return reports whether the needle budget is now spent.
func (v *View) AdvanceRun() bool {
	driver := v.CurrentDriver()

	start := time.Now()
	_, span := otel.Tracer("buffon/display").Start(context.Background(), "simulation.tick")
	snap, err := driver.Tick()
	span.SetAttributes(attribute.Int64("tick", snap.Tick))
	span.End()

	if err != nil {
		if errors.Is(err, Bs.ErrExhausted) {
			v.noteExhausted()
			return true
		}
		// Only log the error, keep going otherwise
		slog.Error("Failed to advance simulation", slog.Any("Error", err))
		return false
	}

	duration := time.Since(start).Seconds()
	v.Stats.RecTickTimer(duration)

	batchCross := 0
	for _, nd := range snap.Needles {
		if nd.Crosses {
			batchCross++
		}
	}
	v.Stats.RecBatch(len(snap.Needles), batchCross)
	if snap.Stats.PiOK {
		v.Stats.RecPiEstimate(snap.Stats.PiEstimate)
	}

	v.publish(snap)
	v.RecordTick(snap, batchCross)

	if v.Screen != nil {
		v.UpdateScreen()
	}

	return snap.Stats.Completed
}

// publish folds one snapshot into the display state.
// The needle field only ever grows, the convergence lane
// rebuilds on its own slower cadence.
func (v *View) publish(snap Bt.Snapshot) {
	v.MU.Lock()
	defer v.MU.Unlock()

	v.latest = snap
	v.field = append(v.field, snap.Needles...)

	if v.Screen == nil {
		return
	}
	width, _ := v.Screen.Size()
	if v.lane == nil || snap.Tick%laneCadence == 0 {
		v.lane = RatioLaneRunes(snap.History, width-screenGutter, v.Smoother)
	}
}

// RecordTick hands one tick record to the output adapter.
// Recorder misses are only logged, never fatal to the run.
func (v *View) RecordTick(snap Bt.Snapshot, batchCross int) {
	v.MU.Lock()
	rec := v.Recorder
	v.MU.Unlock()

	if rec == nil {
		return
	}

	out := &Bt.TickRecord{
		Tick:           snap.Tick,
		BatchSize:      len(snap.Needles),
		BatchCrossings: batchCross,
		TotalNeedles:   snap.Stats.TotalNeedles,
		TotalCrossings: snap.Stats.TotalCrossings,
		Ratio:          snap.Stats.Ratio,
		PiEstimate:     snap.Stats.PiEstimate,
		PiOK:           snap.Stats.PiOK,
		Timestamp:      time.Now().UnixNano(),
	}
	if err := rec.WriteTick(out); err != nil {
		slog.Error("Failed to record tick", slog.Any("Error", err))
	}
}

func (v *View) noteExhausted() {
	v.MU.Lock()
	defer v.MU.Unlock()
	if v.exhausted {
		return
	}
	v.exhausted = true
	slog.Info("Run complete, display holds the final state")
}

// CalcFieldCell maps a domain point onto the needle pane.
// Screen rows grow downward, the domain Y axis grows upward.
func CalcFieldCell(fd Bs.Domain, x, y float64, x1, y1, x2, y2 int) (int, int) {
	spanX := float64(x2 - x1)
	spanY := float64(y2 - y1)
	cx := x1 + int(math.Round((x-fd.MinX)/fd.Width()*spanX))
	cy := y2 - int(math.Round((y-fd.MinY)/fd.Height()*spanY))
	return cx, cy
}

// NeedleRune picks a glyph for the needle's orientation
func NeedleRune(nd Bt.Needle) rune {
	dx := math.Abs(nd.X2 - nd.X1)
	dy := math.Abs(nd.Y2 - nd.Y1)

	switch {
	case dx > 2*dy:
		return '─'
	case dy > 2*dx:
		return '│'
	case (nd.X2-nd.X1)*(nd.Y2-nd.Y1) > 0:
		return '╱'
	default:
		return '╲'
	}
}

// DrawNeedle walks the segment cell by cell inside the pane.
// Endpoints half a needle out of the domain clip at the pane edge.
func (v *View) DrawNeedle(nd Bt.ClassifiedNeedle, fd Bs.Domain, x1, y1, x2, y2 int, dim bool) {
	var style tcell.Style
	if nd.Crosses {
		style = tcell.StyleDefault.Foreground(tcell.ColorSeaGreen)
	} else {
		style = tcell.StyleDefault.Foreground(tcell.ColorIndianRed)
	}
	if dim {
		style = style.Dim(true)
	}

	r := NeedleRune(nd.Needle)
	ax, ay := CalcFieldCell(fd, nd.X1, nd.Y1, x1, y1, x2, y2)
	bx, by := CalcFieldCell(fd, nd.X2, nd.Y2, x1, y1, x2, y2)

	steps := int(math.Max(math.Abs(float64(bx-ax)), math.Abs(float64(by-ay))))
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		px := ax + int(math.Round(t*float64(bx-ax)))
		py := ay + int(math.Round(t*float64(by-ay)))
		if px < x1 || px > x2 || py < y1 || py > y2 {
			continue
		}
		v.Screen.SetContent(px, py, r, nil, style)
	}
}

// DrawRuledLines paints the horizontal line grid across the pane,
// one row for every multiple of the spacing inside the domain
func (v *View) DrawRuledLines(fd Bs.Domain, spacing float64, x1, y1, x2, y2 int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)

	k := math.Ceil(fd.MinY / spacing)
	for ; k*spacing <= fd.MaxY; k++ {
		_, row := CalcFieldCell(fd, fd.MinX, k*spacing, x1, y1, x2, y2)
		if row < y1 || row > y2 {
			continue
		}
		for col := x1; col <= x2; col++ {
			v.Screen.SetContent(col, row, tcell.RuneHLine, nil, style)
		}
	}
}

// DrawNeedleField layers the full drop history onto the pane.
// The most recent needles draw bright, everything older dims.
func (v *View) DrawNeedleField(field []Bt.ClassifiedNeedle, fd Bs.Domain, x1, y1, x2, y2 int) {
	cutover := len(field) - fieldFade
	for i, nd := range field {
		v.DrawNeedle(nd, fd, x1, y1, x2, y2, i < cutover)
	}
}

// RatioLaneRunes smooths the ratio history and autoscales the tail
// onto the block scale for a one-row convergence lane
func RatioLaneRunes(history []Bt.HistoryEntry, width int, smoother Bp.SeriesTransformer) []rune {
	if width <= 0 || len(history) == 0 {
		return nil
	}

	raw := make([]float64, len(history))
	for i, h := range history {
		raw[i] = h.Ratio
	}

	smooth := make([]float64, len(raw))
	for i := range raw {
		smooth[i] = raw[i]
		if smoother == nil {
			continue
		}
		s, err := smoother.Transform("ratio", raw[i], raw[:i], history[i].Tick)
		if err == nil {
			smooth[i] = s
		}
	}

	if len(smooth) > width {
		smooth = smooth[len(smooth)-width:]
	}

	lo, hi := smooth[0], smooth[0]
	for _, s := range smooth {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	lane := make([]rune, len(smooth))
	for i, s := range smooth {
		lane[i] = RatioToRune(s, lo, hi)
	}
	return lane
}

// RatioToRune scales a point inside [lo,hi] onto the block runes
func RatioToRune(val, lo, hi float64) rune {
	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	if hi <= lo {
		return blocks[0]
	}

	idx := int((val - lo) / (hi - lo) * float64(len(blocks)-1))
	if idx < 0 {
		idx = 0
	}
	if idx > len(blocks)-1 {
		idx = len(blocks) - 1
	}
	return blocks[idx]
}

// DrawLane displays the convergence lane with intensity scale colors
func (v *View) DrawLane(x, y int, lane []rune) {
	for runeIndex, r := range lane {
		if r == 0 {
			r = ' '
		}

		// Choose color based on the rune (intensity)
		var style tcell.Style
		switch r {
		case '▁':
			style = tcell.StyleDefault.Foreground(tcell.ColorSeaGreen)
		case '▂':
			style = tcell.StyleDefault.Foreground(tcell.ColorMediumSeaGreen)
		case '▃':
			style = tcell.StyleDefault.Foreground(tcell.ColorLightSeaGreen)
		case '▄':
			style = tcell.StyleDefault.Foreground(tcell.ColorDarkTurquoise)
		case '▅':
			style = tcell.StyleDefault.Foreground(tcell.ColorMediumTurquoise)
		case '▆':
			style = tcell.StyleDefault.Foreground(tcell.ColorTurquoise)
		case '▇':
			style = tcell.StyleDefault.Foreground(tcell.ColorLightGreen)
		case '█':
			style = tcell.StyleDefault.Foreground(tcell.ColorAquaMarine)
		default:
			style = tcell.StyleDefault
		}

		v.Screen.SetContent(x+runeIndex, y, r, nil, style)
	}
}

// DrawText displays the text string at the given (x1, y1) with box size (x2, y2)
func (v *View) DrawText(x1, y1, x2, y2 int, text string) {
	row := y1
	col := x1
	style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorLightSteelBlue)
	for _, r := range text {
		v.Screen.SetContent(col, row, r, nil, style)
		col++
		if col >= x2 {
			row++
			col = x1
		}
		if row > y2 {
			break
		}
	}
}

// DrawViewBorder displays the outline of the View
func (v *View) DrawViewBorder(width, height int) {
	hvStyle := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorPink)
	v.Screen.SetContent(0, 0, tcell.RuneULCorner, nil, hvStyle)
	for i := 1; i < width; i++ {
		v.Screen.SetContent(i, 0, tcell.RuneHLine, nil, hvStyle)
	}
	v.Screen.SetContent(width, 0, tcell.RuneURCorner, nil, hvStyle)

	for i := 1; i < height; i++ {
		v.Screen.SetContent(0, i, tcell.RuneVLine, nil, hvStyle)
	}

	v.Screen.SetContent(0, height, tcell.RuneLLCorner, nil, hvStyle)

	for i := 1; i < height; i++ {
		v.Screen.SetContent(width, i, tcell.RuneVLine, nil, hvStyle)
	}

	v.Screen.SetContent(width, height, tcell.RuneLRCorner, nil, hvStyle)

	for i := 1; i < width; i++ {
		v.Screen.SetContent(i, height, tcell.RuneHLine, nil, hvStyle)
	}
}

// DrawBuffonView draws the needle field and run status with tcell.
// Includes a toggle for the convergence lane.
func (v *View) DrawBuffonView() {
	// This is the border of the box
	width, height := v.GetScreenSize()

	// Obtain a lock and grab needed display data
	v.MU.Lock()
	snap := v.latest
	field := v.field
	lane := v.lane
	showLane := v.ShowLane
	v.MU.Unlock()

	params := v.CurrentDriver().Params

	// Draw basic elements
	v.DrawViewBorder(width-2, height-1)

	// Run status across the top
	ratioText := "N/A"
	if snap.Stats.RatioOK {
		ratioText = strconv.FormatFloat(snap.Stats.Ratio, 'f', 6, 64)
	}
	v.DrawText(1, 1, width-2, 1, fmt.Sprintf("Needles: %d / %d | Crossings: %d | Ratio: %s",
		snap.Stats.TotalNeedles, params.MaxNeedles, snap.Stats.TotalCrossings, ratioText))

	piText := "N/A (stability guard)"
	if snap.Stats.PiOK {
		piText = strconv.FormatFloat(snap.Stats.PiEstimate, 'f', 6, 64)
		if v.PiErr != nil {
			if dev, err := v.PiErr.Transform("piEstimate", snap.Stats.PiEstimate, nil, snap.Tick); err == nil {
				piText = fmt.Sprintf("%s (π %.6f | err %.6f)", piText, math.Pi, dev)
			}
		}
	}
	v.DrawText(1, 2, width-2, 2, "Buffon π estimate: "+piText)

	v.DrawRunProgress(1, 3, width-3, snap.Stats.TotalNeedles, params.MaxNeedles)

	// The needle pane sits between the status rows and the lane
	paneX1, paneX2 := 1, width-3
	paneY1, paneY2 := screenGutter, height-2
	if showLane {
		paneY2 = height - 2 - laneRows
	}

	v.DrawRuledLines(params.Field, params.LineSpacing, paneX1, paneY1, paneX2, paneY2)
	v.DrawNeedleField(field, params.Field, paneX1, paneY1, paneX2, paneY2)

	// Support toggle of the lane by wrapping in a boolean
	if showLane {
		laneY := height - 3
		v.DrawLane(2, laneY, lane)

		theo := 2 * params.NeedleLength / (math.Pi * params.LineSpacing)
		label := fmt.Sprintf("convergence | theory %.4f", theo)
		if v.Smoother != nil {
			label = fmt.Sprintf("convergence (%s) | theory %.4f", v.Smoother.Type(), theo)
		}
		v.DrawText(2, laneY-1, width-2, laneY-1, label)

		v.DrawText(1, height-1, width, height+10, "/c/ hide convergence | /r/ restart | /ESC/ to quit")
	} else {
		v.DrawText(1, height-1, width, height+10, "/c/ show convergence | /r/ restart | /ESC/ to quit")
	}

	if snap.Stats.Completed {
		v.DrawText(1, screenGutter-1, width-2, screenGutter-1, "► run complete ◄")
	}

	v.DrawText(width-8, height-1, width, height+10, "BUFFON")
}

// DrawRunProgress fills the needle budget bar across the row
func (v *View) DrawRunProgress(x1, y, x2 int, done, total int64) {
	if total <= 0 || x2 <= x1 {
		return
	}

	barStyle := tcell.StyleDefault.Background(tcell.ColorOliveDrab)
	restStyle := tcell.StyleDefault.Background(tcell.ColorBlack)

	fill := int(int64(x2-x1) * done / total)
	for col := x1; col < x2; col++ {
		if col-x1 < fill {
			v.Screen.SetContent(col, y, ' ', nil, barStyle)
		} else {
			v.Screen.SetContent(col, y, ' ', nil, restStyle)
		}
	}
}

// Exit cleanly
func (v *View) exit() {
	v.MU.Lock()
	defer v.MU.Unlock()
	v.Screen.Fini()
	os.Exit(0)
}

// Running Loop to handle events
func (v *View) handleKeyBoardEvent() {
	for {
		ev := v.Screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			v.ResizeScreen()
		case *tcell.EventKey:
			// Catch quit and exit
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				v.exit()
			}

			if ev.Key() == tcell.KeyCtrlL {
				v.Screen.Sync()
			}

			// Toggle the convergence lane with 'c'
			if ev.Rune() == 'c' {
				v.MU.Lock()
				v.ShowLane = !v.ShowLane
				v.MU.Unlock()
				v.UpdateScreen()
			}

			// Start over with a fresh run on 'r'
			if ev.Rune() == 'r' {
				v.RestartRun()
			}
		}
	}
}

// RestartRun swaps in a fresh driver with the same parameters.
// A restart is a new run: new accumulator, empty history,
// the same seed replays the same drops.
func (v *View) RestartRun() {
	if v.Supervisor != nil {
		v.Supervisor.Stop()
	}

	driver, err := Bs.NewDriver(v.CurrentDriver().Params)
	if err != nil {
		slog.Error("Failed to restart run", slog.Any("Error", err))
		return
	}

	v.MU.Lock()
	v.Driver = driver
	v.latest = driver.Snapshot()
	v.field = nil
	v.lane = nil
	v.exhausted = false
	v.MU.Unlock()

	slog.Info("Run restarted", slog.String("seed", driver.Params.Seed))

	if v.Supervisor != nil {
		v.Supervisor.Start()
	}
	if v.Screen != nil {
		v.UpdateScreen()
	}
}

// GetScreenSize provides the terminal size for drawing
func (v *View) GetScreenSize() (int, int) {
	width, height := v.Screen.Size()
	return width, height
}

// ResizeScreen resizes the View after terminal changes
func (v *View) ResizeScreen() {
	v.Screen.Sync()
	v.UpdateScreen()
}

func (v *View) UpdateScreen() {
	v.Screen.Clear()
	v.DrawBuffonView()
	v.Screen.Show()
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

func (v *View) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         200,
		}
		next.ServeHTTP(wrapped, r)

		v.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}

// NewView creates the tcell screen that displays the needle field
func NewView(d *Bs.Driver) (*View, error) {
	if d == nil {
		slog.Error("Could not get a driver for display")
		return nil, errors.New("simulation driver not found")
	}

	screen, err := GetTTY()
	if err != nil {
		slog.Error("Could not get new screen", slog.Any("Error", err))
		return nil, err
	}

	// create an attached prometheus registry
	stats := Bo.NewStatsInternal()

	// ratio smoothing for the convergence lane
	smoother, err := Bp.TransformerLookup("moving_avg")
	if err != nil {
		slog.Error("Could not look up smoother", slog.Any("Error", err))
		return nil, err
	}

	view := &View{
		Driver:   d,
		Screen:   screen,
		Stats:    stats,
		Smoother: smoother,
		PiErr:    Bp.NewPiErrorTransformer(0),
		ShowLane: true,
		latest:   d.Snapshot(),
	}

	view.UpdateScreen()

	return view, err
}

// StartBuffonView is called by main to run the program.
// This also starts up the /metrics endpoint that is populated by prometheus.
func StartBuffonView(p *Bs.ParameterSet) error {
	driver, err := Bs.NewDriver(p)
	if err != nil {
		slog.Error("Failed to init driver", slog.Any("Error", err))
		return err
	}

	view, err := NewView(driver)
	if err != nil {
		slog.Error("Could not start BuffonView", slog.Any("Error", err))
		return err
	}

	// Tick recorder plugin, in-memory unless configured otherwise
	if err := InitRecorder(view); err != nil {
		slog.Warn("Running without a tick recorder", slog.Any("Error", err))
	}

	// Server for stats endpoint
	view.server = &http.Server{
		Addr:    dataservAddr,
		Handler: otelhttp.NewHandler(view.SetupMux(), "buffon-dataserv"),
	}

	// Run the driving clock
	sup := view.NewTickSupervisor(0)
	sup.Start()

	// Run stats endpoint
	go func() {
		slog.Info("Starting Buffon dataserv endpoint...", slog.String("Port", dataservAddr))
		if err := view.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not start dataserv endpoint", slog.Any("Error", err))
		}
	}()

	view.handleKeyBoardEvent()

	return err
}

// StartWebNoTUI runs the simulation headless with only the dataserv
func StartWebNoTUI(p *Bs.ParameterSet) error {
	driver, err := Bs.NewDriver(p)
	if err != nil {
		slog.Error("Failed to init driver", slog.Any("Error", err))
		return err
	}

	// Create View without tcell screen
	stats := Bo.NewStatsInternal()
	smoother, err := Bp.TransformerLookup("moving_avg")
	if err != nil {
		return err
	}

	view := &View{
		Driver:   driver,
		Stats:    stats,
		Smoother: smoother,
		PiErr:    Bp.NewPiErrorTransformer(0),
		latest:   driver.Snapshot(),
	}

	if err := InitRecorder(view); err != nil {
		slog.Warn("Running without a tick recorder", slog.Any("Error", err))
	}

	// Server for stats endpoint
	view.server = &http.Server{
		Addr:    dataservAddr,
		Handler: otelhttp.NewHandler(view.SetupMux(), "buffon-dataserv"),
	}

	// Run the driving clock
	sup := view.NewTickSupervisor(0)
	sup.Start()

	// Run stats endpoint (blocks)
	slog.Info("Starting Buffon web server...", slog.String("Port", dataservAddr))
	if err := view.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Could not start dataserv endpoint", slog.Any("Error", err))
		return err
	}

	return nil
}
