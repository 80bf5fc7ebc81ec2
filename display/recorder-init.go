package buffon

import (
	"log/slog"

	Bp "github.com/maroda/buffon/plugin"
	Bs "github.com/maroda/buffon/sim"
)

// InitRecorder attaches a tick record output adapter to the View.
// BUFFON_RECORD_PATH picks the on-disk badger location, unset keeps
// the store in memory. BUFFON_RECORD_BATCH sizes the write buffer.
func InitRecorder(view *View) error {
	recordPath := Bs.FillEnvVar("BUFFON_RECORD_PATH")
	recordBatch := Bs.FillEnvVarInt("BUFFON_RECORD_BATCH", Bp.DefaultRecordBatch)

	if recordPath == "ENOENT" {
		recordPath = ""
	}

	location := recordPath
	if location == "" {
		location = "in-memory"
	}

	slog.Info("Configuration found:",
		slog.String("Path", location),
		slog.Int("Batch", recordBatch),
	)

	output, err := Bp.NewBadgerOutput(recordPath, recordBatch)
	if err != nil {
		slog.Error("Failed to create adapter",
			slog.String("output", location),
			slog.Any("error", err))
		return err
	}

	view.MU.Lock()
	view.Recorder = output
	view.MU.Unlock()

	slog.Info("Tick Recorder Enabled", slog.String("output", location))
	return nil
}
