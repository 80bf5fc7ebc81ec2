package buffon

import (
	"log/slog"
	"math"
	"os"

	"github.com/spf13/cast"
)

// FillEnvVar returns the value of a runtime Environment Variable
func FillEnvVar(ev string) string {
	// If the EnvVar doesn't exist return a default string
	value := os.Getenv(ev)
	if value == "" {
		value = "ENOENT"
	}
	return value
}

// FillEnvVarInt returns an integer Environment Variable,
// falling back to the given default when unset or unreadable
func FillEnvVarInt(ev string, def int) int {
	value := os.Getenv(ev)
	if value == "" {
		return def
	}

	i, err := cast.ToIntE(value)
	if err != nil {
		slog.Error("Ignoring non-integer env var",
			slog.String("Var", ev),
			slog.Any("Error", err))
		return def
	}
	return i
}

// FillEnvVarInt64 is FillEnvVarInt for 64-bit counters
func FillEnvVarInt64(ev string, def int64) int64 {
	value := os.Getenv(ev)
	if value == "" {
		return def
	}

	i, err := cast.ToInt64E(value)
	if err != nil {
		slog.Error("Ignoring non-integer env var",
			slog.String("Var", ev),
			slog.Any("Error", err))
		return def
	}
	return i
}

// FillEnvVarFloat returns a float Environment Variable,
// falling back to the given default when unset or unreadable
func FillEnvVarFloat(ev string, def float64) float64 {
	value := os.Getenv(ev)
	if value == "" {
		return def
	}

	f, err := cast.ToFloat64E(value)
	if err != nil {
		slog.Error("Ignoring non-numeric env var",
			slog.String("Var", ev),
			slog.Any("Error", err))
		return def
	}
	return f
}

// FloatPrecise rounds a float to /p/ decimal places for display
func FloatPrecise(f float64, p int) float64 {
	scale := math.Pow(10, float64(p))
	return math.Round(f*scale) / scale
}
