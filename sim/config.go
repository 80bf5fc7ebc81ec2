package buffon

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the on-disk run configuration.
// JSON and YAML carry the same field names.
type ConfigFile struct {
	NeedleLength   float64 `json:"needleLength" yaml:"needleLength"`
	LineSpacing    float64 `json:"lineSpacing" yaml:"lineSpacing"`
	NeedlesPerTick int     `json:"needlesPerTick" yaml:"needlesPerTick"`
	MaxNeedles     int64   `json:"maxNeedles" yaml:"maxNeedles"`
	Field          Domain  `json:"domain" yaml:"domain"`
	Seed           string  `json:"seed" yaml:"seed"`
	MinRatio       float64 `json:"minRatio" yaml:"minRatio"`
	Workers        int     `json:"workers" yaml:"workers"`
}

// Normalized fills every zero field with its run default.
// Negative values pass through untouched so that validation
// can name the offending field instead of silently fixing it.
func (cf ConfigFile) Normalized() ConfigFile {
	if cf.NeedleLength == 0 {
		cf.NeedleLength = DefaultNeedleLength
	}
	if cf.LineSpacing == 0 {
		cf.LineSpacing = DefaultLineSpacing
	}
	if cf.NeedlesPerTick == 0 {
		cf.NeedlesPerTick = DefaultNeedlesPerTick
	}
	if cf.MaxNeedles == 0 {
		cf.MaxNeedles = DefaultMaxNeedles
	}
	if cf.Field == (Domain{}) {
		cf.Field = Domain{MaxX: DefaultDomainSize, MaxY: DefaultDomainSize}
	}
	if strings.TrimSpace(cf.Seed) == "" {
		cf.Seed = DefaultSeed
	}
	if cf.MinRatio == 0 {
		cf.MinRatio = DefaultMinRatio
	}
	if cf.Workers == 0 {
		cf.Workers = defaultWorkers()
	}
	return cf
}

// ApplyEnv layers BUFFON_* environment variables over the config.
// Anything unset in the environment leaves the config value alone.
func (cf ConfigFile) ApplyEnv() ConfigFile {
	cf.NeedleLength = FillEnvVarFloat("BUFFON_NEEDLE_LENGTH", cf.NeedleLength)
	cf.LineSpacing = FillEnvVarFloat("BUFFON_LINE_SPACING", cf.LineSpacing)
	cf.NeedlesPerTick = FillEnvVarInt("BUFFON_NEEDLES_PER_TICK", cf.NeedlesPerTick)
	cf.MaxNeedles = FillEnvVarInt64("BUFFON_MAX_NEEDLES", cf.MaxNeedles)
	cf.MinRatio = FillEnvVarFloat("BUFFON_MIN_RATIO", cf.MinRatio)
	cf.Workers = FillEnvVarInt("BUFFON_WORKERS", cf.Workers)
	if seed := os.Getenv("BUFFON_SEED"); seed != "" {
		cf.Seed = seed
	}
	return cf
}

// LoadConfigFileName pulls a given filename config off local disk
// Validation is performed on the file before decoding,
// then the extension picks the codec: .yaml/.yml, JSON otherwise
func LoadConfigFileName(filename string) (*ConfigFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// validation
	err = validateLoad(file)
	if err != nil {
		slog.Error("Validation failed", slog.Any("Error", err))
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return LoadConfigYAML(file)
	default:
		return LoadConfig(file)
	}
}

func validateLoad(file *os.File) error {
	// validate file
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}

	// validate size
	if info.Size() == 0 {
		slog.Error("file is empty")
		return errors.New("file is empty")
	}

	return nil
}

// LoadConfig decodes a JSON run configuration
func LoadConfig(file *os.File) (*ConfigFile, error) {
	// open file
	cf, err := os.Open(file.Name())
	if err != nil {
		slog.Error("could not open file")
		return nil, err
	}
	defer cf.Close()

	// decode json
	var config ConfigFile
	decoder := json.NewDecoder(cf)
	if err := decoder.Decode(&config); err != nil {
		slog.Error("could not decode file")
		return nil, err
	}

	return &config, nil
}

// LoadConfigYAML decodes a YAML run configuration
func LoadConfigYAML(file *os.File) (*ConfigFile, error) {
	// open file
	cf, err := os.Open(file.Name())
	if err != nil {
		slog.Error("could not open file")
		return nil, err
	}
	defer cf.Close()

	raw, err := io.ReadAll(cf)
	if err != nil {
		slog.Error("could not read file")
		return nil, err
	}

	// decode yaml
	var config ConfigFile
	if err := yaml.Unmarshal(raw, &config); err != nil {
		slog.Error("could not decode file")
		return nil, err
	}

	return &config, nil
}

// RunParams assembles the whole chain for callers:
// optional file, then env overrides, then validation.
// An empty filename starts from the zero config, which
// Normalized turns into the default tabletop run.
func RunParams(filename string) (*ParameterSet, error) {
	var cf ConfigFile
	if filename != "" {
		loaded, err := LoadConfigFileName(filename)
		if err != nil {
			return nil, err
		}
		cf = *loaded
	}
	return NewParameterSet(cf.ApplyEnv())
}
