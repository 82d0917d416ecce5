// Package config provides the configuration schema, loader, and validation
// for the FSG decoder.
package config

// Config is the root configuration structure for the decoder.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Decoder    DecoderConfig    `yaml:"decoder"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	FSG        FSGConfig        `yaml:"fsg"`
}

// ServerConfig holds logging settings for the decoder process.
type ServerConfig struct {
	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`
}

// LogLevel is a validated slog verbosity name.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// DecoderConfig holds every beam/scoring/feature knob named in spec.md §6's
// configuration table.
type DecoderConfig struct {
	// Beam, PBeam, WBeam are the log-domain HMM/phone/word beam widths.
	// Must be <= 0 (spec.md §3: "all beams are non-positive log values").
	Beam  int32 `yaml:"beam"`
	PBeam int32 `yaml:"pbeam"`
	WBeam int32 `yaml:"wbeam"`

	// MaxHMMPF caps active HMMs per frame; <= 0 disables dynamic beam
	// narrowing (spec.md §8, "maxhmmpf = -1 disables dynamic beam narrowing").
	MaxHMMPF int `yaml:"maxhmmpf"`

	// LW is the linguistic weight applied to log-probs before scaling.
	LW float64 `yaml:"lw"`

	// PIP, WIP are the phone/word insertion penalties. They are stored as
	// given, not scaled by LW, and nothing in this module reads them.
	PIP float64 `yaml:"pip"`
	WIP float64 `yaml:"wip"`

	// SilProb, FillProb are self-loop probabilities for <sil> and filler
	// words (spec.md §4.1).
	SilProb  float64 `yaml:"silprob"`
	FillProb float64 `yaml:"fillprob"`

	// AScale is the acoustic-score scale used for posteriors (spec.md §6).
	AScale float64 `yaml:"ascale"`

	// BestPath enables lattice best-path on the final hypothesis.
	BestPath bool `yaml:"bestpath"`

	// FSGUseFiller auto-adds silence/filler self-loops on FSG add.
	FSGUseFiller bool `yaml:"fsgusefiller"`

	// FSGUseAltPron auto-adds alternate pronunciations on FSG add.
	FSGUseAltPron bool `yaml:"fsgusealtpron"`

	// SilenceCIPhone is the CI-phone id used as the sentinel's last-phone
	// value (spec.md §4.2, "start()" step 4) and as the single-phone
	// pronunciation cmd/fsgdecode gives grammar words with no dictionary entry.
	SilenceCIPhone int `yaml:"silence_ci_phone"`

	// HMMEmitStates is the number of emitting states every HMM topology in
	// this model shares, passed to the HMM evaluator's ContextInit.
	HMMEmitStates int `yaml:"hmm_emit_states"`

	// Name is the grammar name this decoder registers its default FSG
	// under in the FSG set manager.
	Name string `yaml:"name"`
}

// DictionaryConfig points at the pronunciation dictionary to load.
type DictionaryConfig struct {
	// Path is the dictionary file path. Dictionary file-format parsing is
	// out of scope for this module (spec.md §1); a real loader is a
	// collaborator this field merely names.
	Path string `yaml:"path"`
}

// FSGConfig points at the default grammar to load at init (spec.md §6, "fsg").
type FSGConfig struct {
	Path string `yaml:"path"`
}
