package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Decoder beams: spec.md §3, "all beams are non-positive log values".
	if cfg.Decoder.Beam > 0 {
		errs = append(errs, fmt.Errorf("decoder.beam %d must be <= 0", cfg.Decoder.Beam))
	}
	if cfg.Decoder.PBeam > 0 {
		errs = append(errs, fmt.Errorf("decoder.pbeam %d must be <= 0", cfg.Decoder.PBeam))
	}
	if cfg.Decoder.WBeam > 0 {
		errs = append(errs, fmt.Errorf("decoder.wbeam %d must be <= 0", cfg.Decoder.WBeam))
	}

	if cfg.Decoder.HMMEmitStates <= 0 {
		errs = append(errs, fmt.Errorf("decoder.hmm_emit_states must be > 0, got %d", cfg.Decoder.HMMEmitStates))
	}

	if cfg.Decoder.LW < 0 {
		errs = append(errs, fmt.Errorf("decoder.lw must be >= 0, got %.2f", cfg.Decoder.LW))
	}

	if cfg.Decoder.SilProb < 0 || cfg.Decoder.SilProb > 1 {
		errs = append(errs, fmt.Errorf("decoder.silprob %.4f is out of range [0, 1]", cfg.Decoder.SilProb))
	}
	if cfg.Decoder.FillProb < 0 || cfg.Decoder.FillProb > 1 {
		errs = append(errs, fmt.Errorf("decoder.fillprob %.4f is out of range [0, 1]", cfg.Decoder.FillProb))
	}

	if cfg.Decoder.AScale <= 0 {
		slog.Warn("decoder.ascale is <= 0; lattice posteriors will be degenerate", "ascale", cfg.Decoder.AScale)
	}

	if cfg.Decoder.MaxHMMPF == 0 {
		slog.Warn("decoder.maxhmmpf is 0, which disables dynamic beam narrowing")
	}

	if cfg.Decoder.Name == "" {
		errs = append(errs, errors.New("decoder.name is required"))
	}

	// Dictionary / FSG paths
	if cfg.Dictionary.Path == "" {
		errs = append(errs, errors.New("dictionary.path is required"))
	}
	if cfg.FSG.Path == "" {
		errs = append(errs, errors.New("fsg.path is required"))
	}

	return errors.Join(errs...)
}
