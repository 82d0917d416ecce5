package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded by a running decoder are
// tracked. A decoder keeps the beam/scoring values it was built with
// ([search.Decoder.Reinit] does not reread them); changed values reach the
// next decoder built from the new config, never one mid-utterance.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	BeamsChanged bool // Beam, PBeam, or WBeam changed
	FSGChanged   bool // fsg.path changed — requires Reinit
	DictChanged  bool // dictionary.path changed — requires a fresh dictionary load
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Decoder.Beam != new.Decoder.Beam ||
		old.Decoder.PBeam != new.Decoder.PBeam ||
		old.Decoder.WBeam != new.Decoder.WBeam {
		d.BeamsChanged = true
	}

	if old.FSG.Path != new.FSG.Path {
		d.FSGChanged = true
	}

	if old.Dictionary.Path != new.Dictionary.Path {
		d.DictChanged = true
	}

	return d
}
