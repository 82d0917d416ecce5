// Package fsgset implements the named FSG grammar collection described in
// spec.md §4.1: add/remove/select over a set of [fsgmodel.Model] instances,
// with optional silence/filler and alternate-pronunciation augmentation
// applied when a grammar is added.
package fsgset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/observe"
)

// Dictionary is the minimal dictionary surface alternate-pronunciation
// augmentation needs (spec.md §4.1), satisfied by
// [github.com/MrWong99/gofsgdecoder/internal/dict.Dictionary].
type Dictionary interface {
	ToID(str string) (fsgmodel.WordID, bool)
	WordStr(wid fsgmodel.WordID) string
	PronLen(wid fsgmodel.WordID) int
	NextAlt(wid fsgmodel.WordID) (fsgmodel.WordID, bool)
}

// Options control the augmentation behaviour applied by Add, mirroring the
// fsgusefiller/fsgusealtpron config keys of spec.md §6.
type Options struct {
	// UseFiller enables silence + filler self-loop augmentation.
	UseFiller bool
	// UseAltPron enables alternate-pronunciation aliasing.
	UseAltPron bool

	SilWord     string
	SilProbLog  int32 // log(silprob)·lw, pre-scaled per spec.md §9
	FillProbLog int32 // log(fillprob)·lw
}

// Manager owns a named collection of FSG models and tracks which one is
// currently selected (spec.md §4.1). Selecting a different grammar
// invalidates whatever lextree/history binding the caller built for the
// previous one; [Manager] itself does not own the lextree (the frame engine
// does) — it only tracks the active *name*.
type Manager struct {
	models  map[string]*fsgmodel.Model
	active  string
	dict    Dictionary
	opts    Options
	log     *slog.Logger

	metrics *observe.Metrics
	name    string
}

// SetMetrics attaches the grammar-switch counter (spec.md §4.1's Select) to
// m, labelling it with name. Passing a nil metrics disables instrumentation;
// the default is nil.
func (m *Manager) SetMetrics(metrics *observe.Metrics, name string) {
	m.metrics = metrics
	m.name = name
}

// New returns an empty grammar set manager. dict is used for
// alternate-pronunciation lookups on Add when opts.UseAltPron is set; it may
// be nil if UseAltPron is false.
func New(dict Dictionary, opts Options, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		models: make(map[string]*fsgmodel.Model),
		dict:   dict,
		opts:   opts,
		log:    log,
	}
}

// Add registers fsg under name, applying silence/filler and
// alternate-pronunciation augmentation per the configured [Options]
// (spec.md §4.1). Returns an error if name is already registered.
func (m *Manager) Add(name string, fsg *fsgmodel.Model) error {
	if _, exists := m.models[name]; exists {
		return fmt.Errorf("fsgset: grammar %q already registered", name)
	}

	if m.opts.UseFiller && !fsg.HasSil() {
		if err := m.augmentFiller(fsg); err != nil {
			return fmt.Errorf("fsgset: filler augmentation for %q: %w", name, err)
		}
	}
	if m.opts.UseAltPron {
		if err := m.augmentAltPron(fsg); err != nil {
			return fmt.Errorf("fsgset: alt-pron augmentation for %q: %w", name, err)
		}
	}

	m.models[name] = fsg
	m.log.Info("fsg registered", "name", name, "states", fsg.NState(), "words", len(fsg.Vocabulary()))
	return nil
}

// augmentFiller adds a silence self-loop on every state, then a self-loop
// for every other word the FSG already marks as filler
// ([fsgmodel.Model.MarkFiller]). Dictionary words are not scanned to
// classify fillers, and it does not invent new filler vocabulary — it only adds self-loops for words already present in
// the grammar's vocabulary and marked filler, plus the distinguished
// silence word.
func (m *Manager) augmentFiller(fsg *fsgmodel.Model) error {
	var sil fsgmodel.WordID = fsgmodel.NoWord
	ok := false
	for _, wid := range fsg.Vocabulary() {
		if fsg.WordStr(wid) == m.opts.SilWord {
			sil = wid
			ok = true
			break
		}
	}
	if !ok {
		sil = fsg.WordAdd(m.opts.SilWord)
	}
	if err := fsg.AddSilence(sil, m.opts.SilProbLog); err != nil {
		return err
	}
	for _, wid := range fsg.Vocabulary() {
		if wid == sil {
			continue
		}
		if fsg.IsFiller(wid) {
			if err := fsg.AddFillerSelfLoop(wid, m.opts.FillProbLog); err != nil {
				return err
			}
		}
	}
	return nil
}

// augmentAltPron registers every dictionary alternate pronunciation of every
// word already present in fsg's vocabulary as an alias on all transitions
// carrying the base word (spec.md §4.1).
func (m *Manager) augmentAltPron(fsg *fsgmodel.Model) error {
	if m.dict == nil {
		return fmt.Errorf("fsgset: alt-pron augmentation requested with no dictionary bound")
	}
	for _, wid := range fsg.Vocabulary() {
		str := fsg.WordStr(wid)
		base, ok := m.dict.ToID(str)
		if !ok {
			continue
		}
		for alt, hasAlt := m.dict.NextAlt(base); hasAlt; alt, hasAlt = m.dict.NextAlt(alt) {
			altStr := m.dict.WordStr(alt)
			altWID := fsg.WordAdd(altStr)
			if err := fsg.AddAlt(wid, altWID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Remove unregisters name. Returns an error if name is the active grammar or
// unknown — per spec.md §5, the caller must detach the lextree/history from
// the active grammar before removing it.
func (m *Manager) Remove(name string) error {
	if name == m.active {
		return fmt.Errorf("fsgset: cannot remove the active grammar %q", name)
	}
	if _, exists := m.models[name]; !exists {
		return fmt.Errorf("fsgset: unknown grammar %q", name)
	}
	delete(m.models, name)
	return nil
}

// Select switches the active grammar to name. Returns an error if name is
// unregistered. The caller (frame engine) must subsequently reinit its
// lextree and re-bind its history table, per spec.md §4.1.
func (m *Manager) Select(name string) error {
	if _, exists := m.models[name]; !exists {
		return fmt.Errorf("fsgset: unknown grammar %q", name)
	}
	m.active = name
	if m.metrics != nil {
		m.metrics.RecordFSGSwitch(context.Background(), m.name, name)
	}
	return nil
}

// Active returns the currently selected grammar, or nil if none is selected.
func (m *Manager) Active() *fsgmodel.Model {
	return m.models[m.active]
}

// ActiveName returns the name of the currently selected grammar, or "" if
// none is selected.
func (m *Manager) ActiveName() string {
	return m.active
}

// Get returns the grammar registered under name, or (nil, false).
func (m *Manager) Get(name string) (*fsgmodel.Model, bool) {
	fsg, ok := m.models[name]
	return fsg, ok
}

// Names returns all registered grammar names, order unspecified.
func (m *Manager) Names() []string {
	out := make([]string, 0, len(m.models))
	for n := range m.models {
		out = append(out, n)
	}
	return out
}

// Iterate calls fn once per registered grammar, in unspecified order,
// stopping early if fn returns false. Enumerates all loaded grammars
// (spec.md §4.1).
func (m *Manager) Iterate(fn func(name string, fsg *fsgmodel.Model) bool) {
	for name, fsg := range m.models {
		if !fn(name, fsg) {
			return
		}
	}
}
