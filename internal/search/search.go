// Package search implements the frame engine described in spec.md §4.2 —
// start/step/finish — and the public decoder surface of spec.md §6, wiring
// together the history table, active-node sets, lextree, FSG set manager,
// lattice builder, and result extractor into one handle.
package search

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/gofsgdecoder/internal/acoustic"
	"github.com/MrWong99/gofsgdecoder/internal/activeset"
	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/fsgset"
	"github.com/MrWong99/gofsgdecoder/internal/history"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
	"github.com/MrWong99/gofsgdecoder/internal/lattice"
	"github.com/MrWong99/gofsgdecoder/internal/lextree"
	"github.com/MrWong99/gofsgdecoder/internal/observe"
)

// Sentinel errors callers must be able to detect programmatically
// (SPEC_FULL.md §2.2).
var (
	ErrNoHypothesis        = errors.New("search: no hypothesis")
	ErrFrameUnderflow      = errors.New("search: no frame ready")
	ErrLatticeConstruction = errors.New("search: lattice construction failed")
	ErrUnknownFSG          = errors.New("search: no FSG selected")
)

// Dictionary is the surface the frame engine needs from a pronunciation
// dictionary; satisfied by [github.com/MrWong99/gofsgdecoder/internal/dict.Dictionary].
type Dictionary interface {
	ToID(str string) (fsgmodel.WordID, bool)
	WordStr(wid fsgmodel.WordID) string
	BaseWID(wid fsgmodel.WordID) fsgmodel.WordID
	NWords() int
}

// LextreeBuilder constructs a lextree over an FSG's vocabulary (spec.md §4.1
// "reinit"). Real lextree compilation is out of scope for this module
// (spec.md §1); callers inject a builder — typically
// [github.com/MrWong99/gofsgdecoder/internal/lextree/mock] in tests, or a
// production compiler elsewhere.
type LextreeBuilder interface {
	Build(fsg *fsgmodel.Model) (lextree.Lextree, error)
}

// Config holds the beam/scoring parameters named in spec.md §6's
// configuration table. Beam fields are non-positive log-domain margins.
type Config struct {
	Beam, PBeam, WBeam hmm.Score
	MaxHMMPF           int // <= 0 disables dynamic beam narrowing
	AScale             float64
	BestPath           bool
	SilenceCIPhone     int
	SilPenLog          int32 // log(silprob)·lw, for lattice filler bypass
	FillPenLog         int32 // log(fillprob)·lw
}

// Decoder is the search handle: it exclusively owns the HMM context proxy
// (via the injected evaluator), history table, lextree, and both active
// sets (spec.md §5, "Resource ownership"). Single-threaded and cooperative
// with the caller — step() is the sole suspension point.
type Decoder struct {
	scorer  acoustic.Scorer
	eval    hmm.Evaluator
	dict    Dictionary
	fsgSet  *fsgset.Manager
	builder LextreeBuilder
	log     *slog.Logger

	cfg Config

	fsg  *fsgmodel.Model
	tree lextree.Lextree
	hist *history.Table

	cur, next *activeset.Set

	beamFactor          float64
	beam, pbeam, wbeam  hmm.Score

	frame      int32
	bestScore  hmm.Score
	bpidxStart int32
	final      bool
	started    bool
	nHMMEval   int64

	latticeFrame int32
	dag          *lattice.DAG

	metrics *observe.Metrics
	name    string
}

// New returns a Decoder wired to its collaborators. FSG selection and the
// first Reinit/Start must still be performed by the caller.
func New(cfg Config, scorer acoustic.Scorer, eval hmm.Evaluator, dict Dictionary, fsgSet *fsgset.Manager, builder LextreeBuilder, log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{
		scorer:       scorer,
		eval:         eval,
		dict:         dict,
		fsgSet:       fsgSet,
		builder:      builder,
		log:          log,
		cfg:          cfg,
		hist:         history.New(),
		cur:          activeset.New(),
		next:         activeset.New(),
		latticeFrame: -1,
	}
}

// Reinit builds a new lextree from the currently selected FSG and re-binds
// the history table to the (fsg, dict) pair (spec.md §4.1).
func (d *Decoder) Reinit() error {
	fsg := d.fsgSet.Active()
	if fsg == nil {
		return ErrUnknownFSG
	}
	tree, err := d.builder.Build(fsg)
	if err != nil {
		return fmt.Errorf("search: reinit: building lextree: %w", err)
	}
	d.fsg = fsg
	d.tree = tree
	d.hist.SetFSG(fsg, d.dict)
	d.dag = nil
	d.latticeFrame = -1
	d.log.Info("search reinit", "fsg", d.fsgSet.ActiveName(), "pnodes", tree.NPnode())
	return nil
}

// Free releases the decoder's grammar-bound state, matching spec.md §6's
// public surface. The collaborators themselves are owned by their
// respective managers and are not closed here.
func (d *Decoder) Free() {
	d.tree = nil
	d.fsg = nil
	d.hist.Reset()
	d.cur.Reset()
	d.next.Reset()
	d.dag = nil
}

// SetMetrics attaches the domain telemetry instruments (spec.md §4.2/§4.4
// stage timings, active-HMM/beam-factor histograms, lattice-build and FSG-switch
// counters) to d, labelling every recorded instrument with name. Passing a
// nil metrics disables instrumentation; the default is nil.
func (d *Decoder) SetMetrics(metrics *observe.Metrics, name string) {
	d.metrics = metrics
	d.name = name
}

// Frame returns the current frame counter.
func (d *Decoder) Frame() int32 { return d.frame }

// Final reports whether Finish has been called for the current utterance.
func (d *Decoder) Final() bool { return d.final }

// BestScore returns the most recent frame's best HMM score.
func (d *Decoder) BestScore() hmm.Score { return d.bestScore }

// BeamFactor returns the current dynamic beam-narrowing factor (1.0 unless
// maxhmmpf is exceeded, spec.md §4.2c).
func (d *Decoder) BeamFactor() float64 { return d.beamFactor }

// History exposes the backing history table, for the result extractor and
// tests.
func (d *Decoder) History() *history.Table { return d.hist }

// FSG returns the currently bound FSG model.
func (d *Decoder) FSG() *fsgmodel.Model { return d.fsg }

func scaleBeam(beam hmm.Score, factor float64) hmm.Score {
	return hmm.Score(float64(beam) * factor)
}
