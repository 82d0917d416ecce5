package main

import (
	"fmt"
	"log/slog"
	"math"

	acousticmock "github.com/MrWong99/gofsgdecoder/internal/acoustic/mock"
	"github.com/MrWong99/gofsgdecoder/internal/config"
	hmmmock "github.com/MrWong99/gofsgdecoder/internal/hmm/mock"
	ltmock "github.com/MrWong99/gofsgdecoder/internal/lextree/mock"
	"github.com/MrWong99/gofsgdecoder/internal/fsgset"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
	"github.com/MrWong99/gofsgdecoder/internal/observe"
	"github.com/MrWong99/gofsgdecoder/internal/search"
)

// assets bundles everything loaded from disk for one decode run: the
// dictionary, the default grammar, and the scripted acoustic frames driving
// it. Real acoustic scoring and lextree compilation are out of scope for
// this module (spec.md §1); assets lets the CLI plug in the reference mock
// collaborators the rest of the repo tests against.
type assets struct {
	ld     *loadedDict
	phones *phoneSet
	frames [][]hmm.Score
}

// loadAssets loads the dictionary, default FSG, and senone score matrix
// named by cfg, registers the FSG under cfg.Decoder.Name, and returns
// everything a [newDecoder] call needs.
func loadAssets(cfg *config.Config, scoresPath string) (*assets, *fsgset.Manager, error) {
	phones := newPhoneSet()

	ld, err := loadDictionary(cfg.Dictionary.Path, phones)
	if err != nil {
		return nil, nil, err
	}

	fsg, err := loadFSG(cfg.FSG.Path)
	if err != nil {
		return nil, nil, err
	}

	frames, err := loadSenoneScores(scoresPath, phones, cfg.Decoder.AScale)
	if err != nil {
		return nil, nil, err
	}

	opts := fsgset.Options{
		UseFiller:   cfg.Decoder.FSGUseFiller,
		UseAltPron:  cfg.Decoder.FSGUseAltPron,
		SilWord:     "<sil>",
		SilProbLog:  int32(math.Log(clampProb(cfg.Decoder.SilProb)) * cfg.Decoder.LW),
		FillProbLog: int32(math.Log(clampProb(cfg.Decoder.FillProb)) * cfg.Decoder.LW),
	}
	fsgSet := fsgset.New(ld.dict, opts, slog.Default())
	fsgSet.SetMetrics(observe.DefaultMetrics(), cfg.Decoder.Name)
	if err := fsgSet.Add(cfg.Decoder.Name, fsg); err != nil {
		return nil, nil, fmt.Errorf("registering fsg %q: %w", cfg.Decoder.Name, err)
	}
	if err := fsgSet.Select(cfg.Decoder.Name); err != nil {
		return nil, nil, fmt.Errorf("selecting fsg %q: %w", cfg.Decoder.Name, err)
	}

	return &assets{ld: ld, phones: phones, frames: frames}, fsgSet, nil
}

// clampProb guards math.Log against zero/negative probabilities, which a
// misconfigured silprob/fillprob of 0 would otherwise turn into -Inf.
func clampProb(p float64) float64 {
	if p <= 0 {
		return 1e-300
	}
	return p
}

// newDecoder wires a [search.Decoder] from cfg and a, reusing
// internal/lextree/mock as the reference lextree builder and
// internal/hmm/mock + internal/acoustic/mock as the reference acoustic
// collaborators (spec.md §1 places real lextree compilation and acoustic
// scoring out of scope).
func newDecoder(cfg *config.Config, a *assets, fsgSet *fsgset.Manager, log *slog.Logger) *search.Decoder {
	if log == nil {
		log = slog.Default()
	}
	active := fsgSet.Active()
	prons, ctxts, mkHMM := buildLextreeInputs(active, a.ld, a.frames, cfg.Decoder.SilenceCIPhone, log)

	builder := ltmock.Builder{Prons: prons, Ctxts: ctxts, MkHMM: mkHMM}
	scorer := acousticmock.NewScorer(a.frames)
	eval := hmmmock.NewEvaluator()

	sCfg := search.Config{
		Beam:           hmm.Score(cfg.Decoder.Beam),
		PBeam:          hmm.Score(cfg.Decoder.PBeam),
		WBeam:          hmm.Score(cfg.Decoder.WBeam),
		MaxHMMPF:       cfg.Decoder.MaxHMMPF,
		AScale:         cfg.Decoder.AScale,
		BestPath:       cfg.Decoder.BestPath,
		SilenceCIPhone: cfg.Decoder.SilenceCIPhone,
		SilPenLog:      int32(math.Log(clampProb(cfg.Decoder.SilProb)) * cfg.Decoder.LW),
		FillPenLog:     int32(math.Log(clampProb(cfg.Decoder.FillProb)) * cfg.Decoder.LW),
	}

	dec := search.New(sCfg, scorer, eval, a.ld.dict, fsgSet, builder, log)
	dec.SetMetrics(observe.DefaultMetrics(), cfg.Decoder.Name)
	return dec
}

// runUtterance drives dec through Start/Step/Finish to completion and
// returns the final hypothesis, mirroring the frame-engine loop described in
// spec.md §4.2.
func runUtterance(dec *search.Decoder) (string, bool, error) {
	if err := dec.Start(); err != nil {
		return "", false, fmt.Errorf("start: %w", err)
	}
	for {
		ok, err := dec.Step()
		if err != nil {
			return "", false, fmt.Errorf("step: %w", err)
		}
		if !ok {
			break
		}
	}
	dec.Finish()
	return dec.Hyp()
}
