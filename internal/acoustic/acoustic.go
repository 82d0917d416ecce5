// Package acoustic defines the acoustic-scorer collaborator contract
// (spec.md §6). Real acoustic-model inference is out of scope for this
// module (spec.md §1); this package describes the shape the frame engine
// (internal/search) needs every frame, and nothing more.
package acoustic

import "github.com/MrWong99/gofsgdecoder/internal/hmm"

// Scorer produces per-senone acoustic scores, one frame at a time, and
// optionally restricts scoring to only the senones active HMMs need (senone
// activation, spec.md §4.2a).
type Scorer interface {
	// NFeatFrame reports how many acoustic frames are currently buffered and
	// ready to be scored. The frame engine's step stops (returns 0) when
	// this is 0 (spec.md §4.2, frame underflow, §7).
	NFeatFrame() int

	// Score computes the senone score vector for the next buffered frame.
	// outFrameIdx, outBestSenScr, and outBestSenID are filled with the
	// absolute frame index scored and the best individual senone score/id
	// seen, mirroring the C-style out-param contract named in spec.md §6.
	Score(outFrameIdx *int, outBestSenScr *hmm.Score, outBestSenID *int) ([]hmm.Score, error)

	// NSenoneActive reports how many senones were actually scored on the
	// last Score call (fewer than the full inventory when CompAllSen is
	// false and ActivateHMM selectively restricted the set).
	NSenoneActive() int

	// ClearActive resets the active-senone set before a new frame's
	// activation pass (spec.md §4.2a).
	ClearActive()

	// ActivateHMM marks the senones h's topology needs as active for the
	// next Score call. No-op when CompAllSen is true.
	ActivateHMM(h hmm.HMM)

	// CompAllSen reports whether the scorer always scores every senone,
	// making senone activation (ClearActive/ActivateHMM) unnecessary.
	CompAllSen() bool
}
