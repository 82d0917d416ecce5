package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/MrWong99/gofsgdecoder/internal/dict"
	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
	hmmmock "github.com/MrWong99/gofsgdecoder/internal/hmm/mock"
	ltmock "github.com/MrWong99/gofsgdecoder/internal/lextree/mock"
)

// phoneSet assigns stable, ascending CI-phone ids to phone names on first
// appearance, so the dictionary, FSG vocabulary and senone score matrix all
// agree on a single id space without needing a shared acoustic model.
type phoneSet struct {
	ids   map[string]int
	order []string
}

func newPhoneSet() *phoneSet {
	return &phoneSet{ids: make(map[string]int)}
}

func (p *phoneSet) id(name string) int {
	if id, ok := p.ids[name]; ok {
		return id
	}
	id := len(p.order)
	p.ids[name] = id
	p.order = append(p.order, name)
	return id
}

func (p *phoneSet) len() int { return len(p.order) }

var altSuffixRE = regexp.MustCompile(`^(.+)\((\d+)\)$`)

// loadedDict bundles a parsed dictionary with the per-word CI-phone
// pronunciations the lextree builder needs, keyed by word string since the
// dictionary's and FSG's word id spaces are independent (spec.md §4.4).
type loadedDict struct {
	dict  *dict.Dictionary
	prons map[string][]int
}

// loadDictionary parses a plain-text lexicon: one word per line, optionally
// followed by a parenthesised variant number for alternate pronunciations
// (e.g. "READ(2)"), followed by whitespace-separated CI-phone names.
//
//	DATA D EY T AH
//	DATA(2) D AE T AH
//	<sil> SIL
func loadDictionary(path string, phones *phoneSet) (*loadedDict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading dictionary: %w", err)
	}
	defer f.Close()

	d := dict.New()
	prons := make(map[string][]int)
	baseIDs := make(map[string]fsgmodel.WordID)

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("dictionary %s:%d: need a word and at least one phone", path, lineNo)
		}
		word := fields[0]
		phoneNames := fields[1:]
		ci := make([]int, len(phoneNames))
		for i, pn := range phoneNames {
			ci[i] = phones.id(pn)
		}

		if m := altSuffixRE.FindStringSubmatch(word); m != nil {
			base := m[1]
			baseID, ok := baseIDs[base]
			if !ok {
				return nil, fmt.Errorf("dictionary %s:%d: alternate pronunciation %q has no base entry %q", path, lineNo, word, base)
			}
			if _, err := d.AddAlt(baseID, word, len(ci)); err != nil {
				return nil, fmt.Errorf("dictionary %s:%d: %w", path, lineNo, err)
			}
		} else {
			id, err := d.AddWord(word, len(ci))
			if err != nil {
				return nil, fmt.Errorf("dictionary %s:%d: %w", path, lineNo, err)
			}
			baseIDs[word] = id
		}
		prons[word] = ci
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dictionary %s: %w", path, err)
	}
	return &loadedDict{dict: d, prons: prons}, nil
}

// loadFSG parses a pocketsphinx-style text grammar:
//
//	FSG_BEGIN digits
//	NUM_STATES 4
//	START_STATE 0
//	FINAL_STATE 3
//	TRANSITION 0 1 -10 ONE
//	TRANSITION 1 2 0
//	TRANSITION 2 3 -5 TWO
//	FSG_END
//
// A TRANSITION line with no word field is a null (ε) transition.
func loadFSG(path string) (*fsgmodel.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading fsg: %w", err)
	}
	defer f.Close()

	var name string
	var nState, start, final int
	haveN, haveStart, haveFinal := false, false, false
	var fsg *fsgmodel.Model

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "FSG_BEGIN":
			if len(fields) > 1 {
				name = fields[1]
			}
		case "NUM_STATES":
			nState, err = strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("fsg %s:%d: %w", path, lineNo, err)
			}
			haveN = true
		case "START_STATE":
			start, err = strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("fsg %s:%d: %w", path, lineNo, err)
			}
			haveStart = true
		case "FINAL_STATE":
			final, err = strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("fsg %s:%d: %w", path, lineNo, err)
			}
			haveFinal = true
		case "TRANSITION":
			if fsg == nil {
				if !(haveN && haveStart && haveFinal) {
					return nil, fmt.Errorf("fsg %s:%d: TRANSITION before NUM_STATES/START_STATE/FINAL_STATE", path, lineNo)
				}
				fsg, err = fsgmodel.New(name, nState, start, final)
				if err != nil {
					return nil, fmt.Errorf("fsg %s: %w", path, err)
				}
			}
			if len(fields) < 4 {
				return nil, fmt.Errorf("fsg %s:%d: TRANSITION needs from, to, logprob", path, lineNo)
			}
			from, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("fsg %s:%d: %w", path, lineNo, err)
			}
			to, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("fsg %s:%d: %w", path, lineNo, err)
			}
			logProb, err := strconv.Atoi(fields[3])
			if err != nil {
				return nil, fmt.Errorf("fsg %s:%d: %w", path, lineNo, err)
			}
			word := fsgmodel.NoWord
			if len(fields) > 4 {
				word = fsg.WordAdd(fields[4])
			}
			if err := fsg.AddTransition(from, to, word, int32(logProb)); err != nil {
				return nil, fmt.Errorf("fsg %s:%d: %w", path, lineNo, err)
			}
		case "FSG_END":
			if fsg == nil {
				return nil, fmt.Errorf("fsg %s:%d: FSG_END with no transitions", path, lineNo)
			}
			return fsg, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading fsg %s: %w", path, err)
	}
	if fsg == nil {
		return nil, fmt.Errorf("fsg %s: missing FSG_END or no transitions", path)
	}
	return fsg, nil
}

// senoneFile is the JSON encoding of a scripted per-frame senone score
// matrix: "phones" names each column, "frames" holds one row per acoustic
// frame. Columns are remapped onto the shared [phoneSet] id space on load.
type senoneFile struct {
	Phones []string    `json:"phones"`
	Frames [][]float64 `json:"frames"`
}

// loadSenoneScores reads a JSON senone score matrix and reindexes its
// columns onto phones, the same CI-phone id space the dictionary and FSG
// use. scale multiplies every raw score (spec.md §9, acoustic scaling).
func loadSenoneScores(path string, phones *phoneSet, scale float64) ([][]hmm.Score, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading senone scores: %w", err)
	}
	var sf senoneFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parsing senone scores %s: %w", path, err)
	}

	colToCI := make([]int, len(sf.Phones))
	for i, name := range sf.Phones {
		colToCI[i] = phones.id(name)
	}

	nCI := phones.len()
	frames := make([][]hmm.Score, len(sf.Frames))
	for f, row := range sf.Frames {
		vec := make([]hmm.Score, nCI)
		for i := range vec {
			vec[i] = hmm.WorstScore
		}
		for col, v := range row {
			if col >= len(colToCI) {
				return nil, fmt.Errorf("senone scores %s: frame %d has more columns than declared phones", path, f)
			}
			vec[colToCI[col]] = hmm.Score(v * scale)
		}
		frames[f] = vec
	}
	return frames, nil
}

// buildLextreeInputs derives the (pron, context, HMM factory) triple
// [ltmock.Build] needs from a loaded dictionary and a bound FSG, sourcing
// each pnode's emission scores from frames' CI-phone column (the hmm/mock
// Evaluator's VitEval reads one HMM.EmissionScores entry per frame).
// A grammar word with no dictionary entry is logged via [dict.Dictionary.Suggest]
// before falling back to single-phone silence, so a misspelled or
// typo'd grammar word surfaces a "did you mean" hint instead of silently
// decoding as silence.
func buildLextreeInputs(fsg *fsgmodel.Model, ld *loadedDict, frames [][]hmm.Score, silenceCI int, log *slog.Logger) (map[fsgmodel.WordID]ltmock.Pron, map[fsgmodel.WordID]hmm.ContextSet, ltmock.HMMFactory) {
	if log == nil {
		log = slog.Default()
	}
	prons := make(map[fsgmodel.WordID]ltmock.Pron)
	ctxts := make(map[fsgmodel.WordID]hmm.ContextSet)

	for _, wid := range fsg.Vocabulary() {
		str := fsg.WordStr(wid)
		ci, ok := ld.prons[str]
		if !ok {
			// Words fsgset.Manager.Add synthesises (silence/filler
			// self-loops, spec.md §4.1) have no dictionary entry; treat
			// them as single-phone silence, but first check whether the
			// grammar word is simply a misspelling of a real entry.
			if match, confidence, sok := ld.dict.Suggest(str); sok {
				log.Warn("grammar word has no dictionary pronunciation, did you mean?",
					"word", str, "suggestion", match, "confidence", confidence)
			} else {
				log.Debug("grammar word has no dictionary pronunciation, treating as silence", "word", str)
			}
			ci = []int{silenceCI}
		}
		prons[wid] = ltmock.Pron(ci)
		ctxts[wid] = hmm.AllContexts()
	}

	return prons, ctxts, mkHMMFactory(frames)
}

// mkHMMFactory returns an [ltmock.HMMFactory] that gives each pnode its own
// emission-score column sliced from the shared frame×CI-phone matrix, as
// the hmm/mock Evaluator reads them (each HMM carries its own
// EmissionScores, not a live view of the per-frame senone vector).
func mkHMMFactory(frames [][]hmm.Score) ltmock.HMMFactory {
	return func(word fsgmodel.WordID, phonePos int, ci int) hmm.HMM {
		col := make([]hmm.Score, len(frames))
		for f := range frames {
			if ci < len(frames[f]) {
				col[f] = frames[f][ci]
			} else {
				col[f] = hmm.WorstScore
			}
		}
		return hmmmock.NewHMM(col)
	}
}
