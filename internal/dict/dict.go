// Package dict implements the pronunciation-dictionary collaborator
// (spec.md §3, §6): word string ↔ id mapping, pronunciation length,
// alternate-pronunciation chains, and base-word resolution. Dictionary
// *file-format* parsing is out of scope (spec.md §1); [New] builds a
// dictionary programmatically, the way a loader would after parsing some
// external lexicon format.
package dict

import (
	"fmt"

	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
)

// entry holds one dictionary word's metadata.
type entry struct {
	str     string
	pronLen int
	base    fsgmodel.WordID
	nextAlt fsgmodel.WordID // NoWord if this is the last pronunciation variant
}

// Dictionary maps word strings to ids and tracks alternate-pronunciation
// chains (e.g. "READ" → "READ(2)" → "READ(3)" → NoWord).
type Dictionary struct {
	byID  map[fsgmodel.WordID]*entry
	byStr map[string]fsgmodel.WordID
	next  fsgmodel.WordID
}

// New returns an empty Dictionary.
func New() *Dictionary {
	return &Dictionary{
		byID:  make(map[fsgmodel.WordID]*entry),
		byStr: make(map[string]fsgmodel.WordID),
	}
}

// AddWord registers a new base word (pronLen > 0 phones) and returns its id.
// Returns an error if str is already registered.
func (d *Dictionary) AddWord(str string, pronLen int) (fsgmodel.WordID, error) {
	if _, exists := d.byStr[str]; exists {
		return fsgmodel.NoWord, fmt.Errorf("dict: word %q already registered", str)
	}
	if pronLen <= 0 {
		return fsgmodel.NoWord, fmt.Errorf("dict: word %q must have a positive pronunciation length", str)
	}
	id := d.next
	d.next++
	d.byID[id] = &entry{str: str, pronLen: pronLen, base: id, nextAlt: fsgmodel.NoWord}
	d.byStr[str] = id
	return id, nil
}

// AddAlt registers alt as an additional pronunciation of the word with id
// base, chaining it onto base's existing alternate list. alt's own base_wid
// resolves back to base.
func (d *Dictionary) AddAlt(base fsgmodel.WordID, altStr string, pronLen int) (fsgmodel.WordID, error) {
	baseEntry, ok := d.byID[base]
	if !ok {
		return fsgmodel.NoWord, fmt.Errorf("dict: unknown base word id %d", base)
	}
	id, err := d.AddWord(altStr, pronLen)
	if err != nil {
		return fsgmodel.NoWord, err
	}
	d.byID[id].base = base

	// Append to the end of base's alt chain.
	cur := baseEntry
	for cur.nextAlt != fsgmodel.NoWord {
		cur = d.byID[cur.nextAlt]
	}
	cur.nextAlt = id
	return id, nil
}

// NWords returns the number of registered words (all pronunciation variants
// counted individually).
func (d *Dictionary) NWords() int {
	return len(d.byID)
}

// ToID looks up a word string, returning (id, true) if found.
func (d *Dictionary) ToID(str string) (fsgmodel.WordID, bool) {
	id, ok := d.byStr[str]
	return id, ok
}

// WordStr returns the string for wid, or "" if unknown.
func (d *Dictionary) WordStr(wid fsgmodel.WordID) string {
	if e, ok := d.byID[wid]; ok {
		return e.str
	}
	return ""
}

// PronLen returns the phone-count of wid's pronunciation, or 0 if unknown.
func (d *Dictionary) PronLen(wid fsgmodel.WordID) int {
	if e, ok := d.byID[wid]; ok {
		return e.pronLen
	}
	return 0
}

// NextAlt returns the next alternate pronunciation id in wid's chain, and
// whether one exists.
func (d *Dictionary) NextAlt(wid fsgmodel.WordID) (fsgmodel.WordID, bool) {
	e, ok := d.byID[wid]
	if !ok || e.nextAlt == fsgmodel.NoWord {
		return fsgmodel.NoWord, false
	}
	return e.nextAlt, true
}

// BaseWID returns the base (canonical) word id for any pronunciation
// variant of wid, or NoWord if wid is unknown.
func (d *Dictionary) BaseWID(wid fsgmodel.WordID) fsgmodel.WordID {
	if e, ok := d.byID[wid]; ok {
		return e.base
	}
	return fsgmodel.NoWord
}
