package fsgset_test

import (
	"testing"

	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/fsgset"
)

// stubDict is a minimal fsgset.Dictionary with one alt-pronunciation chain.
type stubDict struct {
	ids     map[string]fsgmodel.WordID
	strs    map[fsgmodel.WordID]string
	prons   map[fsgmodel.WordID]int
	nextAlt map[fsgmodel.WordID]fsgmodel.WordID
}

func newStubDict() *stubDict {
	return &stubDict{
		ids:     make(map[string]fsgmodel.WordID),
		strs:    make(map[fsgmodel.WordID]string),
		prons:   make(map[fsgmodel.WordID]int),
		nextAlt: make(map[fsgmodel.WordID]fsgmodel.WordID),
	}
}

func (d *stubDict) add(str string) fsgmodel.WordID {
	id := fsgmodel.WordID(len(d.strs))
	d.ids[str] = id
	d.strs[id] = str
	d.prons[id] = 1
	return id
}

func (d *stubDict) ToID(str string) (fsgmodel.WordID, bool) { id, ok := d.ids[str]; return id, ok }
func (d *stubDict) WordStr(wid fsgmodel.WordID) string      { return d.strs[wid] }
func (d *stubDict) PronLen(wid fsgmodel.WordID) int         { return d.prons[wid] }
func (d *stubDict) NextAlt(wid fsgmodel.WordID) (fsgmodel.WordID, bool) {
	alt, ok := d.nextAlt[wid]
	return alt, ok
}

func buildFSG(t *testing.T) *fsgmodel.Model {
	t.Helper()
	fsg, err := fsgmodel.New("g", 2, 0, 1)
	if err != nil {
		t.Fatalf("fsgmodel.New: %v", err)
	}
	w := fsg.WordAdd("data")
	if err := fsg.AddTransition(0, 1, w, -10); err != nil {
		t.Fatalf("AddTransition: %v", err)
	}
	return fsg
}

func TestManager_AddSelectActive(t *testing.T) {
	m := fsgset.New(nil, fsgset.Options{}, nil)
	fsg := buildFSG(t)
	if err := m.Add("g1", fsg); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Select("g1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if m.Active() != fsg {
		t.Error("Active() should return the selected grammar")
	}
	if m.ActiveName() != "g1" {
		t.Errorf("ActiveName() = %q, want g1", m.ActiveName())
	}
}

func TestManager_AddDuplicateRejected(t *testing.T) {
	m := fsgset.New(nil, fsgset.Options{}, nil)
	fsg := buildFSG(t)
	if err := m.Add("g1", fsg); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add("g1", fsg); err == nil {
		t.Error("expected error re-registering the same name")
	}
}

func TestManager_SelectUnknownRejected(t *testing.T) {
	m := fsgset.New(nil, fsgset.Options{}, nil)
	if err := m.Select("nope"); err == nil {
		t.Error("expected error selecting an unregistered grammar")
	}
}

func TestManager_RemoveActiveRejected(t *testing.T) {
	m := fsgset.New(nil, fsgset.Options{}, nil)
	fsg := buildFSG(t)
	if err := m.Add("g1", fsg); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Select("g1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := m.Remove("g1"); err == nil {
		t.Error("expected error removing the active grammar")
	}
}

func TestManager_RemoveInactive(t *testing.T) {
	m := fsgset.New(nil, fsgset.Options{}, nil)
	fsg := buildFSG(t)
	if err := m.Add("g1", fsg); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Remove("g1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := m.Get("g1"); ok {
		t.Error("removed grammar should no longer be retrievable")
	}
}

func TestManager_Add_FillerAugmentation(t *testing.T) {
	m := fsgset.New(nil, fsgset.Options{
		UseFiller:   true,
		SilWord:     "<sil>",
		SilProbLog:  -1,
		FillProbLog: -2,
	}, nil)
	fsg := buildFSG(t)
	if err := m.Add("g1", fsg); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !fsg.HasSil() {
		t.Error("expected silence augmentation to have run")
	}
	if !fsg.SilWords()[fsg.WordAdd("<sil>")] {
		t.Error("expected <sil> to be recorded in SilWords()")
	}
}

func TestManager_Add_AltPronAugmentation(t *testing.T) {
	d := newStubDict()
	base := d.add("data")
	alt := d.add("dayta")
	d.nextAlt[base] = alt

	m := fsgset.New(d, fsgset.Options{UseAltPron: true}, nil)
	fsg := buildFSG(t)
	if err := m.Add("g1", fsg); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !fsg.HasAlt() {
		t.Error("expected alt-pron augmentation to have run")
	}
}

func TestManager_Add_AltPronWithNoDictionaryErrors(t *testing.T) {
	m := fsgset.New(nil, fsgset.Options{UseAltPron: true}, nil)
	fsg := buildFSG(t)
	if err := m.Add("g1", fsg); err == nil {
		t.Error("expected error: alt-pron augmentation requested with no dictionary bound")
	}
}

func TestManager_NamesIncludesAllRegistered(t *testing.T) {
	m := fsgset.New(nil, fsgset.Options{}, nil)
	if err := m.Add("g1", buildFSG(t)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add("g2", buildFSG(t)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	names := m.Names()
	if len(names) != 2 {
		t.Fatalf("Names() returned %d entries, want 2", len(names))
	}
}

func TestManager_IterateVisitsAllAndStopsEarly(t *testing.T) {
	m := fsgset.New(nil, fsgset.Options{}, nil)
	if err := m.Add("g1", buildFSG(t)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add("g2", buildFSG(t)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var seen []string
	m.Iterate(func(name string, fsg *fsgmodel.Model) bool {
		seen = append(seen, name)
		return true
	})
	if len(seen) != 2 {
		t.Fatalf("Iterate visited %d grammars, want 2", len(seen))
	}

	var stopped []string
	m.Iterate(func(name string, fsg *fsgmodel.Model) bool {
		stopped = append(stopped, name)
		return false
	})
	if len(stopped) != 1 {
		t.Fatalf("Iterate with early return visited %d grammars, want 1", len(stopped))
	}
}
