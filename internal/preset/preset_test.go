package preset

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreSetCurrentClear(t *testing.T) {
	s := NewStore()
	if _, ok := s.Current(); ok {
		t.Fatal("expected empty store to report no current preset")
	}

	p := Preset{PresetID: "p1", Adjustments: map[string]interface{}{"exposure": 0.5}}
	s.Set(p)
	got, ok := s.Current()
	if !ok || got.PresetID != "p1" {
		t.Fatalf("expected current preset p1, got %+v, ok=%v", got, ok)
	}

	s.Clear()
	if _, ok := s.Current(); ok {
		t.Fatal("expected cleared store to report no current preset")
	}
}

func TestStoreCurrentReturnsIndependentCopy(t *testing.T) {
	s := NewStore()
	s.Set(Preset{PresetID: "p1", Adjustments: map[string]interface{}{"exposure": 0.5}})
	got, _ := s.Current()
	got.PresetID = "mutated"
	again, _ := s.Current()
	if again.PresetID != "p1" {
		t.Fatalf("expected Store.current unaffected by caller mutation, got %q", again.PresetID)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "IMG_0001.raw")
	if err := os.WriteFile(imagePath, []byte("raw bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p := Preset{PresetID: "warm", PresetName: "Warm", Adjustments: map[string]interface{}{"temperature": 200}}
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	if err := Apply(imagePath, p, now); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	first, err := os.ReadFile(SidecarPath(imagePath))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}

	if err := Apply(imagePath, p, now); err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	second, err := os.ReadFile(SidecarPath(imagePath))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}

	if string(first) != string(second) {
		t.Fatalf("expected byte-equal sidecar documents across repeated Apply calls, got:\n%s\nvs\n%s", first, second)
	}
}

func TestApplyPreservesUnrelatedKeys(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "IMG_0002.raw")
	if err := os.WriteFile(imagePath, []byte("raw bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	if err := Apply(imagePath, Preset{PresetID: "a", Adjustments: map[string]interface{}{"exposure": 0.5}}, now); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if err := Apply(imagePath, Preset{PresetID: "b", Adjustments: map[string]interface{}{"contrast": 1.2}}, now.Add(time.Minute)); err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	doc := ReadDocument(imagePath)
	if doc.Adjustments["exposure"] == nil {
		t.Fatal("expected exposure key from the first Apply to survive the second")
	}
	if doc.Adjustments["contrast"] == nil {
		t.Fatal("expected contrast key from the second Apply to be present")
	}
}

func TestApplyCannotOverwriteReservedKeyViaAdjustments(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "IMG_0003.raw")
	if err := os.WriteFile(imagePath, []byte("raw bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	p := Preset{
		PresetID: "evil",
		Adjustments: map[string]interface{}{
			reservedKey: "attempted override",
		},
	}
	if err := Apply(imagePath, p, now); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	doc := ReadDocument(imagePath)
	stampMap, ok := doc.Adjustments[reservedKey].(map[string]interface{})
	if !ok {
		t.Fatalf("expected reserved key to hold the boothy stamp object, got %v (%T)", doc.Adjustments[reservedKey], doc.Adjustments[reservedKey])
	}
	if stampMap["presetId"] != "evil" {
		t.Fatalf("expected boothy stamp to record the applied preset id, got %v", stampMap)
	}
}

func TestReadDocumentDefaultsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	doc := ReadDocument(filepath.Join(dir, "missing.raw"))
	if doc.Version != DocumentVersion {
		t.Errorf("Version = %q, want %q", doc.Version, DocumentVersion)
	}
	if doc.Adjustments == nil {
		t.Error("expected non-nil empty Adjustments map")
	}
}
