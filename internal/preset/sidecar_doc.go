package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DocumentVersion is the schema version stamped into every sidecar
// document.
const DocumentVersion = "1.0"

// Document is the on-disk shape of an <image>.rrdata file.
type Document struct {
	Version     string                 `json:"version"`
	Adjustments map[string]interface{} `json:"adjustments"`
}

// SidecarPath returns the <image>.rrdata path for imagePath.
func SidecarPath(imagePath string) string {
	return imagePath + ".rrdata"
}

// ReadDocument loads an existing sidecar document, or returns the
// default empty one if none exists or it cannot be parsed.
func ReadDocument(imagePath string) Document {
	data, err := os.ReadFile(SidecarPath(imagePath))
	if err != nil {
		return Document{Version: DocumentVersion, Adjustments: map[string]interface{}{}}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{Version: DocumentVersion, Adjustments: map[string]interface{}{}}
	}
	if doc.Adjustments == nil {
		doc.Adjustments = map[string]interface{}{}
	}
	return doc
}

// Apply merges p's adjustments into imagePath's sidecar document and
// writes it atomically. Every key in p.Adjustments except the reserved
// "boothy" key is set at the top level of adjustments, overwriting any
// existing value; every other existing key is preserved. The reserved
// key is then set to record which preset was applied and when.
//
// Apply is idempotent: applying the same preset twice in a row produces
// a byte-equal document (R2), since the only moving part, appliedAt, is
// pinned by the caller through now.
func Apply(imagePath string, p Preset, now time.Time) error {
	doc := ReadDocument(imagePath)
	for k, v := range p.Adjustments {
		if k == reservedKey {
			continue
		}
		doc.Adjustments[k] = v
	}
	doc.Adjustments[reservedKey] = boothyStamp{
		PresetID:   p.PresetID,
		PresetName: p.PresetName,
		AppliedAt:  now.UTC().Format(time.RFC3339Nano),
	}
	doc.Version = DocumentVersion
	return writeAtomic(imagePath, doc)
}

func writeAtomic(imagePath string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(imagePath)
	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%s.rrdata.*.tmp", filepath.Base(imagePath)))
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, SidecarPath(imagePath))
}
