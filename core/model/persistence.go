package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bioforge/organclock/pkg/errors"
)

// Metadata describes a persisted model bundle.
type Metadata struct {
	// Organ is the organ system the model was trained for.
	Organ string
	// ModelType is the training family, e.g. "linear" or "hist_gb".
	ModelType string
	// Kind is the tagged model family used by explanation code.
	Kind Kind
	// ID uniquely identifies this artifact. Retraining produces a new
	// bundle with a new ID; existing artifacts are never mutated.
	ID string
	// CreatedAt is the time the bundle was written.
	CreatedAt time.Time
}

// Bundle pairs a fitted estimator with its metadata on disk.
type Bundle struct {
	Model    Regressor
	Metadata Metadata
}

// bundleFile is the on-disk gob envelope. Metadata is a pointer so that
// bundles written before metadata existed still decode; Load treats a nil
// pointer as empty metadata.
type bundleFile struct {
	Model    Regressor
	Metadata *Metadata
}

// RegisterModel registers a concrete estimator type for gob encoding.
// Every Regressor implementation calls this from an init function.
func RegisterModel(value Regressor) {
	gob.Register(value)
}

// SaveBundle writes a fitted model with metadata, creating parent
// directories as needed. A fresh artifact ID and timestamp are assigned.
func SaveBundle(path string, m Regressor, meta Metadata) error {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	if meta.Kind == "" {
		meta.Kind = m.Kind()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating model directory for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating model file %s", path)
	}
	defer file.Close()

	return SaveBundleToWriter(file, m, meta)
}

// SaveBundleToWriter encodes a model bundle to a writer.
func SaveBundleToWriter(w io.Writer, m Regressor, meta Metadata) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(&bundleFile{Model: m, Metadata: &meta}); err != nil {
		return errors.Wrap(err, "encoding model bundle")
	}
	return nil
}

// LoadBundle reads a model bundle from disk. Bundles written without
// metadata decode with empty metadata.
func LoadBundle(path string) (*Bundle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", path)
	}
	defer file.Close()

	return LoadBundleFromReader(file)
}

// LoadBundleFromReader decodes a model bundle from a reader.
func LoadBundleFromReader(r io.Reader) (*Bundle, error) {
	var bf bundleFile
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(&bf); err != nil {
		return nil, errors.Wrap(err, "decoding model bundle")
	}
	if bf.Model == nil {
		return nil, errors.NewValueError("LoadBundle", "bundle contains no model")
	}
	b := &Bundle{Model: bf.Model}
	if bf.Metadata != nil {
		b.Metadata = *bf.Metadata
	}
	return b, nil
}
