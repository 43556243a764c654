// Package config loads the two declarative documents driving the pipeline:
// the paths document (raw data directory plus logical table name → filename)
// and the organ panels document (organ → biomarker columns, with a reserved
// global_covariates key). Both are YAML. Document order is preserved because
// the table merge is a left-to-right sequential join.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bioforge/organclock/pkg/errors"
)

// GlobalCovariatesKey is the reserved panel name holding covariate columns
// shared by every organ. It is never treated as an organ.
const GlobalCovariatesKey = "global_covariates"

// Paths describes where raw survey tables live.
type Paths struct {
	// RawDataDir is the base directory for raw data files. Relative paths
	// are resolved against the directory of the config file itself.
	RawDataDir string

	// TableOrder lists logical table names in document order.
	TableOrder []string

	// Files maps logical table name to filename inside RawDataDir.
	Files map[string]string
}

// File returns the resolved path for a logical table name.
func (p *Paths) File(table string) string {
	return filepath.Join(p.RawDataDir, p.Files[table])
}

// LoadPaths reads and validates a paths document.
func LoadPaths(path string) (*Paths, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "configuration file not found: %s", path)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "malformed paths configuration: %s", path)
	}
	root := mappingRoot(&doc)
	if root == nil {
		return nil, errors.NewValidationError("paths", "document is not a mapping", path)
	}

	p := &Paths{Files: map[string]string{}}
	seen := map[string]bool{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		seen[key.Value] = true
		switch key.Value {
		case "raw_data_dir":
			if err := val.Decode(&p.RawDataDir); err != nil {
				return nil, errors.NewValidationError("raw_data_dir", "must be a string", val.Value)
			}
		case "nhanes_files":
			if val.Kind != yaml.MappingNode {
				return nil, errors.NewValidationError("nhanes_files", "must be a mapping of table name to filename", val.Value)
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				name := val.Content[j].Value
				p.TableOrder = append(p.TableOrder, name)
				p.Files[name] = val.Content[j+1].Value
			}
		}
	}

	for _, required := range []string{"raw_data_dir", "nhanes_files"} {
		if !seen[required] {
			return nil, errors.NewValidationError(required, "missing required configuration key", path)
		}
	}
	if len(p.Files) == 0 {
		return nil, errors.NewValidationError("nhanes_files", "no tables declared", path)
	}

	if !filepath.IsAbs(p.RawDataDir) {
		p.RawDataDir = filepath.Join(filepath.Dir(path), p.RawDataDir)
	}
	return p, nil
}

// OrganPanels maps organ systems to their biomarker columns.
type OrganPanels struct {
	// OrganOrder lists organ names in document order, excluding the
	// reserved global_covariates key.
	OrganOrder []string

	// Biomarkers maps organ name to its declared biomarker columns.
	Biomarkers map[string][]string

	// GlobalCovariates are the covariate columns added to every organ's
	// feature matrix.
	GlobalCovariates []string
}

// LoadOrganPanels reads and validates an organ panels document.
func LoadOrganPanels(path string) (*OrganPanels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "configuration file not found: %s", path)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "malformed organ panels configuration: %s", path)
	}
	root := mappingRoot(&doc)
	if root == nil {
		return nil, errors.NewValidationError("organ_panels", "document is not a mapping", path)
	}

	panels := &OrganPanels{Biomarkers: map[string][]string{}}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		var cols []string
		if err := val.Decode(&cols); err != nil {
			return nil, errors.NewValidationError(key.Value, "panel must be a list of column names", val.Value)
		}
		if key.Value == GlobalCovariatesKey {
			panels.GlobalCovariates = cols
			continue
		}
		panels.OrganOrder = append(panels.OrganOrder, key.Value)
		panels.Biomarkers[key.Value] = cols
	}

	if len(panels.OrganOrder) == 0 {
		return nil, errors.NewValidationError("organ_panels", "no organ panels declared", path)
	}
	return panels, nil
}

func mappingRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	return doc
}
