package dataset

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest carries per-dataset source overrides, loaded from an optional
// YAML file. The built-in sources point at the public extract mirror;
// overrides exist for pinning an archived snapshot or testing against a
// local server.
type Manifest struct {
	Datasets map[string]ManifestEntry `yaml:"datasets"`
}

// ManifestEntry overrides parts of a dataset's source. Empty fields keep
// the built-in value.
type ManifestEntry struct {
	URL      string `yaml:"url"`
	Encoding string `yaml:"encoding"`
}

// LoadManifest reads a manifest from a YAML file. An empty path yields an
// empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return &Manifest{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse manifest %s", path)
	}
	return &m, nil
}

// source merges a manifest override over the built-in default for a cut.
func (m *Manifest) source(name string, def Source) Source {
	e, ok := m.Datasets[name]
	if !ok {
		return def
	}
	if e.URL != "" {
		def.URL = e.URL
	}
	if e.Encoding != "" {
		def.Encoding = e.Encoding
	}
	return def
}
