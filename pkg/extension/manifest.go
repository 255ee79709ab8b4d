package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// ManifestSuffix is the file name suffix manifest loading looks for.
const ManifestSuffix = ".manifest.json"

// manifestVersion is the only manifest format currently understood.
const manifestVersion = "plugboard/1"

// LoadManifest reads extension declarations from JSON manifest data and
// contributes them to the registry. Each declaration names its point, its
// alias and the registered factory that instantiates it:
//
//	{
//	  "manifest": "plugboard/1",
//	  "extensions": [
//	    {"point": "plugboard.store.providers", "alias": "memory",
//	     "factory": "store.memory", "attributes": {"description": "..."}}
//	  ]
//	}
//
// source names the manifest origin for diagnostics.
func (r *Registry) LoadManifest(data []byte, source string) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("extension: manifest %s: invalid JSON", source)
	}

	version := gjson.GetBytes(data, "manifest").String()
	if version != manifestVersion {
		return fmt.Errorf("extension: manifest %s: unsupported version %q", source, version)
	}

	declarations := gjson.GetBytes(data, "extensions")
	if !declarations.IsArray() {
		return fmt.Errorf("extension: manifest %s: missing extensions array", source)
	}

	var loadErr error
	declarations.ForEach(func(_, decl gjson.Result) bool {
		pointID := decl.Get("point").String()
		alias := decl.Get("alias").String()
		factoryName := decl.Get("factory").String()
		if pointID == "" || alias == "" || factoryName == "" {
			loadErr = fmt.Errorf("extension: manifest %s: declaration needs point, alias and factory", source)
			return false
		}

		factory, ok := r.factory(factoryName)
		if !ok {
			loadErr = fmt.Errorf("extension: manifest %s: unknown factory %q", source, factoryName)
			return false
		}

		attrs := map[string]string{AliasAttribute: alias}
		decl.Get("attributes").ForEach(func(key, value gjson.Result) bool {
			attrs[key.String()] = value.String()
			return true
		})

		loadErr = r.Contribute(pointID, Extension{
			Source:     source,
			Attributes: attrs,
			Factory:    factory,
		})
		return loadErr == nil
	})
	return loadErr
}

// LoadManifestDir loads every *.manifest.json file in dir, in lexical order.
// A missing directory is not an error.
func (r *Registry) LoadManifestDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("extension: read manifest dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ManifestSuffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("extension: read manifest %s: %w", path, err)
		}
		if err := r.LoadManifest(data, entry.Name()); err != nil {
			return err
		}
	}
	return nil
}
