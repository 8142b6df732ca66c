package hostenv

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cncflow/gflow/pkg/types"
)

// YAMLEnv exposes a static nested configuration tree to G-code expressions,
// mirroring gcode_environment.py's ConfigDict/ConfigSectionDict pair: a
// root lookup resolves a top-level section, and a chained lookup resolves a
// key within whatever section (or nested map) is already in hand.
type YAMLEnv struct {
	root map[string]interface{}
}

// LoadYAMLEnv reads and parses a YAML fixture file into a YAMLEnv. The top
// level of the document must be a mapping.
func LoadYAMLEnv(path string) (*YAMLEnv, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hostenv: read %s: %w", path, err)
	}
	return NewYAMLEnv(data)
}

// NewYAMLEnv parses YAML document bytes into a YAMLEnv directly.
func NewYAMLEnv(data []byte) (*YAMLEnv, error) {
	var root map[string]interface{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("hostenv: parse yaml: %w", err)
	}
	return &YAMLEnv{root: root}, nil
}

// Lookup implements host.Callbacks.Lookup. parent distinguishes a root
// lookup (config["section"]) from a chained one (section["key"]), exactly
// as ConfigDict.__getitem__ and ConfigSectionDict.__getitem__ did for their
// respective levels in the original.
func (e *YAMLEnv) Lookup(key string, parent types.Value) (types.Value, bool) {
	scope := e.root
	if parent.Kind == types.KindDict {
		m, ok := parent.Dict.(map[string]interface{})
		if !ok {
			return types.Value{}, false
		}
		scope = m
	}
	v, ok := scope[key]
	if !ok {
		return types.Value{}, false
	}
	return yamlValue(v), true
}

// Tree returns the whole parsed document, for driver-side inspection (e.g.
// the reference CLI's -query flag) rather than expression evaluation.
func (e *YAMLEnv) Tree() (map[string]interface{}, error) {
	return e.root, nil
}

// Serialize implements host.Callbacks.Serialize, rendering a section as
// sorted "key = value" lines, mirroring ConfigSectionDict.__str__.
func (e *YAMLEnv) Serialize(d types.Value) string {
	m, ok := d.Dict.(map[string]interface{})
	if !ok {
		return ""
	}
	return serializeFields(m)
}

func yamlValue(v interface{}) types.Value {
	switch t := v.(type) {
	case string:
		return types.Str(t)
	case bool:
		return types.Bool(t)
	case int:
		return types.Int(int64(t))
	case int64:
		return types.Int(t)
	case float64:
		return types.Float(t)
	case map[string]interface{}:
		return types.Dict(t)
	default:
		return types.Str(fmt.Sprintf("%v", t))
	}
}
