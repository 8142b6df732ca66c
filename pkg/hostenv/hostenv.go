// Package hostenv provides two example host environments that satisfy
// pkg/host.Callbacks' Lookup/Serialize pair: YAMLEnv, a static configuration
// tree loaded once from a fixture file, and BoltEnv, a persistent key/value
// object-status cache. Both mirror gcode_environment.py's ConfigDict and
// StatusDict: host-side data sources the compiler pipeline in pkg/lexer,
// pkg/parser, pkg/queue and pkg/evaluator never needs to know the shape of.
package hostenv

import (
	"fmt"
	"sort"
	"strings"
)

// serializeFields renders a flat string-keyed map as sorted "key = value"
// lines, the shape both ConfigSectionDict.__str__ and
// StatusObjDict.serialize used for their respective section/object dumps.
func serializeFields(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s = %v", k, m[k]))
	}
	return strings.Join(lines, "\n")
}
