package hostenv

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cncflow/gflow/pkg/types"
)

const statusBucket = "status"

// BoltEnv is a persistent key/value object-status cache, mirroring
// gcode_environment.py's StatusDict/StatusObjDict pair: a root lookup
// resolves one object's status snapshot (loaded from bbolt and cached in
// memory until PutStatus invalidates it), and a chained lookup resolves one
// field within that snapshot.
type BoltEnv struct {
	db    *bolt.DB
	cache map[string]map[string]interface{}
}

// OpenBoltEnv opens (creating if necessary) a bbolt database file and
// returns a BoltEnv backed by it.
func OpenBoltEnv(path string) (*BoltEnv, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("hostenv: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(statusBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("hostenv: init bucket: %w", err)
	}
	return &BoltEnv{db: db, cache: map[string]map[string]interface{}{}}, nil
}

// Close releases the underlying database file.
func (e *BoltEnv) Close() error { return e.db.Close() }

// PutStatus stores (or replaces) an object's status snapshot and drops any
// cached copy, so the next Lookup re-reads it from bbolt.
func (e *BoltEnv) PutStatus(objName string, fields map[string]interface{}) error {
	blob, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("hostenv: marshal status for %s: %w", objName, err)
	}
	err = e.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statusBucket))
		return b.Put([]byte(objName), blob)
	})
	if err != nil {
		return err
	}
	delete(e.cache, objName)
	return nil
}

// Lookup implements host.Callbacks.Lookup. A root lookup resolves and
// caches an object's status snapshot from bbolt; a chained lookup reads a
// field out of the snapshot already in hand.
func (e *BoltEnv) Lookup(key string, parent types.Value) (types.Value, bool) {
	if parent.Kind == types.KindDict {
		m, ok := parent.Dict.(map[string]interface{})
		if !ok {
			return types.Value{}, false
		}
		v, ok := m[key]
		if !ok {
			return types.Value{}, false
		}
		return statusValue(v), true
	}

	fields, ok := e.objStatus(key)
	if !ok {
		return types.Value{}, false
	}
	return types.Dict(fields), true
}

func (e *BoltEnv) objStatus(objName string) (map[string]interface{}, bool) {
	if fields, ok := e.cache[objName]; ok {
		return fields, true
	}

	var blob []byte
	_ = e.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statusBucket))
		if v := b.Get([]byte(objName)); v != nil {
			blob = append([]byte(nil), v...)
		}
		return nil
	})
	if blob == nil {
		return nil, false
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(blob, &fields); err != nil {
		return nil, false
	}
	e.cache[objName] = fields
	return fields, true
}

// Tree dumps every stored object's status snapshot, for driver-side
// inspection (e.g. the reference CLI's -query flag) rather than expression
// evaluation. It reads straight from bbolt, bypassing the Lookup cache.
func (e *BoltEnv) Tree() (map[string]interface{}, error) {
	tree := map[string]interface{}{}
	err := e.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statusBucket))
		return b.ForEach(func(k, v []byte) error {
			var fields map[string]interface{}
			if err := json.Unmarshal(v, &fields); err != nil {
				return fmt.Errorf("hostenv: decode status for %s: %w", k, err)
			}
			tree[string(k)] = fields
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// Serialize implements host.Callbacks.Serialize, rendering an object's
// status snapshot as sorted "key = value" lines, mirroring
// StatusObjDict.serialize.
func (e *BoltEnv) Serialize(d types.Value) string {
	m, ok := d.Dict.(map[string]interface{})
	if !ok {
		return ""
	}
	return serializeFields(m)
}

func statusValue(v interface{}) types.Value {
	switch t := v.(type) {
	case string:
		return types.Str(t)
	case bool:
		return types.Bool(t)
	case float64:
		return types.Float(t)
	case map[string]interface{}:
		return types.Dict(t)
	default:
		return types.Str(fmt.Sprintf("%v", t))
	}
}
