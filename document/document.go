// Package document implements an ordered JSON object tree used for
// translation documents.
//
// Object keys keep the order in which they were read or inserted, so a
// locale file that is read, patched, and rewritten keeps its layout.
// Values are one of: string, json.Number, bool, nil, []any, *Object.
//
// Paths are dot-joined key segments ("common.buttons.save").
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrNotObject is returned when a path crosses a value that is not an object.
var ErrNotObject = errors.New("not an object")

// Object is an ordered JSON object.
type Object struct {
	keys []string
	vals map[string]any
}

// New returns an empty object.
func New() *Object {
	return &Object{vals: make(map[string]any)}
}

// ---------------------------------------------------------------------------
// Basic access
// ---------------------------------------------------------------------------

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in order. The slice must not be modified.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key. New keys are appended; existing keys keep
// their position.
func (o *Object) Set(key string, v any) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if _, ok := o.vals[key]; !ok {
		return false
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Merge copies every key of other into o, later values winning.
// Nested objects are not merged recursively.
func (o *Object) Merge(other *Object) {
	for _, k := range other.Keys() {
		o.Set(k, other.vals[k])
	}
}

// Clone returns a deep copy.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{keys: make([]string, len(o.keys)), vals: make(map[string]any, len(o.vals))}
	copy(c.keys, o.keys)
	for k, v := range o.vals {
		c.vals[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// ---------------------------------------------------------------------------
// Dotted paths
// ---------------------------------------------------------------------------

// SplitPath splits a dotted path into its segments.
func SplitPath(path string) []string {
	return strings.Split(path, ".")
}

// JoinPath joins segments into a dotted path.
func JoinPath(segments ...string) string {
	return strings.Join(segments, ".")
}

// Lookup returns the value at a dotted path.
func (o *Object) Lookup(path string) (any, bool) {
	segs := SplitPath(path)
	cur := o
	for _, s := range segs[:len(segs)-1] {
		child, ok := cur.Get(s)
		if !ok {
			return nil, false
		}
		next, ok := child.(*Object)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur.Get(segs[len(segs)-1])
}

// SetPath stores v at a dotted path, creating intermediate objects as
// needed and overwriting the leaf. It fails with ErrNotObject when an
// intermediate segment holds a non-object value.
func (o *Object) SetPath(path string, v any) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	segs := SplitPath(path)
	cur := o
	for i, s := range segs[:len(segs)-1] {
		child, ok := cur.Get(s)
		if !ok {
			next := New()
			cur.Set(s, next)
			cur = next
			continue
		}
		next, ok := child.(*Object)
		if !ok {
			return fmt.Errorf("%s: %w", JoinPath(segs[:i+1]...), ErrNotObject)
		}
		cur = next
	}
	cur.Set(segs[len(segs)-1], v)
	return nil
}

// SetNamespace inserts obj at a dotted path. When an object already sits
// at that path the two are merged shallowly instead of replaced.
func (o *Object) SetNamespace(path string, obj *Object) error {
	if existing, ok := o.Lookup(path); ok {
		if eo, ok := existing.(*Object); ok {
			eo.Merge(obj)
			return nil
		}
	}
	return o.SetPath(path, obj)
}

// DeletePath removes the value at a dotted path. A missing parent is a
// no-op. It reports whether anything was removed.
func (o *Object) DeletePath(path string) bool {
	segs := SplitPath(path)
	cur := o
	for _, s := range segs[:len(segs)-1] {
		child, ok := cur.Get(s)
		if !ok {
			return false
		}
		next, ok := child.(*Object)
		if !ok {
			return false
		}
		cur = next
	}
	return cur.Delete(segs[len(segs)-1])
}

// Prune removes empty nested objects, bottom-up. The receiver itself is
// never removed.
func (o *Object) Prune() {
	for _, k := range append([]string(nil), o.keys...) {
		child, ok := o.vals[k].(*Object)
		if !ok {
			continue
		}
		child.Prune()
		if child.Len() == 0 {
			o.Delete(k)
		}
	}
}

// Leaf is a single non-object value and its dotted path.
type Leaf struct {
	Path  string
	Value any
}

// Leaves returns every leaf under o in document order. Empty objects
// contribute nothing.
func (o *Object) Leaves() []Leaf {
	var out []Leaf
	o.walkLeaves(nil, func(path []string, v any) {
		out = append(out, Leaf{Path: JoinPath(path...), Value: v})
	})
	return out
}

// LeafPaths returns the dotted paths of every leaf under o.
func (o *Object) LeafPaths() []string {
	leaves := o.Leaves()
	out := make([]string, len(leaves))
	for i, l := range leaves {
		out[i] = l.Path
	}
	return out
}

func (o *Object) walkLeaves(prefix []string, fn func([]string, any)) {
	for _, k := range o.Keys() {
		path := append(append([]string(nil), prefix...), k)
		if child, ok := o.vals[k].(*Object); ok {
			child.walkLeaves(path, fn)
			continue
		}
		fn(path, o.vals[k])
	}
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// Equal reports whether two values are the same JSON value. Object key
// order is ignored; numbers compare by value.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case *Object:
		bv, ok := b.(*Object)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			bval, ok := bv.vals[k]
			if !ok || !Equal(av.vals[k], bval) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case json.Number:
		bv, ok := b.(json.Number)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		af, aerr := av.Float64()
		bf, berr := bv.Float64()
		return aerr == nil && berr == nil && af == bf
	case string, bool, nil:
		return a == b
	default:
		return false
	}
}

// IsObject reports whether v is a nested object.
func IsObject(v any) bool {
	_, ok := v.(*Object)
	return ok
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// Parse decodes a JSON document whose top level must be an object.
func Parse(data []byte) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("top-level value is %s, want object", kindOf(v))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}
	return obj, nil
}

// ParseFile reads and decodes a JSON object file.
func ParseFile(path string) (*Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	obj, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return obj, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok := t.(type) {
	case json.Delim:
		switch tok {
		case '{':
			obj := New()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("expected string key, got %T", kt)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", tok)
		}
	default:
		return tok, nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Object) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// Marshal encodes o with 2-space indentation and a trailing newline.
func (o *Object) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, o, 0, true); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler with compact output.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, o, 0, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v any, depth int, pretty bool) error {
	switch t := v.(type) {
	case *Object:
		if t.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, depth+1, pretty)
			writeString(buf, k)
			buf.WriteByte(':')
			if pretty {
				buf.WriteByte(' ')
			}
			if err := writeValue(buf, t.vals[k], depth+1, pretty); err != nil {
				return err
			}
		}
		newline(buf, depth, pretty)
		buf.WriteByte('}')
	case []any:
		if len(t) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, depth+1, pretty)
			if err := writeValue(buf, e, depth+1, pretty); err != nil {
				return err
			}
		}
		newline(buf, depth, pretty)
		buf.WriteByte(']')
	case string:
		writeString(buf, t)
	case json.Number:
		buf.WriteString(t.String())
	case float64:
		buf.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		buf.WriteString(strconv.Itoa(t))
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case nil:
		buf.WriteString("null")
	case map[string]any:
		return writeValue(buf, FromMap(t), depth, pretty)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

func newline(buf *bytes.Buffer, depth int, pretty bool) {
	if !pretty {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat("  ", depth))
}

// writeString writes s as a JSON string without HTML escaping, so
// placeholders and markup in UI strings stay readable.
func writeString(buf *bytes.Buffer, s string) {
	var sb bytes.Buffer
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimRight(sb.Bytes(), "\n"))
}

// FromMap converts a decoded map into an Object with sorted keys.
// Nested maps are converted recursively.
func FromMap(m map[string]any) *Object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := New()
	for _, k := range keys {
		v := m[k]
		if nested, ok := v.(map[string]any); ok {
			v = FromMap(nested)
		}
		obj.Set(k, v)
	}
	return obj
}

func kindOf(v any) string {
	switch v.(type) {
	case *Object:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64, int:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// WriteFile writes o to path atomically: the content goes to a temporary
// file in the same directory, which is then renamed over path. Readers
// never observe a partial file.
func WriteFile(path string, o *Object) error {
	data, err := o.Marshal()
	if err != nil {
		return err
	}
	return WriteAtomic(path, data, 0644)
}

// WriteAtomic writes data to path via a temporary file and rename,
// creating the parent directory if needed.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
