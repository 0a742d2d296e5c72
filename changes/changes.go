// Package changes computes the structural difference between two merged
// source documents.
package changes

import (
	"strings"

	"github.com/exilekit/langsync/document"
)

// ChangeSet is the result of comparing a current document with the
// previous snapshot.
//
// Added and Modified are flat objects keyed by dotted path, in document
// order. A path appears in at most one of them. Removed lists leaf paths
// only.
type ChangeSet struct {
	Added    *document.Object
	Modified *document.Object
	Removed  []string
}

// Empty reports whether the set carries no changes at all.
func (c *ChangeSet) Empty() bool {
	return c.Added.Len() == 0 && c.Modified.Len() == 0 && len(c.Removed) == 0
}

// Translatable returns added then modified entries as one flat object.
func (c *ChangeSet) Translatable() *document.Object {
	out := document.New()
	out.Merge(c.Added)
	out.Merge(c.Modified)
	return out
}

// Detect compares current against previous. A nil previous is treated as
// an empty document.
//
// Nested objects are compared recursively. A key whose value changed
// between object and non-object is reported as modified at that key, with
// the whole current value. Keys only in previous are reported as removed,
// expanded to every leaf path when the old value was an object.
func Detect(current, previous *document.Object) *ChangeSet {
	cs := &ChangeSet{
		Added:    document.New(),
		Modified: document.New(),
	}
	if previous == nil {
		previous = document.New()
	}
	if current == nil {
		current = document.New()
	}
	diff(cs, current, previous, nil)
	return cs
}

func diff(cs *ChangeSet, cur, prev *document.Object, prefix []string) {
	for _, key := range cur.Keys() {
		val, _ := cur.Get(key)
		path := appendPath(prefix, key)

		old, existed := prev.Get(key)
		curObj, curIsObj := val.(*document.Object)
		oldObj, oldIsObj := old.(*document.Object)

		switch {
		case !existed && curIsObj:
			addAll(cs, curObj, path)
		case !existed:
			cs.Added.Set(joined(path), val)
		case curIsObj && oldIsObj:
			diff(cs, curObj, oldObj, path)
		case curIsObj != oldIsObj:
			cs.Modified.Set(joined(path), val)
		case !document.Equal(val, old):
			cs.Modified.Set(joined(path), val)
		}
	}

	for _, key := range prev.Keys() {
		if cur.Has(key) {
			continue
		}
		old, _ := prev.Get(key)
		path := appendPath(prefix, key)
		if oldObj, ok := old.(*document.Object); ok {
			for _, leaf := range oldObj.LeafPaths() {
				cs.Removed = append(cs.Removed, joined(path)+"."+leaf)
			}
			continue
		}
		cs.Removed = append(cs.Removed, joined(path))
	}
}

// addAll records every leaf of a namespace that did not exist before.
func addAll(cs *ChangeSet, obj *document.Object, path []string) {
	for _, leaf := range obj.Leaves() {
		cs.Added.Set(joined(path)+"."+leaf.Path, leaf.Value)
	}
}

func appendPath(prefix []string, key string) []string {
	return append(append(make([]string, 0, len(prefix)+1), prefix...), key)
}

func joined(path []string) string {
	return strings.Join(path, ".")
}

// Preview returns up to n paths joined by ", ", with "..." appended when
// there are more.
func Preview(paths []string, n int) string {
	if len(paths) <= n {
		return strings.Join(paths, ", ")
	}
	return strings.Join(paths[:n], ", ") + "..."
}
