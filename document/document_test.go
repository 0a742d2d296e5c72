package document

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseAndMarshal_PreservesOrderAndFormat(t *testing.T) {
	input := `{"zeta":"Z","alpha":{"b":"B","a":"A"},"list":[1,"two",true,null],"empty":{}}`

	obj, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if got, want := obj.Keys(), []string{"zeta", "alpha", "list", "empty"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}

	out, err := obj.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{
  "zeta": "Z",
  "alpha": {
    "b": "B",
    "a": "A"
  },
  "list": [
    1,
    "two",
    true,
    null
  ],
  "empty": {}
}
`
	if string(out) != want {
		t.Fatalf("Marshal() =\n%s\nwant\n%s", out, want)
	}
}

func TestMarshal_DoesNotEscapeHTML(t *testing.T) {
	obj := New()
	obj.Set("link", "<b>{name}</b> & {{count}}")

	out, err := obj.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error: %v", err)
	}
	if want := `{"link":"<b>{name}</b> & {{count}}"}`; string(out) != want {
		t.Fatalf("MarshalJSON() = %s, want %s", out, want)
	}
}

func TestParse_RejectsNonObject(t *testing.T) {
	for _, input := range []string{`[]`, `"x"`, `{"a":1} {"b":2}`, `{"a":`} {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("Parse(%q) expected error", input)
		}
	}
}

func TestSetPath_CreatesIntermediatesAndOverwrites(t *testing.T) {
	obj := New()
	if err := obj.SetPath("common.buttons.save", "Save"); err != nil {
		t.Fatalf("SetPath() error: %v", err)
	}
	if err := obj.SetPath("common.buttons.save", "Speichern"); err != nil {
		t.Fatalf("SetPath() overwrite error: %v", err)
	}

	v, ok := obj.Lookup("common.buttons.save")
	if !ok || v != "Speichern" {
		t.Fatalf("Lookup() = %v, %v; want Speichern", v, ok)
	}
}

func TestSetPath_FailsThroughScalar(t *testing.T) {
	obj := New()
	obj.Set("common", "flat")

	err := obj.SetPath("common.save", "Save")
	if !errors.Is(err, ErrNotObject) {
		t.Fatalf("SetPath() error = %v, want ErrNotObject", err)
	}
}

func TestSetNamespace_MergesShallow(t *testing.T) {
	obj := New()
	first := New()
	first.Set("a", "1")
	first.Set("b", "2")
	second := New()
	second.Set("b", "two")
	second.Set("c", "3")

	if err := obj.SetNamespace("pages.home", first); err != nil {
		t.Fatalf("SetNamespace(first) error: %v", err)
	}
	if err := obj.SetNamespace("pages.home", second); err != nil {
		t.Fatalf("SetNamespace(second) error: %v", err)
	}

	got := obj.LeafPaths()
	want := []string{"pages.home.a", "pages.home.b", "pages.home.c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("LeafPaths() = %v, want %v", got, want)
	}
	if v, _ := obj.Lookup("pages.home.b"); v != "two" {
		t.Fatalf("pages.home.b = %v, want two", v)
	}
}

func TestDeletePathAndPrune(t *testing.T) {
	obj, err := Parse([]byte(`{"common":{"cancel":"Cancel"},"nav":{"home":"Home","deep":{"x":"X"}}}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if !obj.DeletePath("common.cancel") {
		t.Fatal("DeletePath(common.cancel) = false, want true")
	}
	if !obj.DeletePath("nav.deep.x") {
		t.Fatal("DeletePath(nav.deep.x) = false, want true")
	}
	if obj.DeletePath("missing.parent.key") {
		t.Fatal("DeletePath(missing) = true, want false")
	}

	obj.Prune()

	if obj.Has("common") {
		t.Error("empty namespace common should be pruned")
	}
	if v, ok := obj.Lookup("nav.home"); !ok || v != "Home" {
		t.Errorf("sibling nav.home = %v, %v; want Home", v, ok)
	}
	if _, ok := obj.Lookup("nav.deep"); ok {
		t.Error("empty nav.deep should be pruned")
	}
}

func TestEqual(t *testing.T) {
	a, _ := Parse([]byte(`{"x":{"a":1,"b":[1,2]},"y":"s"}`))
	b, _ := Parse([]byte(`{"y":"s","x":{"b":[1,2],"a":1.0}}`))
	c, _ := Parse([]byte(`{"y":"s","x":{"b":[2,1],"a":1}}`))

	if !Equal(a, b) {
		t.Error("Equal(a, b) = false, want true")
	}
	if Equal(a, c) {
		t.Error("Equal(a, c) = true, want false")
	}
	if Equal("1", json.Number("1")) {
		t.Error("string and number must differ")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig, _ := Parse([]byte(`{"a":{"b":"c"}}`))
	clone := orig.Clone()
	_ = clone.SetPath("a.b", "changed")

	if v, _ := orig.Lookup("a.b"); v != "c" {
		t.Fatalf("original mutated: a.b = %v", v)
	}
}
