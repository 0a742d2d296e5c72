package translate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/exilekit/langsync/document"
)

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// stripCodeFence returns the body of a fenced ```json block, or the
// trimmed input when there is none.
func stripCodeFence(s string) string {
	if m := markdownCodeBlock.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return strings.TrimSpace(s)
}

// ---------------------------------------------------------------------------
// Response schema
// ---------------------------------------------------------------------------

var schemaCache sync.Map // "de,es,fr" -> *jsonschema.Schema

// responseSchema returns a compiled schema requiring an object member for
// every language in langs.
func responseSchema(langs []string) (*jsonschema.Schema, error) {
	key := strings.Join(langs, ",")
	if s, ok := schemaCache.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	props := make(map[string]any, len(langs))
	for _, l := range langs {
		props[l] = map[string]any{"type": "object"}
	}
	raw := map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"required":   langs,
		"properties": props,
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	name := "response-" + key + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(encoded)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, schema)
	return schema, nil
}

// validationIssues flattens a schema validation error into readable lines.
func validationIssues(err error) []string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// ParseResponse validates a raw translation response against the
// languages in req and returns one flat path -> value object per language.
//
// Each language object is matched against the chunk's paths, either as
// flat dotted keys or as a nested structure. Paths the response omits are
// skipped; keys outside the chunk are dropped.
func ParseResponse(raw []byte, req Request) (map[string]*document.Object, error) {
	text := stripCodeFence(string(raw))
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrValidation)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: not JSON: %v (%s)", ErrValidation, err, truncate(text, 200))
	}

	schema, err := responseSchema(req.Languages)
	if err != nil {
		return nil, fmt.Errorf("compiling response schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(validationIssues(err), "; "))
	}

	doc, err := document.Parse([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	out := make(map[string]*document.Object, len(req.Languages))
	for _, lang := range req.Languages {
		v, _ := doc.Get(lang)
		langObj := v.(*document.Object)
		flat := document.New()
		for _, path := range req.Chunk.Keys() {
			if val, ok := langObj.Get(path); ok {
				flat.Set(path, val)
			} else if val, ok := langObj.Lookup(path); ok {
				flat.Set(path, val)
			}
		}
		out[lang] = flat
	}
	return out, nil
}

// truncate shortens s to maxLen bytes, marking the cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
