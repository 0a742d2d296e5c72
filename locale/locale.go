// Package locale holds the registry of supported UI locales and picks the
// locale for a request from the NEXT_LOCALE cookie and Accept-Language.
package locale

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is used when nothing else matches.
const DefaultLocale = "en"

// CookieName is the cookie that stores an explicit locale choice.
const CookieName = "NEXT_LOCALE"

// Meta describes a locale for prompts and UI pickers.
type Meta struct {
	Code string `json:"code"`
	// Name is the English language name used in translation prompts.
	Name string `json:"name"`
	// Label is the native name shown in language pickers.
	Label   string `json:"label"`
	Country string `json:"country"`
	Flag    string `json:"flag"`
}

// Registry contains the locales the application ships.
var Registry = map[string]Meta{
	"en": {Code: "en", Name: "English", Label: "English", Country: "GB"},
	"de": {Code: "de", Name: "German", Label: "Deutsch", Country: "DE"},
	"es": {Code: "es", Name: "Spanish", Label: "Español", Country: "ES"},
	"fr": {Code: "fr", Name: "French", Label: "Français", Country: "FR"},
	"nl": {Code: "nl", Name: "Dutch", Label: "Nederlands", Country: "NL"},
	"it": {Code: "it", Name: "Italian", Label: "Italiano", Country: "IT"},
	"ru": {Code: "ru", Name: "Russian", Label: "Русский", Country: "RU"},
	"tr": {Code: "tr", Name: "Turkish", Label: "Türkçe", Country: "TR"},
}

// TargetLanguages are the locales translated from the English source.
var TargetLanguages = []string{"de", "es", "fr", "nl", "it", "ru", "tr"}

func init() {
	for code, m := range Registry {
		m.Flag = Flag(m.Country)
		Registry[code] = m
	}
}

// Flag renders a two-letter country code as a regional indicator pair.
func Flag(country string) string {
	if len(country) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(country) {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns metadata for a locale code, accepting variants such as
// de_AT or de-at by falling back to the base language. Unknown codes get
// a Meta whose names are the code itself.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if base, _, ok := strings.Cut(normalized, "-"); ok {
		if m, ok := Registry[base]; ok {
			return m
		}
	}
	return Meta{Code: lang, Name: lang, Label: lang}
}

// Supported reports whether lang is a registered locale code.
func Supported(lang string) bool {
	_, ok := Registry[lang]
	return ok
}

// List returns the registered locales with the default first and the
// rest sorted by code.
func List() []Meta {
	out := make([]Meta, 0, len(Registry))
	for code, m := range Registry {
		if code != DefaultLocale {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return append([]Meta{Registry[DefaultLocale]}, out...)
}

// ---------------------------------------------------------------------------
// Negotiation
// ---------------------------------------------------------------------------

// Negotiator picks a supported locale for a request.
type Negotiator struct {
	codes   []string
	matcher language.Matcher
}

// NewNegotiator builds a negotiator over codes; the first code is the
// fallback.
func NewNegotiator(codes []string) *Negotiator {
	if len(codes) == 0 {
		codes = []string{DefaultLocale}
	}
	tags := make([]language.Tag, len(codes))
	for i, c := range codes {
		tags[i] = language.Make(c)
	}
	return &Negotiator{codes: codes, matcher: language.NewMatcher(tags)}
}

// DefaultNegotiator negotiates over the registry, English first.
func DefaultNegotiator() *Negotiator {
	codes := make([]string, 0, len(Registry))
	for _, m := range List() {
		codes = append(codes, m.Code)
	}
	return NewNegotiator(codes)
}

// Negotiate returns the cookie locale when it is supported, otherwise the
// best match for the Accept-Language header, otherwise the fallback.
func (n *Negotiator) Negotiate(cookie, acceptLanguage string) string {
	if cookie != "" {
		for _, c := range n.codes {
			if c == cookie {
				return c
			}
		}
	}
	if acceptLanguage != "" {
		_, idx := language.MatchStrings(n.matcher, acceptLanguage)
		return n.codes[idx]
	}
	return n.codes[0]
}
