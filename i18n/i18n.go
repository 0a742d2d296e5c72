// Package i18n translates langsync's own command-line messages.
//
// Catalogs are gettext .po files embedded from
// locales/<lang>/LC_MESSAGES/langsync.po and read with gotext. Init picks
// the language from the environment the way GNU gettext does.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var catalogs embed.FS

const domain = "langsync"

var (
	po   *gotext.Locale
	lang = "en"
)

// Init loads the catalog for language, or for the environment's language
// when language is empty. Call it once before T or N.
func Init(language string) {
	if language == "" {
		language = detectLanguage()
	}
	lang = language
	po = gotext.NewLocaleFSWithPath(language, catalogs, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Language reports the language passed to (or detected by) Init.
func Language() string {
	return lang
}

// T returns the translation of msgid, or msgid itself.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N is the plural form of T.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage checks LANGUAGE, LC_ALL, LC_MESSAGES and LANG in order.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// ru_RU.UTF-8 -> ru_RU
		val, _, _ = strings.Cut(val, ".")
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
