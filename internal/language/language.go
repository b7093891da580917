package language

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// spoken lists the languages recognized by name. Any other valid ISO 639 code
// is still accepted through language.Parse.
var spoken = []language.Tag{
	language.English, language.Spanish, language.French, language.German,
	language.Italian, language.Portuguese, language.Catalan, language.Dutch,
	language.Polish, language.Swedish, language.Danish, language.Norwegian,
	language.Finnish, language.Russian, language.Ukrainian, language.Turkish,
	language.Arabic, language.Hindi, language.Japanese, language.Korean,
	language.Chinese,
}

// Bibliographic ISO 639-2 codes and regional names language.Parse does not know.
var aliases = map[string]string{
	"castellano": "es",
	"fre":        "fr",
	"ger":        "de",
	"dut":        "nl",
	"chi":        "zh",
}

var byName = buildNames()

func buildNames() map[string]string {
	names := make(map[string]string, len(spoken)*2+len(aliases))
	english := display.English.Tags()
	for _, tag := range spoken {
		base, _ := tag.Base()
		code := base.String()
		names[fold(english.Name(tag))] = code
		names[fold(display.Self.Name(tag))] = code
	}
	for alias, code := range aliases {
		names[alias] = code
	}
	return names
}

// fold lowercases s and strips combining marks so "Español" matches "espanol".
func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ToISO2 converts a language code or name ("es", "spa", "Spanish", "español")
// to its ISO 639-1 code. Unknown two-letter input passes through lowercased;
// anything else unrecognized yields "".
func ToISO2(value string) string {
	key := fold(value)
	if key == "" {
		return ""
	}
	if code, ok := byName[key]; ok {
		return code
	}
	if tag, err := language.Parse(key); err == nil {
		if base, conf := tag.Base(); conf != language.No && len(base.String()) == 2 {
			return base.String()
		}
	}
	if len(key) == 2 && isLetters(key) {
		return key
	}
	return ""
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
