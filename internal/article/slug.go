package article

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	// maxSlugLen bounds the base slug; the disambiguation suffix may push
	// the stored value slightly past it.
	maxSlugLen = 80

	// slugFallback is used when a title produces no slug characters at all
	// (empty or punctuation-only titles).
	slugFallback = "article"

	// suffix marker: Slugify collapses hyphen runs, so a base slug can
	// never contain "--" and a disambiguated slug is always detectable.
	suffixMarker = "--"
)

// cyrillicTranslit is the fixed transliteration map for Cyrillic input.
// Keys are lowercase; uppercase source runes are lowered first.
var cyrillicTranslit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
	// Ukrainian/Belarusian extras seen in real titles
	'є': "ye", 'і': "i", 'ї': "yi", 'ґ': "g", 'ў': "u",
}

// Slugify turns a title into a URL-safe, lowercase, hyphenated slug.
// Deterministic: the same title always yields the same base slug.
// Uniqueness is the caller's job (see DisambiguateSlug).
func Slugify(title string) string {
	var b strings.Builder
	pendingHyphen := false

	appendUnit := func(unit string) bool {
		if b.Len()+len(unit)+1 > maxSlugLen { // +1 for a possible hyphen
			return false
		}
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteString(unit)
		return true
	}

	for _, r := range title {
		r = unicode.ToLower(r)

		var unit string
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			unit = string(r)
		default:
			if t, ok := cyrillicTranslit[r]; ok {
				unit = t
			} else {
				// whitespace, punctuation, unmapped scripts
				pendingHyphen = true
				continue
			}
		}

		if unit == "" {
			continue // soft/hard signs transliterate to nothing
		}
		if !appendUnit(unit) {
			break // never cut mid-transliteration-unit
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return slugFallback
	}
	return slug
}

// DisambiguateSlug appends a monotonically-unique suffix to a base slug so
// collision retries stay predictable in logs. Applied to an
// already-disambiguated slug it replaces the suffix instead of stacking a
// second one.
func DisambiguateSlug(slug string) string {
	if i := strings.Index(slug, suffixMarker); i >= 0 {
		slug = slug[:i]
	}
	return slug + suffixMarker + strconv.FormatInt(time.Now().UnixNano(), 36)
}

// IsDisambiguatedSlug reports whether a slug already carries the
// disambiguation suffix.
func IsDisambiguatedSlug(slug string) bool {
	return strings.Contains(slug, suffixMarker)
}
