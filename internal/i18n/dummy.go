package i18n

import (
	"strings"
)

// accentedLetters maps ASCII letters to accented lookalikes so dummy
// translations stay readable while being obviously machine-generated.
var accentedLetters = map[rune]rune{
	'A': 'À', 'B': 'Ɓ', 'C': 'Ç', 'D': 'Ð', 'E': 'É', 'G': 'Ǧ', 'H': 'Ĥ',
	'I': 'Ì', 'K': 'Ķ', 'L': 'Ł', 'N': 'Ñ', 'O': 'Ö', 'R': 'Ŕ', 'S': 'Š',
	'T': 'Ţ', 'U': 'Û', 'W': 'Ŵ', 'Y': 'Ý', 'Z': 'Ž',
	'a': 'ä', 'b': 'ƀ', 'c': 'ç', 'd': 'đ', 'e': 'é', 'g': 'ǧ', 'h': 'ĥ',
	'i': 'ï', 'k': 'ķ', 'l': 'ł', 'n': 'ñ', 'o': 'ö', 'r': 'ŕ', 's': 'š',
	't': 'ţ', 'u': 'ü', 'w': 'ŵ', 'y': 'ý', 'z': 'ž',
}

const dummyPadding = " Ⱡ'σяєм ιρѕυм ∂σłσя ѕιţ αмєţ, ςσñšєςţєţüя αđïρïѕςïñǧ єłïţ"

// DummyTranslate converts a source string into an accented pseudo-locale
// rendition padded by roughly a third, which exposes truncation and
// hard-coded strings during layout review. Placeholders like %s, %(name)s,
// and {name} pass through untouched.
func DummyTranslate(source string) string {
	if source == "" {
		return ""
	}
	var sb strings.Builder
	runes := []rune(source)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if skip := placeholderLen(runes[i:]); skip > 0 {
			sb.WriteString(string(runes[i : i+skip]))
			i += skip - 1
			continue
		}
		if accented, ok := accentedLetters[r]; ok {
			sb.WriteRune(accented)
		} else {
			sb.WriteRune(r)
		}
	}
	padLen := len(runes) / 3
	if padLen > 0 {
		pad := []rune(dummyPadding)
		if padLen > len(pad) {
			padLen = len(pad)
		}
		sb.WriteString(string(pad[:padLen]))
	}
	sb.WriteRune('#')
	return sb.String()
}

// DummyCatalog generates the pseudo-locale catalog from a template.
func DummyCatalog(locale string, template *Catalog) (*Catalog, error) {
	dummy, err := NewCatalog(locale)
	if err != nil {
		return nil, err
	}
	for _, msg := range template.Messages() {
		entry := msg
		entry.Str = DummyTranslate(msg.ID)
		if err := dummy.Add(entry); err != nil {
			return nil, err
		}
	}
	return dummy, nil
}

// placeholderLen returns the length of a format placeholder starting at the
// given runes, or zero when there is none.
func placeholderLen(runes []rune) int {
	if len(runes) == 0 {
		return 0
	}
	switch runes[0] {
	case '%':
		if len(runes) < 2 {
			return 0
		}
		// python style named placeholder %(name)s
		if runes[1] == '(' {
			for i := 2; i < len(runes); i++ {
				if runes[i] == ')' {
					if i+1 < len(runes) {
						return i + 2
					}
					return i + 1
				}
			}
			return 0
		}
		// printf style verb: %s, %d, %v, %%
		return 2
	case '{':
		for i := 1; i < len(runes); i++ {
			if runes[i] == '}' {
				return i + 1
			}
			if runes[i] == ' ' {
				return 0
			}
		}
		return 0
	}
	return 0
}
