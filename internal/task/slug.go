package task

import (
	"strings"
	"unicode"
)

const maxSlugLength = 50

// GenerateSlug reduces a title to lowercase ASCII words joined by hyphens,
// cut at a word boundary once it passes maxSlugLength.
func GenerateSlug(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})

	var b strings.Builder
	for _, w := range words {
		extra := len(w)
		if b.Len() > 0 {
			extra++
		}
		if b.Len()+extra > maxSlugLength {
			if b.Len() == 0 {
				b.WriteString(w[:maxSlugLength])
			}
			break
		}
		if b.Len() > 0 {
			b.WriteByte('-')
		}
		b.WriteString(w)
	}
	return b.String()
}

// GenerateFilename names a task file after its id, with the slug appended
// for readability.
func GenerateFilename(id, slug string) string {
	if slug == "" {
		return id + ".md"
	}
	return id + "-" + slug + ".md"
}
