package extractor

import (
	"strings"
	"unicode"
)

// fakeNLP returns the configured entities that occur in the text, tags
// capitalised words as proper nouns and ends every line with a separator.
type fakeNLP struct {
	entities []Entity
}

func (f *fakeNLP) Entities(text string) []Entity {
	var out []Entity
	for _, e := range f.entities {
		if strings.Contains(text, e.Text) {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeNLP) Tokens(text string) []Token {
	var out []Token
	for _, line := range strings.Split(text, "\n") {
		for _, field := range strings.Fields(line) {
			word := strings.TrimFunc(field, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
			if word == "" {
				continue
			}
			tag := "NN"
			if unicode.IsUpper([]rune(word)[0]) {
				tag = "NNP"
			}
			out = append(out, Token{Text: word, Tag: tag})
			if strings.HasSuffix(field, ".") || strings.HasSuffix(field, ",") {
				out = append(out, Token{Text: field[len(field)-1:], Tag: "."})
			}
		}
		out = append(out, Token{Text: "\n", Tag: "SEP"})
	}
	return out
}

func (f *fakeNLP) Sentences(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ". ") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
