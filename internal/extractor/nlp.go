package extractor

import (
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
)

// Entity labels produced by the NLP backend.
const (
	LabelPerson = "PERSON"
	LabelGPE    = "GPE"
	LabelLoc    = "LOC"
)

type Entity struct {
	Text  string
	Label string
}

type Token struct {
	Text string
	// Tag is a Penn Treebank part-of-speech tag.
	Tag string
}

// NLP is the tokenizer / tagger / NER backend the extractors share.
type NLP interface {
	Entities(text string) []Entity
	Tokens(text string) []Token
	Sentences(text string) []string
}

// ProseNLP implements NLP with prose's averaged perceptron tagger and NER.
// The tagger and NER model load once and are shared by every document.
type ProseNLP struct {
	once  sync.Once
	model *prose.Model
}

func NewProseNLP() *ProseNLP {
	return &ProseNLP{}
}

func (p *ProseNLP) loadModel() *prose.Model {
	p.once.Do(func() {
		if doc, err := prose.NewDocument("."); err == nil {
			p.model = doc.Model
		}
	})
	return p.model
}

func (p *ProseNLP) document(text string) *prose.Document {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var opts []prose.DocOpt
	if model := p.loadModel(); model != nil {
		opts = append(opts, prose.UsingModel(model))
	}
	doc, err := prose.NewDocument(text, opts...)
	if err != nil {
		return nil
	}
	return doc
}

func (p *ProseNLP) Entities(text string) []Entity {
	doc := p.document(text)
	if doc == nil {
		return nil
	}
	ents := doc.Entities()
	out := make([]Entity, 0, len(ents))
	for _, e := range ents {
		out = append(out, Entity{Text: e.Text, Label: e.Label})
	}
	return out
}

func (p *ProseNLP) Tokens(text string) []Token {
	doc := p.document(text)
	if doc == nil {
		return nil
	}
	toks := doc.Tokens()
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		out = append(out, Token{Text: t.Text, Tag: t.Tag})
	}
	return out
}

func (p *ProseNLP) Sentences(text string) []string {
	doc := p.document(text)
	if doc == nil {
		return nil
	}
	sents := doc.Sentences()
	out := make([]string, 0, len(sents))
	for _, s := range sents {
		out = append(out, s.Text)
	}
	return out
}

// firstEntity returns the first entity whose label is in labels.
func firstEntity(nlp NLP, text string, labels ...string) (string, bool) {
	for _, ent := range nlp.Entities(text) {
		for _, l := range labels {
			if ent.Label == l {
				return ent.Text, true
			}
		}
	}
	return "", false
}

// properNounChunks groups consecutive NNP/NNPS tokens. Chunks that are
// recognised as people or places are dropped, which leaves mostly
// organisations and products.
func properNounChunks(nlp NLP, text string) []string {
	skip := make(map[string]bool)
	for _, ent := range nlp.Entities(text) {
		if ent.Label == LabelPerson || ent.Label == LabelGPE || ent.Label == LabelLoc {
			skip[strings.ToLower(ent.Text)] = true
		}
	}

	var chunks []string
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := strings.Join(current, " ")
		current = current[:0]
		lower := strings.ToLower(chunk)
		if skip[lower] || len(chunk) <= 2 || isStopWord(lower) || greetingWords[lower] {
			return
		}
		chunks = append(chunks, chunk)
	}

	for _, tok := range nlp.Tokens(text) {
		if tok.Tag == "NNP" || tok.Tag == "NNPS" {
			current = append(current, tok.Text)
			continue
		}
		flush()
	}
	flush()
	return chunks
}

var greetingWords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "dear": true, "thanks": true,
	"regards": true, "best": true, "cheers": true, "sincerely": true,
}
