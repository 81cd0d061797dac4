package extractor

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"emailanalyser/internal/model"
)

const (
	maxFeatures     = 1000
	minDocFreq      = 2
	maxDocFreqRatio = 0.95
	nmfComponents   = 10
	nmfIterations   = 200
	nmfSeed         = 42
	nmfEpsilon      = 1e-10
	wordsPerPhrase  = 3
	minTopicScore   = 0.1
	maxTopics       = 10
	fallbackTerms   = 5
)

// ErrInsufficientCorpus is returned by Fit when no term survives the
// document frequency cut-offs, e.g. for a single email.
var ErrInsufficientCorpus = errors.New("corpus too small for topic model")

type term struct {
	stem    string
	surface string
}

// TopicModel is a TF-IDF + NMF model fitted on a batch of emails.
type TopicModel struct {
	vocab   map[string]int
	idf     []float64
	h       *mat.Dense
	hht     *mat.Dense
	phrases []string
}

// Components returns the phrase describing each topic.
func (m *TopicModel) Components() []string {
	return m.phrases
}

type TopicAnalyzer struct {
	nlp    NLP
	logger *zap.Logger
}

func NewTopicAnalyzer(nlp NLP, logger *zap.Logger) *TopicAnalyzer {
	return &TopicAnalyzer{nlp: nlp, logger: logger}
}

// preprocess lower-cases, drops stop words and short tokens and stems the rest.
func preprocess(text string) []term {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	terms := make([]term, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 2 || isStopWord(w) {
			continue
		}
		stem, err := snowball.Stem(w, "english", true)
		if err != nil || stem == "" {
			stem = w
		}
		terms = append(terms, term{stem: stem, surface: w})
	}
	return terms
}

// surfaceForms picks the most frequent surface word for every stem.
func surfaceForms(docs [][]term) map[string]string {
	counts := make(map[string]map[string]int)
	for _, doc := range docs {
		for _, t := range doc {
			if counts[t.stem] == nil {
				counts[t.stem] = make(map[string]int)
			}
			counts[t.stem][t.surface]++
		}
	}
	out := make(map[string]string, len(counts))
	for stem, surfaces := range counts {
		best, bestCount := "", 0
		for s, c := range surfaces {
			if c > bestCount || (c == bestCount && s < best) {
				best, bestCount = s, c
			}
		}
		out[stem] = best
	}
	return out
}

// Fit builds the topic model over docs.
func (a *TopicAnalyzer) Fit(docs []string) (*TopicModel, error) {
	corpus := make([][]term, len(docs))
	for i, d := range docs {
		corpus[i] = preprocess(d)
	}

	n := len(corpus)
	df := make(map[string]int)
	freq := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, t := range doc {
			freq[t.stem]++
			if !seen[t.stem] {
				seen[t.stem] = true
				df[t.stem]++
			}
		}
	}

	maxDF := maxDocFreqRatio * float64(n)
	var kept []string
	for stem, c := range df {
		if c >= minDocFreq && float64(c) <= maxDF {
			kept = append(kept, stem)
		}
	}
	if len(kept) == 0 {
		return nil, ErrInsufficientCorpus
	}
	if len(kept) > maxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if freq[kept[i]] != freq[kept[j]] {
				return freq[kept[i]] > freq[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:maxFeatures]
	}
	sort.Strings(kept)

	m := &TopicModel{
		vocab: make(map[string]int, len(kept)),
		idf:   make([]float64, len(kept)),
	}
	for j, stem := range kept {
		m.vocab[stem] = j
		m.idf[j] = math.Log(float64(1+n)/float64(1+df[stem])) + 1
	}

	v := mat.NewDense(n, len(kept), nil)
	for i, doc := range corpus {
		v.SetRow(i, m.vectorize(doc))
	}

	k := min(nmfComponents, n, len(kept))
	_, h := nmf(v, k)
	m.h = h
	m.hht = new(mat.Dense)
	m.hht.Mul(h, h.T())

	surface := surfaceForms(corpus)
	m.phrases = make([]string, k)
	for c := 0; c < k; c++ {
		m.phrases[c] = topPhrase(mat.Row(nil, c, h), kept, surface)
	}

	a.logger.Info("Fitted topic model",
		zap.Int("documents", n),
		zap.Int("features", len(kept)),
		zap.Int("components", k),
	)
	return m, nil
}

// vectorize returns the L2-normalised TF-IDF row for doc.
func (m *TopicModel) vectorize(doc []term) []float64 {
	row := make([]float64, len(m.idf))
	for _, t := range doc {
		if j, ok := m.vocab[t.stem]; ok {
			row[j]++
		}
	}
	norm := 0.0
	for j := range row {
		row[j] *= m.idf[j]
		norm += row[j] * row[j]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for j := range row {
			row[j] /= norm
		}
	}
	return row
}

// transform projects one document onto the fitted components.
func (m *TopicModel) transform(doc []term) []float64 {
	k, _ := m.h.Dims()
	row := m.vectorize(doc)
	v := mat.NewDense(1, len(row), row)
	if mat.Sum(v) == 0 {
		return make([]float64, k)
	}

	w := mat.NewDense(1, k, nil)
	scale := math.Sqrt(mat.Sum(v) / float64(len(row)) / float64(k))
	for j := 0; j < k; j++ {
		w.Set(0, j, scale)
	}

	var num mat.Dense
	num.Mul(v, m.h.T())
	for it := 0; it < nmfIterations; it++ {
		var den mat.Dense
		den.Mul(w, m.hht)
		multiplicativeUpdate(w, &num, &den)
	}
	return mat.Row(nil, 0, w)
}

// nmf factorises v ≈ w·h with Lee-Seung multiplicative updates.
func nmf(v *mat.Dense, k int) (*mat.Dense, *mat.Dense) {
	n, m := v.Dims()
	rng := rand.New(rand.NewSource(nmfSeed))
	scale := math.Sqrt(mat.Sum(v) / float64(n*m) / float64(k))

	w := mat.NewDense(n, k, nil)
	h := mat.NewDense(k, m, nil)
	w.Apply(func(_, _ int, _ float64) float64 { return scale * math.Abs(rng.NormFloat64()) }, w)
	h.Apply(func(_, _ int, _ float64) float64 { return scale * math.Abs(rng.NormFloat64()) }, h)

	for it := 0; it < nmfIterations; it++ {
		var num, wtw, den mat.Dense
		num.Mul(w.T(), v)
		wtw.Mul(w.T(), w)
		den.Mul(&wtw, h)
		multiplicativeUpdate(h, &num, &den)

		var num2, hht, den2 mat.Dense
		num2.Mul(v, h.T())
		hht.Mul(h, h.T())
		den2.Mul(w, &hht)
		multiplicativeUpdate(w, &num2, &den2)
	}
	return w, h
}

func multiplicativeUpdate(x *mat.Dense, num, den mat.Matrix) {
	x.Apply(func(i, j int, v float64) float64 {
		return v * num.At(i, j) / (den.At(i, j) + nmfEpsilon)
	}, x)
}

func topPhrase(weights []float64, vocab []string, surface map[string]string) string {
	idx := make([]int, 0, len(weights))
	for j, w := range weights {
		if w > 0 {
			idx = append(idx, j)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return weights[idx[a]] > weights[idx[b]] })
	if len(idx) > wordsPerPhrase {
		idx = idx[:wordsPerPhrase]
	}
	words := make([]string, 0, len(idx))
	for _, j := range idx {
		words = append(words, surface[vocab[j]])
	}
	return strings.Join(words, " ")
}

// ExtractTopics returns up to ten topics for text. With a nil model the key
// phrases fall back to term frequency.
func (a *TopicAnalyzer) ExtractTopics(text string, m *TopicModel) []model.Topic {
	terms := preprocess(text)

	var phrases []model.Topic
	if m != nil {
		phrases = m.keyPhrases(terms)
	} else {
		phrases = frequencyPhrases(terms)
	}

	return mergeTopics(phrases, a.entityTopics(text))
}

func (m *TopicModel) keyPhrases(terms []term) []model.Topic {
	var out []model.Topic
	for c, weight := range m.transform(terms) {
		if weight > minTopicScore && m.phrases[c] != "" {
			out = append(out, model.Topic{Topic: m.phrases[c], Score: weight, Type: model.TopicTypePhrase})
		}
	}
	return out
}

func frequencyPhrases(terms []term) []model.Topic {
	counts := make(map[string]int)
	for _, t := range terms {
		counts[t.stem]++
	}
	stems := make([]string, 0, len(counts))
	maxCount := 0
	for stem, c := range counts {
		stems = append(stems, stem)
		maxCount = max(maxCount, c)
	}
	sort.Slice(stems, func(i, j int) bool {
		if counts[stems[i]] != counts[stems[j]] {
			return counts[stems[i]] > counts[stems[j]]
		}
		return stems[i] < stems[j]
	})
	if len(stems) > fallbackTerms {
		stems = stems[:fallbackTerms]
	}

	surface := surfaceForms([][]term{terms})
	var out []model.Topic
	for _, stem := range stems {
		score := float64(counts[stem]) / float64(maxCount)
		if score > minTopicScore {
			out = append(out, model.Topic{Topic: surface[stem], Score: score, Type: model.TopicTypePhrase})
		}
	}
	return out
}

// entityTopics scores organisation-like names by their share of mentions.
func (a *TopicAnalyzer) entityTopics(text string) []model.Topic {
	counts := make(map[string]int)
	var order []string
	total := 0
	for _, chunk := range properNounChunks(a.nlp, text) {
		key := strings.ToLower(chunk)
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
		total++
	}
	if total == 0 {
		return nil
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	var out []model.Topic
	for _, key := range order {
		score := float64(counts[key]) / float64(total)
		if score > minTopicScore {
			out = append(out, model.Topic{Topic: key, Score: score, Type: model.TopicTypeEntity})
		}
	}
	return out
}

// mergeTopics dedupes by text (phrases first), sorts by score and keeps the top ten.
func mergeTopics(phrases, entities []model.Topic) []model.Topic {
	seen := make(map[string]bool)
	topics := make([]model.Topic, 0, len(phrases)+len(entities))
	for _, t := range append(append([]model.Topic{}, phrases...), entities...) {
		if t.Topic == "" || seen[t.Topic] {
			continue
		}
		seen[t.Topic] = true
		topics = append(topics, t)
	}
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].Score > topics[j].Score })
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}
