// Package mapping suggests which schema field each uploaded column holds.
//
// Column names and schema descriptors are turned into sparse feature vectors
// (character n-grams plus whole words) and compared with cosine similarity;
// every header is assigned the field with the highest score.
package mapping

import (
	"sort"
	"strings"
	"unicode"

	"failureforward/domain/sample"

	"gonum.org/v1/gonum/floats"
)

// DefaultMinConfidence is the score under which a suggestion is flagged
const DefaultMinConfidence = 0.35

// descriptors are the names each field is commonly recorded under. The
// first entry is always the field label.
var descriptors = map[sample.Field][]string{
	sample.FieldProjectID: {"project id", "project", "proj", "project number", "project code"},
	sample.FieldSampleID:  {"sample id", "sample", "sample name", "id", "strain", "construct", "clone"},
	sample.FieldExpressed: {"expressed", "expression", "expresses"},
	sample.FieldKD:        {"kd", "affinity", "dissociation constant", "k d"},
	sample.FieldSequence:  {"sequence", "seq", "protein sequence", "dna sequence", "aa sequence"},
	sample.FieldSoluble:   {"soluble", "solubility"},
	sample.FieldDate:      {"date", "day", "experiment date", "date run", "timestamp"},
	sample.FieldScientist: {"scientist", "researcher", "person", "owner", "name", "user", "operator"},
	sample.FieldComments:  {"comments", "comment", "notes", "note", "remarks", "description"},
	sample.FieldProtocol:  {"protocol", "method", "procedure", "sop"},
}

// Candidate is one scored target for a header
type Candidate struct {
	Field sample.Field `json:"field"`
	Score float64      `json:"score"`
}

// Suggestion is the proposed target for one uploaded header
type Suggestion struct {
	Header        string       `json:"header"`
	Field         sample.Field `json:"field"`
	Score         float64      `json:"score"`
	LowConfidence bool         `json:"low_confidence"`
	// Ranked holds every schema field, best first
	Ranked []Candidate `json:"ranked"`
}

// Matcher scores headers against the fixed schema
type Matcher struct {
	minConfidence float64
	targets       []target
}

type target struct {
	field    sample.Field
	features []features
}

// NewMatcher creates a matcher; minConfidence <= 0 selects the default
func NewMatcher(minConfidence float64) *Matcher {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	m := &Matcher{minConfidence: minConfidence}
	for _, f := range sample.Schema {
		t := target{field: f}
		for _, d := range descriptors[f] {
			t.features = append(t.features, extract(d))
		}
		m.targets = append(m.targets, t)
	}
	return m
}

// Suggest proposes a field for every header, in header order
func (m *Matcher) Suggest(headers []string) []Suggestion {
	out := make([]Suggestion, len(headers))
	for i, h := range headers {
		out[i] = m.suggest(h)
	}
	return out
}

func (m *Matcher) suggest(header string) Suggestion {
	hf := extract(header)
	ranked := make([]Candidate, len(m.targets))
	for i, t := range m.targets {
		best := 0.0
		for _, df := range t.features {
			if s := cosine(hf, df); s > best {
				best = s
			}
		}
		ranked[i] = Candidate{Field: t.field, Score: best}
	}

	// Stable sort keeps schema order among equal scores.
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Score > ranked[b].Score })

	top := ranked[0]
	return Suggestion{
		Header:        header,
		Field:         top.Field,
		Score:         top.Score,
		LowConfidence: top.Score < m.minConfidence,
		Ranked:        ranked,
	}
}

// Normalize lower-cases a column name and reduces punctuation to single spaces
func Normalize(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

type features map[string]float64

const wordWeight = 2.0

// extract builds character 1-3 grams over the padded normalized name plus
// whole-word features. Grams made only of padding are skipped.
func extract(s string) features {
	norm := Normalize(s)
	out := make(features)
	if norm == "" {
		return out
	}
	padded := []rune(" " + norm + " ")
	for n := 1; n <= 3; n++ {
		for i := 0; i+n <= len(padded); i++ {
			gram := string(padded[i : i+n])
			if strings.TrimSpace(gram) == "" {
				continue
			}
			out["c:"+gram]++
		}
	}
	for _, w := range strings.Fields(norm) {
		out["w:"+w] += wordWeight
	}
	return out
}

// cosine aligns two sparse vectors over their shared vocabulary and
// returns their cosine similarity, 0 when either is empty.
func cosine(a, b features) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	va := make([]float64, len(keys))
	vb := make([]float64, len(keys))
	for i, k := range keys {
		va[i] = a[k]
		vb[i] = b[k]
	}
	na, nb := floats.Norm(va, 2), floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(va, vb) / (na * nb)
}
