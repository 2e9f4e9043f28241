// Package qa verifies that fetched items belong to the target person and
// classifies a batch into approved, updated, unchanged and rejected items.
package qa

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/profile-cli/internal/normalize"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Lexicon holds the keyword vocabularies used by the verifier.
type Lexicon struct {
	Positive []string            `yaml:"positive"`
	Negative map[string][]string `yaml:"negative"`

	positive   []term
	categories []category
}

type category struct {
	name  string
	terms []term
}

type term struct {
	norm string
	cjk  bool
}

// DefaultLexicon returns the embedded lexicon.
func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexicon)
}

// LoadLexicon reads a lexicon file. An empty path selects the embedded one.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "qa: read lexicon %s", path)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes YAML and prepares the terms for matching.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, eris.Wrap(err, "qa: parse lexicon")
	}
	if len(lex.Positive) == 0 && len(lex.Negative) == 0 {
		return nil, eris.New("qa: lexicon has no terms")
	}
	lex.positive = compile(lex.Positive)

	names := make([]string, 0, len(lex.Negative))
	for name := range lex.Negative {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lex.categories = append(lex.categories, category{name: name, terms: compile(lex.Negative[name])})
	}
	return &lex, nil
}

func compile(raw []string) []term {
	out := make([]term, 0, len(raw))
	for _, r := range raw {
		n := normalize.Name(r)
		if n == "" {
			continue
		}
		out = append(out, term{norm: n, cjk: normalize.HasCJK(n)})
	}
	return out
}

// text is an item's searchable text prepared once per verification.
type text struct {
	norm   string
	padded string
}

func newText(s string) text {
	n := normalize.Name(s)
	return text{norm: n, padded: " " + n + " "}
}

func (t text) has(tm term) bool {
	if tm.cjk {
		return strings.Contains(t.norm, tm.norm)
	}
	return strings.Contains(t.padded, " "+tm.norm+" ")
}

func (t text) hasAny(terms []term) bool {
	for _, tm := range terms {
		if t.has(tm) {
			return true
		}
	}
	return false
}

// hasPhrase matches a free-form phrase such as an organization name.
func (t text) hasPhrase(s string) bool {
	return t.hasAny(compile([]string{s}))
}

// positiveMatch reports whether any positive term occurs.
func (l *Lexicon) positiveMatch(t text) bool {
	return t.hasAny(l.positive)
}

// negativeMatch returns the first matching negative category in name order.
func (l *Lexicon) negativeMatch(t text) (string, bool) {
	for _, c := range l.categories {
		if t.hasAny(c.terms) {
			return c.name, true
		}
	}
	return "", false
}
