package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrEmptyCatalog = errors.New("strategy catalog has no prompts")
var ErrUnknownCategory = errors.New("unknown strategy category")

//go:embed strategies.json
var defaultStrategies []byte

type Category string

const (
	CategoryPhilosophical Category = "philosophical"
	CategorySoundscape    Category = "soundscape"
	CategoryCompositional Category = "compositional"
	CategoryExperimental  Category = "experimental"
	CategoryPerformance   Category = "performance"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryPhilosophical,
	CategorySoundscape,
	CategoryCompositional,
	CategoryExperimental,
	CategoryPerformance,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// DrawKey identifies one (category, prompt) pair within a game.
type DrawKey string

func NewDrawKey(c Category, prompt string) DrawKey {
	return DrawKey(string(c) + "-" + prompt)
}

// Split reverses NewDrawKey. Category labels never contain '-', so the first
// separator is the boundary.
func (k DrawKey) Split() (Category, string, bool) {
	cat, prompt, ok := strings.Cut(string(k), "-")
	if !ok || !Category(cat).Valid() {
		return "", "", false
	}
	return Category(cat), prompt, true
}

type Pair struct {
	Category Category `json:"category"`
	Prompt   string   `json:"prompt"`
}

func (p Pair) Key() DrawKey { return NewDrawKey(p.Category, p.Prompt) }

// Catalog maps each category to its ordered prompts. It is never mutated after New.
type Catalog struct {
	prompts map[Category][]string
}

// New validates the mapping and copies it. Blank prompts are dropped.
func New(prompts map[Category][]string) (*Catalog, error) {
	c := &Catalog{prompts: make(map[Category][]string, len(prompts))}
	total := 0
	for cat, list := range prompts {
		if !cat.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
		}
		kept := make([]string, 0, len(list))
		for _, p := range list {
			if p = strings.TrimSpace(p); p != "" {
				kept = append(kept, p)
			}
		}
		c.prompts[cat] = kept
		total += len(kept)
	}
	if total == 0 {
		return nil, ErrEmptyCatalog
	}
	return c, nil
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultStrategies))
}

func Load(r io.Reader) (*Catalog, error) {
	var raw map[Category][]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(raw)
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Prompts returns a copy of the prompts for one category.
func (c *Catalog) Prompts(cat Category) []string {
	return append([]string(nil), c.prompts[cat]...)
}

// Pairs enumerates every (category, prompt) in category order, then prompt order.
func (c *Catalog) Pairs() []Pair {
	pairs := make([]Pair, 0, c.Size())
	for _, cat := range Categories {
		for _, p := range c.prompts[cat] {
			pairs = append(pairs, Pair{Category: cat, Prompt: p})
		}
	}
	return pairs
}

func (c *Catalog) Size() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, list := range c.prompts {
		n += len(list)
	}
	return n
}

// Contains reports whether key names a pair in this catalog.
func (c *Catalog) Contains(key DrawKey) bool {
	cat, prompt, ok := key.Split()
	if !ok {
		return false
	}
	for _, p := range c.prompts[cat] {
		if p == prompt {
			return true
		}
	}
	return false
}
