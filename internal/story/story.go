package story

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Lang is a content language code.
type Lang string

const (
	Hindi   Lang = "hi"
	English Lang = "en"
)

// DefaultLang is what visitors get unless they ask otherwise.
const DefaultLang = Hindi

// ErrStoryNotFound is returned for unknown content refs.
var ErrStoryNotFound = errors.New("story: not found")

// Story is the narrative attached to one checkpoint in one language.
type Story struct {
	Ref          string `yaml:"-" json:"ref"`
	Lang         Lang   `yaml:"-" json:"lang"`
	Title        string `yaml:"title" json:"title"`
	Subtitle     string `yaml:"subtitle" json:"subtitle"`
	Content      string `yaml:"content" json:"content"`
	Significance string `yaml:"significance" json:"significance"`
}

//go:embed stories.yaml
var builtin []byte

// Catalog maps content refs to their stories per language.
type Catalog struct {
	stories map[string]map[Lang]Story
}

// Builtin returns the catalog shipped with the binary.
func Builtin() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("story: builtin catalog: %v", err))
	}
	return c
}

// Parse decodes a YAML catalog keyed by ref, then language.
func Parse(data []byte) (*Catalog, error) {
	raw := make(map[string]map[Lang]Story)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("story: parse: %w", err)
	}
	for ref, byLang := range raw {
		if len(byLang) == 0 {
			return nil, fmt.Errorf("story: %q has no languages", ref)
		}
		for lang, s := range byLang {
			s.Ref = ref
			s.Lang = lang
			byLang[lang] = s
		}
	}
	return &Catalog{stories: raw}, nil
}

// Lookup returns the story for ref in lang, falling back to the default
// language and then to whatever language exists.
func (c *Catalog) Lookup(ref string, lang Lang) (Story, error) {
	byLang, ok := c.stories[ref]
	if !ok {
		return Story{}, fmt.Errorf("%w: %q", ErrStoryNotFound, ref)
	}
	if s, ok := byLang[lang]; ok {
		return s, nil
	}
	if s, ok := byLang[DefaultLang]; ok {
		return s, nil
	}
	langs := make([]string, 0, len(byLang))
	for l := range byLang {
		langs = append(langs, string(l))
	}
	sort.Strings(langs)
	return byLang[Lang(langs[0])], nil
}

// Has reports whether ref has any story.
func (c *Catalog) Has(ref string) bool {
	_, ok := c.stories[ref]
	return ok
}

// Refs lists every content ref, sorted.
func (c *Catalog) Refs() []string {
	refs := make([]string, 0, len(c.stories))
	for ref := range c.stories {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// ParseLang maps a query value to a supported language, or the default.
func ParseLang(s string) Lang {
	switch Lang(s) {
	case Hindi, English:
		return Lang(s)
	default:
		return DefaultLang
	}
}
