// Package bank holds the static question bank: the ordered fixed-mode stage
// definitions and the adaptive-mode stage tags. It is loaded once and never
// mutated.
package bank

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Choice is one selectable answer of a stage.
type Choice struct {
	Text     string  `koanf:"text" json:"text"`
	Category string  `koanf:"category" json:"category"`
	Weight   float64 `koanf:"weight" json:"weight"`
}

// Stage is a single fixed-mode assessment step.
type Stage struct {
	ID      string   `koanf:"id" json:"id"`
	Title   string   `koanf:"title" json:"title"`
	Icon    string   `koanf:"icon" json:"icon"`
	Prompt  string   `koanf:"prompt" json:"prompt"`
	Choices []Choice `koanf:"choices" json:"choices"`

	// FreeText stages take a typed answer instead of a choice.
	FreeText bool `koanf:"free_text" json:"freeText"`
}

// Bank is the immutable question bank.
type Bank struct {
	stages   []Stage
	adaptive []string
}

// New builds a Bank from stage definitions and adaptive stage tags,
// validating both.
func New(stages []Stage, adaptiveStages []string) (*Bank, error) {
	if err := validate(stages, adaptiveStages); err != nil {
		return nil, err
	}
	return &Bank{
		stages:   append([]Stage(nil), stages...),
		adaptive: append([]string(nil), adaptiveStages...),
	}, nil
}

// Default returns the built-in bank.
func Default() *Bank {
	b, err := New(seedStages(), seedAdaptiveStages())
	if err != nil {
		panic(fmt.Sprintf("built-in question bank is invalid: %v", err))
	}
	return b
}

// file layout of a YAML bank.
type document struct {
	Stages         []Stage  `koanf:"stages"`
	AdaptiveStages []string `koanf:"adaptive_stages"`
}

// Load reads a YAML bank from path. A missing adaptive_stages list falls back
// to the built-in tags.
func Load(path string) (*Bank, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read question bank %s: %w", path, err)
	}
	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode question bank %s: %w", path, err)
	}
	if len(doc.AdaptiveStages) == 0 {
		doc.AdaptiveStages = seedAdaptiveStages()
	}
	return New(doc.Stages, doc.AdaptiveStages)
}

// Len returns the number of fixed stages.
func (b *Bank) Len() int { return len(b.stages) }

// Stage returns the fixed stage at index i.
func (b *Bank) Stage(i int) (Stage, bool) {
	if i < 0 || i >= len(b.stages) {
		return Stage{}, false
	}
	return b.stages[i], true
}

// Stages returns a copy of all fixed stages in order.
func (b *Bank) Stages() []Stage {
	return append([]Stage(nil), b.stages...)
}

// AdaptiveLen returns the number of adaptive stages.
func (b *Bank) AdaptiveLen() int { return len(b.adaptive) }

// AdaptiveStage returns the adaptive stage tag at index i.
func (b *Bank) AdaptiveStage(i int) (string, bool) {
	if i < 0 || i >= len(b.adaptive) {
		return "", false
	}
	return b.adaptive[i], true
}

// AdaptiveStages returns a copy of the adaptive stage tags.
func (b *Bank) AdaptiveStages() []string {
	return append([]string(nil), b.adaptive...)
}
