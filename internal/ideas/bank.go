// Package ideas provides the idea bank the executor consults when resolving
// a workflow's content spec into a concrete generation request.
package ideas

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/castrove/castrove/internal/castrove"
)

// Idea is one entry in the idea bank.
type Idea struct {
	Slug       string   `json:"slug"`
	Language   string   `json:"language"`
	Hook       string   `json:"hook"`
	Setting    string   `json:"setting,omitempty"`
	Characters string   `json:"characters,omitempty"`
	Action     string   `json:"action,omitempty"`
	Safety     string   `json:"safety,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Bank rotates through a set of ideas. Selection is round-robin so repeated
// runs of the same workflow cycle the whole bank before repeating.
type Bank struct {
	mu     sync.Mutex
	ideas  []Idea
	cursor int
}

// NewBank creates a bank over the given ideas. An empty argument list means
// the built-in bank.
func NewBank(entries ...Idea) *Bank {
	if len(entries) == 0 {
		entries = append([]Idea(nil), builtin...)
	}
	return &Bank{ideas: entries}
}

// Next returns the next idea in rotation.
func (b *Bank) Next() (Idea, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.ideas) == 0 {
		return Idea{}, fmt.Errorf("idea bank is empty")
	}
	idea := b.ideas[b.cursor%len(b.ideas)]
	b.cursor = (b.cursor + 1) % len(b.ideas)
	return idea, nil
}

// BySlug returns the idea with the given slug.
func (b *Bank) BySlug(slug string) (Idea, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, idea := range b.ideas {
		if idea.Slug == slug {
			return idea, true
		}
	}
	return Idea{}, false
}

// Add appends a custom idea to the bank.
func (b *Bank) Add(idea Idea) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ideas = append(b.ideas, idea)
}

// Len returns the number of ideas in the bank.
func (b *Bank) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ideas)
}

// Select resolves a content spec to one idea. When the spec carries a
// selector expression, only matching ideas are eligible; rotation order is
// preserved among them. An empty match set is a selection failure.
func (b *Bank) Select(spec castrove.ContentSpec) (Idea, error) {
	if spec.IdeaSelector == "" {
		return b.Next()
	}

	program, err := CompileSelector(spec.IdeaSelector)
	if err != nil {
		return Idea{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.ideas)
	if n == 0 {
		return Idea{}, fmt.Errorf("idea bank is empty")
	}
	for i := 0; i < n; i++ {
		idea := b.ideas[(b.cursor+i)%n]
		ok, evalErr := matches(program, idea)
		if evalErr != nil {
			return Idea{}, fmt.Errorf("evaluate selector %q: %w", spec.IdeaSelector, evalErr)
		}
		if ok {
			b.cursor = (b.cursor + i + 1) % n
			return idea, nil
		}
	}
	return Idea{}, fmt.Errorf("no idea matches selector %q", spec.IdeaSelector)
}

// Selector is the compiled form of an idea selector expression.
type Selector = vm.Program

// CompileSelector compiles an idea selector expression. The expression sees
// the idea's fields as variables, e.g. `"viral" in tags && language == "en"`.
func CompileSelector(expression string) (*Selector, error) {
	program, err := expr.Compile(expression, expr.Env(ideaEnv(Idea{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", expression, err)
	}
	return program, nil
}

func matches(program *Selector, idea Idea) (bool, error) {
	out, err := expr.Run(program, ideaEnv(idea))
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

func ideaEnv(idea Idea) map[string]any {
	tags := make([]string, len(idea.Tags))
	copy(tags, idea.Tags)
	return map[string]any{
		"slug":       idea.Slug,
		"language":   idea.Language,
		"hook":       idea.Hook,
		"setting":    idea.Setting,
		"characters": idea.Characters,
		"action":     idea.Action,
		"tags":       tags,
	}
}

// Prompt renders the idea as a single director's-brief paragraph block for
// the generation capability.
func (i Idea) Prompt() string {
	var sb strings.Builder
	sb.WriteString(i.Hook)
	if i.Setting != "" {
		sb.WriteString(" Setting: " + i.Setting)
	}
	if i.Characters != "" {
		sb.WriteString(" Characters: " + i.Characters)
	}
	if i.Action != "" {
		sb.WriteString(" Action: " + i.Action)
	}
	if i.Safety != "" {
		sb.WriteString(" Constraints: " + i.Safety)
	}
	return sb.String()
}
