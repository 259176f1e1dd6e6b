package domain

import (
	"errors"
	"fmt"
)

// StepKind selects how a step is rendered and how the runtime treats input on it.
type StepKind string

const (
	StepOpening       StepKind = "opening"
	StepSingleChoice  StepKind = "single_choice"
	StepMultiChoice   StepKind = "multi_choice"
	StepInformational StepKind = "informational"
	StepLeadForm      StepKind = "lead_form"
	StepAutoAdvance   StepKind = "auto_advance"
)

// Step is one screen of a quiz funnel.
type Step struct {
	ID              string   `json:"id" yaml:"id"`
	Kind            StepKind `json:"kind" yaml:"kind"`
	Category        string   `json:"category,omitempty" yaml:"category"`
	Title           string   `json:"title,omitempty" yaml:"title"`
	Subtitle        string   `json:"subtitle,omitempty" yaml:"subtitle"`
	Question        string   `json:"question,omitempty" yaml:"question"`
	Text            string   `json:"text,omitempty" yaml:"text"`
	Options         []string `json:"options,omitempty" yaml:"options"`
	MultiSelect     bool     `json:"-" yaml:"multiSelect"`
	MaxSelections   int      `json:"max_selections,omitempty" yaml:"maxSelections"`
	Image           string   `json:"image,omitempty" yaml:"image"`
	ComparisonImage string   `json:"comparison_image,omitempty" yaml:"comparisonImage"`
	Benefits        []string `json:"benefits,omitempty" yaml:"benefits"`
	Price           string   `json:"price,omitempty" yaml:"price"`
	CTA             string   `json:"cta,omitempty" yaml:"cta"`
}

// HasOption reports whether option is offered by the step.
func (s Step) HasOption(option string) bool {
	for _, o := range s.Options {
		if o == option {
			return true
		}
	}
	return false
}

// AcceptsSelection reports whether the step takes option selections.
func (s Step) AcceptsSelection() bool {
	return s.Kind == StepSingleChoice || s.Kind == StepMultiChoice
}

// Prompt is the text recorded next to an answer.
func (s Step) Prompt() string {
	if s.Question != "" {
		return s.Question
	}
	return s.ID
}

// InferKind derives the kind from populated fields for definitions that do not declare
// one explicitly.
func (s Step) InferKind() StepKind {
	switch {
	case s.Kind != "":
		return s.Kind
	case len(s.Options) > 0 && s.MultiSelect:
		return StepMultiChoice
	case len(s.Options) > 0:
		return StepSingleChoice
	case len(s.Benefits) > 0 || s.CTA != "":
		return StepLeadForm
	case s.ID == "loading":
		return StepAutoAdvance
	case s.ID == "opening":
		return StepOpening
	default:
		return StepInformational
	}
}

// Testimonial is a quote shown alongside a quiz.
type Testimonial struct {
	Text   string `json:"text" yaml:"text"`
	Author string `json:"author" yaml:"author"`
}

// QuizTemplate is the static definition of one funnel.
type QuizTemplate struct {
	Slug         string        `json:"slug" yaml:"slug"`
	Title        string        `json:"title" yaml:"title"`
	Description  string        `json:"description" yaml:"description"`
	Steps        []Step        `json:"steps" yaml:"questions"`
	Order        []string      `json:"order" yaml:"questionOrder"`
	Testimonials []Testimonial `json:"testimonials,omitempty" yaml:"testimonials"`

	index map[string]int
	steps map[string]int
}

// Prepare infers missing step kinds and builds the lookup tables. It must be called
// before the template is used; Validate calls it.
func (t *QuizTemplate) Prepare() {
	// Copies of a template share the Steps backing array.
	t.Steps = append([]Step(nil), t.Steps...)
	t.steps = make(map[string]int, len(t.Steps))
	for i := range t.Steps {
		t.Steps[i].Kind = t.Steps[i].InferKind()
		if t.Steps[i].Kind == StepMultiChoice && t.Steps[i].MaxSelections == 0 {
			t.Steps[i].MaxSelections = len(t.Steps[i].Options)
		}
		t.Steps[i].MultiSelect = t.Steps[i].Kind == StepMultiChoice
		if _, dup := t.steps[t.Steps[i].ID]; !dup {
			t.steps[t.Steps[i].ID] = i
		}
	}
	t.index = make(map[string]int, len(t.Order))
	for i, id := range t.Order {
		if _, dup := t.index[id]; !dup {
			t.index[id] = i
		}
	}
}

// Validate checks the template invariants and prepares the lookup tables.
func (t *QuizTemplate) Validate() error {
	t.Prepare()

	var errs []error
	if t.Slug == "" {
		errs = append(errs, errors.New("slug is required"))
	}
	if len(t.Order) == 0 {
		errs = append(errs, errors.New("question order is empty"))
	}
	seenSteps := make(map[string]bool, len(t.Steps))
	for _, s := range t.Steps {
		if s.ID == "" {
			errs = append(errs, errors.New("step without id"))
			continue
		}
		if seenSteps[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate step id %q", s.ID))
		}
		seenSteps[s.ID] = true
		if err := validateStepShape(s); err != nil {
			errs = append(errs, err)
		}
	}
	seenOrder := make(map[string]bool, len(t.Order))
	for _, id := range t.Order {
		if seenOrder[id] {
			errs = append(errs, fmt.Errorf("duplicate id %q in question order", id))
		}
		seenOrder[id] = true
		if !seenSteps[id] {
			errs = append(errs, fmt.Errorf("question order references unknown step %q", id))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("template %q: %w", t.Slug, errors.Join(errs...))
	}
	return nil
}

func validateStepShape(s Step) error {
	switch s.Kind {
	case StepSingleChoice:
		if len(s.Options) == 0 {
			return fmt.Errorf("step %q: single choice without options", s.ID)
		}
	case StepMultiChoice:
		if len(s.Options) == 0 {
			return fmt.Errorf("step %q: multi choice without options", s.ID)
		}
		if s.MaxSelections < 1 {
			return fmt.Errorf("step %q: max selections must be at least 1", s.ID)
		}
	case StepOpening, StepInformational, StepLeadForm, StepAutoAdvance:
		if len(s.Options) > 0 {
			return fmt.Errorf("step %q: %s step cannot carry options", s.ID, s.Kind)
		}
	default:
		return fmt.Errorf("step %q: unknown kind %q", s.ID, s.Kind)
	}
	return nil
}

// TotalSteps is the length of the traversal order.
func (t *QuizTemplate) TotalSteps() int {
	return len(t.Order)
}

// StepAt returns the step at position index of the traversal order.
func (t *QuizTemplate) StepAt(index int) (Step, bool) {
	if index < 0 || index >= len(t.Order) {
		return Step{}, false
	}
	return t.Step(t.Order[index])
}

// Step looks up a step definition by id.
func (t *QuizTemplate) Step(id string) (Step, bool) {
	if t.steps == nil {
		t.Prepare()
	}
	i, ok := t.steps[id]
	if !ok {
		return Step{}, false
	}
	return t.Steps[i], true
}

// IndexOf returns the position of stepID in the traversal order, or -1.
func (t *QuizTemplate) IndexOf(stepID string) int {
	if t.index == nil {
		t.Prepare()
	}
	if i, ok := t.index[stepID]; ok {
		return i
	}
	return -1
}
