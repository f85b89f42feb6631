package domain

import "fmt"

// Step is one stage of the checkout wizard. Steps are ordered; the zero value
// is StepSummary.
type Step uint8

const (
	StepSummary Step = iota
	StepContact
	StepShipping
	StepPayment
	StepConfirmation
)

var stepNames = [...]string{
	StepSummary:      "summary",
	StepContact:      "contact",
	StepShipping:     "shipping",
	StepPayment:      "payment",
	StepConfirmation: "confirmation",
}

// Steps returns every step in wizard order.
func Steps() []Step {
	return []Step{StepSummary, StepContact, StepShipping, StepPayment, StepConfirmation}
}

// ParseStep converts a step name into a Step.
func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown checkout step %q", name)
}

// Valid reports whether s is one of the five wizard steps.
func (s Step) Valid() bool {
	return int(s) < len(stepNames)
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Step(%d)", uint8(s))
	}
	return stepNames[s]
}

// Next returns the step after s, or false at the last step.
func (s Step) Next() (Step, bool) {
	if s >= StepConfirmation {
		return s, false
	}
	return s + 1, true
}

// Prev returns the step before s, or false at the first step.
func (s Step) Prev() (Step, bool) {
	if s == StepSummary || !s.Valid() {
		return s, false
	}
	return s - 1, true
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid checkout step %d", uint8(s))
	}
	return []byte(stepNames[s]), nil
}

func (s *Step) UnmarshalText(b []byte) error {
	parsed, err := ParseStep(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
