package ir

// Outcome is the tri-state result of running an extractor on a block.
type Outcome int

const (
	// OutcomeNotApplicable means the block is not the extractor's concern.
	OutcomeNotApplicable Outcome = iota
	// OutcomeSuccess carries a value, possibly with issues.
	OutcomeSuccess
	// OutcomeFailure carries issues and no value.
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	}
	return "not_applicable"
}

// ExtractionResult is the outcome of extracting one definition of type T.
// The zero value is NotApplicable.
type ExtractionResult[T Definition] struct {
	outcome Outcome
	value   T
	issues  []ValidationIssue
}

// Success returns a result carrying value. A value with Error issues is a
// best-effort partial definition and does not count as IsSuccess.
func Success[T Definition](value T, issues []ValidationIssue) ExtractionResult[T] {
	return ExtractionResult[T]{outcome: OutcomeSuccess, value: value, issues: issues}
}

// Failure returns a result with no value.
func Failure[T Definition](issues []ValidationIssue) ExtractionResult[T] {
	return ExtractionResult[T]{outcome: OutcomeFailure, issues: issues}
}

// NotApplicable returns a result for a block the extractor does not handle.
func NotApplicable[T Definition]() ExtractionResult[T] {
	return ExtractionResult[T]{}
}

// Outcome returns which of the three states the result is in.
func (r ExtractionResult[T]) Outcome() Outcome { return r.outcome }

// Value returns the extracted definition and whether one is present.
func (r ExtractionResult[T]) Value() (T, bool) {
	return r.value, r.outcome == OutcomeSuccess
}

// Issues returns the issues attached to the result.
func (r ExtractionResult[T]) Issues() []ValidationIssue { return r.issues }

// IsSuccess holds iff a value is present and no issue has Error severity.
func (r ExtractionResult[T]) IsSuccess() bool {
	return r.outcome == OutcomeSuccess && !HasErrors(r.issues)
}

// IsApplicable reports whether the extractor claimed the block.
func (r ExtractionResult[T]) IsApplicable() bool {
	return r.outcome != OutcomeNotApplicable
}

// Erase converts a typed result into one over the Definition interface.
func Erase[T Definition](r ExtractionResult[T]) ExtractionResult[Definition] {
	out := ExtractionResult[Definition]{outcome: r.outcome, issues: r.issues}
	if r.outcome == OutcomeSuccess {
		out.value = r.value
	}
	return out
}
