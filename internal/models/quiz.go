package models

import "time"

// QuestionKind discriminates the question variant
type QuestionKind string

const (
	QuestionMultipleChoice QuestionKind = "mcq"
	QuestionShortAnswer    QuestionKind = "saq"
	QuestionLongAnswer     QuestionKind = "laq"
)

// Valid reports whether the kind is one of the known variants
func (k QuestionKind) Valid() bool {
	switch k {
	case QuestionMultipleChoice, QuestionShortAnswer, QuestionLongAnswer:
		return true
	}
	return false
}

// Question is a tagged variant: Kind selects which of the per-kind
// payloads is populated. Questions are immutable once generated.
type Question struct {
	ID         string       `json:"id"`
	Kind       QuestionKind `json:"kind"`
	Prompt     string       `json:"prompt" validate:"required"`
	SourcePage int          `json:"source_page,omitempty"`

	MultipleChoice *MultipleChoiceBody `json:"multiple_choice,omitempty"`
	ShortAnswer    *ShortAnswerBody    `json:"short_answer,omitempty"`
	LongAnswer     *LongAnswerBody     `json:"long_answer,omitempty"`
}

// MultipleChoiceBody carries the ordered options and the correct answer.
// Answers holds the raw acceptable encodings from the backend: each entry
// is either a zero-based option index (as decimal text) or literal option
// text. The evaluator normalizes both to option text before comparing.
type MultipleChoiceBody struct {
	Options []string `json:"options"`
	Answers []string `json:"answers"`
}

// ShortAnswerBody carries one or more acceptable answer strings.
type ShortAnswerBody struct {
	Accepted []string `json:"accepted"`
}

// LongAnswerBody carries the points a full answer is expected to cover.
// Accepted is populated when the backend supplies a model answer.
type LongAnswerBody struct {
	ExpectedPoints []string `json:"expected_points,omitempty"`
	Accepted       []string `json:"accepted,omitempty"`
}

// Quiz is the generated question set for one source. At most one quiz
// exists per source; regeneration replaces it.
type Quiz struct {
	ID        string     `json:"id"`
	SourceID  string     `json:"source_id" badgerhold:"key"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	// Partial signals the backend could not produce a full set.
	// Non-fatal; the well-formed questions still render.
	Partial   bool      `json:"partial,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AnswerRecord is one submitted response plus its correctness verdict.
// Keyed by (SourceID, QuestionID); overwritten as a set on submission,
// never partially updated.
type AnswerRecord struct {
	SourceID              string    `json:"source_id" badgerhold:"index"`
	QuestionID            string    `json:"question_id"`
	Value                 string    `json:"value"`
	IsCorrect             bool      `json:"is_correct"`
	CorrectAnswerSnapshot []string  `json:"correct_answer_snapshot,omitempty"`
	SubmittedAt           time.Time `json:"submitted_at"`
}

// Score is the persisted aggregate for one quiz attempt
type Score struct {
	SourceID     string    `json:"source_id" badgerhold:"key"`
	CorrectCount int       `json:"correct_count"`
	TotalCount   int       `json:"total_count"`
	SubmittedAt  time.Time `json:"submitted_at"`
}
