package generation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
)

var validate = validator.New()

// normalizeQuestions converts the backend's loosely-typed payload into
// the typed Question variants. Malformed fields are defaulted rather
// than fatal, so a response with some bad questions still yields the
// well-formed ones. A response with zero usable questions is rejected.
func normalizeQuestions(payload uploadResponse, logger arbor.ILogger) (*interfaces.GeneratedQuestions, error) {
	questions := make([]models.Question, 0, len(payload.Questions))

	for i, raw := range payload.Questions {
		q, ok := normalizeQuestion(raw)
		if !ok {
			logger.Warn().
				Int("index", i).
				Str("type", raw.Type).
				Msg("Skipping malformed question in generation response")
			continue
		}
		if err := validate.Struct(&q); err != nil {
			logger.Warn().Err(err).Int("index", i).Msg("Skipping invalid question in generation response")
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: response contained no usable questions", interfaces.ErrGeneration)
	}

	return &interfaces.GeneratedQuestions{
		JobID:     payload.JobID,
		Questions: questions,
		Partial:   payload.Partial,
	}, nil
}

func normalizeQuestion(raw rawQuestion) (models.Question, bool) {
	prompt := strings.TrimSpace(raw.Question)
	if prompt == "" {
		return models.Question{}, false
	}

	id := raw.ID
	if id == "" {
		id = common.NewQuizID()
	}

	q := models.Question{
		ID:         id,
		Prompt:     prompt,
		SourcePage: raw.SourcePage,
	}

	answers := decodeAnswers(raw.Answer)

	switch strings.ToLower(strings.TrimSpace(raw.Type)) {
	case "mcq", "multiple-choice":
		q.Kind = models.QuestionMultipleChoice
		q.MultipleChoice = &models.MultipleChoiceBody{
			Options: raw.Options, // absent options stay nil
			Answers: answers,
		}
	case "saq", "short-answer":
		q.Kind = models.QuestionShortAnswer
		q.ShortAnswer = &models.ShortAnswerBody{
			Accepted: answers,
		}
	case "laq", "long-answer":
		q.Kind = models.QuestionLongAnswer
		q.LongAnswer = &models.LongAnswerBody{
			ExpectedPoints: raw.ExpectedPoints,
			Accepted:       answers,
		}
	default:
		return models.Question{}, false
	}

	return q, true
}

// decodeAnswers accepts the backend's three answer encodings: a single
// string, a number (zero-based option index), or an array of either.
// All are flattened to strings; the evaluator resolves indices against
// option text at scoring time.
func decodeAnswers(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return []string{strconv.Itoa(int(number))}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, decodeAnswers(item)...)
		}
		return out
	}

	return nil
}
