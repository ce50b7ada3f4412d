package quiz

import (
	"strconv"
	"strings"

	"github.com/ternarybob/lectio/internal/models"
)

// evaluate judges one submitted value against a question, switching
// exhaustively over the question variant.
//
// Case sensitivity differs by kind on purpose: multiple-choice compares
// option text exactly (the value is a selection, not typed input),
// while short/long answers are typed by the user and compare
// case-insensitively.
func evaluate(q *models.Question, submitted string) (bool, []string) {
	submitted = strings.TrimSpace(submitted)

	switch q.Kind {
	case models.QuestionMultipleChoice:
		if q.MultipleChoice == nil {
			return false, nil
		}
		accepted := resolveChoiceAnswers(q.MultipleChoice)
		if submitted == "" {
			return false, accepted
		}
		for _, a := range accepted {
			if submitted == a {
				return true, accepted
			}
		}
		return false, accepted

	case models.QuestionShortAnswer:
		if q.ShortAnswer == nil {
			return false, nil
		}
		return matchText(submitted, q.ShortAnswer.Accepted), q.ShortAnswer.Accepted

	case models.QuestionLongAnswer:
		if q.LongAnswer == nil {
			return false, nil
		}
		return matchText(submitted, q.LongAnswer.Accepted), q.LongAnswer.Accepted
	}

	return false, nil
}

// resolveChoiceAnswers normalizes the backend's answer encodings to
// option text. Each raw answer is either a zero-based index (decimal
// text) or literal option text; indices resolve through the option
// list, and an index that text resolution cannot place falls back to
// its raw form so index-encoded submissions still compare.
func resolveChoiceAnswers(body *models.MultipleChoiceBody) []string {
	resolved := make([]string, 0, len(body.Answers))
	for _, raw := range body.Answers {
		raw = strings.TrimSpace(raw)
		if idx, err := strconv.Atoi(raw); err == nil {
			if idx >= 0 && idx < len(body.Options) {
				resolved = append(resolved, strings.TrimSpace(body.Options[idx]))
				continue
			}
			// Index outside the option list: keep the raw encoding
			resolved = append(resolved, raw)
			continue
		}
		resolved = append(resolved, raw)
	}
	return resolved
}

// matchText compares typed input against acceptable answers,
// case-insensitively, any match counting as correct. Empty submissions
// are always incorrect.
func matchText(submitted string, accepted []string) bool {
	if submitted == "" {
		return false
	}
	for _, a := range accepted {
		if strings.EqualFold(submitted, strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}
