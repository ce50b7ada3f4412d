package generation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
)

func TestNormalizeQuestions(t *testing.T) {
	logger := arbor.NewLogger()

	tests := []struct {
		name      string
		payload   uploadResponse
		wantCount int
		wantErr   bool
	}{
		{
			name: "full set of all kinds",
			payload: uploadResponse{
				JobID: "job-1",
				Questions: []rawQuestion{
					{ID: "q1", Type: "mcq", Question: "Pick one", Options: []string{"A", "B"}, Answer: json.RawMessage(`1`)},
					{ID: "q2", Type: "saq", Question: "Short?", Answer: json.RawMessage(`"yes"`)},
					{ID: "q3", Type: "laq", Question: "Discuss.", ExpectedPoints: []string{"p1", "p2"}},
				},
			},
			wantCount: 3,
		},
		{
			name: "malformed questions skipped, good ones kept",
			payload: uploadResponse{
				Questions: []rawQuestion{
					{Type: "mcq", Question: ""},       // no prompt
					{Type: "essay", Question: "huh"},  // unknown kind
					{Type: "saq", Question: "Valid?"}, // missing answer is defaulted, not fatal
				},
			},
			wantCount: 1,
		},
		{
			name: "fully malformed response rejected",
			payload: uploadResponse{
				Questions: []rawQuestion{
					{Type: "mcq"},
					{Type: "unknown", Question: ""},
				},
			},
			wantErr: true,
		},
		{
			name:    "empty response rejected",
			payload: uploadResponse{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := normalizeQuestions(tt.payload, logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, interfaces.ErrGeneration)
				return
			}
			require.NoError(t, err)
			assert.Len(t, result.Questions, tt.wantCount)
		})
	}
}

func TestNormalizeQuestionKinds(t *testing.T) {
	q, ok := normalizeQuestion(rawQuestion{
		ID:       "q1",
		Type:     "MCQ",
		Question: " Which unit measures force? ",
		Options:  []string{"Newton", "Joule", "Watt"},
		Answer:   json.RawMessage(`0`),
	})
	require.True(t, ok)
	assert.Equal(t, models.QuestionMultipleChoice, q.Kind)
	assert.Equal(t, "Which unit measures force?", q.Prompt)
	require.NotNil(t, q.MultipleChoice)
	assert.Equal(t, []string{"0"}, q.MultipleChoice.Answers)
	assert.Nil(t, q.ShortAnswer)

	q, ok = normalizeQuestion(rawQuestion{Type: "laq", Question: "Explain inertia", ExpectedPoints: []string{"mass", "velocity"}})
	require.True(t, ok)
	assert.Equal(t, models.QuestionLongAnswer, q.Kind)
	require.NotNil(t, q.LongAnswer)
	assert.Equal(t, []string{"mass", "velocity"}, q.LongAnswer.ExpectedPoints)
	assert.NotEmpty(t, q.ID, "missing backend id gets generated")
}

func TestDecodeAnswers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"string", `"B"`, []string{"B"}},
		{"index", `1`, []string{"1"}},
		{"mixed array", `[1, "C"]`, []string{"1", "C"}},
		{"absent", ``, nil},
		{"null", `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.raw != "" {
				raw = json.RawMessage(tt.raw)
			}
			assert.Equal(t, tt.want, decodeAnswers(raw))
		})
	}
}
