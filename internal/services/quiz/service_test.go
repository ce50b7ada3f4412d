package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
	"github.com/ternarybob/lectio/internal/services/events"
	"github.com/ternarybob/lectio/internal/storage/badger"
)

// fakeGenerationClient returns canned questions, optionally blocking
// until released so tests can hold a generation in flight.
type fakeGenerationClient struct {
	questions []models.Question
	err       error
	block     chan struct{}
}

func (f *fakeGenerationClient) GenerateQuestions(ctx context.Context, name string, data []byte) (*interfaces.GeneratedQuestions, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &interfaces.GeneratedQuestions{JobID: "job-1", Questions: f.questions}, nil
}

func (f *fakeGenerationClient) SendChat(ctx context.Context, chatID, message string) error {
	return nil
}

func (f *fakeGenerationClient) SuggestVideos(ctx context.Context, name string, data []byte) ([]models.VideoSuggestion, error) {
	return nil, nil
}

func (f *fakeGenerationClient) StreamURL(chatID string) string {
	return "http://localhost:5000/api/chat/stream/" + chatID
}

func twoQuestions() []models.Question {
	return []models.Question{
		{
			ID:   "q1",
			Kind: models.QuestionMultipleChoice,
			Prompt: "Which option?",
			MultipleChoice: &models.MultipleChoiceBody{
				Options: []string{"A", "B", "C"},
				Answers: []string{"1"},
			},
		},
		{
			ID:          "q2",
			Kind:        models.QuestionShortAnswer,
			Prompt:      "State the law",
			ShortAnswer: &models.ShortAnswerBody{Accepted: []string{"inertia"}},
		},
	}
}

func newTestService(t *testing.T, client interfaces.GenerationClient) *Service {
	t.Helper()

	logger := arbor.NewLogger()
	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	return NewService(client, manager.QuizStorage(), manager.AnswerStorage(), events.NewService(logger), logger)
}

func TestGenerateAndGetQuiz(t *testing.T) {
	svc := newTestService(t, &fakeGenerationClient{questions: twoQuestions()})
	ctx := context.Background()

	quiz, err := svc.GenerateQuiz(ctx, "doc-1", "mechanics.pdf", []byte("pdf bytes"))
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 2)

	got, err := svc.GetQuiz(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, quiz.ID, got.ID)

	missing, err := svc.GetQuiz(ctx, "doc-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSubmitAllCorrectScoresFull(t *testing.T) {
	svc := newTestService(t, &fakeGenerationClient{questions: twoQuestions()})
	ctx := context.Background()

	_, err := svc.GenerateQuiz(ctx, "doc-1", "doc.pdf", []byte("bytes"))
	require.NoError(t, err)

	score, err := svc.SubmitAnswers(ctx, "doc-1", map[string]string{
		"q1": "B",
		"q2": "Inertia",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, score.CorrectCount)
	assert.Equal(t, 2, score.TotalCount)

	persisted, err := svc.ScoreFor(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, 2, persisted.CorrectCount)
}

func TestResubmissionRequiresClear(t *testing.T) {
	svc := newTestService(t, &fakeGenerationClient{questions: twoQuestions()})
	ctx := context.Background()

	_, err := svc.GenerateQuiz(ctx, "doc-1", "doc.pdf", []byte("bytes"))
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(ctx, "doc-1", map[string]string{"q1": "A", "q2": "wrong"})
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(ctx, "doc-1", map[string]string{"q1": "B", "q2": "inertia"})
	assert.ErrorIs(t, err, interfaces.ErrAlreadySubmitted)

	require.NoError(t, svc.ClearAttempt(ctx, "doc-1"))

	score, err := svc.SubmitAnswers(ctx, "doc-1", map[string]string{"q1": "B", "q2": "inertia"})
	require.NoError(t, err)
	assert.Equal(t, 2, score.CorrectCount, "clear-then-resubmit overwrites the prior score")
}

func TestUnansweredQuestionsAreIncorrect(t *testing.T) {
	svc := newTestService(t, &fakeGenerationClient{questions: twoQuestions()})
	ctx := context.Background()

	_, err := svc.GenerateQuiz(ctx, "doc-1", "doc.pdf", []byte("bytes"))
	require.NoError(t, err)

	score, err := svc.SubmitAnswers(ctx, "doc-1", map[string]string{"q1": "B"})
	require.NoError(t, err)
	assert.Equal(t, 1, score.CorrectCount)
	assert.Equal(t, 2, score.TotalCount)

	records, err := svc.AnswersFor(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, records, 2, "every question gets a record")
}

func TestConcurrentGenerationForSameSourceRejected(t *testing.T) {
	client := &fakeGenerationClient{questions: twoQuestions(), block: make(chan struct{})}
	svc := newTestService(t, client)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.GenerateQuiz(ctx, "doc-1", "doc.pdf", []byte("bytes"))
		done <- err
	}()

	// Wait until the first call registers as in flight
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		_, busy := svc.inFlight["doc-1"]
		return busy
	}, 2*time.Second, time.Millisecond)

	_, err := svc.GenerateQuiz(ctx, "doc-1", "doc.pdf", []byte("bytes"))
	assert.ErrorIs(t, err, interfaces.ErrGenerationInFlight)

	close(client.block)
	require.NoError(t, <-done)
}

func TestGenerationWritesUnderOriginalSource(t *testing.T) {
	// The active source switching mid-flight must not redirect the
	// write; generation is keyed by the sourceID the call started with.
	client := &fakeGenerationClient{questions: twoQuestions(), block: make(chan struct{})}
	svc := newTestService(t, client)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.GenerateQuiz(ctx, "doc-3", "doc3.pdf", []byte("bytes"))
		done <- err
	}()

	// "doc-4" becomes active elsewhere; release the in-flight generation
	close(client.block)
	require.NoError(t, <-done)

	populated, err := svc.GetQuiz(ctx, "doc-3")
	require.NoError(t, err)
	require.NotNil(t, populated, "result lands under the originating source")

	other, err := svc.GetQuiz(ctx, "doc-4")
	require.NoError(t, err)
	assert.Nil(t, other, "unrelated source unaffected")
}

func TestGenerationReplacesQuizAndClearsAttempt(t *testing.T) {
	svc := newTestService(t, &fakeGenerationClient{questions: twoQuestions()})
	ctx := context.Background()

	_, err := svc.GenerateQuiz(ctx, "doc-1", "doc.pdf", []byte("bytes"))
	require.NoError(t, err)
	_, err = svc.SubmitAnswers(ctx, "doc-1", map[string]string{"q1": "B", "q2": "inertia"})
	require.NoError(t, err)

	// Regeneration replaces the quiz and invalidates the old attempt
	regenerated, err := svc.GenerateQuiz(ctx, "doc-1", "doc.pdf", []byte("bytes"))
	require.NoError(t, err)
	require.NotNil(t, regenerated)

	score, err := svc.ScoreFor(ctx, "doc-1")
	require.NoError(t, err)
	assert.Nil(t, score)

	_, err = svc.SubmitAnswers(ctx, "doc-1", map[string]string{"q1": "B", "q2": "inertia"})
	require.NoError(t, err, "fresh quiz accepts a fresh attempt")
}
