package badger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()

	logger := arbor.NewLogger()
	manager, err := NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create storage manager: %v", err)
	}
	t.Cleanup(func() {
		manager.Close()
	})
	return manager
}

func TestBlobRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	blobs := manager.BlobStorage()
	ctx := context.Background()

	payloads := map[string][]byte{
		"empty": {},
		"small": []byte("hello pdf"),
		"large": bytes.Repeat([]byte{0xAB}, 11*1024*1024), // >10MB
	}

	for key, data := range payloads {
		if err := blobs.Put(ctx, key, key+".pdf", data); err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
		got, err := blobs.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", key, err)
		}
		if !bytes.Equal(got.Bytes, data) {
			t.Errorf("Get(%s) returned %d bytes, want %d identical bytes", key, len(got.Bytes), len(data))
		}
		if got.Name != key+".pdf" {
			t.Errorf("Get(%s) name = %q", key, got.Name)
		}
	}

	list, err := blobs.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != len(payloads) {
		t.Errorf("List returned %d blobs, want %d", len(list), len(payloads))
	}
}

func TestBlobPutOverwrites(t *testing.T) {
	manager := newTestManager(t)
	blobs := manager.BlobStorage()
	ctx := context.Background()

	if err := blobs.Put(ctx, "doc", "v1.pdf", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Put(ctx, "doc", "v2.pdf", []byte("second")); err != nil {
		t.Fatal(err)
	}

	got, err := blobs.Get(ctx, "doc")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Bytes) != "second" || got.Name != "v2.pdf" {
		t.Errorf("expected overwrite, got name=%q bytes=%q", got.Name, got.Bytes)
	}
}

func TestBlobDeleteIdempotent(t *testing.T) {
	manager := newTestManager(t)
	blobs := manager.BlobStorage()
	ctx := context.Background()

	if err := blobs.Put(ctx, "doc", "doc.pdf", []byte("data")); err != nil {
		t.Fatal(err)
	}

	// First delete removes, second is a no-op success
	if err := blobs.Delete(ctx, "doc"); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := blobs.Delete(ctx, "doc"); err != nil {
		t.Fatalf("second delete should be a no-op success, got: %v", err)
	}

	if _, err := blobs.Get(ctx, "doc"); err != interfaces.ErrBlobNotFound {
		t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
	}
}

func TestQuizReplacePerSource(t *testing.T) {
	manager := newTestManager(t)
	quizzes := manager.QuizStorage()
	ctx := context.Background()

	first := &models.Quiz{ID: "quiz_1", SourceID: "src-1", Title: "first", Questions: []models.Question{{ID: "q1", Kind: models.QuestionShortAnswer, Prompt: "?"}}}
	if err := quizzes.SaveQuiz(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := &models.Quiz{ID: "quiz_2", SourceID: "src-1", Title: "second"}
	if err := quizzes.SaveQuiz(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := quizzes.GetQuiz(ctx, "src-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "quiz_2" {
		t.Errorf("expected replacement quiz, got %s", got.ID)
	}

	list, err := quizzes.ListQuizzes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("one quiz per source expected, got %d", len(list))
	}
}

func TestAnswerStorageBySource(t *testing.T) {
	manager := newTestManager(t)
	answers := manager.AnswerStorage()
	ctx := context.Background()

	records := []models.AnswerRecord{
		{SourceID: "src-1", QuestionID: "q1", Value: "A", IsCorrect: true},
		{SourceID: "src-1", QuestionID: "q2", Value: "B", IsCorrect: false},
		{SourceID: "src-2", QuestionID: "q1", Value: "C", IsCorrect: true},
	}
	if err := answers.SaveAnswers(ctx, records); err != nil {
		t.Fatal(err)
	}

	got, err := answers.ListBySource(ctx, "src-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for src-1, got %d", len(got))
	}

	if err := answers.DeleteBySource(ctx, "src-1"); err != nil {
		t.Fatal(err)
	}
	got, err = answers.ListBySource(ctx, "src-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records after delete, got %d", len(got))
	}

	// Other sources untouched
	other, err := answers.ListBySource(ctx, "src-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 1 {
		t.Errorf("expected src-2 records untouched, got %d", len(other))
	}
}

func TestChatTranscriptOrderAndAppend(t *testing.T) {
	manager := newTestManager(t)
	chat := manager.ChatStorage()
	ctx := context.Background()

	conv := &models.Conversation{ID: "conv-1", Title: "physics"}
	if err := chat.SaveConversation(ctx, conv); err != nil {
		t.Fatal(err)
	}

	msgs := []*models.Message{
		{ID: "m1", ConversationID: "conv-1", Sender: models.SenderStudent, Text: "hi"},
		{ID: "m2", ConversationID: "conv-1", Sender: models.SenderAssistant, Text: "Hel"},
	}
	for _, m := range msgs {
		if err := chat.AppendMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	if err := chat.AppendMessageText(ctx, "conv-1", "m2", "lo"); err != nil {
		t.Fatal(err)
	}

	transcript, err := chat.ListMessages(ctx, "conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(transcript) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(transcript))
	}
	if transcript[0].ID != "m1" || transcript[1].ID != "m2" {
		t.Errorf("transcript out of order: %s, %s", transcript[0].ID, transcript[1].ID)
	}
	if transcript[1].Text != "Hello" {
		t.Errorf("expected appended text %q, got %q", "Hello", transcript[1].Text)
	}

	// Appending to a missing message reports not-found
	if err := chat.AppendMessageText(ctx, "conv-1", "missing", "x"); !errors.Is(err, interfaces.ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestKVStorageRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	kv := manager.KeyValueStorage()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "active_source"); err != interfaces.ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := kv.Set(ctx, "active_source", "src-1"); err != nil {
		t.Fatal(err)
	}
	got, err := kv.Get(ctx, "Active_Source") // case-insensitive
	if err != nil {
		t.Fatal(err)
	}
	if got != "src-1" {
		t.Errorf("expected src-1, got %q", got)
	}

	if err := kv.Delete(ctx, "active_source"); err != nil {
		t.Fatal(err)
	}
	if err := kv.Delete(ctx, "active_source"); err != nil {
		t.Fatalf("delete of missing key should be a no-op, got %v", err)
	}
}

func TestBlobSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	logger := arbor.NewLogger()
	ctx := context.Background()

	manager, err := NewManager(logger, &common.BadgerConfig{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.BlobStorage().Put(ctx, "doc", "doc.pdf", []byte("durable")); err != nil {
		t.Fatal(err)
	}
	if err := manager.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewManager(logger, &common.BadgerConfig{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.BlobStorage().Get(ctx, "doc")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Bytes) != "durable" {
		t.Errorf("expected durable bytes after reopen, got %q", got.Bytes)
	}
}
