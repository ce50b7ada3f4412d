package interfaces

import "errors"

// Sentinel errors for the storage and service layers. Callers test
// with errors.Is; wrapped details carry the specifics.
var (
	// ErrStorage wraps any persistence failure
	ErrStorage = errors.New("storage error")

	// ErrGeneration wraps failures talking to or decoding the
	// generation backend
	ErrGeneration = errors.New("generation error")

	// ErrGenerationInFlight rejects a second generation request for a
	// source whose previous one has not finished
	ErrGenerationInFlight = errors.New("generation already in flight for source")

	// ErrStream wraps streaming session failures
	ErrStream = errors.New("stream error")

	// ErrAlreadySubmitted rejects a second submission for a source
	// whose attempt has not been cleared
	ErrAlreadySubmitted = errors.New("answers already submitted for source")

	// ErrValidation wraps rejected input
	ErrValidation = errors.New("validation error")

	ErrBlobNotFound         = errors.New("blob not found")
	ErrSourceNotFound       = errors.New("source not found")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrScoreNotFound        = errors.New("score not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrKeyNotFound          = errors.New("key not found")
)
