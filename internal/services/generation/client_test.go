package generation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&common.BackendConfig{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
		UploadTimeout:  5 * time.Second,
		RatePerSecond:  100,
		RateBurst:      100,
	}, arbor.NewLogger())
}

func TestGenerateQuestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/upload", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "mechanics.pdf", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"jobId": "job-42",
			"questions": [
				{"id":"q1","type":"mcq","question":"Pick","options":["A","B","C"],"answer":1,"source_page":3},
				{"id":"q2","type":"saq","question":"State Newton's first law","answer":"inertia"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.GenerateQuestions(context.Background(), "mechanics.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "job-42", result.JobID)
	require.Len(t, result.Questions, 2)
	assert.Equal(t, 3, result.Questions[0].SourcePage)
}

func TestGenerateQuestionsSurfacesBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("model overloaded, try again"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GenerateQuestions(context.Background(), "doc.pdf", []byte("bytes"))
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrGeneration)
	// Raw backend detail must reach the caller, not be swallowed
	assert.Contains(t, err.Error(), "model overloaded, try again")
}

func TestSendChat(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/send", r.URL.Path)
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.SendChat(context.Background(), "conv-1", "what is torque?")
	require.NoError(t, err)
	assert.Contains(t, gotBody, `"chatId":"conv-1"`)
	assert.Contains(t, gotBody, `"message":"what is torque?"`)
}

func TestSuggestVideos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/youtube-suggestions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"videos":[{"title":"Torque basics","description":"intro","youtube":{"id":"abc123","url":"https://youtu.be/abc123"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	videos, err := client.SuggestVideos(context.Background(), "doc.pdf", []byte("bytes"))
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "Torque basics", videos[0].Title)
	assert.Equal(t, "abc123", videos[0].YouTubeID)
}

func TestStreamURL(t *testing.T) {
	client := newTestClient("http://localhost:5000/")
	assert.Equal(t, "http://localhost:5000/api/chat/stream/conv-1", client.StreamURL("conv-1"))
}
