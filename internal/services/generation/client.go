// -----------------------------------------------------------------------
// Generation backend client - uploads PDF bytes and triggers chat turns
// The backend's model internals are an external collaborator;
// only this HTTP surface is depended on.
// -----------------------------------------------------------------------

package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lectio/internal/common"
	"github.com/ternarybob/lectio/internal/interfaces"
	"github.com/ternarybob/lectio/internal/models"
	"golang.org/x/time/rate"
)

// Client talks to the generation backend over HTTP
type Client struct {
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client
	limiter      *rate.Limiter
	logger       arbor.ILogger
}

// Compile-time assertion
var _ interfaces.GenerationClient = (*Client)(nil)

// NewClient creates a new generation backend client
func NewClient(config *common.BackendConfig, logger arbor.ILogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		// Uploads carry multi-megabyte payloads and get a longer timeout
		uploadClient: &http.Client{
			Timeout: config.UploadTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.RateBurst),
		logger:  logger,
	}
}

// rawQuestion mirrors the backend question payload
type rawQuestion struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Question       string          `json:"question"`
	Options        []string        `json:"options,omitempty"`
	Answer         json.RawMessage `json:"answer,omitempty"`
	ExpectedPoints []string        `json:"expected_points,omitempty"`
	SourcePage     int             `json:"source_page,omitempty"`
}

type uploadResponse struct {
	JobID     string        `json:"jobId"`
	Questions []rawQuestion `json:"questions"`
	Partial   bool          `json:"partial,omitempty"`
}

type suggestionsResponse struct {
	Videos []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		YouTube     struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"youtube"`
	} `json:"videos"`
}

// GenerateQuestions uploads PDF bytes as multipart form data and
// normalizes the backend's question set. Non-2xx response bodies are
// surfaced verbatim as the error detail.
func (c *Client) GenerateQuestions(ctx context.Context, name string, data []byte) (*interfaces.GeneratedQuestions, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrGeneration, err)
	}

	body, contentType, err := buildMultipart(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build upload body: %v", interfaces.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: upload request failed: %v", interfaces.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("%w: backend returned %d: %s", interfaces.ErrGeneration, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var payload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: malformed upload response: %v", interfaces.ErrGeneration, err)
	}

	result, err := normalizeQuestions(payload, c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("job_id", result.JobID).
		Int("questions", len(result.Questions)).
		Bool("partial", result.Partial).
		Msg("Questions generated")

	return result, nil
}

// SendChat triggers async generation for a conversation. The assistant
// content arrives on the stream channel, not in this response body.
func (c *Client) SendChat(ctx context.Context, chatID, message string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrGeneration, err)
	}

	payload, err := json.Marshal(map[string]string{
		"chatId":  chatID,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: chat send failed: %v", interfaces.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return fmt.Errorf("%w: backend returned %d: %s", interfaces.ErrGeneration, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}

// SuggestVideos uploads PDF bytes and returns related video suggestions
func (c *Client) SuggestVideos(ctx context.Context, name string, data []byte) ([]models.VideoSuggestion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrGeneration, err)
	}

	body, contentType, err := buildMultipart(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build upload body: %v", interfaces.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/youtube-suggestions", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: suggestions request failed: %v", interfaces.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("%w: backend returned %d: %s", interfaces.ErrGeneration, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var payload suggestionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: malformed suggestions response: %v", interfaces.ErrGeneration, err)
	}

	videos := make([]models.VideoSuggestion, 0, len(payload.Videos))
	for _, v := range payload.Videos {
		videos = append(videos, models.VideoSuggestion{
			Title:       v.Title,
			Description: v.Description,
			YouTubeID:   v.YouTube.ID,
			URL:         v.YouTube.URL,
		})
	}

	return videos, nil
}

// StreamURL returns the server-push channel URL for a conversation
func (c *Client) StreamURL(chatID string) string {
	return c.baseURL + "/api/chat/stream/" + url.PathEscape(chatID)
}

func buildMultipart(name string, data []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}
