// Package recognizer reads licence plates from images with a vision model
// served by Ollama.
package recognizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const prompt = "Extract the car plate number from the image and return it as a string without any spaces. " +
	"If no plate is present, respond with 'No plate found'."

const noPlateAnswer = "No plate found"

type Config struct {
	// Endpoint is the Ollama server, e.g. http://localhost:11434.
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// Ollama asks a vision model for the plate shown in an image. Its answer is
// only a candidate and still has to be validated.
type Ollama struct {
	endpoint *url.URL
	model    string
	http     *http.Client
	log      *zap.Logger
}

func NewOllama(config Config, log *zap.Logger) (*Ollama, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("recognizer model is required")
	}
	if config.Endpoint == "" {
		config.Endpoint = "http://localhost:11434"
	}
	endpoint, err := url.Parse(strings.TrimSuffix(config.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid recognizer endpoint: %w", err)
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}
	return &Ollama{
		endpoint: endpoint.JoinPath("api", "chat"),
		model:    config.Model,
		http:     &http.Client{Timeout: config.Timeout},
		log:      log.Named("recognizer"),
	}, nil
}

func (o *Ollama) Model() string {
	return o.model
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

// Recognize returns the plate the model reads in the image at imagePath.
// found is false when the model sees no plate or the file does not exist.
func (o *Ollama) Recognize(ctx context.Context, imagePath string) (candidate string, found bool, err error) {
	image, err := os.ReadFile(imagePath)
	if errors.Is(err, fs.ErrNotExist) {
		o.log.Warn("image does not exist", zap.String("path", imagePath))
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read image: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: prompt,
			Images:  []string{base64.StdEncoding.EncodeToString(image)},
		}},
		Options: map[string]any{"temperature": 0},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := o.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("chat request failed: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", false, fmt.Errorf("failed to read chat response: %w", err)
	}
	var answer chatResponse
	if err := json.Unmarshal(data, &answer); err != nil {
		return "", false, fmt.Errorf("failed to decode chat response (status %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK || answer.Error != "" {
		return "", false, fmt.Errorf("chat request failed with status %d: %s", res.StatusCode, answer.Error)
	}

	content := answer.Message.Content
	o.log.Debug("model answered",
		zap.String("path", imagePath),
		zap.String("answer", content),
		zap.Duration("elapsed", time.Since(start)))
	return ParseAnswer(content)
}

// ParseAnswer extracts the plate candidate from a model answer.
func ParseAnswer(content string) (candidate string, found bool, err error) {
	if strings.Contains(content, noPlateAnswer) {
		return "", false, nil
	}
	candidate = strings.Trim(strings.TrimSpace(content), "\"'`")
	if candidate == "" {
		return "", false, nil
	}
	return candidate, true, nil
}
