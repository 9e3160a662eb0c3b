package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/technopolitica/open-registry/internal/domain"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://akfell-datautlevering.atlas.vegvesen.no"

const lookupPath = "enkeltoppslag/kjoretoydata"

// Upstream bodies are only kept for diagnostics.
const maxErrorBodyBytes = 4 << 10

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client fetches raw vehicle documents from the Statens vegvesen registry.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(config ClientConfig, log *zap.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("registry API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry base URL: %w", err)
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  config.APIKey,
		http:    &http.Client{Timeout: config.Timeout},
		log:     log.Named("registry"),
	}, nil
}

// FetchRaw returns the response body of a successful lookup. Transport
// failures and non-200 responses are *domain.UpstreamError.
func (c *Client) FetchRaw(ctx context.Context, plate string) (body []byte, err error) {
	endpoint := c.baseURL.JoinPath(lookupPath)
	query := endpoint.Query()
	query.Set("kjennemerke", plate)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		err = fmt.Errorf("failed to build registry request: %w", err)
		return
	}
	req.Header.Set("SVV-Authorization", "Apikey "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		err = &domain.UpstreamError{Err: err}
		return
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
		c.log.Warn("registry lookup failed",
			zap.String("plate", plate),
			zap.Int("status", res.StatusCode))
		err = &domain.UpstreamError{StatusCode: res.StatusCode, Body: string(snippet)}
		return
	}

	body, err = io.ReadAll(res.Body)
	if err != nil {
		err = &domain.UpstreamError{StatusCode: res.StatusCode, Err: err}
		return
	}
	c.log.Debug("registry lookup succeeded", zap.String("plate", plate), zap.Int("bytes", len(body)))
	return
}

// Fetch returns the decoded document for plate. A body that is not a JSON
// document of the expected shape is a mapping error, not an upstream one.
func (c *Client) Fetch(ctx context.Context, plate string) (doc RawVehicleDocument, err error) {
	body, err := c.FetchRaw(ctx, plate)
	if err != nil {
		return
	}
	doc, err = DecodeDocument(body)
	if err != nil {
		err = malformed("$", err)
	}
	return
}
