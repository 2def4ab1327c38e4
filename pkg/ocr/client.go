package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public LlamaParse endpoint.
const DefaultBaseURL = "https://api.cloud.llamaindex.ai/"

// ErrNotConfigured is returned by Parse when no API key was supplied.
var ErrNotConfigured = errors.New("LlamaParse API key not configured")

var rnd = rand.New(rand.NewSource(time.Now().UnixNano()))

// Client talks to the LlamaParse REST API. API keys and base URLs are rotated
// round-robin; failed calls are retried with exponential backoff.
type Client struct {
	apiKeys                []string
	baseURLs               []string
	resultType             string
	httpTimeout            time.Duration
	pollInterval           time.Duration
	backoff                time.Duration
	maxRetries             int
	currentKeyIndex        int
	currentURLIndex        int
	retryDifferentEndpoint bool
	httpClient             *http.Client
	logger                 *zap.Logger
	mu                     sync.Mutex
}

// NewClient creates a client. Empty keys are dropped; with no base URL the
// public endpoint is used.
func NewClient(apiKeys []string, baseURLs []string) *Client {
	keys := make([]string, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	urls := make([]string, 0, len(baseURLs))
	for _, u := range baseURLs {
		if u = strings.TrimSpace(u); u == "" {
			continue
		}
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		urls = []string{DefaultBaseURL}
	}

	var keyIndex int
	if len(keys) > 0 {
		keyIndex = rnd.Intn(len(keys))
	}

	return &Client{
		apiKeys:                keys,
		baseURLs:               urls,
		resultType:             ResultText,
		httpTimeout:            5 * time.Minute,
		pollInterval:           2 * time.Second,
		backoff:                time.Second,
		maxRetries:             3,
		currentKeyIndex:        keyIndex,
		currentURLIndex:        rnd.Intn(len(urls)),
		retryDifferentEndpoint: true,
		httpClient:             &http.Client{},
		logger:                 zap.NewNop(),
	}
}

// Configured reports whether at least one API key is available.
func (c *Client) Configured() bool {
	return len(c.apiKeys) > 0
}

// SetTimeout bounds a whole Parse call, polling included.
func (c *Client) SetTimeout(timeout time.Duration) { c.httpTimeout = timeout }

// SetMaxRetries sets the retry count per endpoint.
func (c *Client) SetMaxRetries(retries int) { c.maxRetries = retries }

// SetRetryDifferentEndpoint enables moving to the next base URL after a failure.
func (c *Client) SetRetryDifferentEndpoint(retry bool) { c.retryDifferentEndpoint = retry }

// SetPollInterval sets the delay between job status checks.
func (c *Client) SetPollInterval(d time.Duration) { c.pollInterval = d }

// SetBackoff sets the base delay of the exponential retry backoff.
func (c *Client) SetBackoff(d time.Duration) { c.backoff = d }

// SetResultType selects which rendering of each page is returned.
// Unknown values fall back to text.
func (c *Client) SetResultType(t string) {
	switch t {
	case ResultMarkdown, ResultJSON:
		c.resultType = t
	default:
		c.resultType = ResultText
	}
}

// SetLogger sets the logger; nil disables logging.
func (c *Client) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	c.logger = l
}

// Parse uploads the file, waits for the job to finish and returns one document per page.
func (c *Client) Parse(ctx context.Context, filePath string) ([]Document, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if c.httpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpTimeout)
		defer cancel()
	}

	jobID, apiKey, err := c.upload(ctx, filePath)
	if err != nil {
		return nil, err
	}
	if err := c.waitForJob(ctx, jobID, apiKey); err != nil {
		return nil, err
	}
	return c.fetchResult(ctx, jobID, apiKey)
}

func (c *Client) upload(ctx context.Context, filePath string) (string, string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", "", fmt.Errorf("read file: %w", err)
	}
	c.logger.Info("Uploading file to LlamaParse",
		zap.String("file", filepath.Base(filePath)),
		zap.Int("bytes", len(content)))

	body, apiKey, err := c.do(ctx, "upload", "", func(baseURL, apiKey string) (*http.Request, error) {
		buf := &bytes.Buffer{}
		writer := multipart.NewWriter(buf)
		part, err := writer.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(content); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"api/v1/parsing/upload", buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return "", "", err
	}

	var resp UploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("decode upload response: %w", err)
	}
	if resp.ID == "" {
		return "", "", errors.New("upload response carries no job id")
	}
	return resp.ID, apiKey, nil
}

func (c *Client) waitForJob(ctx context.Context, jobID, apiKey string) error {
	for {
		body, _, err := c.do(ctx, "job status", apiKey, func(baseURL, _ string) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"api/v1/parsing/job/"+jobID, nil)
		})
		if err != nil {
			return err
		}

		var job JobResponse
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("decode job status: %w", err)
		}
		switch job.Status {
		case JobSuccess:
			return nil
		case JobError, JobCanceled:
			if job.ErrorMessage != "" {
				return fmt.Errorf("parsing job %s %s: %s", jobID, strings.ToLower(job.Status), job.ErrorMessage)
			}
			return fmt.Errorf("parsing job %s %s", jobID, strings.ToLower(job.Status))
		}

		c.logger.Debug("Parsing job pending", zap.String("job", jobID), zap.String("status", job.Status))
		if err := sleepCtx(ctx, c.pollInterval); err != nil {
			return fmt.Errorf("waiting for job %s: %w", jobID, err)
		}
	}
}

func (c *Client) fetchResult(ctx context.Context, jobID, apiKey string) ([]Document, error) {
	body, _, err := c.do(ctx, "result", apiKey, func(baseURL, _ string) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"api/v1/parsing/job/"+jobID+"/result/json", nil)
	})
	if err != nil {
		return nil, err
	}

	var result JSONResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	docs := make([]Document, 0, len(result.Pages))
	for i, p := range result.Pages {
		text := p.Text
		if c.resultType == ResultMarkdown {
			text = p.MD
		}
		page := p.Page
		if page == 0 {
			page = i + 1
		}
		docs = append(docs, Document{Page: page, Text: text})
	}
	c.logger.Info("LlamaParse finished", zap.String("job", jobID), zap.Int("pages", len(docs)))
	return docs, nil
}

// do sends a request built by newReq with endpoint rotation and retries.
// An empty apiKey picks the next key from the pool; the key used is returned.
func (c *Client) do(ctx context.Context, op, apiKey string, newReq func(baseURL, apiKey string) (*http.Request, error)) ([]byte, string, error) {
	var lastErr error

	endpoints := 1
	if c.retryDifferentEndpoint {
		endpoints = len(c.baseURLs)
	}

	for e := 0; e < endpoints; e++ {
		baseURL := c.getNextBaseURL()

	retries:
		for attempt := 0; attempt <= c.maxRetries; attempt++ {
			if attempt > 0 {
				wait := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
				c.logger.Debug("Retrying request", zap.String("op", op), zap.Int("attempt", attempt), zap.Duration("wait", wait))
				if err := sleepCtx(ctx, wait); err != nil {
					return nil, "", fmt.Errorf("%s: %w", op, err)
				}
			}

			key := apiKey
			if key == "" {
				key = c.getNextAPIKey()
			}

			req, err := newReq(baseURL, key)
			if err != nil {
				return nil, "", fmt.Errorf("%s: build request: %w", op, err)
			}
			req.Header.Set("Authorization", "Bearer "+key)
			req.Header.Set("Accept", "application/json")

			c.logger.Debug("Sending request",
				zap.String("op", op),
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()),
				zap.String("api_key", maskAPIKey(key)))

			resp, err := c.httpClient.Do(req)
			if err != nil {
				if ctx.Err() != nil {
					return nil, "", fmt.Errorf("%s: %w", op, ctx.Err())
				}
				lastErr = fmt.Errorf("%s: send request: %w", op, err)
				continue
			}
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				lastErr = fmt.Errorf("%s: read response: %w", op, err)
				continue
			}

			switch {
			case resp.StatusCode == http.StatusOK:
				return body, key, nil
			case resp.StatusCode == http.StatusGatewayTimeout,
				resp.StatusCode == http.StatusServiceUnavailable,
				resp.StatusCode == http.StatusTooManyRequests:
				lastErr = fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, string(body))
				continue
			case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
				lastErr = fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, string(body))
				break retries
			default:
				lastErr = fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, string(body))
				if !c.retryDifferentEndpoint {
					return nil, "", lastErr
				}
				break retries
			}
		}
		c.logger.Warn("Endpoint failed", zap.String("op", op), zap.String("base_url", baseURL), zap.Error(lastErr))
	}

	return nil, "", lastErr
}

func (c *Client) getNextAPIKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.apiKeys) == 0 {
		return ""
	}
	key := c.apiKeys[c.currentKeyIndex]
	c.currentKeyIndex = (c.currentKeyIndex + 1) % len(c.apiKeys)
	return key
}

func (c *Client) getNextBaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	u := c.baseURLs[c.currentURLIndex]
	c.currentURLIndex = (c.currentURLIndex + 1) % len(c.baseURLs)
	return u
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
