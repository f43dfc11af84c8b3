package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is where the RAG service listens in local development
	DefaultBaseURL = "http://localhost:8002"
	// DefaultTimeout is the HTTP client timeout for chat and qualification calls
	DefaultTimeout = 30 * time.Second
	// HealthTimeout bounds the health probe
	HealthTimeout = 5 * time.Second
	// ConversationTimeout bounds conversation fetch/clear calls
	ConversationTimeout = 10 * time.Second
)

// Client talks to the external RAG service that performs conversational AI
// and lead qualification. Calls are attempt-once with a bounded timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds configuration for the RAG client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new RAG service client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Chat sends one user message plus session metadata and returns the answer
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.doRequest(ctx, http.MethodPost, "/chat", 0, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Qualify sends the full conversation history for lead qualification
func (c *Client) Qualify(ctx context.Context, req QualifyRequest) (*QualifyResponse, error) {
	var resp QualifyResponse
	if err := c.doRequest(ctx, http.MethodPost, "/qualify", 0, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Conversation fetches the service-side history for a session
func (c *Client) Conversation(ctx context.Context, sessionID string) (*ConversationResponse, error) {
	var resp ConversationResponse
	endpoint := "/conversation/" + url.PathEscape(sessionID)
	if err := c.doRequest(ctx, http.MethodGet, endpoint, ConversationTimeout, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearConversation drops the service-side history for a session
func (c *Client) ClearConversation(ctx context.Context, sessionID string) error {
	endpoint := "/conversation/" + url.PathEscape(sessionID)
	return c.doRequest(ctx, http.MethodDelete, endpoint, ConversationTimeout, nil, nil)
}

// Health probes the RAG service and returns its status document verbatim
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := c.doRequest(ctx, http.MethodGet, "/health", HealthTimeout, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// doRequest performs an HTTP request against the RAG service. A non-zero
// timeout overrides the client default via the request context.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, timeout time.Duration, body interface{}, result interface{}) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// APIError represents a non-2xx response from the RAG service
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("RAG API error (status %d): %s", e.StatusCode, e.Body)
}

// SearchKnowledgeLimit caps knowledge search results
const SearchKnowledgeLimit = 20

// AssistantClient talks to the chatbot assistant service that backs the
// site widget (suggestions, knowledge search). Separate deployment with its
// own base URL.
type AssistantClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAssistantClient creates a client for the chatbot assistant service
func NewAssistantClient(config Config) *AssistantClient {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8001"
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	return &AssistantClient{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Message forwards a widget message and returns the assistant reply
func (a *AssistantClient) Message(ctx context.Context, req AssistantMessageRequest) (*AssistantMessageResponse, error) {
	var resp AssistantMessageResponse
	if err := a.do(ctx, http.MethodPost, "/chat", 0, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health probes the assistant service
func (a *AssistantClient) Health(ctx context.Context) (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := a.do(ctx, http.MethodGet, "/health", ConversationTimeout, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SearchKnowledge queries the assistant's knowledge index
func (a *AssistantClient) SearchKnowledge(ctx context.Context, query string, limit int) (json.RawMessage, error) {
	if limit < 1 {
		limit = 5
	}
	if limit > SearchKnowledgeLimit {
		limit = SearchKnowledgeLimit
	}

	endpoint := "/search-knowledge?query=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(limit)

	var resp json.RawMessage
	if err := a.do(ctx, http.MethodGet, endpoint, 15*time.Second, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (a *AssistantClient) do(ctx context.Context, method, endpoint string, timeout time.Duration, body interface{}, result interface{}) error {
	// same request shape as the RAG client, different deployment
	c := Client{baseURL: a.baseURL, httpClient: a.httpClient}
	return c.doRequest(ctx, method, endpoint, timeout, body, result)
}
