package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/opencare/triage/domain"
)

// Client calls an OpenAI-compatible chat-completions service and asks
// it to return the intake reply plus slot captures as a JSON object.
// One bounded attempt per message; anything arriving after the deadline
// is discarded as a timeout.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates an extraction client with a hard per-call bound.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Extractor = (*Client)(nil)

const systemPrompt = `You are a clinic intake assistant conducting a structured triage conversation.
You are not a medical professional. Never diagnose, never name diseases, never suggest treatments or medication.
From the patient's latest message, extract values for any of the listed unfilled slots.
Ask exactly one question at a time, warm and plain, aimed at the first unfilled slot.
Respond ONLY with a JSON object:
{"message": "<your reply to the patient>", "slots": {"<slot_id>": "<value>"}, "found_emergency": <bool>}
Include a slot key only when the patient's message actually answers it.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string                 `json:"model"`
	Messages       []chatMessage          `json:"messages"`
	Temperature    *float64               `json:"temperature,omitempty"`
	MaxTokens      *int                   `json:"max_tokens,omitempty"`
	ResponseFormat map[string]interface{} `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int          `json:"index"`
		Message      *chatMessage `json:"message,omitempty"`
		FinishReason string       `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

type errorResponse struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// Extract sends one bounded chat-completion request and parses the
// JSON object out of the completion text.
func (c *Client) Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionResult, error) {
	temp := 0.1
	maxTokens := 1024

	messages := []chatMessage{{Role: "system", Content: systemPrompt}}
	messages = append(messages, chatMessage{
		Role: "system",
		Content: fmt.Sprintf("Current slot state (null means unfilled): %s\nFirst unfilled slot: %s",
			string(req.Snapshot), req.Pending),
	})
	messages = append(messages, chatMessage{Role: "user", Content: req.Text})

	body, err := json.Marshal(&chatCompletionRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ResponseFormat: map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		return nil, &Failure{Reason: ReasonMalformed, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &Failure{Reason: ReasonMalformed, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, &Failure{Reason: ReasonTimeout, Err: err}
		}
		return nil, &Failure{Reason: ReasonMalformed, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, &Failure{Reason: ReasonTimeout, Err: err}
		}
		return nil, &Failure{Reason: ReasonMalformed, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil && errResp.Error != nil {
			if isRefusalType(errResp.Error.Type) || isRefusalType(errResp.Error.Code) {
				return nil, &Failure{Reason: ReasonRefused, Err: fmt.Errorf("service refused: %s", errResp.Error.Message)}
			}
			return nil, &Failure{Reason: ReasonMalformed, Err: fmt.Errorf("service error [%d]: %s", resp.StatusCode, errResp.Error.Message)}
		}
		return nil, &Failure{Reason: ReasonMalformed, Err: fmt.Errorf("service error [%d]", resp.StatusCode)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, &Failure{Reason: ReasonMalformed, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message == nil {
		return nil, &Failure{Reason: ReasonMalformed, Err: errors.New("empty completion")}
	}
	if completion.Choices[0].FinishReason == "content_filter" {
		return nil, &Failure{Reason: ReasonRefused, Err: errors.New("completion stopped by content filter")}
	}

	return parseResult(completion.Choices[0].Message.Content)
}

// parseResult extracts the result object from the completion text.
// Models wrap JSON in prose often enough that we scan for the outermost
// braces instead of decoding the whole string.
func parseResult(text string) (*domain.ExtractionResult, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, &Failure{Reason: ReasonMalformed, Err: errors.New("no JSON object in completion")}
	}

	var result domain.ExtractionResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return nil, &Failure{Reason: ReasonMalformed, Err: fmt.Errorf("decode result: %w", err)}
	}
	if result.Message == "" {
		return nil, &Failure{Reason: ReasonMalformed, Err: errors.New("result missing message")}
	}
	if result.Slots == nil {
		result.Slots = map[string]string{}
	}
	return &result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isRefusalType(t string) bool {
	switch t {
	case "content_filter", "content_policy_violation", "refusal":
		return true
	}
	return false
}
