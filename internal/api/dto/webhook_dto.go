package dto

import (
	"encoding/json"
	"fmt"
)

// VoiceWebhookRequest is the inbound body from the voice-call platform.
type VoiceWebhookRequest struct {
	Message VoiceMessage `json:"message"`
}

// VoiceMessage discriminates the event type; tool-call batches carry the
// calls to process.
type VoiceMessage struct {
	Type      string          `json:"type"`
	ToolCalls []VoiceToolCall `json:"toolCalls"`
}

// IsToolCallBatch reports whether this event carries tool calls.
func (m VoiceMessage) IsToolCallBatch() bool {
	return m.Type == "tool-calls"
}

// VoiceToolCall is one caller-correlated function invocation.
type VoiceToolCall struct {
	ID       string        `json:"id"`
	Function VoiceFunction `json:"function"`
}

// VoiceFunction names the tool and carries its arguments, which the platform
// may send either as an object or as a JSON-encoded string.
type VoiceFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ParsedArguments normalizes the arguments into a map, decoding the
// string-encoded form when necessary.
func (f VoiceFunction) ParsedArguments() (map[string]any, error) {
	if len(f.Arguments) == 0 {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal(f.Arguments, &args); err == nil {
		return args, nil
	}

	var encoded string
	if err := json.Unmarshal(f.Arguments, &encoded); err != nil {
		return nil, fmt.Errorf("arguments are neither an object nor an encoded string: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &args); err != nil {
		return nil, fmt.Errorf("decode string-encoded arguments: %w", err)
	}
	return args, nil
}

// ToolCallResult is one per-call outcome in the webhook response.
type ToolCallResult struct {
	CallID string `json:"callId"`
	Result string `json:"result"`
}

// VoiceWebhookResponse carries one result entry per input call.
type VoiceWebhookResponse struct {
	Results []ToolCallResult `json:"results"`
}
