package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/careflow-service/internal/api/dto"
	"github.com/spec-kit/careflow-service/internal/service"
)

// WebhookHandler receives tool-call batches from the voice-call platform.
// Per-call failures are reported inside results so the caller never retries
// a batch where only one sub-call failed; HTTP errors are reserved for
// requests where nothing could be processed.
type WebhookHandler struct {
	reconciler   *service.ReconcilerService
	sharedSecret string
	logger       *zap.Logger
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(reconciler *service.ReconcilerService, sharedSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, sharedSecret: sharedSecret, logger: logger}
}

// HandleVoice handles POST /webhooks/voice.
func (h *WebhookHandler) HandleVoice(c *fiber.Ctx) error {
	if h.sharedSecret == "" {
		h.logger.Error("voice webhook invoked without configured credentials")
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "webhook credentials not configured",
		})
	}
	provided := c.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.sharedSecret)) != 1 {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid webhook secret",
		})
	}

	var req dto.VoiceWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed webhook body",
		})
	}

	if !req.Message.IsToolCallBatch() {
		h.logger.Info("ignoring non-tool-call voice event", zap.String("type", req.Message.Type))
		return c.JSON(dto.VoiceWebhookResponse{Results: []dto.ToolCallResult{}})
	}

	// Results are correlated by input position, not call id: the id is
	// caller-supplied and nothing stops duplicates.
	results := make([]dto.ToolCallResult, len(req.Message.ToolCalls))
	calls := make([]service.ToolCall, 0, len(req.Message.ToolCalls))
	forwarded := make([]int, 0, len(req.Message.ToolCalls))
	for i, tc := range req.Message.ToolCalls {
		args, err := tc.Function.ParsedArguments()
		if err != nil {
			// Malformed arguments fail this call only, never the batch.
			results[i] = dto.ToolCallResult{
				CallID: tc.ID,
				Result: "invalid arguments: " + err.Error(),
			}
			continue
		}
		calls = append(calls, service.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
		forwarded = append(forwarded, i)
	}

	for j, outcome := range h.reconciler.ProcessBatch(c.UserContext(), calls) {
		results[forwarded[j]] = dto.ToolCallResult{CallID: outcome.CallID, Result: outcome.Result}
	}

	return c.JSON(dto.VoiceWebhookResponse{Results: results})
}
