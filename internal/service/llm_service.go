package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"marketing-insights-backend/config"
	"marketing-insights-backend/internal/util"
)

// ErrInvalidLLMJSON distinguishes "the model answered, but not with JSON"
// from transport failures.
var ErrInvalidLLMJSON = errors.New("llm returned invalid JSON")

// answerFormat is injected before every narration call so answers keep a
// uniform shape regardless of which branch produced them.
const answerFormat = `You are an evaluation-optimized analytics assistant.

For EVERY user query, respond STRICTLY in the following format and order:

TL;DR:
- One concise sentence summarizing the answer.

Key Insights:
- 3 to 5 bullet points
- Each bullet must be factual, specific, and non-redundant
- Avoid generic filler text

Confidence:
- A single word from this list only: High, Medium, Low`

type LLMService interface {
	// GenerateText produces prose for the given prompt.
	GenerateText(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)
	// GenerateStructured produces JSON and decodes it into out. It fails
	// with ErrInvalidLLMJSON when the response contains no parseable object.
	GenerateStructured(ctx context.Context, prompt, systemMessage string, temperature float64, out interface{}) error
}

type openAILLMService struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	retryCfg config.RetryConfig
}

func NewLLMService(cfg *config.Config) LLMService {
	client := openai.NewClient(
		option.WithAPIKey(cfg.LLM.APIKey),
		option.WithBaseURL(cfg.LLM.BaseURL),
	)
	return &openAILLMService{
		client:   client,
		model:    cfg.LLM.Model,
		timeout:  cfg.LLM.Timeout,
		retryCfg: cfg.Retry,
	}
}

func (s *openAILLMService) GenerateText(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(answerFormat),
	}
	if systemMessage != "" {
		messages = append(messages, openai.SystemMessage(systemMessage))
	}
	messages = append(messages, openai.UserMessage(prompt))

	return s.complete(ctx, messages, temperature)
}

func (s *openAILLMService) GenerateStructured(ctx context.Context, prompt, systemMessage string, temperature float64, out interface{}) error {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemMessage != "" {
		messages = append(messages, openai.SystemMessage(systemMessage))
	}
	messages = append(messages, openai.UserMessage(prompt))

	raw, err := s.complete(ctx, messages, temperature)
	if err != nil {
		return err
	}

	cleaned := extractJSONObject(raw)
	if cleaned == "" {
		log.Error().Str("raw_text", raw).Msg("No valid JSON object in LLM response")
		return fmt.Errorf("%w: no JSON object found", ErrInvalidLLMJSON)
	}

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		log.Error().Err(err).Str("cleaned_json", cleaned).Msg("Failed to decode structured LLM response")
		return fmt.Errorf("%w: %v", ErrInvalidLLMJSON, err)
	}
	return nil
}

func (s *openAILLMService) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, temperature float64) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var content string
	op := func() error {
		resp, err := s.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
			Model:       openai.F(s.model),
			Messages:    openai.F(messages),
			Temperature: openai.F(temperature),
		})
		if err != nil {
			if util.IsRetryable(err) {
				log.Warn().Err(err).Msg("Retryable LLM error")
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("llm response contained no choices"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	if err := util.Retry(callCtx, s.retryCfg, op); err != nil {
		return "", fmt.Errorf("llm completion failed: %w", err)
	}
	return content, nil
}

// extractJSONObject pulls the outermost {...} from raw model output and
// verifies it parses. Models often wrap JSON in prose or code fences.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(raw, "}")
	if end == -1 || end < start {
		return ""
	}

	candidate := raw[start : end+1]
	var js map[string]interface{}
	if json.Unmarshal([]byte(candidate), &js) == nil {
		return candidate
	}

	log.Warn().Str("candidate", candidate).Msg("Could not validate JSON extracted from LLM response")
	return ""
}
