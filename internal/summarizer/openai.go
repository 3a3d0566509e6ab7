package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"fnuxsummary/internal/config"
	"fnuxsummary/internal/domain"
	"fnuxsummary/internal/prompt"
)

// completionAPI is the slice of the OpenAI client the generator needs,
// narrowed so tests can stub the network.
type completionAPI interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Generator runs the summary pipeline for one configured backend. It
// holds no shared mutable state, so independent generators with
// different configs can run concurrently.
type Generator struct {
	cfg      config.LLM
	api      completionAPI
	approver Approver
	log      *slog.Logger
}

// New builds a Generator for the connection described by cfg. The
// approver gates every dispatch; a nil approver means auto-approve.
// log receives the request/response pair when call logging is enabled
// in cfg.
func New(cfg config.LLM, approver Approver, log *slog.Logger) *Generator {
	client := openai.NewClient(
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
	)

	return newWithAPI(cfg, &client.Chat.Completions, approver, log)
}

func newWithAPI(cfg config.LLM, api completionAPI, approver Approver, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Generator{
		cfg:      cfg,
		api:      api,
		approver: approver,
		log:      log,
	}
}

// Generate runs one summary call: render the prompt, pass the
// confirmation gate, dispatch, and extract the first completion. A
// declined gate returns ErrCancelled without any network traffic;
// backend failures and unusable responses surface as *LLMError with the
// backend diagnostic preserved. There is no internal retry: retry
// policy belongs to the caller.
func (g *Generator) Generate(ctx context.Context, record domain.MedicalRecord) (string, error) {
	req := prompt.Build(record, g.cfg)

	if g.approver != nil {
		ok, err := g.approver.Approve(ctx, req.User)
		if err != nil {
			return "", fmt.Errorf("confirm request: %w", err)
		}
		if !ok {
			return "", ErrCancelled
		}
	}

	if g.cfg.Logging.Enabled {
		g.log.InfoContext(ctx, "Dispatching summary request",
			"model", g.cfg.Model,
			"systemMessage", req.System,
			"userPrompt", req.User)
	}

	resp, err := g.api.New(ctx, g.completionParams(req))
	if err != nil {
		return "", &LLMError{Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &LLMError{Err: errors.New("response contains no completions")}
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", &LLMError{Err: errors.New("completion content is empty")}
	}

	if g.cfg.Logging.Enabled {
		g.log.InfoContext(ctx, "Summary request completed",
			"model", g.cfg.Model,
			"summary", summary)
	}

	return summary, nil
}

func (g *Generator) completionParams(req prompt.Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.cfg.Model),
		Messages: messages,
	}

	p := g.cfg.Parameters
	if p.Temperature != nil {
		params.Temperature = openai.Float(*p.Temperature)
	}
	if p.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(*p.MaxTokens)
	}
	if p.TopP != nil {
		params.TopP = openai.Float(*p.TopP)
	}
	if p.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Float(*p.FrequencyPenalty)
	}
	if p.PresencePenalty != nil {
		params.PresencePenalty = openai.Float(*p.PresencePenalty)
	}
	if len(p.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: p.Stop}
	}

	return params
}
