package summarizer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fnuxsummary/internal/config"
	"fnuxsummary/internal/confirm"
	"fnuxsummary/internal/domain"
)

type stubAPI struct {
	calls  int
	params openai.ChatCompletionNewParams
	resp   *openai.ChatCompletion
	err    error
}

func (s *stubAPI) New(
	_ context.Context,
	body openai.ChatCompletionNewParams,
	_ ...option.RequestOption,
) (*openai.ChatCompletion, error) {
	s.calls++
	s.params = body

	if s.err != nil {
		return nil, s.err
	}

	return s.resp, nil
}

type stubApprover struct {
	approve bool
	err     error
	calls   int
	preview string
}

func (s *stubApprover) Approve(_ context.Context, preview string) (bool, error) {
	s.calls++
	s.preview = preview

	return s.approve, s.err
}

func completionWith(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func testConfig() config.LLM {
	temperature := 0.4
	maxTokens := int64(512)
	topP := 0.9

	return config.LLM{
		BaseURL: "https://llm.example.test/v1",
		APIKey:  "sk-test",
		Model:   "test-model",
		Parameters: config.Parameters{
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
			TopP:        &topP,
			Stop:        []string{"###"},
		},
		Prompt: config.Prompt{
			SystemMessage:      "You are a clinical summarizer.",
			FormatInstructions: "Answer with a delimited report section.",
		},
	}
}

func testRecord() domain.MedicalRecord {
	return domain.MedicalRecord{
		CaveEntries:    []string{"Penicillin allergy"},
		Vaccinations:   []domain.Vaccination{},
		Diagnoses:      []string{"Hypertension"},
		Kontinuationer: []string{"Follow-up in 3 months"},
	}
}

func TestGenerateRejectedGateIssuesNoCall(t *testing.T) {
	api := &stubAPI{resp: completionWith("unused")}
	approver := &stubApprover{approve: false}
	gen := newWithAPI(testConfig(), api, approver, nil)

	_, err := gen.Generate(context.Background(), testRecord())

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 1, approver.calls)
	assert.Equal(t, 0, api.calls)
}

func TestGenerateAutoApproveBypassesGate(t *testing.T) {
	api := &stubAPI{resp: completionWith("Resume.")}
	gen := newWithAPI(testConfig(), api, confirm.Auto{}, nil)

	summary, err := gen.Generate(context.Background(), testRecord())

	require.NoError(t, err)
	assert.Equal(t, "Resume.", summary)
	assert.Equal(t, 1, api.calls)
}

func TestGenerateApproverErrorIsNotCancellation(t *testing.T) {
	api := &stubAPI{resp: completionWith("unused")}
	approver := &stubApprover{err: errors.New("tty gone")}
	gen := newWithAPI(testConfig(), api, approver, nil)

	_, err := gen.Generate(context.Background(), testRecord())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 0, api.calls)
}

func TestGeneratePassesPreviewToApprover(t *testing.T) {
	api := &stubAPI{resp: completionWith("Resume.")}
	approver := &stubApprover{approve: true}
	gen := newWithAPI(testConfig(), api, approver, nil)

	_, err := gen.Generate(context.Background(), testRecord())

	require.NoError(t, err)
	assert.Contains(t, approver.preview, "### Cave-informationer:")
	assert.Contains(t, approver.preview, "- Penicillin allergy")
	assert.Contains(t, approver.preview, "Ingen registrerede vaccinationer")
}

func TestGenerateTransportErrorWrapped(t *testing.T) {
	backendErr := errors.New("429: rate limit exceeded")
	api := &stubAPI{err: backendErr}
	gen := newWithAPI(testConfig(), api, confirm.Auto{}, nil)

	_, err := gen.Generate(context.Background(), testRecord())

	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.ErrorIs(t, err, backendErr)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestGenerateEmptyChoices(t *testing.T) {
	api := &stubAPI{resp: &openai.ChatCompletion{}}
	gen := newWithAPI(testConfig(), api, confirm.Auto{}, nil)

	_, err := gen.Generate(context.Background(), testRecord())

	var llmErr *LLMError
	assert.ErrorAs(t, err, &llmErr)
}

func TestGenerateEmptyContent(t *testing.T) {
	api := &stubAPI{resp: completionWith("   ")}
	gen := newWithAPI(testConfig(), api, confirm.Auto{}, nil)

	_, err := gen.Generate(context.Background(), testRecord())

	var llmErr *LLMError
	assert.ErrorAs(t, err, &llmErr)
}

func TestGenerateLogsRequestAndResponseWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Logging = config.Logging{Enabled: true, Level: "info", File: "llm_calls.log"}

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	api := &stubAPI{resp: completionWith("Resume.")}
	gen := newWithAPI(cfg, api, confirm.Auto{}, log)

	_, err := gen.Generate(context.Background(), testRecord())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Dispatching summary request")
	assert.Contains(t, out, "Cave-informationer")
	assert.Contains(t, out, "Summary request completed")
	assert.Contains(t, out, "Resume.")
}

func TestGenerateLogsNothingWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	api := &stubAPI{resp: completionWith("Resume.")}
	gen := newWithAPI(testConfig(), api, confirm.Auto{}, log)

	_, err := gen.Generate(context.Background(), testRecord())
	require.NoError(t, err)

	assert.Empty(t, buf.String())
}

func TestGenerateForwardsParameters(t *testing.T) {
	api := &stubAPI{resp: completionWith("Resume.")}
	gen := newWithAPI(testConfig(), api, confirm.Auto{}, nil)

	_, err := gen.Generate(context.Background(), testRecord())
	require.NoError(t, err)

	params := api.params
	assert.Equal(t, "test-model", string(params.Model))
	assert.InDelta(t, 0.4, params.Temperature.Value, 0.0001)
	assert.Equal(t, int64(512), params.MaxCompletionTokens.Value)
	assert.InDelta(t, 0.9, params.TopP.Value, 0.0001)
	assert.Equal(t, []string{"###"}, params.Stop.OfStringArray)
	assert.Len(t, params.Messages, 2)
}

func TestGenerateWithoutSystemMessage(t *testing.T) {
	cfg := testConfig()
	cfg.Prompt.SystemMessage = ""

	api := &stubAPI{resp: completionWith("Resume.")}
	gen := newWithAPI(cfg, api, confirm.Auto{}, nil)

	_, err := gen.Generate(context.Background(), testRecord())
	require.NoError(t, err)

	assert.Len(t, api.params.Messages, 1)
}
