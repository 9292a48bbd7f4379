package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/covgen/internal/config"
	"github.com/nao1215/covgen/internal/model"
)

type stubInvoker struct {
	text   string
	err    error
	prompt string
}

func (s *stubInvoker) Invoke(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

func makeAnalysis() *model.RepoAnalysis {
	a := model.NewRepoAnalysis()
	a.ProjectType = "c"
	a.BuildSystem = model.BuildSystemMake
	a.HasMakefile = true
	a.SourceFiles = []string{"main.c"}
	return a
}

func TestAssistantPlan(t *testing.T) {
	t.Parallel()

	issues := []model.CompatibilityIssue{{Check: "makefile-flags", Message: "Makefile missing Gcov coverage flags"}}

	t.Run("without a model the built-in plan is used", func(t *testing.T) {
		t.Parallel()

		a := NewAssistant(WithLogger(discardLogger()))
		assert.False(t, a.Enabled())

		plan, source := a.Plan(context.Background(), t.TempDir(), makeAnalysis(), issues)
		assert.Equal(t, model.PlanSourceFallback, source)
		assert.Equal(t, FallbackExplanation, plan.Explanation)
	})

	t.Run("model failure falls back", func(t *testing.T) {
		t.Parallel()

		inv := &stubInvoker{err: errors.New("throttled")}
		a := NewAssistant(WithInvoker(inv), WithLogger(discardLogger()))

		plan, source := a.Plan(context.Background(), t.TempDir(), makeAnalysis(), issues)
		assert.Equal(t, model.PlanSourceFallback, source)
		assert.NotEmpty(t, plan.Modifications.MakefileChanges)
		assert.Contains(t, inv.prompt, "Makefile missing Gcov coverage flags")
	})

	t.Run("model answer is parsed", func(t *testing.T) {
		t.Parallel()

		inv := &stubInvoker{text: `Sure! {"modifications": {"makefile_changes": ["CFLAGS += --coverage"]}, "explanation": "ok"}`}
		a := NewAssistant(WithInvoker(inv), WithLogger(discardLogger()))

		plan, source := a.Plan(context.Background(), t.TempDir(), makeAnalysis(), issues)
		assert.Equal(t, model.PlanSourceBedrock, source)
		assert.Equal(t, []string{"CFLAGS += --coverage"}, plan.Modifications.MakefileChanges)
		assert.Equal(t, "ok", plan.Explanation)
	})

	t.Run("unparseable answer yields the empty plan", func(t *testing.T) {
		t.Parallel()

		inv := &stubInvoker{text: "I am not sure."}
		a := NewAssistant(WithInvoker(inv), WithLogger(discardLogger()))

		plan, source := a.Plan(context.Background(), t.TempDir(), makeAnalysis(), issues)
		assert.Equal(t, model.PlanSourceBedrock, source)
		assert.True(t, plan.IsEmpty())
		assert.Equal(t, UnparsableExplanation, plan.Explanation)
	})
}

func TestConfirmer(t *testing.T) {
	t.Parallel()

	plan := model.NewEmptyPlan("x")
	plan.Modifications.MakefileChanges = []string{"a", "b"}

	tests := []struct {
		name        string
		autoApply   bool
		interactive bool
		input       string
		want        bool
		wantOut     string
	}{
		{name: "auto apply", autoApply: true, want: true, wantOut: "Auto-applying"},
		{name: "non-interactive applies", want: true, wantOut: "non-interactive"},
		{name: "enter accepts", interactive: true, input: "\n", want: true, wantOut: "[Y/n]"},
		{name: "yes accepts", interactive: true, input: "YES\n", want: true},
		{name: "no declines", interactive: true, input: "n\n", want: false},
		{name: "eof accepts", interactive: true, input: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			c := NewConfirmer(tt.autoApply, WithPrompt(strings.NewReader(tt.input), &out, tt.interactive))

			got, err := c.Confirm(plan)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Makefile: 2 changes")
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

type fakeBedrock struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeBedrock) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestBedrockInvoker(t *testing.T) {
	t.Parallel()

	settings := config.NewFile().Bedrock

	t.Run("sends an anthropic messages body", func(t *testing.T) {
		t.Parallel()

		api := &fakeBedrock{body: `{"content":[{"type":"text","text":"{\"modifications\":{}}"}],"stop_reason":"end_turn"}`}
		b := &BedrockInvoker{client: api, settings: settings, logger: discardLogger()}

		text, err := b.Invoke(context.Background(), "hello")
		require.NoError(t, err)
		assert.JSONEq(t, `{"modifications":{}}`, text)

		require.NotNil(t, api.input)
		assert.Equal(t, settings.ModelID, *api.input.ModelId)
		assert.Equal(t, "application/json", *api.input.ContentType)

		var req anthropicRequest
		require.NoError(t, json.Unmarshal(api.input.Body, &req))
		assert.Equal(t, "bedrock-2023-05-31", req.AnthropicVersion)
		assert.Equal(t, settings.MaxTokens, req.MaxTokens)
		assert.InDelta(t, settings.Temperature, req.Temperature, 1e-9)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "hello", req.Messages[0].Content)
	})

	t.Run("empty content is an error", func(t *testing.T) {
		t.Parallel()

		b := &BedrockInvoker{client: &fakeBedrock{body: `{"content":[]}`}, settings: settings, logger: discardLogger()}
		_, err := b.Invoke(context.Background(), "hello")
		require.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("API errors are wrapped", func(t *testing.T) {
		t.Parallel()

		apiErr := errors.New("AccessDeniedException")
		b := &BedrockInvoker{client: &fakeBedrock{err: apiErr}, settings: settings, logger: discardLogger()}
		_, err := b.Invoke(context.Background(), "hello")
		require.ErrorIs(t, err, apiErr)
	})
}

func TestResolveRegion(t *testing.T) {
	settings := config.NewFile().Bedrock
	settings.Region = "eu-central-1"

	t.Setenv("AWS_DEFAULT_REGION", "")
	assert.Equal(t, "eu-central-1", ResolveRegion(settings))

	t.Setenv("AWS_DEFAULT_REGION", "ap-northeast-1")
	assert.Equal(t, "ap-northeast-1", ResolveRegion(settings))

	t.Setenv("AWS_DEFAULT_REGION", "")
	settings.Region = ""
	assert.Equal(t, config.DefaultBedrockRegion, ResolveRegion(settings))
}
