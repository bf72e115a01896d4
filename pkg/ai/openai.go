package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "percorso",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of AI exercise generation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "percorso",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of AI exercise generation failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGenerator implements Generator against the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a new generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	tracer := otel.Tracer("github.com/percorso-labs/percorso-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIGenerator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Generate sends the generation request to OpenAI and parses the response.
func (g *OpenAIGenerator) Generate(parent context.Context, input GenerationInput) (GeneratedExercise, error) {
	ctx, span := g.tracer.Start(parent, "openai.generate", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("question_count", input.QuestionCount),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: generatorSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildGenerationPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GeneratedExercise{}, fmt.Errorf("openai generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GeneratedExercise{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := parseGenerationResponse(content)
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GeneratedExercise{}, err
	}

	result.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return result, nil
}

func generatorSystemPrompt() string {
	return "You are an instructional designer. Respond with a JSON object containing title, description, instructions, and a " +
		"questions array. Each question has id, type (text, number, select, true_false, multiple_choice, multiple_answer), " +
		"text, options, correctAnswers, points, and an optional explanation. Every auto-gradable question must include its " +
		"correct answers."
}

func buildGenerationPrompt(input GenerationInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Topic\n")
	builder.WriteString(input.Topic)
	if input.SourceMaterial != "" {
		builder.WriteString("\n\n## Source Material\n")
		builder.WriteString(input.SourceMaterial)
	}
	if input.Difficulty != "" {
		builder.WriteString("\n\n## Difficulty\n")
		builder.WriteString(input.Difficulty)
	}
	if input.Language != "" {
		builder.WriteString("\n\n## Language\n")
		builder.WriteString(input.Language)
	}
	if input.QuestionCount > 0 {
		builder.WriteString(fmt.Sprintf("\n\n## Question Count\n%d", input.QuestionCount))
	}
	if len(input.QuestionMix) > 0 {
		builder.WriteString("\n\n## Question Mix\n")
		for questionType, count := range input.QuestionMix {
			builder.WriteString(fmt.Sprintf("- %s: %d\n", questionType, count))
		}
	}
	if input.ExtraGuidance != "" {
		builder.WriteString("\n\n## Notes\n")
		builder.WriteString(input.ExtraGuidance)
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseGenerationResponse(content string) (GeneratedExercise, error) {
	var data GeneratedExercise
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return GeneratedExercise{}, fmt.Errorf("parse generation json: %w", err)
	}

	if strings.TrimSpace(data.Title) == "" {
		return GeneratedExercise{}, fmt.Errorf("generation response missing title")
	}

	for i := range data.Questions {
		if data.Questions[i].Points <= 0 {
			data.Questions[i].Points = 1
		}
	}

	return data, nil
}
