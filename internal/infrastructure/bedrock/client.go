package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/smartshop/backend/internal/domain"
)

const (
	// defaultModelID is an inference profile id, not a foundation model id.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// Price lists for a dozen stores fit comfortably in 4k tokens.
	defaultMaxTokens = 4096

	// Low temperature keeps JSON replies consistent between runs.
	defaultTemperature = 0.2

	defaultTopP = 0.9

	// Bedrock on-demand quotas for Claude sit around one request per second.
	defaultRequestsPerSecond = 1.0
	defaultBurst             = 2
)

// converseAPI is the subset of the Bedrock runtime client we use
type converseAPI interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// ClientOptions configures the model client
type ClientOptions struct {
	ModelID           string
	MaxTokens         int32
	Temperature       float32
	TopP              float32
	RequestsPerSecond float64
	Burst             int
}

// Document is a binary attachment sent alongside a prompt
type Document struct {
	Name   string
	Format types.DocumentFormat
	Bytes  []byte
}

// Client sends single-turn prompts to a Bedrock model and returns its text reply
type Client struct {
	api     converseAPI
	opts    ClientOptions
	limiter *rate.Limiter
}

// NewClient creates a model client, filling zero options with defaults
func NewClient(api converseAPI, opts ClientOptions) *Client {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}

	return &Client{
		api:     api,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
	}
}

// Complete sends the prompt (and optional document) and returns the model's text
func (c *Client) Complete(ctx context.Context, prompt string, doc *Document) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	content := []types.ContentBlock{
		&types.ContentBlockMemberText{Value: prompt},
	}
	if doc != nil {
		content = append(content, &types.ContentBlockMemberDocument{
			Value: types.DocumentBlock{
				Format: doc.Format,
				Name:   aws.String(doc.Name),
				Source: &types.DocumentSourceMemberBytes{Value: doc.Bytes},
			},
		})
	}

	in := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.opts.ModelID),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: systemPrompt},
		},
		Messages: []types.Message{
			{Role: types.ConversationRoleUser, Content: content},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}

	out, err := c.api.Converse(ctx, in)
	if err != nil {
		zap.L().Error("[Bedrock] converse failed", zap.String("model", c.opts.ModelID), zap.Error(err))
		return "", fmt.Errorf("%w: %w", domain.ErrAdvisorFailure, err)
	}

	fields := []zap.Field{zap.String("stop_reason", string(out.StopReason))}
	if out.Metrics != nil {
		fields = append(fields, zap.Int64("latency_ms", aws.ToInt64(out.Metrics.LatencyMs)))
	}
	if out.Usage != nil {
		fields = append(fields,
			zap.Int32("input_tokens", aws.ToInt32(out.Usage.InputTokens)),
			zap.Int32("output_tokens", aws.ToInt32(out.Usage.OutputTokens)))
	}
	zap.L().Debug("[Bedrock] converse succeeded", fields...)

	switch out.StopReason {
	case types.StopReasonMaxTokens:
		return "", fmt.Errorf("%w: model hit the max token limit", domain.ErrMalformedResponse)
	case types.StopReasonContentFiltered, types.StopReasonGuardrailIntervened:
		return "", fmt.Errorf("%w: response blocked by safety filters", domain.ErrAdvisorFailure)
	}

	return textFromOutput(out), nil
}

// textFromOutput joins every text block of the assistant reply
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}

	return strings.Join(texts, "\n")
}
