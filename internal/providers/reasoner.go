package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jackzampolin/papercheck/internal/llmcall"
	"github.com/jackzampolin/papercheck/internal/prompts"
	classifyprompts "github.com/jackzampolin/papercheck/internal/prompts/classify"
	mistakeprompts "github.com/jackzampolin/papercheck/internal/prompts/mistakes"
	"github.com/jackzampolin/papercheck/internal/record"
)

// Response format modes for OpenAI-compatible endpoints.
const (
	// ResponseFormatJSONSchema asks the endpoint to enforce the schema.
	ResponseFormatJSONSchema = "json_schema"
	// ResponseFormatJSONObject asks for any JSON object; the schema goes in the prompt.
	ResponseFormatJSONObject = "json_object"
	// ResponseFormatPrompt sends no response_format at all.
	ResponseFormatPrompt = "prompt"
)

// ResponseFormats lists the accepted response format modes.
var ResponseFormats = []string{ResponseFormatJSONSchema, ResponseFormatJSONObject, ResponseFormatPrompt}

const (
	DefaultClassifyModel = "qwen-max"
	DefaultMistakesModel = "qwen-vl-max-latest"
)

// ReasonerConfig holds configuration for the reasoning client.
type ReasonerConfig struct {
	BaseURL        string
	APIKey         string
	ClassifyModel  string
	MistakesModel  string
	ResponseFormat string        // json_schema (default), json_object or prompt
	Timeout        time.Duration // Per attempt
	MaxRetries     int           // Attempts after the first
	RetryDelay     time.Duration // Base of the exponential backoff
	RateLimit      int           // Requests per minute
	Prompts        *prompts.Resolver
	Recorder       *llmcall.Recorder // Optional call trace
	HTTPClient     *http.Client      // Optional (tests)
	Logger         *slog.Logger
}

// Reasoner implements Classifier and MistakeDetector against any
// OpenAI-compatible chat completions endpoint.
type Reasoner struct {
	client         openai.Client
	classifyModel  string
	mistakesModel  string
	responseFormat string
	timeout        time.Duration
	maxRetries     int
	retryDelay     time.Duration
	limiter        *RateLimiter
	prompts        *prompts.Resolver
	recorder       *llmcall.Recorder
	classifySchema *responseSchema
	mistakesSchema *responseSchema
	logger         *slog.Logger
}

var (
	_ Classifier      = (*Reasoner)(nil)
	_ MistakeDetector = (*Reasoner)(nil)
)

// NewReasoner creates a reasoning client.
func NewReasoner(cfg ReasonerConfig) (*Reasoner, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("reasoning base URL is required")
	}
	if cfg.ClassifyModel == "" {
		cfg.ClassifyModel = DefaultClassifyModel
	}
	if cfg.MistakesModel == "" {
		cfg.MistakesModel = DefaultMistakesModel
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = ResponseFormatJSONSchema
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.NewResolver(nil, "", cfg.Logger)
	}
	classifyprompts.RegisterPrompts(cfg.Prompts)
	mistakeprompts.RegisterPrompts(cfg.Prompts)

	switch cfg.ResponseFormat {
	case ResponseFormatJSONSchema, ResponseFormatJSONObject, ResponseFormatPrompt:
	default:
		return nil, fmt.Errorf("unknown response format %q", cfg.ResponseFormat)
	}

	classifySchema, err := compileResponseSchema(classifyprompts.SchemaName, classifyprompts.Schema)
	if err != nil {
		return nil, err
	}
	mistakesSchema, err := compileResponseSchema(mistakeprompts.SchemaName, mistakeprompts.Schema)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	// Retries are owned by retry-go so the limiter sees every attempt.
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}

	return &Reasoner{
		client:         openai.NewClient(opts...),
		classifyModel:  cfg.ClassifyModel,
		mistakesModel:  cfg.MistakesModel,
		responseFormat: cfg.ResponseFormat,
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
		limiter:        NewRateLimiter(cfg.RateLimit),
		prompts:        cfg.Prompts,
		recorder:       cfg.Recorder,
		classifySchema: classifySchema,
		mistakesSchema: mistakesSchema,
		logger:         cfg.Logger.With("component", "reasoner"),
	}, nil
}

// Classify decides subject and title from OCR lines or a page image.
func (r *Reasoner) Classify(ctx context.Context, in ClassifyInput) (*Classification, error) {
	system, err := r.render(classifyprompts.SystemKey, nil)
	if err != nil {
		return nil, err
	}

	var user openai.ChatCompletionMessageParamUnion
	switch {
	case in.Image != nil:
		text, err := r.render(classifyprompts.UserImageKey, nil)
		if err != nil {
			return nil, err
		}
		user = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(text),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: in.Image.DataURI()}),
		})
	case len(in.Texts) > 0:
		text, err := r.render(classifyprompts.UserTextKey, classifyprompts.TextData{
			Count: len(in.Texts),
			Texts: in.Texts,
		})
		if err != nil {
			return nil, err
		}
		user = openai.UserMessage(text)
	default:
		return nil, errors.New("classify input has neither texts nor image")
	}

	var out Classification
	if err := r.complete(ctx, classifyprompts.SystemKey, r.classifyModel, r.classifySchema, system, user, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DetectMistakes lists the graded mistakes visible on one page.
func (r *Reasoner) DetectMistakes(ctx context.Context, img Image) ([]record.Mistake, error) {
	system, err := r.render(mistakeprompts.SystemKey, nil)
	if err != nil {
		return nil, err
	}
	text, err := r.render(mistakeprompts.UserKey, nil)
	if err != nil {
		return nil, err
	}
	user := openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(text),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: img.DataURI()}),
	})

	var res mistakeprompts.Result
	if err := r.complete(ctx, mistakeprompts.SystemKey, r.mistakesModel, r.mistakesSchema, system, user, &res); err != nil {
		return nil, err
	}
	if res.MistakesCount != len(res.Mistakes) {
		r.logger.Debug("model mistakes_count disagrees with list",
			"claimed", res.MistakesCount, "listed", len(res.Mistakes))
	}

	mistakes := make([]record.Mistake, 0, len(res.Mistakes))
	for _, m := range res.Mistakes {
		mistakes = append(mistakes, record.Mistake{Question: m.Question, Reason: m.Reason})
	}
	return mistakes, nil
}

func (r *Reasoner) render(key string, data any) (string, error) {
	p, err := r.prompts.Resolve(key)
	if err != nil {
		return "", err
	}
	return prompts.Render(key, p.Text, data)
}

// complete sends one chat completion and decodes the validated reply into
// out, retrying transient failures with exponential backoff. Each call,
// retries included, is recorded once when a recorder is configured.
func (r *Reasoner) complete(
	ctx context.Context,
	promptKey, model string,
	schema *responseSchema,
	system string,
	user openai.ChatCompletionMessageParamUnion,
	out any,
) error {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(0),
	}
	switch r.responseFormat {
	case ResponseFormatJSONSchema:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schema.name,
					Schema: schema.document,
					Strict: openai.Bool(true),
				},
			},
		}
	case ResponseFormatJSONObject:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
		system += schemaInstruction(schema)
	default:
		system += schemaInstruction(schema)
	}
	params.Messages = []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		user,
	}

	logger := r.logger.With("prompt", promptKey, "model", model)
	call := llmcall.NewCall(ctx, promptKey, model)
	call.PromptHash = prompts.HashText(system)
	call.ResponseFormat = r.responseFormat
	start := time.Now()

	err := retry.Do(
		func() error {
			call.Attempts++
			if err := r.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			completion, err := r.client.Chat.Completions.New(attemptCtx, params)
			if err != nil {
				err = mapOpenAIError(err)
				var rl *RateLimitError
				if errors.As(err, &rl) {
					r.limiter.Record429(rl.RetryAfter)
				}
				return err
			}
			call.InputTokens += int(completion.Usage.PromptTokens)
			call.OutputTokens += int(completion.Usage.CompletionTokens)
			if len(completion.Choices) == 0 {
				return fmt.Errorf("%w: no choices in reply", ErrMalformedResponse)
			}
			call.Response = completion.Choices[0].Message.Content
			return schema.decode(call.Response, out)
		},
		retry.Context(ctx),
		retry.Attempts(uint(r.maxRetries)+1),
		retry.Delay(r.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && isRetryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("reasoning call failed, retrying", "attempt", n+1, "error", err)
		}),
	)

	call.LatencyMs = int(time.Since(start).Milliseconds())
	call.Success = err == nil
	if err != nil {
		call.Error = err.Error()
	}
	r.recorder.Record(call)

	if err != nil {
		return fmt.Errorf("%s: %w", promptKey, err)
	}

	logger.Debug("reasoning call complete", "duration", time.Since(start))
	return nil
}
