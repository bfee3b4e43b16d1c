package client

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/model"
	"golang.org/x/time/rate"
)

const (
	// DefaultEstimatorTimeout limita a chamada ao modelo
	DefaultEstimatorTimeout = 20 * time.Second

	// DefaultEstimatesPerMinute é o teto conservador de chamadas ao modelo
	DefaultEstimatesPerMinute = 30

	estimateMaxTokens = 16
)

const estimatorSystemPrompt = `You estimate software change requests for a client services agency.
Reply with a single integer: the number of engineering hours needed, between 1 and 500.
Do not add units, ranges or explanations.`

// ErrNoEstimate indica que a resposta do modelo não continha um número válido
var ErrNoEstimate = errors.New("resposta do modelo sem estimativa")

var firstInteger = regexp.MustCompile(`\d+`)

// EstimatorOptions configura o estimador
type EstimatorOptions struct {
	APIKey        string
	Model         string
	Timeout       time.Duration
	PerMinute     int
	ClientOptions []option.RequestOption
}

// Estimator pede ao modelo da Anthropic uma estimativa em horas
type Estimator struct {
	client  anthropic.Client
	model   anthropic.Model
	timeout time.Duration
	limiter *rate.Limiter
}

// NewEstimator cria o estimador. ClientOptions permite apontar para outro endpoint em testes.
func NewEstimator(opts EstimatorOptions) *Estimator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultEstimatorTimeout
	}
	if opts.PerMinute <= 0 {
		opts.PerMinute = DefaultEstimatesPerMinute
	}

	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(1),
	}, opts.ClientOptions...)

	return &Estimator{
		client:  anthropic.NewClient(reqOpts...),
		model:   anthropic.Model(opts.Model),
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.PerMinute)), 1),
	}
}

// Estimate retorna as horas estimadas para a change request
func (e *Estimator) Estimate(ctx context.Context, req model.EstimateRequest) (int, error) {
	log := logger.Get(ctx)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	msg, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: estimateMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: estimatorSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(estimatePrompt(req))),
		},
	})
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Erro ao chamar o estimador")
		return 0, fmt.Errorf("erro ao chamar o estimador: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	hours, err := ParseHours(text.String())
	if err != nil {
		return 0, err
	}

	log.Debug().
		Int("hours", hours).
		Dur("elapsed", time.Since(start)).
		Msg("Estimativa recebida")
	return hours, nil
}

func estimatePrompt(req model.EstimateRequest) string {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "(no description)"
	}
	return fmt.Sprintf("Type: %s\nTitle: %s\nDescription:\n%s", req.Type, strings.TrimSpace(req.Title), description)
}

// ParseHours extrai o primeiro inteiro da resposta e exige 1..500
func ParseHours(text string) (int, error) {
	match := firstInteger.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("%w: %q", ErrNoEstimate, text)
	}
	hours, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoEstimate, text)
	}
	if hours < model.MinEstimateHours || hours > model.MaxEstimateHours {
		return 0, fmt.Errorf("%w: %d fora de %d..%d", ErrNoEstimate, hours, model.MinEstimateHours, model.MaxEstimateHours)
	}
	return hours, nil
}

// StaticEstimator devolve sempre o mesmo valor; usado quando não há chave de API
type StaticEstimator struct {
	Hours int
	Err   error
}

// Estimate implementa service.Estimator
func (s StaticEstimator) Estimate(context.Context, model.EstimateRequest) (int, error) {
	return s.Hours, s.Err
}
