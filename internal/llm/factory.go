package llm

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"
)

type Config struct {
	Provider       string
	AnthropicKey   string
	AnthropicModel string
	GeminiKey      string
	GeminiModel    string
	Timeout        time.Duration
}

// New builds the configured completer wrapped with the call timeout. The
// returned closer releases provider resources and is never nil.
func New(ctx context.Context, cfg Config) (Completer, io.Closer, error) {
	var (
		c      Completer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		a, err := NewAnthropic(cfg.AnthropicKey, cfg.AnthropicModel)
		if err != nil {
			return nil, nil, err
		}
		c = a
	case ProviderGemini:
		g, err := NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		c, closer = g, g
	case ProviderNone, "":
		c = Disabled{}
	default:
		return nil, nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	return WithTimeout(c, cfg.Timeout), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
