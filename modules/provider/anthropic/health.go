package anthropic

import (
	"context"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/mindcanvas/internal/provider"
)

// HealthCheck sends a 1-token completion. The API has no health endpoint.
func (a *Anthropic) HealthCheck(ctx context.Context) error {
	if !a.hasKey {
		return provider.ErrMissingCredentials
	}
	_, err := a.client.Messages.New(ctx, sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(a.config.Model),
		MaxTokens: 1,
		Messages: []sdkanthropic.MessageParam{
			sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock("hi")),
		},
	})
	return mapError(err)
}
