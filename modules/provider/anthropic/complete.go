package anthropic

import (
	"context"
	"strings"

	"github.com/flemzord/mindcanvas/internal/provider"
)

// Complete sends a synchronous completion request to the Anthropic Messages API.
func (a *Anthropic) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	if !a.hasKey {
		return provider.CompletionResponse{}, provider.ErrMissingCredentials
	}

	params, prefill := convertRequest(req, &a.config)

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return provider.CompletionResponse{}, mapError(err)
	}

	resp := convertResponse(msg)
	if strings.TrimSpace(resp.Content) == "" {
		return provider.CompletionResponse{}, provider.ErrEmptyResponse
	}
	resp.Content = prefill + resp.Content
	return resp, nil
}
