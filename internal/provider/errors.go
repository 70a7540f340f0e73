package provider

import "errors"

// Sentinel errors for provider operations.
var (
	// ErrMissingCredentials indicates the provider has no API key configured.
	ErrMissingCredentials = errors.New("provider credentials missing")

	// ErrAuthentication indicates the provider rejected the credentials.
	ErrAuthentication = errors.New("provider authentication failed")

	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("context length exceeded")

	// ErrProviderDown indicates the provider is temporarily unavailable.
	ErrProviderDown = errors.New("provider unavailable")

	// ErrEmptyResponse indicates the provider answered without usable content.
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// Class returns a short label for err, suitable for logs and metrics.
func Class(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, ErrContextLength):
		return "context_length"
	case errors.Is(err, ErrProviderDown):
		return "unavailable"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	default:
		return "error"
	}
}
