// Package gemini provides embedding and answer generation via the Google
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const providerName = "gemini"

// NewClient opens a Gemini API client.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// parseAPIError extracts a human-readable error from the API response,
// wrapped with sentinel for correct 502 mapping.
func parseAPIError(err error, sentinel error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini API error %d: %s: %w", apiErr.Code, apiErr.Message, sentinel)
	}
	return fmt.Errorf("gemini request failed: %v: %w", err, sentinel)
}
