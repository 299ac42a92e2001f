// Package gemini adapts the Google Gemini SDK to the triage model contracts
// and probes which models the configured API key can reach.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Skufu/skintriage/internal/triage"
)

var ErrNoAPIKey = errors.New("gemini api key is not configured")

// Client implements triage.TextGenerator on top of the Gemini API.
type Client struct {
	client *genai.Client
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: c}, nil
}

func (c *Client) GenerateText(ctx context.Context, modelID, prompt string, img *triage.Image) (string, error) {
	parts := []genai.Part{genai.Text(prompt)}
	if img != nil && !img.Empty() {
		parts = append(parts, genai.Blob{MIMEType: imageMIME(img), Data: img.Data})
	}

	resp, err := c.client.GenerativeModel(modelID).GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func imageMIME(img *triage.Image) string {
	if img.MIMEType == "" {
		return "image/jpeg"
	}
	return img.MIMEType
}

// responseText concatenates the text parts of every candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}
