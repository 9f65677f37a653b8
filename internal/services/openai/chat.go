package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/services"

	"github.com/sirupsen/logrus"
)

var ErrNoUsableClue = errors.New("no usable clue was generated")

// Prompts tried in order. Later prompts are used when an earlier answer is empty or banned.
var obfuscationPrompts = []string{
	"Turn this picture description into a short, evocative and ambiguous clue of at most six words. " +
		"Do not name the objects directly. Description: %s",
	"Write a poetic hint of a few words that hides this scene behind a metaphor: %s",
	"Give a one-line riddle, under eight words, that someone could connect to this image: %s",
}

const captionPrompt = "Describe this picture in one sentence, naming its main subjects, mood and setting."

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, model string, messages []chatMessage, temperature float64, maxTokens int) (string, error) {
	var parsed chatResponse
	req := chatRequest{Model: model, Messages: messages, Temperature: temperature, MaxTokens: maxTokens}
	if err := c.post(ctx, "/chat/completions", req, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Caption describes the card image with the vision model.
func (c *Client) Caption(ctx context.Context, card deck.Card) (string, error) {
	data, err := os.ReadFile(string(card))
	if err != nil {
		return "", services.Permanent(fmt.Errorf("reading card image: %w", err))
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType(string(card)), base64.StdEncoding.EncodeToString(data))

	messages := []chatMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: captionPrompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		},
	}}
	caption, err := c.complete(ctx, c.cfg.VisionModel, messages, 0, 80)
	if err != nil {
		return "", err
	}
	if caption == "" {
		return "", errors.New("OpenAI returned an empty caption")
	}
	return caption, nil
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// Obfuscate asks the chat model for an ambiguous clue, falling through the alternative prompts
// when an answer is empty or contains a banned phrase.
func (c *Client) Obfuscate(ctx context.Context, text string, temperature float64) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", services.Permanent(errors.New("nothing to obfuscate"))
	}
	for i, prompt := range obfuscationPrompts {
		messages := []chatMessage{
			{Role: "system", Content: "You write clues for the card game Dixit."},
			{Role: "user", Content: fmt.Sprintf(prompt, text)},
		}
		raw, err := c.complete(ctx, c.cfg.ChatModel, messages, temperature, 30)
		if err != nil {
			return "", err
		}
		clue := cleanClue(raw)
		if clue == "" || services.ContainsBanned(clue, c.cfg.BannedPhrases) {
			c.log.WithFields(logrus.Fields{"prompt": i, "clue": clue}).Debug("Discarding generated clue.")
			continue
		}
		return clue, nil
	}
	return "", services.Permanent(ErrNoUsableClue)
}

func cleanClue(raw string) string {
	line := strings.TrimSpace(strings.SplitN(raw, "\n", 2)[0])
	line = strings.Trim(line, "\"'“”` ")
	line = strings.TrimPrefix(line, "Clue:")
	return services.RemoveRepetitions(strings.TrimSpace(line))
}
