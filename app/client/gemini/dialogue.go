package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Dialogue is one open chat. It is owned by a single session and is simply
// dropped when that session ends; the API holds no server-side resources.
type Dialogue struct {
	chat *genai.Chat
}

// Send submits one text turn and returns the reply text.
func (d *Dialogue) Send(ctx context.Context, text string) (string, error) {
	return d.send(ctx, genai.Part{Text: text})
}

// SendImage submits one turn combining text with an inline binary attachment.
func (d *Dialogue) SendImage(ctx context.Context, text string, data []byte, mimeType string) (string, error) {
	return d.send(ctx,
		genai.Part{Text: text},
		genai.Part{InlineData: &genai.Blob{
			Data:     data,
			MIMEType: mimeType,
		}},
	)
}

func (d *Dialogue) send(ctx context.Context, parts ...genai.Part) (string, error) {
	response, err := d.chat.SendMessage(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	text := strings.TrimSpace(response.Text())
	if text == "" {
		return "", fmt.Errorf("no reply text in response")
	}

	return text, nil
}
