package inference

import (
	"fmt"
	"strings"
)

// AgriSystemPrompt is the system instruction for the farmer assistant.
// Responses are kept short because they are synthesized to speech.
const AgriSystemPrompt = `You are a helpful agricultural assistant for Indian farmers.
Respond in a conversational, easy-to-understand manner.
Keep responses concise but informative, two or three sentences at most.
If the question is about:
- Prices: Mention checking local mandi rates
- Weather: Suggest checking weather forecasts
- Diseases: Provide initial guidance but recommend expert consultation for serious issues
- Government schemes: Provide general information but suggest visiting official sources

Respond in the same language the farmer used.
Always be respectful and helpful. Use simple language that farmers can understand.`

// QueryContext carries optional farmer context appended to a query.
type QueryContext struct {
	// Location is the farmer's district or market area.
	Location string

	// Crops the farmer grows.
	Crops []string
}

// BuildUserMessage formats a transcribed query with its context into a
// single user message.
func BuildUserMessage(query string, qc *QueryContext) Message {
	if qc == nil {
		return NewUserMessage(query)
	}

	var parts []string
	if qc.Location != "" {
		parts = append(parts, fmt.Sprintf("Location: %s", qc.Location))
	}
	if len(qc.Crops) > 0 {
		parts = append(parts, fmt.Sprintf("Grown crops: %s", strings.Join(qc.Crops, ", ")))
	}
	if len(parts) == 0 {
		return NewUserMessage(query)
	}
	return NewUserMessage(fmt.Sprintf("%s\n\nContext: %s", query, strings.Join(parts, "; ")))
}
