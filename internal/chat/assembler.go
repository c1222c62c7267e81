package chat

import (
	"context"
	"fmt"
	"strings"

	"pcbd/internal/ai"
	"pcbd/internal/devices"
	"pcbd/internal/models"
)

const systemPrompt = `You are an expert PCB and electronics engineer assistant.
You are helping a user with questions about a specific PCB device.
Use the following device information as your primary context.
You must remember and use the entire conversation history provided.

%s

Provide helpful, technical, and accurate responses based on this device information and the conversation history.
If the user asks about something not related to this specific device,
politely redirect them back to topics related to this PCB device.`

const adHocPrompt = `You are an expert PCB and electronics engineer assistant.
You are helping a user with questions about PCB devices.
Use the following reference device information as context:

%s

The user may also provide a new image for comparison or analysis.
Provide helpful, technical, and accurate responses based on both the reference device information and any new image provided.`

// Assembler runs one chat turn: persist the user message, rebuild the full
// model context from the store, invoke the model, persist the reply.
// The two writes bracket the model call with no transaction between them;
// a crash mid-turn leaves an unanswered user message, which the next turn
// simply replays.
type Assembler struct {
	devices *devices.Repo
	repo    *Repo
	inv     ai.Invoker
	urlFor  func(key string) string
}

func NewAssembler(dr *devices.Repo, cr *Repo, inv ai.Invoker, urlFor func(string) string) *Assembler {
	return &Assembler{devices: dr, repo: cr, inv: inv, urlFor: urlFor}
}

// Turn appends the user's message and returns the model's reply after
// persisting it. On model failure the user message stays in the transcript
// and no ai message is written.
func (a *Assembler) Turn(ctx context.Context, deviceID uint, ownerID *uint, text string) (string, error) {
	d, err := a.devices.Get(deviceID, ownerID)
	if err != nil {
		return "", err
	}

	if _, err := a.repo.Append(d.ID, models.RoleUser, text); err != nil {
		return "", err
	}

	history, err := a.repo.History(d.ID)
	if err != nil {
		return "", err
	}
	msgs := BuildContext(d, history, a.urlFor(d.ImageKey))

	reply, err := a.inv.Invoke(ctx, msgs)
	if err != nil {
		return "", err
	}

	if _, err := a.repo.Append(d.ID, models.RoleAI, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// AdHocTurn answers one question about a device without touching its
// transcript. A caller-supplied image data URL rides along to the model
// but is never stored.
func (a *Assembler) AdHocTurn(ctx context.Context, d *models.Device, text, imageDataURL string) (string, error) {
	msgs := []ai.Message{
		{Role: ai.RoleSystem, Content: fmt.Sprintf(adHocPrompt, deviceInfo(d, a.urlFor(d.ImageKey)))},
		{Role: ai.RoleUser, Content: text, ImageURL: imageDataURL},
	}
	return a.inv.Invoke(ctx, msgs)
}

func deviceInfo(d *models.Device, imageURL string) string {
	return fmt.Sprintf(`Device Information:
- Name: %s
- Complexity: %s
- Components: %s
- Operating Voltage: %s
- Description: %s
- Image: Available at %s`,
		d.Name, d.Complexity, strings.Join(d.Components, ", "),
		d.OperatingVoltage, d.Description, imageURL)
}

// BuildContext produces the complete ordered message sequence for the model:
// one system message carrying the device's static metadata, then the
// transcript in store order. The model keeps no state of its own.
func BuildContext(d *models.Device, history []models.ChatMessage, imageURL string) []ai.Message {
	msgs := make([]ai.Message, 0, len(history)+1)
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: fmt.Sprintf(systemPrompt, deviceInfo(d, imageURL))})
	for _, m := range history {
		role := ai.RoleUser
		if m.Role == models.RoleAI {
			role = ai.RoleAssistant
		}
		msgs = append(msgs, ai.Message{Role: role, Content: m.Content})
	}
	return msgs
}
