package chat

import (
	"context"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
)

// Exchange runs one full send cycle, strictly sequential: (1) optimistic
// local append of the user message, (2) its persistence, (3) a single
// completion call carrying the raw text, (4) local append of the bot reply,
// (5) its persistence. A precondition no-op in step 1 skips everything; a
// completion failure aborts steps 4-5, leaving the user's message as the
// last visible entry with no error surfaced.
//
// It returns whether a bot reply arrived, so the presentation layer can
// clear its busy indicator.
func Exchange(ctx context.Context, m *Manager, completer domain.Completer, text string) bool {
	chatID, userMsg, ok := m.SendMessage(ctx, text)
	if !ok {
		return false
	}

	reply, err := completer.Complete(ctx, userMsg.Text)
	if err != nil {
		m.log.Error().Err(err).Str("chat_id", chatID).Msg("completion failed, skipping bot message")
		return false
	}

	m.AddBotMessage(ctx, chatID, domain.Message{
		Text:     reply,
		SenderBy: domain.SenderBot,
		Date:     domain.Now(),
		State:    domain.StateReceived,
	})
	return true
}
