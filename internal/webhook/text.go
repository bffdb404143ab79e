package webhook

import (
	"slices"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// utterance returns the text to answer. Group and room messages count only
// when they mention the bot, and the bot's own mentions are cut out first.
func utterance(msg webhook.TextMessageContent, personal bool) (string, bool) {
	if !personal && !mentionsSelf(msg.Mention) {
		return "", false
	}
	text := stripSelfMentions(msg.Text, msg.Mention)
	return text, strings.TrimSpace(text) != ""
}

func selfMentions(m *webhook.Mention) []webhook.UserMentionee {
	if m == nil {
		return nil
	}
	var out []webhook.UserMentionee
	for _, mentionee := range m.Mentionees {
		if u, ok := mentionee.(webhook.UserMentionee); ok && u.IsSelf {
			out = append(out, u)
		}
	}
	return out
}

func mentionsSelf(m *webhook.Mention) bool {
	return len(selfMentions(m)) > 0
}

// stripSelfMentions removes the bot's mentions and collapses whitespace.
// Mention offsets count UTF-16 code units in the LINE API; for the BMP the
// rune index is the same.
func stripSelfMentions(text string, m *webhook.Mention) string {
	mentions := selfMentions(m)
	if len(mentions) == 0 {
		return text
	}

	// Cut from the back so earlier offsets stay valid.
	slices.SortFunc(mentions, func(a, b webhook.UserMentionee) int {
		return int(b.Index - a.Index)
	})

	runes := []rune(text)
	for _, u := range mentions {
		start := max(int(u.Index), 0)
		end := min(int(u.Index+u.Length), len(runes))
		if start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}
