package webhook

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/unibot-go/internal/bot"
)

// LINE Messaging API limits.
const (
	maxTextRunes        = 5000
	maxQuickReplyItems  = 13
	maxQuickReplyLabel  = 20
	maxActionTextRunes  = 300
	maxEventsPerWebhook = 100
	minReplyTokenLength = 10
	loadingSeconds      = 30 // 5-60 in steps of 5; covers a full turn
)

const textOnlyReply = "I can only read text messages. Please type your question."

// replyMessage renders a bot reply as one text message. Related questions
// become quick reply buttons that send the question back when tapped.
func replyMessage(r bot.Reply) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text:       truncateRunes(r.Text, maxTextRunes),
		QuickReply: quickReply(r.RelatedQuestions),
	}
}

// quickReply returns nil when there is nothing to suggest.
func quickReply(questions []string) *messaging_api.QuickReply {
	if len(questions) == 0 {
		return nil
	}
	if len(questions) > maxQuickReplyItems {
		questions = questions[:maxQuickReplyItems]
	}

	items := make([]messaging_api.QuickReplyItem, len(questions))
	for i, q := range questions {
		items[i] = messaging_api.QuickReplyItem{
			Action: &messaging_api.MessageAction{
				Label: truncateRunes(q, maxQuickReplyLabel),
				Text:  truncateRunes(q, maxActionTextRunes),
			},
		}
	}
	return &messaging_api.QuickReply{Items: items}
}

// truncateRunes cuts s to at most n runes, marking the cut with an ellipsis.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
