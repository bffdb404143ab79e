package webhook

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/unibot-go/internal/bot"
)

func TestQuickReplyLimits(t *testing.T) {
	questions := make([]string, 15)
	for i := range questions {
		questions[i] = fmt.Sprintf("Question number %d about something long", i)
	}

	qr := quickReply(questions)
	require.NotNil(t, qr)
	require.Len(t, qr.Items, maxQuickReplyItems)
	for _, item := range qr.Items {
		action := item.Action.(*messaging_api.MessageAction)
		assert.LessOrEqual(t, utf8.RuneCountInString(action.Label), maxQuickReplyLabel)
		assert.True(t, strings.HasPrefix(action.Text, "Question number"))
	}

	assert.Nil(t, quickReply(nil))
	assert.Nil(t, quickReply([]string{}))
}

func TestReplyMessageTruncatesText(t *testing.T) {
	msg := replyMessage(bot.Reply{Text: strings.Repeat("é", maxTextRunes+10)})
	assert.Equal(t, maxTextRunes, utf8.RuneCountInString(msg.Text))
	assert.Nil(t, msg.QuickReply)
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 20, "short"},
		{"exactly", 7, "exactly"},
		{"truncated", 5, "trun…"},
		{"日本語のテキスト", 4, "日本語…"},
		{"ab", 1, "a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateRunes(tt.in, tt.n), tt.in)
	}
}

func TestChatID(t *testing.T) {
	tests := []struct {
		name     string
		source   webhook.SourceInterface
		want     string
		personal bool
	}{
		{"user", webhook.UserSource{UserId: "U1"}, "U1", true},
		{"group", webhook.GroupSource{GroupId: "G1", UserId: "U1"}, "G1", false},
		{"room", webhook.RoomSource{RoomId: "R1", UserId: "U1"}, "R1", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chatID(tt.source))
			assert.Equal(t, tt.personal, isPersonalChat(tt.source))
		})
	}
}
