package webhook

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// chatID returns the conversation a source belongs to: the user for a 1:1
// chat, otherwise the group or room. Unknown sources yield "".
func chatID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

func isPersonalChat(source webhook.SourceInterface) bool {
	_, ok := source.(webhook.UserSource)
	return ok
}

// eventSource returns the source of the event kinds the handler answers.
func eventSource(event webhook.EventInterface) webhook.SourceInterface {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.Source
	case webhook.FollowEvent:
		return e.Source
	case webhook.UnfollowEvent:
		return e.Source
	}
	return nil
}
