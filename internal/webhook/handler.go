// Package webhook serves the LINE Messaging API webhook. Text messages are
// answered through the bot, follow events get the greeting, and unfollow
// events forget the chat's dialogue state.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/unibot-go/internal/bot"
	"github.com/garyellow/unibot-go/internal/config"
	"github.com/garyellow/unibot-go/internal/ctxutil"
	"github.com/garyellow/unibot-go/internal/logger"
	"github.com/garyellow/unibot-go/internal/metrics"
	"github.com/garyellow/unibot-go/internal/ratelimit"
)

// Replier is the part of *bot.Bot the webhook drives.
type Replier interface {
	Reply(ctx context.Context, raw, sessionID string) bot.Reply
	Reset(sessionID string)
}

// Messenger sends messages through the LINE Messaging API.
type Messenger interface {
	Reply(replyToken string, messages []messaging_api.MessageInterface) error
	ShowLoading(chatID string, seconds int32) error
}

type lineMessenger struct {
	client *messaging_api.MessagingApiAPI
}

func (m lineMessenger) Reply(replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := m.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

func (m lineMessenger) ShowLoading(chatID string, seconds int32) error {
	_, err := m.client.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: seconds,
	})
	return err
}

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	messenger     Messenger
	bot           Replier
	metrics       *metrics.Metrics
	logger        *logger.Logger
	replyLimiter  *ratelimit.Limiter       // shared outbound budget
	chatLimiter   *ratelimit.ClientLimiter // per chat, optional
	wg            sync.WaitGroup
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	ChannelSecret string
	ChannelToken  string

	Bot Replier
	// Messenger overrides the Messaging API client built from ChannelToken.
	Messenger Messenger
	// ChatLimiter throttles each chat. Nil disables per-chat limits.
	ChatLimiter *ratelimit.ClientLimiter
	// ReplyRate caps outbound replies per second across all chats.
	ReplyRate float64

	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("webhook: channel secret is required")
	}
	if cfg.Bot == nil {
		return nil, errors.New("webhook: bot is required")
	}

	messenger := cfg.Messenger
	if messenger == nil {
		client, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
		if err != nil {
			return nil, fmt.Errorf("create messaging API client: %w", err)
		}
		messenger = lineMessenger{client: client}
	}

	rate := cfg.ReplyRate
	if rate <= 0 {
		rate = 100
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}

	return &Handler{
		channelSecret: cfg.ChannelSecret,
		messenger:     messenger,
		bot:           cfg.Bot,
		metrics:       cfg.Metrics,
		logger:        log.WithModule("webhook"),
		replyLimiter:  ratelimit.New(rate, rate),
		chatLimiter:   cfg.ChatLimiter,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE wants the 200 before any event is handled.
	c.Status(http.StatusOK)

	events := cb.Events
	if len(events) > maxEventsPerWebhook {
		h.logger.WithField("event_count", len(events)).
			WithField("limit", maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		events = events[:maxEventsPerWebhook]
	}
	// The request is done once we return, so take our own copy.
	events = append([]webhook.EventInterface(nil), events...)

	base := ctxutil.PreserveTracing(c.Request.Context())
	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()

		for _, event := range events {
			h.processEvent(base, event)
		}
	})
}

// processEvent handles a single webhook event and replies when there is
// something to say.
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, config.TurnProcessing)
	defer cancel()

	eventID, redelivery := eventMeta(event)
	log := h.logger
	if eventID != "" {
		ctx = ctxutil.WithRequestID(ctx, eventID)
		log = log.WithRequestID(eventID)
	}
	if redelivery {
		log = log.WithField("is_redelivery", true)
	}

	source := eventSource(event)
	chat := chatID(source)
	if chat != "" {
		ctx = ctxutil.WithChatID(ctx, chat)
	}

	var (
		eventType  string
		replyToken string
		message    messaging_api.MessageInterface
	)

	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType, replyToken = "message", e.ReplyToken
		message = h.handleMessage(ctx, e, chat)
	case webhook.FollowEvent:
		eventType, replyToken = "follow", e.ReplyToken
		// A (re)follow starts over with the greeting.
		h.bot.Reset(chat)
		message = replyMessage(h.bot.Reply(ctx, "hello", chat))
	case webhook.UnfollowEvent:
		eventType = "unfollow"
		h.bot.Reset(chat)
	default:
		log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	status := "success"
	switch {
	case message == nil:
		status = "ignored"
	case !h.reply(ctx, log, replyToken, message):
		status = "reply_error"
	}
	h.recordWebhook(eventType, status, time.Since(start))

	log.WithField("event_type", eventType).
		WithField("status", status).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Event processed")
}

// handleMessage returns nil when the message should go unanswered.
func (h *Handler) handleMessage(ctx context.Context, e webhook.MessageEvent, chat string) messaging_api.MessageInterface {
	personal := isPersonalChat(e.Source)

	text, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		if personal {
			return &messaging_api.TextMessage{Text: textOnlyReply}
		}
		return nil
	}

	raw, ok := utterance(text, personal)
	if !ok || chat == "" {
		return nil
	}

	if h.chatLimiter != nil && !h.chatLimiter.Allow(chat) {
		h.logger.WithField("chat_id", chat).Debug("Chat rate limited; not answering")
		return nil
	}

	if err := h.messenger.ShowLoading(chat, loadingSeconds); err != nil && personal {
		// Groups do not support the animation; only 1:1 failures are interesting.
		h.logger.WithError(err).Debug("Failed to show loading animation")
	}

	return replyMessage(h.bot.Reply(ctx, raw, chat))
}

func (h *Handler) reply(ctx context.Context, log *logger.Logger, token string, message messaging_api.MessageInterface) bool {
	if len(token) < minReplyTokenLength {
		log.WithField("token_length", len(token)).Debug("Invalid reply token; skipping reply")
		return false
	}

	if !h.replyLimiter.Allow() {
		log.Warn("Reply rate limit exceeded; waiting")
		if h.metrics != nil {
			h.metrics.RecordRateLimiterDrop("line_reply")
		}
		if err := h.replyLimiter.Wait(ctx); err != nil {
			return false
		}
	}

	err := h.messenger.Reply(token, []messaging_api.MessageInterface{message})
	if err == nil {
		return true
	}
	if strings.Contains(err.Error(), "Invalid reply token") {
		log.WithError(err).Debug("Reply token already used or expired")
	} else {
		log.WithError(err).Error("Failed to send reply")
	}
	return false
}

func (h *Handler) recordWebhook(eventType, status string, d time.Duration) {
	if h.metrics != nil {
		h.metrics.RecordWebhook(eventType, status, d.Seconds())
	}
}

func eventMeta(event webhook.EventInterface) (id string, redelivery bool) {
	var dc *webhook.DeliveryContext
	switch e := event.(type) {
	case webhook.MessageEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.FollowEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.UnfollowEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	}
	return id, dc != nil && dc.IsRedelivery
}

// Shutdown waits for in-flight event processing. It returns ctx.Err() when
// ctx ends first.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
