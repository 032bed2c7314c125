package channels

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/neoclaw-ai/roombot/internal/logging"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

type telegramSendMessageFunc func(context.Context, *bot.SendMessageParams) (*models.Message, error)

var _ transport.Source = (*TelegramSource)(nil)

// TelegramSource long-polls Telegram and delivers updates as transport
// events. Chats are rooms; the chat ID is the room ID.
type TelegramSource struct {
	token   string
	allowed map[int64]struct{}
	pump    *Pump

	stateMu     sync.Mutex
	userID      string
	sendMessage telegramSendMessageFunc
}

// NewTelegram creates a Telegram source over one bot token. An empty
// allowedUsers list lets every sender through.
func NewTelegram(token string, allowedUsers []int64) *TelegramSource {
	allowed := make(map[int64]struct{}, len(allowedUsers))
	for _, id := range allowedUsers {
		allowed[id] = struct{}{}
	}
	return &TelegramSource{
		token:   token,
		allowed: allowed,
		pump:    NewPump(defaultPumpQueue),
	}
}

// RegisterCallback implements transport.EventSource.
func (t *TelegramSource) RegisterCallback(kind transport.EventKind, cb transport.Callback) error {
	return t.pump.RegisterCallback(kind, cb)
}

// UserID returns the bot's Telegram user ID once connected.
func (t *TelegramSource) UserID() string {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.userID
}

// SendText sends body as plain text to the chat roomID. A non-empty replyTo
// quotes that message ID.
func (t *TelegramSource) SendText(ctx context.Context, roomID, body, replyTo string) error {
	chatID, err := strconv.ParseInt(roomID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", roomID, err)
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   body,
	}
	if replyTo != "" {
		messageID, err := strconv.Atoi(replyTo)
		if err != nil {
			return fmt.Errorf("invalid telegram message id %q: %w", replyTo, err)
		}
		params.ReplyParameters = &models.ReplyParameters{MessageID: messageID}
	}

	t.stateMu.Lock()
	send := t.sendMessage
	t.stateMu.Unlock()
	if send == nil {
		return errors.New("telegram bot is not connected")
	}
	_, err = send(ctx, params)
	return err
}

// JoinRoom is unsupported: bots are added to chats by their members.
func (t *TelegramSource) JoinRoom(context.Context, string) error {
	return transport.ErrJoinUnsupported
}

// Listen connects to Telegram and delivers events until ctx is canceled.
func (t *TelegramSource) Listen(ctx context.Context) error {
	if strings.TrimSpace(t.token) == "" {
		return errors.New("telegram token is required")
	}
	if len(t.allowed) == 0 {
		logging.Logger().Warn("No Telegram allow-list configured. Every sender can trigger handlers.")
	}

	b, err := bot.New(strings.TrimSpace(t.token), bot.WithDefaultHandler(t.onUpdate))
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("fetch telegram bot profile: %w", err)
	}
	logging.Logger().Info(fmt.Sprintf("Connected to Telegram Bot @%s", strings.TrimSpace(me.Username)))

	userID := strconv.FormatInt(me.ID, 10)
	t.stateMu.Lock()
	t.userID = userID
	t.sendMessage = b.SendMessage
	t.stateMu.Unlock()

	if err := t.pump.Start(ctx); err != nil {
		return err
	}
	defer t.pump.Wait()

	if err := t.pump.Enqueue(ctx, nil, &transport.ReadyEvent{UserID: userID}); err != nil {
		return err
	}

	go b.Start(ctx)
	<-ctx.Done()
	t.pump.Stop()
	return nil
}

func (t *TelegramSource) onUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	t.handleMessage(ctx, update.Message)
}

// handleMessage maps one inbound Telegram message to zero or more events.
func (t *TelegramSource) handleMessage(ctx context.Context, msg *models.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	if !t.isAllowedUser(msg.From.ID) {
		logging.Logger().Debug("telegram sender not allowed", "user_id", msg.From.ID)
		return
	}

	room := telegramRoom(msg.Chat)
	sender := strconv.FormatInt(msg.From.ID, 10)
	eventID := strconv.Itoa(msg.ID)

	var events []transport.Event
	switch {
	case len(msg.NewChatMembers) > 0:
		for _, u := range msg.NewChatMembers {
			events = append(events, &transport.MemberEvent{
				ID:         eventID,
				Sender:     sender,
				StateKey:   strconv.FormatInt(u.ID, 10),
				Membership: transport.MembershipJoin,
				Source:     msg,
			})
		}
	case msg.LeftChatMember != nil:
		events = append(events, &transport.MemberEvent{
			ID:         eventID,
			Sender:     sender,
			StateKey:   strconv.FormatInt(msg.LeftChatMember.ID, 10),
			Membership: transport.MembershipLeave,
			Source:     msg,
		})
	case msg.Text != "":
		logging.Logger().Info(
			"telegram inbound message",
			"room_id", room.ID,
			"user_id", sender,
			"text", messagePreview(msg.Text, 100),
		)
		events = append(events, &transport.TextEvent{
			ID:     eventID,
			Sender: sender,
			Body:   msg.Text,
			Source: msg,
		})
	}

	for _, ev := range events {
		if err := t.pump.Enqueue(ctx, room, ev); err != nil {
			logging.Logger().Warn("telegram enqueue failed", "room_id", room.ID, "event_id", eventID, "err", err)
			return
		}
	}
}

func (t *TelegramSource) isAllowedUser(id int64) bool {
	if len(t.allowed) == 0 {
		return true
	}
	_, ok := t.allowed[id]
	return ok
}

func telegramRoom(chat models.Chat) *transport.RoomState {
	name := strings.TrimSpace(chat.Title)
	if name == "" {
		name = strings.TrimSpace(chat.Username)
	}
	if name == "" {
		name = strings.TrimSpace(chat.FirstName)
	}
	return &transport.RoomState{
		ID:   strconv.FormatInt(chat.ID, 10),
		Name: name,
	}
}

func messagePreview(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
