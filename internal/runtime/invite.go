package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neoclaw-ai/roombot/internal/bot"
	"github.com/neoclaw-ai/roombot/internal/handler"
	"github.com/neoclaw-ai/roombot/internal/logging"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

const (
	// DefaultJoinAttempts is how many times an invite is tried before giving up.
	DefaultJoinAttempts = 3
	// DefaultJoinRetryDelay separates consecutive join attempts.
	DefaultJoinRetryDelay = 2 * time.Second
)

// RetryPolicy bounds join attempts for one invite.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// JoinOnInvite returns a handler that accepts room invites addressed to the bot.
func JoinOnInvite(policy RetryPolicy) handler.Descriptor {
	if policy.Attempts <= 0 {
		policy.Attempts = DefaultJoinAttempts
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}

	fn := handler.NewCallable("join_on_invite", func(ctx context.Context, args handler.Binding) error {
		ev, _ := args.Event("event").(*transport.MemberEvent)
		b := args.Bot("bot")
		room := args.Room("room")
		if ev == nil || b == nil || room == nil {
			return nil
		}
		if ev.Membership != transport.MembershipInvite || ev.StateKey != b.UserID {
			return nil
		}
		return joinWithRetry(ctx, b, room.ID, policy)
	},
		handler.EventParam("event"),
		handler.BotParam("bot"),
		handler.RoomParam("room"),
	)
	return handler.On(fn, handler.OnMembershipChange)
}

func joinWithRetry(ctx context.Context, b *bot.Bot, roomID string, policy RetryPolicy) error {
	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		err := b.JoinRoom(ctx, roomID)
		if err == nil {
			logging.Logger().Info("joined room", "room_id", roomID, "attempt", attempt)
			return nil
		}
		if errors.Is(err, transport.ErrJoinUnsupported) {
			return err
		}
		lastErr = err
		logging.Logger().Warn("join room failed", "room_id", roomID, "attempt", attempt, "err", err)
		if attempt == policy.Attempts {
			break
		}

		timer := time.NewTimer(policy.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("join %s after %d attempts: %w", roomID, policy.Attempts, lastErr)
}
