// Package commands provides the built-in chat handlers: prefixed commands
// and a greeting for members who join a room.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/neoclaw-ai/roombot/internal/bot"
	"github.com/neoclaw-ai/roombot/internal/handler"
	"github.com/neoclaw-ai/roombot/internal/match"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

var commandNames = []string{"help", "ping", "echo", "reply"}

type commandFunc func(ctx context.Context, room *bot.Room, msg *bot.Message, b *bot.Bot, res match.Result) error

// Builtins returns every built-in handler in registration order.
func Builtins() []handler.Descriptor {
	return []handler.Descriptor{
		Help(),
		Ping(),
		Echo(),
		Reply(),
		Welcome(),
	}
}

// Help lists the built-in commands with the prefix in effect.
func Help() handler.Descriptor {
	return command("help", func(ctx context.Context, room *bot.Room, _ *bot.Message, b *bot.Bot, _ match.Result) error {
		return room.SendText(ctx, helpText(b.Prefix), "")
	})
}

// Ping replies "pong".
func Ping() handler.Descriptor {
	return command("ping", func(ctx context.Context, room *bot.Room, msg *bot.Message, _ *bot.Bot, _ match.Result) error {
		return room.Reply(ctx, msg, "pong")
	})
}

// Echo repeats its arguments as a new message. Quoted arguments keep their
// spaces and lose the quotes.
func Echo() handler.Descriptor {
	return command("echo", func(ctx context.Context, room *bot.Room, msg *bot.Message, b *bot.Bot, _ match.Result) error {
		rest := strings.TrimSpace(strings.TrimPrefix(msg.Body, b.Prefix+"echo"))
		args, err := match.QuotedArgs(rest)
		if err != nil {
			return room.Reply(ctx, msg, "cannot parse arguments: "+err.Error())
		}
		if len(args) == 0 {
			return nil
		}
		return room.SendText(ctx, strings.Join(args, " "), "")
	})
}

// Reply answers the command message with its arguments joined by spaces.
func Reply() handler.Descriptor {
	return command("reply", func(ctx context.Context, room *bot.Room, msg *bot.Message, _ *bot.Bot, res match.Result) error {
		if len(res.Args) == 0 {
			return nil
		}
		return room.Reply(ctx, msg, strings.Join(res.Args, " "))
	})
}

// Welcome greets users whose membership becomes join. The bot's own join is ignored.
func Welcome() handler.Descriptor {
	fn := handler.NewCallable("welcome", func(ctx context.Context, args handler.Binding) error {
		ev, _ := args.Event("event").(*transport.MemberEvent)
		room := args.Room("room")
		b := args.Bot("bot")
		if ev == nil || room == nil || b == nil {
			return nil
		}
		if ev.Membership != transport.MembershipJoin || ev.StateKey == b.UserID {
			return nil
		}
		return room.SendText(ctx, fmt.Sprintf("Welcome, %s!", ev.StateKey), "")
	},
		handler.EventParam("event"),
		handler.RoomParam("room"),
		handler.BotParam("bot"),
	)
	return handler.On(fn, handler.OnMembershipChange)
}

// command wraps run in a prefix-filtered OnText handler that fires only for
// an exact match of name and never for the bot's own messages.
func command(name string, run commandFunc) handler.Descriptor {
	fn := handler.NewCallable(name, func(ctx context.Context, args handler.Binding) error {
		msg := args.Message("message")
		room := args.Room("room")
		b := args.Bot("bot")
		if msg == nil || room == nil || b == nil || msg.FromBot(b) {
			return nil
		}
		res := b.Command(msg, name)
		if !res.Matched {
			return nil
		}
		return run(ctx, room, msg, b, res)
	},
		handler.MessageParam("message"),
		handler.RoomParam("room"),
		handler.BotParam("bot"),
	)
	return handler.Compose(fn, handler.OnText, handler.WithPrefix(""))
}

func helpText(prefix string) string {
	names := make([]string, len(commandNames))
	for i, name := range commandNames {
		names[i] = prefix + name
	}
	return "Commands: " + strings.Join(names, ", ")
}
