package channels

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/neoclaw-ai/roombot/internal/transport"
	"golang.org/x/term"
)

const (
	defaultReplPrompt = "you> "
	// CLIUserID is the bot account in the local room simulation.
	CLIUserID = "@roombot:local"
	// CLISenderID is the person typing at the terminal.
	CLISenderID = "@you:local"
	// CLIDefaultRoom is the room the REPL starts in.
	CLIDefaultRoom = "!lobby:local"
	// Allow queued input to finish when stdin closes before shutting down the pump.
	pumpDrainTimeout = 5 * time.Second
)

var _ transport.Source = (*CLISource)(nil)

// CLISource simulates a chat server on the terminal. Each line becomes a text
// event in the current room; "/invite <room>" sends the bot an invite and a
// successful join makes that room current.
type CLISource struct {
	in  io.Reader
	out io.Writer

	rl       *readline.Instance
	fallback *bufio.Reader
	pump     *Pump

	outMu   sync.Mutex
	stateMu sync.Mutex
	current string
	joined  map[string]struct{}
}

// NewCLI creates a CLI source over stdin/stdout style streams.
func NewCLI(in io.Reader, out io.Writer) *CLISource {
	return &CLISource{
		in:      in,
		out:     out,
		pump:    NewPump(defaultPumpQueue),
		current: CLIDefaultRoom,
		joined:  map[string]struct{}{CLIDefaultRoom: {}},
	}
}

// RegisterCallback implements transport.EventSource.
func (c *CLISource) RegisterCallback(kind transport.EventKind, cb transport.Callback) error {
	return c.pump.RegisterCallback(kind, cb)
}

// UserID implements transport.Client.
func (c *CLISource) UserID() string {
	return CLIUserID
}

// SendText prints body as a bot message in roomID.
func (c *CLISource) SendText(_ context.Context, roomID, body, replyTo string) error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	var err error
	if replyTo != "" {
		_, err = fmt.Fprintf(c.out, "[%s] bot (re %s)> %s\n", roomID, shortID(replyTo), body)
	} else {
		_, err = fmt.Fprintf(c.out, "[%s] bot> %s\n", roomID, body)
	}
	return err
}

// JoinRoom marks roomID as joined and makes it the current room.
func (c *CLISource) JoinRoom(_ context.Context, roomID string) error {
	if strings.TrimSpace(roomID) == "" {
		return errors.New("room id is required")
	}
	c.stateMu.Lock()
	c.joined[roomID] = struct{}{}
	c.current = roomID
	c.stateMu.Unlock()
	c.printf("joined %s\n", roomID)
	return nil
}

// Joined reports whether the bot has joined roomID.
func (c *CLISource) Joined(roomID string) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	_, ok := c.joined[roomID]
	return ok
}

// Listen runs the interactive loop until EOF, /quit, /exit, or ctx is done.
func (c *CLISource) Listen(ctx context.Context) error {
	if err := c.ensureInputReady(); err != nil {
		return err
	}
	if c.rl != nil {
		defer c.rl.Close()
	}

	c.printf("Local room simulation in %s. Type /invite <room> to invite the bot, /quit to stop.\n", c.currentRoom())

	pumpCtx, cancelPump := context.WithCancel(ctx)
	if err := c.pump.Start(pumpCtx); err != nil {
		cancelPump()
		return err
	}
	defer func() {
		cancelPump()
		c.pump.Wait()
	}()

	if err := c.pump.Enqueue(ctx, nil, &transport.ReadyEvent{UserID: CLIUserID}); err != nil {
		return err
	}

	inputCh := make(chan inputEvent)
	go c.readInputLoop(ctx, inputCh)

	for {
		select {
		case <-ctx.Done():
			c.pump.Stop()
			return nil
		case event, ok := <-inputCh:
			if !ok {
				c.drainPump()
				return nil
			}
			if event.err != nil {
				if errors.Is(event.err, io.EOF) {
					c.drainPump()
					return nil
				}
				if errors.Is(event.err, context.Canceled) {
					c.pump.Stop()
					return nil
				}
				return event.err
			}

			line := strings.TrimSpace(event.line)
			if line == "" {
				continue
			}
			if quit, err := c.handleLine(ctx, line); err != nil || quit {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		}
	}
}

func (c *CLISource) handleLine(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit":
		c.drainPump()
		return true, nil
	case "/invite":
		if len(fields) != 2 {
			c.printf("usage: /invite <room>\n")
			return false, nil
		}
		room := &transport.RoomState{ID: fields[1], Name: fields[1]}
		return false, c.pump.Enqueue(ctx, room, &transport.MemberEvent{
			ID:         newEventID(),
			Sender:     CLISenderID,
			StateKey:   CLIUserID,
			Membership: transport.MembershipInvite,
		})
	}

	roomID := c.currentRoom()
	room := &transport.RoomState{ID: roomID, Name: roomID, Members: 2}
	return false, c.pump.Enqueue(ctx, room, &transport.TextEvent{
		ID:     newEventID(),
		Sender: CLISenderID,
		Body:   line,
	})
}

func (c *CLISource) currentRoom() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.current
}

func (c *CLISource) drainPump() {
	drainCtx, cancel := context.WithTimeout(context.Background(), pumpDrainTimeout)
	defer cancel()
	if err := c.pump.WaitUntilIdle(drainCtx); err != nil {
		c.pump.Stop()
	}
}

func (c *CLISource) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *CLISource) ensureInputReady() error {
	if c.rl != nil || c.fallback != nil {
		return nil
	}

	rl, err := newReadline(c.in, c.out)
	if err == nil {
		c.rl = rl
		return nil
	}

	c.fallback = bufio.NewReader(c.in)
	return nil
}

func (c *CLISource) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if c.rl != nil {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return "", io.EOF
			}
			return "", err
		}
		return line, nil
	}

	line, err := c.fallback.ReadString('\n')
	if err != nil {
		if len(line) > 0 {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

func (c *CLISource) readInputLoop(ctx context.Context, out chan<- inputEvent) {
	defer close(out)
	for {
		line, err := c.readLine(ctx)
		select {
		case out <- inputEvent{line: line, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

type inputEvent struct {
	line string
	err  error
}

func newEventID() string {
	return "$" + uuid.NewString()
}

func shortID(id string) string {
	if len(id) <= 9 {
		return id
	}
	return id[:9]
}

func newReadline(in io.Reader, out io.Writer) (*readline.Instance, error) {
	stdin, ok := in.(io.ReadCloser)
	if !ok {
		return nil, fmt.Errorf("stdin is not read-closer")
	}
	inFile, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(inFile.Fd())) {
		return nil, fmt.Errorf("stdin is not terminal")
	}
	outFile, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(outFile.Fd())) {
		return nil, fmt.Errorf("stdout is not terminal")
	}

	return readline.NewEx(&readline.Config{
		Prompt:          defaultReplPrompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".roombot_history"),
		HistoryLimit:    200,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           stdin,
		Stdout:          out,
		Stderr:          out,
	})
}
