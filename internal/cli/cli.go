package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/events"
	"github.com/drujensen/meowwchat/internal/domain/services"

	"go.uber.org/zap"
)

// CLI is a line-oriented chat console for one thread at a time.
type CLI struct {
	threadService services.ThreadService
	in            io.Reader
	out           io.Writer
	logger        *zap.Logger
}

func NewCLI(threadService services.ThreadService, in io.Reader, out io.Writer, logger *zap.Logger) *CLI {
	return &CLI{
		threadService: threadService,
		in:            in,
		out:           out,
		logger:        logger,
	}
}

// Run opens threadID and chats until the input ends or /exit. A non-empty
// prompt is sent first; without one, a thread holding only its opening
// prompt is answered automatically.
func (c *CLI) Run(ctx context.Context, threadID, prompt string) error {
	session, err := c.open(ctx, threadID)
	if err != nil {
		return err
	}

	if strings.TrimSpace(prompt) != "" {
		c.send(ctx, session, prompt)
	} else {
		c.autoStart(ctx, session)
	}

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, ">: ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		userInput := strings.TrimSpace(scanner.Text())

		switch {
		case userInput == "":
			continue
		case userInput == "?":
			c.help()
		case userInput == "/threads":
			if err := c.listThreads(ctx); err != nil {
				fmt.Fprintln(c.out, "Error listing threads:", err)
			}
		case strings.HasPrefix(userInput, "/open"):
			id := strings.TrimSpace(strings.TrimPrefix(userInput, "/open"))
			opened, err := c.open(ctx, id)
			if err != nil {
				fmt.Fprintln(c.out, "Error opening thread:", err)
				continue
			}
			session = opened
			c.autoStart(ctx, session)
		case strings.HasPrefix(userInput, "/new"):
			created, err := c.threadService.CreateThread(ctx, strings.TrimPrefix(userInput, "/new"))
			if err != nil {
				fmt.Fprintln(c.out, "Error creating thread:", err)
				continue
			}
			opened, err := c.open(ctx, created.ThreadID)
			if err != nil {
				fmt.Fprintln(c.out, "Error opening thread:", err)
				continue
			}
			session = opened
			c.autoStart(ctx, session)
		case userInput == "/exit" || userInput == "/quit" || userInput == "exit" || userInput == "quit":
			fmt.Fprintln(c.out, "Shutting down...")
			return nil
		default:
			c.send(ctx, session, userInput)
		}
	}
}

func (c *CLI) help() {
	fmt.Fprintln(c.out, "Available commands:")
	fmt.Fprintln(c.out, "? - Show this help message")
	fmt.Fprintln(c.out, "/threads - List your threads")
	fmt.Fprintln(c.out, "/open <thread-id> - Switch to another thread")
	fmt.Fprintln(c.out, "/new <prompt> - Start a new thread")
	fmt.Fprintln(c.out, "/exit - Exit the application")
}

func (c *CLI) open(ctx context.Context, threadID string) (*services.ThreadSession, error) {
	session, err := c.threadService.Session(threadID)
	if err != nil {
		return nil, err
	}
	thread, err := session.Open(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(c.out, "%s (%s)\n", thread.Title(), thread.ID)
	for _, msg := range session.Transcript() {
		c.displayMessage(msg)
	}
	return session, nil
}

func (c *CLI) listThreads(ctx context.Context) error {
	threads, err := c.threadService.ListThreads(ctx)
	if err != nil {
		return err
	}
	return PrintThreads(c.out, threads)
}

func (c *CLI) send(ctx context.Context, session *services.ThreadSession, prompt string) {
	printer := c.startPrinter(session.ThreadID())
	err := session.Submit(ctx, prompt)
	printer.finish(finalReply(session, err))
	if err != nil {
		c.logger.Error("Failed to send message", zap.Error(err))
		fmt.Fprintln(c.out, "Error sending message:", err)
	}
}

func (c *CLI) autoStart(ctx context.Context, session *services.ThreadSession) {
	printer := c.startPrinter(session.ThreadID())
	fired, err := session.AutoStart(ctx)
	if !fired {
		printer.stop()
		return
	}
	printer.finish(finalReply(session, err))
	if err != nil {
		c.logger.Error("Failed to start thread", zap.Error(err))
		fmt.Fprintln(c.out, "Error starting thread:", err)
	}
}

// displayMessage prints a message with role prefix and content.
func (c *CLI) displayMessage(msg entities.Message) {
	switch msg.DisplayRole() {
	case entities.RoleAssistant:
		fmt.Fprintf(c.out, "Assistant: %s\n", msg.Content)
	case entities.RoleUser:
		fmt.Fprintf(c.out, "User: %s\n", msg.Content)
	default:
		fmt.Fprintf(c.out, "%s: %s\n", msg.Role, msg.Content)
	}
}

// finalReply is the reply to show once a send has returned: the persisted
// one on success, otherwise whatever had streamed in.
func finalReply(session *services.ThreadSession, err error) string {
	if err != nil {
		if fragment := session.Streaming(); fragment != nil {
			return fragment.Content
		}
		return ""
	}
	return lastAssistant(session.History())
}

func lastAssistant(history []entities.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].DisplayRole() == entities.RoleAssistant {
			return history[i].Content
		}
		if history[i].DisplayRole() == entities.RoleUser {
			break
		}
	}
	return ""
}

// streamPrinter writes a reply as it streams in, one delta at a time.
type streamPrinter struct {
	out         io.Writer
	mu          sync.Mutex
	active      bool
	started     bool
	printed     string
	unsubscribe func()
}

func (c *CLI) startPrinter(threadID string) *streamPrinter {
	p := &streamPrinter{out: c.out, active: true}
	p.unsubscribe = events.SubscribeToTranscriptEvents(func(data events.TranscriptEventData) {
		if data.ThreadID != threadID || !data.Running || len(data.Messages) == 0 {
			return
		}
		last := data.Messages[len(data.Messages)-1]
		if last.DisplayRole() != entities.RoleAssistant {
			return
		}
		p.write(last.Content)
	})
	return p
}

func (p *streamPrinter) write(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active || content == p.printed {
		return
	}
	if !p.started {
		fmt.Fprint(p.out, "Assistant: ")
		p.started = true
	}
	if strings.HasPrefix(content, p.printed) {
		fmt.Fprint(p.out, content[len(p.printed):])
	} else {
		fmt.Fprint(p.out, "\n"+content)
	}
	p.printed = content
}

// finish prints whatever of final has not been streamed yet and stops.
func (p *streamPrinter) finish(final string) {
	if final != "" {
		p.write(final)
	}
	p.mu.Lock()
	if p.started {
		fmt.Fprintln(p.out)
	}
	p.mu.Unlock()
	p.stop()
}

func (p *streamPrinter) stop() {
	p.mu.Lock()
	p.active = false
	p.mu.Unlock()
	p.unsubscribe()
}
