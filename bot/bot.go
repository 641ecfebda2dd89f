package bot

import (
	"context"
	"fmt"
	"snatchbot/chat"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const defaultWorkers = 4

var commandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "snatchbot_commands_handled_total",
	Help: "The total number of chat commands handled",
}, []string{"command"})

// Handler answers one parsed command. An empty reply sends nothing.
type Handler func(ctx context.Context, cmd *Command) string

// Command is one chat command addressed to the bot.
type Command struct {
	Name  string
	Args  []string
	Event chat.Event
}

// Sender is the slice of the chat client the dispatcher replies through.
// Kept narrow so tests can record replies instead of opening sockets.
type Sender interface {
	ReplyTo(event chat.Event, text string)
	Broadcast(text string)
}

type Config struct {
	// Prefix marks commands in channel messages, e.g. "!". Tells need no
	// prefix.
	Prefix string
	// Workers is the number of goroutines handling commands concurrently
	Workers int
}

// Bot parses inbound chat events into commands and dispatches them to
// registered handlers on a small worker pool.
type Bot struct {
	sender   Sender
	config   Config
	handlers map[string]Handler
}

func New(sender Sender, config Config) *Bot {
	if config.Prefix == "" {
		config.Prefix = "!"
	}
	if config.Workers <= 0 {
		config.Workers = defaultWorkers
	}

	return &Bot{
		sender:   sender,
		config:   config,
		handlers: map[string]Handler{},
	}
}

// Register binds a command name to its handler. Registration is not safe
// once Run has started.
func (bot *Bot) Register(name string, handler Handler) {
	bot.handlers[strings.ToLower(name)] = handler
}

// Run consumes chat events until the context is cancelled or the channel is
// closed.
func (bot *Bot) Run(ctx context.Context, events <-chan chat.Event) {
	var wg sync.WaitGroup

	for i := 0; i < bot.config.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			for {
				select {
				case <-ctx.Done():
					log.Infof("Command worker %d: Shutting down", id)
					return
				case event, ok := <-events:
					if !ok {
						return
					}
					bot.dispatch(ctx, event)
				}
			}
		}(i)
	}

	wg.Wait()
}

func (bot *Bot) dispatch(ctx context.Context, event chat.Event) {
	cmd, ok := bot.ParseCommand(event)
	if !ok {
		return
	}

	handler, ok := bot.handlers[cmd.Name]
	if !ok {
		// Channels stay quiet about unknown commands, tells get a pointer
		if event.Type == chat.EventTell {
			bot.sender.ReplyTo(event, bot.helpLine())
		}
		return
	}

	log.WithFields(log.Fields{
		"command": cmd.Name,
		"sender":  event.Sender,
	}).Info("Handling command")
	commandsHandled.WithLabelValues(cmd.Name).Inc()

	if reply := handler(ctx, cmd); reply != "" {
		bot.sender.ReplyTo(event, reply)
	}
}

// ParseCommand extracts a command from an event. Channel messages must start
// with the prefix; tells are treated as commands as-is, with or without one.
func (bot *Bot) ParseCommand(event chat.Event) (*Command, bool) {
	text := strings.TrimSpace(event.Text)

	switch event.Type {
	case chat.EventMessage:
		if !strings.HasPrefix(text, bot.config.Prefix) {
			return nil, false
		}
		text = strings.TrimPrefix(text, bot.config.Prefix)
	case chat.EventTell:
		text = strings.TrimPrefix(text, bot.config.Prefix)
	default:
		return nil, false
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, false
	}

	return &Command{
		Name:  strings.ToLower(fields[0]),
		Args:  fields[1:],
		Event: event,
	}, true
}

func (bot *Bot) helpLine() string {
	names := lo.Keys(bot.handlers)
	sort.Strings(names)
	return fmt.Sprintf("Unknown command. Try: %s", strings.Join(names, ", "))
}
