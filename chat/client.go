package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	wsReadBufferSize  = 1024 * 64 // 64KB
	wsWriteBufferSize = 1024 * 16 // 16KB

	// Timeouts and intervals
	wsHandshakeTimeout = 45 * time.Second
	wsReadTimeout      = 60 * time.Second
	wsWriteTimeout     = 10 * time.Second
	wsPingInterval     = 30 * time.Second

	// Outbound frames queued before sends start getting dropped
	outboxSize = 256
)

var (
	connectionAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snatchbot_chat_connection_attempts_total",
		Help: "The total number of chat gateway connection attempts",
	})
	connectionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snatchbot_chat_connection_errors_total",
		Help: "The total number of chat gateway connection errors",
	})
	currentConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snatchbot_chat_current_connections",
		Help: "The current number of open chat gateway connections",
	})
	connectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snatchbot_chat_connection_duration_seconds",
		Help:    "How long chat gateway connections stay up",
		Buckets: prometheus.ExponentialBuckets(1, 2, 16),
	})
	eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snatchbot_chat_events_received_total",
		Help: "The total number of events received from the chat gateway",
	}, []string{"type"})
	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snatchbot_chat_frames_sent_total",
		Help: "The total number of frames written to the chat gateway",
	})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snatchbot_chat_frames_dropped_total",
		Help: "The total number of outbound frames dropped on a full outbox",
	})
)

// Config carries the gateway connection settings.
type Config struct {
	// Gateway is the websocket endpoint of the chat relay, e.g.
	// wss://chat.example.org/gateway
	Gateway string
	// Character is the bot character the gateway logs in as. It also
	// substitutes the <myname> placeholder in outbound markup.
	Character string
	Password  string
	// Channel is the org channel announcements are broadcast to
	Channel   string
	UserAgent string
}

// Client keeps a websocket connection to the chat gateway alive and exposes
// non-blocking send helpers. Outbound frames are queued on an internal
// outbox drained by the connection writer.
type Client struct {
	config Config
	outbox chan frame
}

func NewClient(config Config) *Client {
	return &Client{
		config: config,
		outbox: make(chan frame, outboxSize),
	}
}

// Run dials the gateway and keeps reading until the context is cancelled,
// reconnecting with exponential backoff. Inbound frames are delivered on
// events; the channel is not closed on return.
func (client *Client) Run(ctx context.Context, events chan<- Event) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 2 * time.Minute
	bo.Multiplier = 1.5
	bo.MaxElapsedTime = 0 // Never stop retrying

	dialer := websocket.Dialer{
		ReadBufferSize:   wsReadBufferSize,
		WriteBufferSize:  wsWriteBufferSize,
		HandshakeTimeout: wsHandshakeTimeout,
	}

	headers := http.Header{}
	if client.config.UserAgent != "" {
		headers.Set("User-Agent", client.config.UserAgent)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		connectionAttempts.Inc()

		conn, _, err := dialer.DialContext(ctx, client.config.Gateway, headers)
		if err != nil {
			connectionErrors.Inc()
			log.Errorf("Error connecting to chat gateway %s: %s", client.config.Gateway, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(bo.NextBackOff()):
			}
			continue
		}

		currentConnections.Inc()
		connectedAt := time.Now()
		bo.Reset()

		client.session(ctx, conn, events)

		conn.Close()
		currentConnections.Dec()
		connectionDuration.Observe(time.Since(connectedAt).Seconds())
	}
}

// session authenticates and pumps one connection until it breaks or the
// context ends.
func (client *Client) session(ctx context.Context, conn *websocket.Conn, events chan<- Event) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(frame{
		Type:     "auth",
		Username: client.config.Character,
		Password: client.config.Password,
	}); err != nil {
		connectionErrors.Inc()
		log.Errorf("Error authenticating with chat gateway: %s", err)
		return
	}

	log.WithFields(log.Fields{
		"gateway":   client.config.Gateway,
		"character": client.config.Character,
	}).Info("Connected to chat gateway")

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})

	// Writer goroutine. Pings and outbox frames share the connection; any
	// write error closes it so the read pump unblocks and Run reconnects.
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteTimeout)); err != nil {
					connectionErrors.Inc()
					log.Warn("Ping failed, closing connection for restart: ", err)
					conn.Close()
					return
				}
			case out := <-client.outbox:
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(out); err != nil {
					connectionErrors.Inc()
					log.Errorf("Error writing %s frame to chat gateway: %s", out.Type, err)
					conn.Close()
					return
				}
				framesSent.Inc()
			}
		}
	}()

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Errorf("Unexpected chat gateway close: %s", err)
			}
			connectionErrors.Inc()
			close(done)
			return
		}

		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		eventsReceived.WithLabelValues(event.Type).Inc()

		select {
		case events <- event:
		case <-ctx.Done():
			close(done)
			return
		}
	}
}

// Send queues a channel message. Sends never block the caller; when the
// outbox is full the frame is dropped with a warning.
func (client *Client) Send(channel string, text string) {
	client.queue(frame{Type: EventMessage, Channel: channel, Text: client.expand(text)})
}

// Tell queues a private message.
func (client *Client) Tell(to string, text string) {
	client.queue(frame{Type: EventTell, To: to, Text: client.expand(text)})
}

// Broadcast queues a message to the configured org channel.
func (client *Client) Broadcast(text string) {
	client.Send(client.config.Channel, text)
}

// ReplyTo answers an event in kind: tells get tells, channel messages get a
// reply on the same channel.
func (client *Client) ReplyTo(event Event, text string) {
	if event.Type == EventTell {
		client.Tell(event.Sender, text)
		return
	}
	client.Send(event.Channel, text)
}

func (client *Client) queue(out frame) {
	select {
	case client.outbox <- out:
	default:
		framesDropped.Inc()
		log.Warnf("Chat outbox full, dropping %s frame", out.Type)
	}
}

// expand substitutes the <myname> placeholder so command links point back at
// this bot character.
func (client *Client) expand(text string) string {
	return strings.ReplaceAll(text, Myname, client.config.Character)
}
