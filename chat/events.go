package chat

// Event types carried by the gateway protocol.
const (
	EventMessage = "message" // org or private channel message
	EventTell    = "tell"    // private message to the bot character
	EventSystem  = "system"  // gateway notices, ignored by the dispatcher
)

// Event is one inbound frame from the chat gateway.
type Event struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Sender  string `json:"sender,omitempty"`
	Text    string `json:"text,omitempty"`
}

// frame is the outbound wire format. Auth, channel messages and tells share
// one shape; unused fields are omitted on the wire.
type frame struct {
	Type     string `json:"type"`
	Channel  string `json:"channel,omitempty"`
	To       string `json:"to,omitempty"`
	Text     string `json:"text,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}
