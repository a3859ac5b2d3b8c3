package chat

import "time"

// ---------------------------------------------
// 🗄️ Database & API Models
// ---------------------------------------------

// FileMeta describes a stored attachment. It is embedded in message records
// and in relayed file frames.
type FileMeta struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size,omitempty"`
}

type Message struct {
	ID        int       `json:"id"`
	Sender    int       `json:"sender"`
	Recipient int       `json:"recipient"`
	Text      string    `json:"text"`
	File      *FileMeta `json:"file,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ---------------------------------------------
// ⚡ Wire Frames
// ---------------------------------------------

// inboundFrame is the superset of everything a client may send us.
// Text messages arrive either flat ({recipient, text}) or nested under
// "message"; both forms are accepted for compatibility with older clients.
type inboundFrame struct {
	Type        string    `json:"type"`
	Recipient   int       `json:"recipient"`
	Text        string    `json:"text"`
	Message     *textBody `json:"message"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Data        string    `json:"data"`
}

type textBody struct {
	Recipient int    `json:"recipient"`
	Text      string `json:"text"`
}

// OnlineUser is one entry of a presence snapshot.
type OnlineUser struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
}

type presenceUpdate struct {
	Online []OnlineUser `json:"online"`
}

// relayedEvent is what the involved parties receive for a delivered item.
// ID is a pointer so a relay without a persisted record carries an explicit
// null rather than a zero.
type relayedEvent struct {
	Type      string    `json:"type"`
	Sender    int       `json:"sender"`
	Recipient int       `json:"recipient"`
	Text      string    `json:"text,omitempty"`
	File      *FileMeta `json:"file,omitempty"`
	ID        *int      `json:"id"`
}
