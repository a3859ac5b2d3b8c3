package chat

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// MessageStore is what the hub needs from the persistence gateway. Creates
// are synchronous so the record id is known before delivery.
type MessageStore interface {
	CreateMessage(ctx context.Context, sender, recipient int, text string) (int, error)
	CreateFileMessage(ctx context.Context, sender, recipient int, file *FileMeta) (int, error)
}

// Config holds the hub's liveness tuning. HeartbeatTimeout is the maximum
// gap between heartbeats before eviction; SweepInterval is how often the
// monitor checks. With RequireAuth disabled a connection without a token is
// admitted as an unauthenticated placeholder instead of being rejected.
type Config struct {
	HeartbeatTimeout time.Duration
	SweepInterval    time.Duration
	RequireAuth      bool
}

// Hub routes events between live connections. It owns the Registry and is
// the only component that mutates membership, so every presence push
// happens strictly after the registry change that caused it.
type Hub struct {
	registry *Registry
	store    MessageStore
	ingest   *Ingest
	cfg      Config
}

func NewHub(store MessageStore, ingest *Ingest, cfg Config) *Hub {
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = 15 * time.Second
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 5 * time.Second
	}
	return &Hub{
		registry: NewRegistry(),
		store:    store,
		ingest:   ingest,
		cfg:      cfg,
	}
}

// Join registers the connection and pushes a fresh presence snapshot to
// everyone, including the new arrival.
func (h *Hub) Join(c *Client) {
	h.registry.Register(c)
	h.BroadcastPresence()
}

// Leave removes the connection and recomputes presence. Safe to call more
// than once; only the call that actually removed the entry closes the send
// channel and broadcasts.
func (h *Hub) Leave(c *Client) {
	if !h.registry.Unregister(c) {
		return
	}
	close(c.send)
	h.BroadcastPresence()
}

// Run drives the heartbeat monitor until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// sweep force-terminates every authenticated connection that missed its
// heartbeat window. Hard close, no handshake: the peer is presumed gone.
func (h *Hub) sweep() {
	for _, c := range h.registry.Stale(h.cfg.HeartbeatTimeout) {
		log.Printf("⏱️ terminating stale connection for user %d", c.userID)
		c.conn.Close()
		h.Leave(c)
	}
}

// Route dispatches one inbound frame from its origin connection. Malformed
// frames are dropped and logged; the connection stays open and no
// acknowledgement is sent back.
func (h *Hub) Route(c *Client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("invalid JSON from user %d: %v", c.userID, err)
		return
	}

	switch frame.Type {
	case "heartbeat":
		h.registry.Touch(c)
	case "deactivate":
		c.closeWith(websocket.CloseNormalClosure, "Client deactivated")
		h.Leave(c)
	case "file":
		h.routeFile(c, &frame)
	default:
		h.routeText(c, &frame)
	}
}

func (h *Hub) routeText(c *Client, frame *inboundFrame) {
	if !c.authenticated {
		log.Printf("dropping message from unauthenticated connection")
		return
	}

	body := frame.Message
	if body == nil {
		body = &textBody{Recipient: frame.Recipient, Text: frame.Text}
	}
	if body.Recipient == 0 || body.Text == "" {
		log.Printf("message from user %d missing recipient/text; dropped", c.userID)
		return
	}

	// Persist first so the record id is part of the relayed frame. A failed
	// create drops the relay: clients treat the id as proof of durability.
	id, err := h.store.CreateMessage(context.Background(), c.userID, body.Recipient, body.Text)
	if err != nil {
		log.Printf("❌ failed to persist message from user %d: %v", c.userID, err)
		return
	}

	h.relay(&relayedEvent{
		Type:      "message",
		Sender:    c.userID,
		Recipient: body.Recipient,
		Text:      body.Text,
		ID:        &id,
	})
}

func (h *Hub) routeFile(c *Client, frame *inboundFrame) {
	if !c.authenticated {
		log.Printf("dropping file from unauthenticated connection")
		return
	}
	if frame.Recipient == 0 || frame.Filename == "" || frame.Data == "" {
		log.Printf("file message from user %d missing fields; dropped", c.userID)
		return
	}

	meta, err := h.ingest.Store(c.userID, frame.Filename, frame.ContentType, frame.Size, frame.Data)
	if err != nil {
		// No blob means nothing to reference: abort entirely.
		log.Printf("❌ failed to store file from user %d: %v", c.userID, err)
		return
	}

	// The blob is durable at this point. A failed record create is logged
	// and the relay proceeds with a null id; the stored file is not rolled
	// back.
	var idPtr *int
	id, err := h.store.CreateFileMessage(context.Background(), c.userID, frame.Recipient, meta)
	if err != nil {
		log.Printf("❌ failed to persist file record from user %d, relaying without id: %v", c.userID, err)
	} else {
		idPtr = &id
	}

	h.relay(&relayedEvent{
		Type:      "file",
		Sender:    c.userID,
		Recipient: frame.Recipient,
		File:      meta,
		ID:        idPtr,
	})
}

// relay delivers the event to every live connection owned by the sender or
// the recipient: echo-to-sender plus multi-tab fan-out, nobody else.
func (h *Hub) relay(ev *relayedEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("failed to marshal relay payload: %v", err)
		return
	}

	targets := h.registry.FindByUser(ev.Sender)
	if ev.Recipient != ev.Sender {
		targets = append(targets, h.registry.FindByUser(ev.Recipient)...)
	}
	h.push(targets, payload)
}

// BroadcastPresence pushes the full presence snapshot to every open
// connection, authenticated or not. Full state, no deltas, no coalescing;
// fine at this scale.
func (h *Hub) BroadcastPresence() {
	payload, err := json.Marshal(presenceUpdate{Online: h.registry.Snapshot()})
	if err != nil {
		log.Printf("failed to marshal presence payload: %v", err)
		return
	}
	h.push(h.registry.All(), payload)
}

// push delivers payload to each target independently. A full outbound
// buffer means the peer stopped consuming; that one connection is dropped
// so it cannot stall traffic for anyone else.
func (h *Hub) push(targets []*Client, payload []byte) {
	var stuck []*Client
	for _, c := range targets {
		if !h.registry.Send(c, payload) {
			stuck = append(stuck, c)
		}
	}
	for _, c := range stuck {
		log.Printf("disconnecting user %d: outbound buffer full", c.userID)
		c.conn.Close()
		h.Leave(c)
	}
}
