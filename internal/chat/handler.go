package chat

import (
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"pairchat/internal/blob"
	myMiddleware "pairchat/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

type Handler struct {
	hub   *Hub
	gate  *AuthGate
	repo  *Repository
	blobs blob.Store
}

func NewHandler(hub *Hub, gate *AuthGate, repo *Repository, blobs blob.Store) *Handler {
	return &Handler{
		hub:   hub,
		gate:  gate,
		repo:  repo,
		blobs: blobs,
	}
}

// ServeWs upgrades the connection, runs the auth gate, and hands the
// client to the hub. The credential check runs after the upgrade on
// purpose: a reject has to reach the client as a distinct close code, and
// that needs an established websocket.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{
		hub:      h.hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		lastSeen: time.Now(),
	}

	identity, err := h.gate.Authenticate(r)
	switch {
	case err == nil:
		client.userID = identity.UserID
		client.username = identity.Username
		client.authenticated = true
	case errors.Is(err, ErrMissingToken) && !h.hub.cfg.RequireAuth:
		// Admitted as an unauthenticated placeholder: sees presence, cannot
		// send or receive relayed messages.
	case errors.Is(err, ErrMissingToken):
		rejectWs(conn, CloseMissingCredential, "Missing token")
		return
	case errors.Is(err, ErrEmptyClaims) && !h.hub.cfg.RequireAuth:
	case errors.Is(err, ErrEmptyClaims):
		rejectWs(conn, CloseInvalidPayload, "Invalid token payload")
		return
	default:
		// Invalid or expired signature is rejected even in optional-auth
		// mode: a bad credential is never downgraded to anonymous.
		rejectWs(conn, CloseInvalidCredential, "Invalid token")
		return
	}

	h.hub.Join(client)

	go client.writePump()
	go client.readPump()
}

// rejectWs closes a never-registered connection with a category close code.
func rejectWs(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}

// GetMessages returns the conversation between the authenticated user and
// the user named in the path, oldest first.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	me, ok := r.Context().Value(myMiddleware.UserKey).(int)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	other, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	msgs, err := h.repo.MessagesBetween(r.Context(), me, other)
	if err != nil {
		http.Error(w, "failed to load messages", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgs)
}

// ServeUpload streams a stored attachment back out of the blob store.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.blobs.Read(r.Context(), name)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ctype)
	w.Write(data)
}
