package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 250 // ⚠️ Start small. Each pair is two users, two sockets.
	MsgCount  = 20  // Messages per user
)

type AuthResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Token    string `json:"access_token"`
}

func main() {
	log.Printf("🔥 STARTING STRESS TEST: %d Users, %d Messages each...", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	// Pairs: User 0a talks to User 0b, 1a to 1b...
	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Println("✅ LOAD TEST COMPLETE")
}

func runPair(pairID int) {
	userA := fmt.Sprintf("u_%d_a", pairID)
	userB := fmt.Sprintf("u_%d_b", pairID)
	pass := "password123"

	a := authenticate(userA, pass)
	b := authenticate(userB, pass)
	if a == nil || b == nil {
		return // Failed auth
	}

	var wsWg sync.WaitGroup
	wsWg.Add(2)

	go spamChat(&wsWg, a, b.ID)
	go spamChat(&wsWg, b, a.ID)

	wsWg.Wait()
}

// authenticate registers (ignores error if exists) and logs in.
// Login returns the user id directly, no lookup needed.
func authenticate(username, password string) *AuthResponse {
	// Register (Ignore error, might already exist)
	postJSON("/register", map[string]string{"username": username, "password": password})

	resp, err := postJSON("/login", map[string]string{"username": username, "password": password})
	if err != nil {
		log.Printf("❌ Login Failed [%s]: %v", username, err)
		return nil
	}
	defer resp.Body.Close()

	var data AuthResponse
	json.NewDecoder(resp.Body).Decode(&data)
	if data.Token == "" {
		log.Printf("❌ Login returned no token [%s]", username)
		return nil
	}
	return &data
}

// spamChat connects with the session cookie, keeps heartbeats flowing, and
// sends direct messages to the partner.
func spamChat(wg *sync.WaitGroup, me *AuthResponse, partnerID int) {
	defer wg.Done()

	header := http.Header{}
	header.Set("Cookie", "token="+me.Token)
	conn, _, err := websocket.DefaultDialer.Dial(WSURL, header)
	if err != nil {
		log.Printf("❌ WS Connect Fail [%s]: %v", me.Username, err)
		return
	}
	defer conn.Close()

	// Drain server pushes (presence + echoes) so the read buffer never fills
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(5 * time.Second)
	defer heartbeat.Stop()

	for i := 0; i < MsgCount; i++ {
		select {
		case <-heartbeat.C:
			conn.WriteJSON(map[string]string{"type": "heartbeat"})
		default:
		}

		msg := map[string]interface{}{
			"recipient": partnerID,
			"text":      fmt.Sprintf("LoadTest Msg %d from %s", i, me.Username),
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("❌ Send Fail [%s]: %v", me.Username, err)
			break
		}
		// Small sleep to prevent instant localhost bottleneck (simulate real network)
		time.Sleep(10 * time.Millisecond)
	}

	conn.WriteJSON(map[string]string{"type": "deactivate"})
	log.Printf("✅ %s finished sending %d msgs", me.Username, MsgCount)
}

func postJSON(endpoint string, data interface{}) (*http.Response, error) {
	jsonData, _ := json.Marshal(data)
	return http.Post(BaseURL+endpoint, "application/json", bytes.NewBuffer(jsonData))
}
