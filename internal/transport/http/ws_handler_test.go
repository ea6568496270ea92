package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"challenge-arena/internal/app"
	"challenge-arena/internal/domain"
	"challenge-arena/internal/infra/memory"
	"challenge-arena/internal/questionbank"
	"github.com/gorilla/websocket"
)

type testServer struct {
	*httptest.Server
	registry *app.Registry
	ledger   *memory.RewardLedger
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()
	bank := questionbank.New(
		map[string][]domain.Question{
			"General": {{Prompt: "What is 2 + 2?", Answer: "4", Points: 10, TimeLimit: 15}},
		},
		[]domain.Question{{Prompt: "What has keys but opens no locks?", Answer: "Piano", Points: 20}},
		[]string{"Invent a new animal"},
	)
	loader := memory.NewStaticBankLoader(map[string]questionbank.Bank{"default": bank})
	store := memory.NewSessionStore()
	registry := app.NewRegistry(store)
	ledger := memory.NewRewardLedger()

	rules := app.DefaultRules()
	rules.SettleDelay = 10 * time.Millisecond
	orchestrator := app.NewOrchestrator(registry, rules, app.WithRewards(ledger))
	service := app.NewChallengeService(store, memory.NewBankRepository(loader, time.Minute), registry, orchestrator,
		app.ServiceSettings{BankName: "default", MaxPlayers: 4})

	handler := NewHandler(service, NewIdentityResolver(secret), Options{})
	srv := &testServer{Server: httptest.NewServer(handler.Routes()), registry: registry, ledger: ledger}
	t.Cleanup(srv.Close)
	return srv
}

func (s *testServer) do(t *testing.T, method, path, player string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if player != "" {
		req.Header.Set("X-Player-Id", player)
		req.Header.Set("X-Player-Name", strings.ToUpper(player))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) createRoom(t *testing.T, host, challenge string) createRoomResponse {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/rooms", host, map[string]any{"challenge_type": challenge, "topic": "General"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room: status %d", resp.StatusCode)
	}
	var created createRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	return created
}

func (s *testServer) dial(t *testing.T, room, player string) *websocket.Conn {
	t.Helper()
	u := "ws" + s.URL[len("http"):] + "/ws/" + room + "/" + player
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", player, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitReachable(t *testing.T, registry *app.Registry, ids ...string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		all := true
		for _, id := range ids {
			all = all && registry.Reachable(id)
		}
		if all {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("players %v never connected", ids)
}

func TestWebSocketRiddleFlow(t *testing.T) {
	srv := newTestServer(t, "")
	created := srv.createRoom(t, "p1", "riddle_battle")
	if created.ShareCode != strings.ToUpper(created.RoomID) {
		t.Fatalf("share code should be the upper-cased id, got %q", created.ShareCode)
	}

	resp := srv.do(t, http.MethodPost, "/rooms/join", "p2", map[string]any{"share_code": created.ShareCode})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join: status %d", resp.StatusCode)
	}

	p1 := srv.dial(t, created.RoomID, "p1")
	p2 := srv.dial(t, created.RoomID, "p2")
	waitReachable(t, srv.registry, "p1", "p2")

	if err := p2.WriteJSON(map[string]any{"type": "ready"}); err != nil {
		t.Fatalf("write ready: %v", err)
	}
	for _, conn := range []*websocket.Conn{p1, p2} {
		started := readUntil(t, conn, domain.EventGameStarted)
		if started["total_questions"].(float64) != 1 {
			t.Fatalf("expected one riddle, got %v", started["total_questions"])
		}
		q := readUntil(t, conn, domain.EventNewQuestion)
		if q["round"].(float64) != 1 || q["question"] != "What has keys but opens no locks?" {
			t.Fatalf("unexpected question %v", q)
		}
	}

	for _, conn := range []*websocket.Conn{p1, p2} {
		if err := conn.WriteJSON(map[string]any{"type": "answer", "answer": "piano", "time": 2.5}); err != nil {
			t.Fatalf("write answer: %v", err)
		}
	}
	for _, conn := range []*websocket.Conn{p1, p2} {
		res := readUntil(t, conn, domain.EventAnswerResult)
		if res["correct"] != true || res["points_earned"].(float64) < 20 {
			t.Fatalf("expected correct answer with bonus, got %v", res)
		}
		ended := readUntil(t, conn, domain.EventRoundEnded)
		if ended["correct_answer"] != "Piano" {
			t.Fatalf("expected answer revealed, got %v", ended["correct_answer"])
		}
		final := readUntil(t, conn, domain.EventGameEnded)
		if final["winner"] == nil {
			t.Fatalf("expected a winner, got %v", final)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.ledger.Balance("p1")+srv.ledger.Balance("p2") < 125 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.ledger.Balance("p1")+srv.ledger.Balance("p2") != 125 {
		t.Fatalf("expected winner and participant stars deposited")
	}
}

// startRiddleDuel opens a running two-player riddle room and drains the
// opening events on both connections.
func (s *testServer) startRiddleDuel(t *testing.T) (string, *websocket.Conn, *websocket.Conn) {
	t.Helper()
	created := s.createRoom(t, "p1", "riddle_battle")
	if resp := s.do(t, http.MethodPost, "/rooms/join", "p2", map[string]any{"room_id": created.RoomID}); resp.StatusCode != http.StatusOK {
		t.Fatalf("join: status %d", resp.StatusCode)
	}
	p1 := s.dial(t, created.RoomID, "p1")
	p2 := s.dial(t, created.RoomID, "p2")
	waitReachable(t, s.registry, "p1", "p2")
	if err := p2.WriteJSON(map[string]any{"type": "ready"}); err != nil {
		t.Fatalf("write ready: %v", err)
	}
	for _, conn := range []*websocket.Conn{p1, p2} {
		readUntil(t, conn, domain.EventNewQuestion)
	}
	return created.RoomID, p1, p2
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	srv := newTestServer(t, "")
	_, conn, _ := srv.startRiddleDuel(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	for _, msg := range []map[string]any{
		{"type": "dance"},
		{"type": "answer"},
		{"type": "chat"},
		{"type": "chat", "message": "still here"},
		{"type": "answer", "answer": "piano", "time": 1},
	} {
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write %v: %v", msg, err)
		}
	}

	chat := readUntil(t, conn, domain.EventChat)
	if chat["message"] != "still here" || chat["player_id"] != "p1" {
		t.Fatalf("expected only the complete chat relayed, got %v", chat)
	}
	res := readUntil(t, conn, domain.EventAnswerResult)
	if res["correct"] != true {
		t.Fatalf("an answer frame without a value must not use up the round, got %v", res)
	}
}

func TestLeavingRunningRoomClosesSocket(t *testing.T) {
	srv := newTestServer(t, "")
	roomID, _, p2 := srv.startRiddleDuel(t)

	if resp := srv.do(t, http.MethodPost, "/rooms/"+roomID+"/leave", "p2", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("leave: status %d", resp.StatusCode)
	}
	for i := 0; i < 20; i++ {
		_ = p2.SetReadDeadline(time.Now().Add(5 * time.Second))
		if _, _, err := p2.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("expected a normal close, got %v", err)
			}
			if srv.registry.Reachable("p2") {
				t.Fatalf("p2 should be unbound after leaving")
			}
			return
		}
	}
	t.Fatalf("socket stayed open after leaving")
}

func TestRoomEndpoints(t *testing.T) {
	srv := newTestServer(t, "")
	created := srv.createRoom(t, "p1", "deep_dive")

	resp := srv.do(t, http.MethodGet, "/rooms/"+created.ShareCode, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get room: status %d", resp.StatusCode)
	}
	var got roomResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if got.Room.ID != created.RoomID || len(got.Room.Players) != 1 || got.Room.Players[0].Name != "P1" {
		t.Fatalf("unexpected room %+v", got.Room)
	}

	qr := srv.do(t, http.MethodGet, "/rooms/"+created.RoomID+"/qr", "", nil)
	if qr.StatusCode != http.StatusOK || qr.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("qr: status %d type %q", qr.StatusCode, qr.Header.Get("Content-Type"))
	}

	if leave := srv.do(t, http.MethodPost, "/rooms/"+created.RoomID+"/leave", "p1", nil); leave.StatusCode != http.StatusNoContent {
		t.Fatalf("leave: status %d", leave.StatusCode)
	}
	if gone := srv.do(t, http.MethodGet, "/rooms/"+created.RoomID, "", nil); gone.StatusCode != http.StatusNotFound {
		t.Fatalf("expected empty room removed, got %d", gone.StatusCode)
	}
}

func TestRoomErrors(t *testing.T) {
	srv := newTestServer(t, "")

	cases := []struct {
		name   string
		method string
		path   string
		player string
		body   any
		want   int
	}{
		{"no identity", http.MethodPost, "/rooms", "", map[string]any{"challenge_type": "quick_think"}, http.StatusUnauthorized},
		{"bad type", http.MethodPost, "/rooms", "p1", map[string]any{"challenge_type": "chess"}, http.StatusBadRequest},
		{"unknown room", http.MethodPost, "/rooms/join", "p1", map[string]any{"room_id": "nope"}, http.StatusNotFound},
		{"missing room id", http.MethodPost, "/rooms/join", "p1", map[string]any{}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if resp := srv.do(t, tc.method, tc.path, tc.player, tc.body); resp.StatusCode != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
		}
	}

	created := srv.createRoom(t, "p1", "quick_think")
	if resp := srv.do(t, http.MethodPost, "/rooms/join", "p2", map[string]any{"room_id": created.RoomID}); resp.StatusCode != http.StatusOK {
		t.Fatalf("join: status %d", resp.StatusCode)
	}
	if other := srv.do(t, http.MethodPost, "/rooms", "p3", map[string]any{"challenge_type": "quick_think"}); other.StatusCode != http.StatusCreated {
		t.Fatalf("create second room: status %d", other.StatusCode)
	}
	if busy := srv.do(t, http.MethodPost, "/rooms", "p2", map[string]any{"challenge_type": "quick_think"}); busy.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for a player already in a room, got %d", busy.StatusCode)
	}

	u := "ws" + srv.URL[len("http"):] + "/ws/" + created.RoomID + "/stranger"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected non-member websocket to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %v", resp)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, eventType string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", eventType, err)
		}
		if msg["type"] == eventType {
			return msg
		}
	}
	t.Fatalf("no %s event within 20 messages", eventType)
	return nil
}
