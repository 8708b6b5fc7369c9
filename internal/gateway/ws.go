package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"vla/internal/domain"
	"vla/internal/router"
)

// DefaultChannelID labels echoed frames that carry no channelId.
const DefaultChannelID = "default"

// wsReadLimit caps one inbound frame; prospect messages are short.
const wsReadLimit = 64 << 10

// WSMessage is one websocket frame, e.g.
//
//	{"type": "chat", "content": "Do you allow cats?", "channelId": "7"}
//
// A connection is bound to one community through the query parameters
// community_id, group_id and api_key. channelId is the prospect's client id,
// so one connection can drive several independent conversations. All three
// IDs are integers.
type WSMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	ChannelID string `json:"channelId,omitempty"`
}

// OriginChecker admits the listed browser origins. An empty list admits any
// origin; requests without an Origin header are not from a browser and are
// always admitted.
func OriginChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.ToLower(origin)]
	}
}

// wsSession is one upgraded connection.
type wsSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	agent   Agent
	logger  *slog.Logger

	communityID string
	groupID     string
	apiKey      string
}

// HandleWS upgrades a GET to a websocket and answers frames until the client
// goes away. "chat" frames go to agent, bracketed by typing_start and
// typing_stop; other frames, or every frame when agent is nil, are echoed.
func HandleWS(w http.ResponseWriter, r *http.Request, agent Agent, logger *slog.Logger, checkOrigin func(*http.Request) bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := r.URL.Query()
	for _, name := range []string{"community_id", "group_id"} {
		if v := q.Get(name); v != "" && !isID(v) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: name + " must be an integer"})
			return
		}
	}
	if checkOrigin == nil {
		checkOrigin = OriginChecker(nil)
	}
	upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	s := &wsSession{
		conn:        conn,
		agent:       agent,
		logger:      logger,
		communityID: q.Get("community_id"),
		groupID:     q.Get("group_id"),
		apiKey:      q.Get("api_key"),
	}
	s.serve(r.Context())
}

func orDefault(id string) string {
	if id == "" {
		return DefaultChannelID
	}
	return id
}

func (s *wsSession) serve(ctx context.Context) {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var in WSMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			s.send(WSMessage{Type: "error", Content: "invalid JSON"})
			continue
		}
		if s.agent == nil || in.Type != "chat" {
			s.send(WSMessage{Type: in.Type, Content: "echo: " + in.Content, ChannelID: orDefault(in.ChannelID)})
			continue
		}
		if !isID(s.communityID) || !isID(in.ChannelID) {
			s.send(WSMessage{Type: "error", Content: "chat needs an integer community_id and channelId", ChannelID: in.ChannelID})
			continue
		}
		s.chat(ctx, in)
	}
}

// chat runs one prospect turn. Agent failures are reported in the reply
// content so the tester sees them.
func (s *wsSession) chat(ctx context.Context, in WSMessage) {
	s.send(WSMessage{Type: "typing_start", ChannelID: in.ChannelID})
	defer s.send(WSMessage{Type: "typing_stop", ChannelID: in.ChannelID})

	reply, err := s.agent.Route(ctx, router.Request{
		Key:     domain.ConversationKey{CommunityID: s.communityID, ClientID: in.ChannelID},
		GroupID: s.groupID,
		APIKey:  s.apiKey,
		Message: in.Content,
	})
	if err != nil {
		s.logger.Warn("ws chat failed", "community", s.communityID, "channel", in.ChannelID, "error", err)
		reply = "error: " + err.Error()
	}
	s.send(WSMessage{Type: in.Type, Content: reply, ChannelID: in.ChannelID})
}

func (s *wsSession) send(msg WSMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug("ws write failed", "type", msg.Type, "error", err)
	}
}
