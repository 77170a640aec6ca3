package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	channelPrefix  = "runs:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans run events out to the websocket clients of each user. With redis
// configured, events are also relayed to hubs running in other processes.
type Hub struct {
	id      string
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	cancel     context.CancelFunc
	subscribed chan struct{}
}

type Client struct {
	UserID string
	Send   chan []byte
}

// envelope tags relayed messages with the publishing hub so it can skip
// its own events, which were already delivered locally.
type envelope struct {
	Origin  string `json:"origin"`
	Payload []byte `json:"payload"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		id:         uuid.NewString(),
		redis:      redisClient,
		clients:    map[string]map[*Client]struct{}{},
		subscribed: make(chan struct{}),
	}

	if redisClient == nil {
		close(h.subscribed)
		h.cancel = func() {}
		return h
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.subscribeRedis(ctx)
	return h
}

// Subscribed is closed once the redis subscription is live (or immediately
// when redis is not configured).
func (h *Hub) Subscribed() <-chan struct{} {
	return h.subscribed
}

func (h *Hub) Close() {
	h.cancel()
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.UserID]; ok {
		if _, registered := userClients[client]; !registered {
			return
		}
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.clients, client.UserID)
		}
		close(client.Send)
	}
}

func (h *Hub) Broadcast(userID string, payload []byte) {
	h.deliver(userID, payload)

	if h.redis == nil {
		return
	}
	msg, err := json.Marshal(envelope{Origin: h.id, Payload: payload})
	if err != nil {
		logrus.WithError(err).Warn("stream: encode relay message")
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(userID), msg).Err(); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("stream: redis publish failed")
	}
}

func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		logrus.WithError(err).Warn("stream: redis subscribe failed")
		close(h.subscribed)
		return
	}
	close(h.subscribed)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			h.relay(msg)
		}
	}
}

func (h *Hub) relay(msg *redis.Message) {
	userID := userIDFromChannel(msg.Channel)
	if userID == "" {
		return
	}
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		logrus.WithError(err).WithField("channel", msg.Channel).Warn("stream: drop malformed relay message")
		return
	}
	if env.Origin == h.id {
		return
	}
	h.deliver(userID, env.Payload)
}

func redisChannel(userID string) string {
	return channelPrefix + userID + channelSuffix
}

func userIDFromChannel(ch string) string {
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
