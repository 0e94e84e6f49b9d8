package service

// Event types pushed to clients watching a game.
const (
	EventStateChanged = "state_changed"
	EventDamage       = "damage"
	EventLevelUp      = "level_up"
	EventGameOver     = "game_over"
)

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastGameEvent(gameID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastGameEvent(string, string, any) {}
