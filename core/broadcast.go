package core

// Event is a realtime notification published to connected clients.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Broadcaster is the narrow realtime capability exposed to services.
// The implementation exclusively owns connection-to-user mappings;
// publishing is fire-and-forget with no delivery guarantee.
type Broadcaster interface {
	// Broadcast publishes evt to all currently-connected clients.
	Broadcast(evt Event)
	// Send publishes evt to userID's connections only, if any.
	Send(userID string, evt Event)
	// Subscribe registers a connection for userID and returns its event
	// channel along with an unsubscribe func. userID may be empty for
	// anonymous listeners.
	Subscribe(userID string) (<-chan Event, func())
}
