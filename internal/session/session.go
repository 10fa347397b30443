// Package session is the identity-provider boundary. The engine does not
// validate credentials; it verifies the provider's signed session tokens and
// turns sign-in/sign-out into events that trigger the sync coordinator.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the authenticated identity extracted from a session token.
type User struct {
	ID          string
	Username    string
	DisplayName string
}

// Event signals a session change. User is nil on sign-out.
type Event struct {
	User *User
}

// Watcher verifies session tokens and publishes session-state events.
type Watcher struct {
	signKey []byte

	mu  sync.Mutex
	cur *User
	ch  chan Event
}

// NewWatcher constructs a watcher for tokens signed with the given HS256 key.
func NewWatcher(signKey []byte) *Watcher {
	return &Watcher{signKey: signKey, ch: make(chan Event, 1)}
}

// tokenClaims carries the provider's profile claims next to the registered set.
type tokenClaims struct {
	jwt.RegisteredClaims
	Username    string `json:"preferred_username,omitempty"`
	DisplayName string `json:"name,omitempty"`
}

// SignIn verifies the token and publishes a signed-in event.
func (w *Watcher) SignIn(token string) (*User, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return w.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims.RegisteredClaims); err != nil {
		return nil, errors.New("token expired or not valid yet")
	}
	if claims.Subject == "" {
		return nil, errors.New("bad subject")
	}

	u := &User{ID: claims.Subject, Username: claims.Username, DisplayName: claims.DisplayName}
	w.mu.Lock()
	w.cur = u
	w.mu.Unlock()
	w.publish(Event{User: u})
	return u, nil
}

// SignOut clears the session and publishes a signed-out event.
func (w *Watcher) SignOut() {
	w.mu.Lock()
	w.cur = nil
	w.mu.Unlock()
	w.publish(Event{})
}

// Current returns the authenticated user, or nil.
func (w *Watcher) Current() *User {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cur
}

// Events returns the session-event stream. The channel holds the latest
// event only; a slow consumer sees the newest state, not the history.
func (w *Watcher) Events() <-chan Event {
	return w.ch
}

func (w *Watcher) publish(e Event) {
	for {
		select {
		case w.ch <- e:
			return
		default:
			select {
			case <-w.ch: // drop the stale event
			default:
			}
		}
	}
}
