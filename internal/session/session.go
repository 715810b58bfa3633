// Package session tracks anonymous visitors of the web UI.
//
// The browser keeps a random session id and sends it with every request.
// The first request carrying an unknown id registers a new user with a
// uuid and a registration number; later requests refresh LastSeen.
package session

import (
	"fmt"
	"regexp"
	"time"
)

// maxSessionIDLength bounds client-supplied session ids.
const maxSessionIDLength = 128

var validSessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// User is a registered visitor. Number is the 1-based registration order.
type User struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	FirstSeen time.Time `json:"first_seen"`
}

// Session binds a client session id to a user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserAgent string    `json:"user_agent"`
	Created   time.Time `json:"created"`
	LastSeen  time.Time `json:"last_seen"`
}

// IsActive reports whether the session was seen within window of now.
func (s *Session) IsActive(now time.Time, window time.Duration) bool {
	return now.Sub(s.LastSeen) < window
}

// Stats is the visitor summary served by /api/users/stats.
type Stats struct {
	TotalUsers    int `json:"totalUsers"`
	ActiveUsers   int `json:"activeUsers"`
	TotalSessions int `json:"totalSessions"`
	// CurrentUserID is nil when the caller has no known session.
	CurrentUserID *string   `json:"currentUserId"`
	UserNumber    int       `json:"userNumber"`
	Timestamp     time.Time `json:"timestamp"`
}

// ValidateSessionID rejects ids that are empty, too long or contain
// characters outside letters, digits and "_.:-".
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if len(id) > maxSessionIDLength {
		return fmt.Errorf("session id too long (max %d chars)", maxSessionIDLength)
	}
	if !validSessionIDPattern.MatchString(id) {
		return fmt.Errorf("session id can only contain letters, numbers and _.:-")
	}
	return nil
}
