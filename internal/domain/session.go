package domain

import "time"

// Session carries the durable conversation state for a single chat user. The
// Revision field implements optimistic concurrency: every successful save
// increments it, and a save against a stale revision is rejected.
type Session struct {
	ID        string
	State     string
	Values    map[string]any
	Revision  int64
	UpdatedAt time.Time
}

// NewSession returns an empty session for the given chat user.
func NewSession(id string) Session {
	return Session{
		ID:     id,
		Values: make(map[string]any),
	}
}

// Get returns the stored value for key, or nil when absent.
func (s Session) Get(key string) any {
	if s.Values == nil {
		return nil
	}
	return s.Values[key]
}

// GetString returns the stored value for key when it is a string.
func (s Session) GetString(key string) string {
	value, _ := s.Get(key).(string)
	return value
}

// Set stores a value under key, allocating the value map when needed.
func (s *Session) Set(key string, value any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = value
}

// Delete removes the value stored under key.
func (s *Session) Delete(key string) {
	if s.Values == nil {
		return
	}
	delete(s.Values, key)
}

// Clone returns a deep copy of the session's top level structure. Stored
// values are copied by reference.
func (s Session) Clone() Session {
	clone := s
	if s.Values != nil {
		clone.Values = make(map[string]any, len(s.Values))
		for key, value := range s.Values {
			clone.Values[key] = value
		}
	}
	return clone
}
