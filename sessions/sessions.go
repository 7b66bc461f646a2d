/***************************************************************
 *
 * Copyright (C) 2025, LabCAS Project, California Institute of Technology
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you
 * may not use this file except in compliance with the License.  You may
 * obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 ***************************************************************/

// Package sessions provides the in-memory store backing issued tokens. A
// session ties a token's sessionID claim to the subject it was issued for;
// entries expire after a fixed TTL and are evicted lazily on lookup, with an
// optional periodic sweep for long-idle deployments.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Session is a single authenticated session.
type Session struct {
	ID      string
	Subject string
	Expires time.Time
}

// Store holds sessions for a single process. It is safe for concurrent use.
// Sessions are never persisted or shared across instances.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store whose sessions live for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Start opens a session for subject and returns it. IDs are random UUIDs.
func (s *Store) Start(subject string) Session {
	session := Session{
		ID:      uuid.NewString(),
		Subject: subject,
		Expires: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// IsValid reports whether id names a live session belonging to subject.
// Expired entries found along the way are removed.
func (s *Store) IsValid(id, subject string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	if !s.now().Before(session.Expires) {
		delete(s.sessions, id)
		return false
	}
	return session.Subject == subject
}

// End removes a session. Ending an unknown session is a no-op.
func (s *Store) End(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of stored sessions, including any not yet evicted.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions every interval until ctx is done. Lazy
// eviction already bounds correctness; the sweep only bounds memory when the
// store goes unread for long stretches.
func (s *Store) Sweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			removed := s.sweepOnce()
			if removed > 0 {
				log.Debugln("Session sweep removed", removed, "expired sessions")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Store) sweepOnce() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if !now.Before(session.Expires) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
