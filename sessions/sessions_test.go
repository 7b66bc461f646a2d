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

package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSubject = "uid=alice,ou=users,dc=example"

func TestStartAndValidate(t *testing.T) {
	store := NewStore(time.Hour)
	session := store.Start(testSubject)
	require.NotEmpty(t, session.ID)

	assert.True(t, store.IsValid(session.ID, testSubject))
	assert.False(t, store.IsValid(session.ID, "uid=bob,ou=users,dc=example"))
	assert.False(t, store.IsValid("no-such-session", testSubject))
}

func TestExpiredSessionEvictedLazily(t *testing.T) {
	store := NewStore(time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }

	session := store.Start(testSubject)
	assert.True(t, store.IsValid(session.ID, testSubject))

	now = now.Add(time.Hour + time.Second)
	assert.False(t, store.IsValid(session.ID, testSubject))
	// The expired entry must be gone, not just invalid.
	assert.Equal(t, 0, store.Len())
}

func TestSessionInvalidAtExpiryInstant(t *testing.T) {
	store := NewStore(time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }

	session := store.Start(testSubject)

	now = now.Add(time.Hour)
	assert.False(t, store.IsValid(session.ID, testSubject))
	assert.Equal(t, 0, store.Len())
}

func TestEndIsIdempotent(t *testing.T) {
	store := NewStore(time.Hour)
	session := store.Start(testSubject)

	store.End(session.ID)
	assert.False(t, store.IsValid(session.ID, testSubject))
	store.End(session.ID)
	assert.Equal(t, 0, store.Len())
}

func TestSweepOnce(t *testing.T) {
	store := NewStore(time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }

	store.Start(testSubject)
	live := store.Start(testSubject)

	now = now.Add(30 * time.Minute)
	fresh := store.Start(testSubject)

	now = now.Add(45 * time.Minute)
	removed := store.sweepOnce()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Len())
	assert.False(t, store.IsValid(live.ID, testSubject))
	assert.True(t, store.IsValid(fresh.ID, testSubject))
}
