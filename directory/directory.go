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

// Package directory verifies user credentials and resolves group membership
// against the LabCAS LDAP directory.
package directory

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownUser indicates the username matched no directory entry.
	ErrUnknownUser = errors.New("unknown user")
	// ErrBadPassword indicates the entry exists but the bind failed.
	ErrBadPassword = errors.New("bad password")
	// ErrMalformedCredentials indicates an empty or unparsable credential pair.
	ErrMalformedCredentials = errors.New("malformed credentials")
	// ErrServiceUnavailable indicates the directory could not be reached.
	// Callers must not treat it as an authentication verdict.
	ErrServiceUnavailable = errors.New("directory service unavailable")
)

// Subject is an authenticated (or guest) identity as seen by the handlers.
type Subject struct {
	DN     string
	Groups []string
}

// Client is the directory abstraction consumed by the HTTP layer.
type Client interface {
	// Authenticate verifies a username/password pair and returns the
	// matching entry's distinguished name.
	Authenticate(ctx context.Context, username, password string) (string, error)

	// Groups returns the DNs of the groups the entry belongs to.
	Groups(ctx context.Context, dn string) ([]string, error)

	// ModifyTimestamp returns the last modification time of the entry,
	// or the Unix epoch when the attribute is absent or unparsable.
	ModifyTimestamp(ctx context.Context, dn string) (time.Time, error)
}
