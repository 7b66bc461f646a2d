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

package directory

import (
	"context"
	"time"
)

// MockUser is one entry in a MockClient's static directory.
type MockUser struct {
	DN       string
	Password string
	Groups   []string
	Modified time.Time
}

// MockClient serves a fixed user table. Intended for tests.
type MockClient struct {
	// Users maps username to its entry.
	Users map[string]MockUser
	// Unavailable makes every call fail with ErrServiceUnavailable.
	Unavailable bool
}

func (m *MockClient) Authenticate(ctx context.Context, username, password string) (string, error) {
	if m.Unavailable {
		return "", ErrServiceUnavailable
	}
	if username == "" || password == "" {
		return "", ErrMalformedCredentials
	}
	user, ok := m.Users[username]
	if !ok {
		return "", ErrUnknownUser
	}
	if user.Password != password {
		return "", ErrBadPassword
	}
	return user.DN, nil
}

func (m *MockClient) Groups(ctx context.Context, dn string) ([]string, error) {
	if m.Unavailable {
		return nil, ErrServiceUnavailable
	}
	for _, user := range m.Users {
		if user.DN == dn {
			return user.Groups, nil
		}
	}
	return nil, nil
}

func (m *MockClient) ModifyTimestamp(ctx context.Context, dn string) (time.Time, error) {
	if m.Unavailable {
		return time.Time{}, ErrServiceUnavailable
	}
	for _, user := range m.Users {
		if user.DN == dn {
			if user.Modified.IsZero() {
				return time.Unix(0, 0).UTC(), nil
			}
			return user.Modified, nil
		}
	}
	return time.Time{}, ErrUnknownUser
}
