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

// Package token issues and verifies the bearer tokens and signed resource
// cookies handed out by the data-access API.
package token

import (
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/labcas-platform/labcas-backend/param"
	"github.com/labcas-platform/labcas-backend/sessions"
)

// sessionClaim carries the id of the server-side session a token is bound to.
const sessionClaim = "sessionID"

// ErrInvalidToken is returned for every verification failure. Callers must
// not learn whether a token was expired, forged, or bound to a dead session.
var ErrInvalidToken = errors.New("invalid token")

// Issuer creates and verifies HMAC-signed tokens. Every issued token is bound
// to a session in the store; verification fails once that session ends.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	lifetime time.Duration
	sessions *sessions.Store
	now      func() time.Time
}

// NewIssuer builds an Issuer from the process configuration, binding tokens
// to the given session store.
func NewIssuer(store *sessions.Store) *Issuer {
	return &Issuer{
		secret:   []byte(param.Token_Secret.GetString()),
		issuer:   param.Token_Issuer.GetString(),
		audience: param.Token_Audience.GetString(),
		lifetime: param.Token_Lifetime.GetDuration(),
		sessions: store,
		now:      time.Now,
	}
}

// Issue starts a session for subject and returns a signed token bound to it.
func (i *Issuer) Issue(subject string) (string, error) {
	session := i.sessions.Start(subject)
	now := i.now()
	tok, err := jwt.NewBuilder().
		Issuer(i.issuer).
		Audience([]string{i.audience}).
		Subject(subject).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(i.lifetime)).
		Claim(sessionClaim, session.ID).
		Build()
	if err != nil {
		i.sessions.End(session.ID)
		return "", errors.Wrap(err, "Failed to assemble the token")
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, i.secret))
	if err != nil {
		i.sessions.End(session.ID)
		return "", errors.Wrap(err, "Failed to sign the token")
	}
	return string(signed), nil
}

// Verify checks the signature, standard claims, and session binding of a
// token, returning the subject and issue time on success. All failures
// collapse to ErrInvalidToken.
func (i *Issuer) Verify(raw string) (subject string, issuedAt time.Time, err error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, i.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience))
	if err != nil {
		log.Debugln("Token verification failed:", err)
		return "", time.Time{}, ErrInvalidToken
	}
	sessionID, ok := tok.Get(sessionClaim)
	if !ok {
		return "", time.Time{}, ErrInvalidToken
	}
	id, ok := sessionID.(string)
	if !ok || !i.sessions.IsValid(id, tok.Subject()) {
		return "", time.Time{}, ErrInvalidToken
	}
	return tok.Subject(), tok.IssuedAt(), nil
}

// SessionID extracts the session claim without verifying the token. Used by
// logout, which only needs to know which session to end.
func SessionID(raw string) (string, error) {
	tok, err := jwt.Parse([]byte(raw), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return "", ErrInvalidToken
	}
	id, ok := tok.Get(sessionClaim)
	if !ok {
		return "", ErrInvalidToken
	}
	str, ok := id.(string)
	if !ok {
		return "", ErrInvalidToken
	}
	return str, nil
}
