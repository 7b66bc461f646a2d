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

package data_access

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/labcas-platform/labcas-backend/directory"
)

const (
	// tokenCookie carries a bearer token for browser sessions.
	tokenCookie = "LabcasJwt"
	// subjectKey is where the middleware stashes the caller's identity.
	subjectKey = "labcas.subject"
)

// unauthorized rejects the request with the standard generic body. The
// reason stays in the server log.
func unauthorized(ctx *gin.Context, reason string) {
	log.Debugln("Rejecting request:", reason)
	authFailures.Inc()
	ctx.String(http.StatusUnauthorized, "Not authorized")
	ctx.Abort()
}

// subject returns the identity the middleware resolved.
func subject(ctx *gin.Context) directory.Subject {
	return ctx.MustGet(subjectKey).(directory.Subject)
}

func (s *Server) isGuest(sub directory.Subject) bool {
	return sub.DN == s.guestDN
}

// authenticate resolves the caller's identity. Credential sources are tried
// in a fixed order: Basic header, Bearer header, token cookie, posted form
// credentials. Requests with no credentials at all proceed as the guest.
func (s *Server) authenticate(ctx *gin.Context) {
	header := ctx.GetHeader("Authorization")

	switch {
	case strings.HasPrefix(header, "Basic "):
		username, password, ok := ctx.Request.BasicAuth()
		if !ok {
			unauthorized(ctx, "malformed Basic authorization header")
			return
		}
		s.finishLogin(ctx, username, password)

	case strings.HasPrefix(header, "Bearer "):
		raw := strings.TrimPrefix(header, "Bearer ")
		dn, issuedAt, err := s.issuer.Verify(raw)
		if err != nil {
			unauthorized(ctx, "bearer token rejected")
			return
		}
		// A token issued before the directory entry last changed is
		// stale: a password or group change must cut off old tokens.
		modified, err := s.dir.ModifyTimestamp(ctx.Request.Context(), dn)
		if err != nil {
			if errors.Is(err, directory.ErrServiceUnavailable) {
				log.Errorln("Directory unavailable during staleness check:", err)
				ctx.String(http.StatusInternalServerError, err.Error())
				ctx.Abort()
				return
			}
			unauthorized(ctx, "directory lookup for staleness check failed: "+err.Error())
			return
		}
		if modified.After(issuedAt) {
			unauthorized(ctx, "bearer token predates a directory change for "+dn)
			return
		}
		s.storeSubject(ctx, dn)

	default:
		if raw, err := ctx.Cookie(tokenCookie); err == nil && raw != "" {
			dn, _, err := s.issuer.Verify(raw)
			if err != nil {
				unauthorized(ctx, "token cookie rejected")
				return
			}
			s.storeSubject(ctx, dn)
			return
		}
		if ctx.Request.Method == http.MethodPost {
			username := ctx.PostForm("username")
			password := ctx.PostForm("password")
			if username != "" || password != "" {
				s.finishLogin(ctx, username, password)
				return
			}
		}
		ctx.Set(subjectKey, directory.Subject{DN: s.guestDN})
		ctx.Next()
	}
}

// finishLogin verifies a credential pair against the directory. Every
// credential failure maps to the same generic 401; a directory outage is a
// server fault, not an authentication verdict.
func (s *Server) finishLogin(ctx *gin.Context, username, password string) {
	dn, err := s.dir.Authenticate(ctx.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, directory.ErrServiceUnavailable) {
			log.Errorln("Directory unavailable during login:", err)
			ctx.String(http.StatusInternalServerError, err.Error())
			ctx.Abort()
			return
		}
		unauthorized(ctx, "credential verification failed: "+err.Error())
		return
	}
	s.storeSubject(ctx, dn)
}

// storeSubject resolves groups for dn and records the identity for handlers.
func (s *Server) storeSubject(ctx *gin.Context, dn string) {
	groups, err := s.dir.Groups(ctx.Request.Context(), dn)
	if err != nil {
		log.Errorln("Group resolution failed for", dn, ":", err)
		ctx.String(http.StatusInternalServerError, err.Error())
		ctx.Abort()
		return
	}
	ctx.Set(subjectKey, directory.Subject{DN: dn, Groups: groups})
	ctx.Next()
}
