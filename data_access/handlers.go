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
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/labcas-platform/labcas-backend/access"
	"github.com/labcas-platform/labcas-backend/download"
)

// accessFilter builds the ownership clause for the current caller. The guest
// holds no groups, so it collapses to the public-only clause.
func (s *Server) accessFilter(ctx *gin.Context) string {
	sub := subject(ctx)
	return access.FilterClause(sub.Groups, s.superOwner, s.publicOwner)
}

// fail logs the error and returns a 500 carrying its message.
func fail(ctx *gin.Context, err error) {
	log.Errorln("Request failed:", err)
	ctx.String(http.StatusInternalServerError, err.Error())
	ctx.Abort()
}

// postAuth exchanges verified credentials for a bearer token. The middleware
// has already done the verification; guests have nothing to exchange.
func (s *Server) postAuth(ctx *gin.Context) {
	sub := subject(ctx)
	if s.isGuest(sub) {
		unauthorized(ctx, "token request without credentials")
		return
	}
	tok, err := s.issuer.Issue(sub.DN)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.String(http.StatusOK, tok)
}

// getLogout ends the named session. Unknown sessions end silently.
func (s *Server) getLogout(ctx *gin.Context) {
	if id := ctx.Query("sessionID"); id != "" {
		s.sessions.End(id)
	}
	ctx.String(http.StatusOK, "Logged out")
}

// getPing echoes the message parameter. Liveness only.
func (s *Server) getPing(ctx *gin.Context) {
	ctx.String(http.StatusOK, "LabCAS data access API: %s", ctx.Query("message"))
}

// getDownload delivers one archive file: streamed from the local archive, or
// a 307 redirect to a pre-signed URL when the file lives in the object store.
func (s *Server) getDownload(ctx *gin.Context) {
	sub := subject(ctx)
	if s.isGuest(sub) {
		unauthorized(ctx, "download requires a logged-in user")
		return
	}
	id := ctx.Query("id")
	if id == "" {
		ctx.String(http.StatusBadRequest, "Missing required parameter: id")
		return
	}
	if !access.IsSafe(id) {
		ctx.String(http.StatusBadRequest, "Parameter id contains unsafe characters")
		return
	}

	record, err := s.resolver.FileInfo(ctx.Request.Context(), s.accessFilter(ctx), id)
	if err != nil {
		if errors.Is(err, download.ErrNotFound) {
			// Denied and nonexistent files look identical on purpose.
			ctx.String(http.StatusNotFound, "File not found: %s", id)
			return
		}
		fail(ctx, err)
		return
	}

	if strings.HasPrefix(record.Path, download.S3Prefix) {
		if s.presigner == nil {
			fail(ctx, errors.New("no object store is configured"))
			return
		}
		signed, err := s.presigner.PresignGet(s.presigner.S3Key(record.Path))
		if err != nil {
			fail(ctx, err)
			return
		}
		downloadsRedirected.Inc()
		ctx.Redirect(http.StatusTemporaryRedirect, signed)
		return
	}

	s.streamFile(ctx, sub.DN, record)
}

func (s *Server) streamFile(ctx *gin.Context, dn string, record *download.FileRecord) {
	path := s.prefixes.Apply(record.Path)
	info, err := os.Stat(path)
	if err != nil {
		fail(ctx, errors.Wrapf(err, "Archive file for id %s is not readable", record.ID))
		return
	}
	s.audit.Record(dn, record.ID)
	ctx.Header("Content-Length", strconv.FormatInt(info.Size(), 10))
	ctx.Header("Content-Type", download.MediaType(path))
	if suppress, _ := strconv.ParseBool(ctx.Query("suppressContentDisposition")); !suppress {
		ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Name))
	}
	downloadsStreamed.Inc()
	ctx.File(path)
}

// postZip resolves the requested file set and hands it to the zipping
// service. Accepts either a bulk query or repeated explicit ids.
func (s *Server) postZip(ctx *gin.Context) {
	sub := subject(ctx)
	if s.isGuest(sub) {
		unauthorized(ctx, "zip requires a logged-in user")
		return
	}
	email := ctx.PostForm("email")
	if email == "" {
		ctx.String(http.StatusBadRequest, "Missing required parameter: email")
		return
	}

	query := ctx.PostForm("query")
	ids := ctx.PostFormArray("id")
	if query == "" && len(ids) == 0 {
		ctx.String(http.StatusBadRequest, "Either query or id must be provided")
		return
	}
	if err := access.SafeValues(append([]string{query}, ids...)); err != nil {
		ctx.String(http.StatusBadRequest, err.Error())
		return
	}

	filter := s.accessFilter(ctx)
	var paths []string
	if query != "" {
		records, err := s.resolver.PathsForQuery(ctx.Request.Context(), query, []string{filter}, 0, 0)
		if err != nil {
			fail(ctx, err)
			return
		}
		for _, record := range records {
			paths = append(paths, record.Path)
		}
	} else {
		for _, id := range ids {
			record, err := s.resolver.FileInfo(ctx.Request.Context(), filter, id)
			if err != nil {
				if errors.Is(err, download.ErrNotFound) {
					continue
				}
				fail(ctx, err)
				return
			}
			paths = append(paths, record.Path)
		}
	}
	if len(paths) == 0 {
		ctx.Status(http.StatusNoContent)
		return
	}
	if s.zipper == nil {
		fail(ctx, errors.New("no zipping service is configured"))
		return
	}
	tracking, err := s.zipper.Initiate(ctx.Request.Context(), email, paths)
	if err != nil {
		fail(ctx, err)
		return
	}
	zipsInitiated.Inc()
	ctx.String(http.StatusOK, tracking)
}
