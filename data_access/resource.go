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
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/labcas-platform/labcas-backend/access"
)

// resourceCookie carries the detached signature authorizing direct archive
// fetches. The signature covers only the resource id; the cookie's max-age
// is the sole time bound.
const resourceCookie = "LabcasResourceSignature"

// getResource issues a signed cookie granting direct access to one archive
// resource. The caller must be logged in and able to see the resource.
func (s *Server) getResource(ctx *gin.Context) {
	sub := subject(ctx)
	if s.isGuest(sub) {
		unauthorized(ctx, "resource cookies require a logged-in user")
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

	signature, err := s.signer.Sign(id)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.SetCookie(resourceCookie, signature, s.cookieAge, "/",
		ctx.Request.Host, true, false)
	ctx.String(http.StatusOK, signature)
}

// verifyResourceCookie gates direct archive fetches on a valid signature
// cookie for the requested path.
func (s *Server) verifyResourceCookie(ctx *gin.Context) {
	id := strings.TrimPrefix(ctx.Param("path"), "/")
	signature, err := ctx.Cookie(resourceCookie)
	if err != nil || !s.signer.Verify(id, signature) {
		unauthorized(ctx, "missing or invalid resource signature for "+id)
		return
	}
	ctx.Next()
}

// getArchive serves a product directly from the archive root. Reachable only
// through verifyResourceCookie.
func (s *Server) getArchive(ctx *gin.Context) {
	id := strings.TrimPrefix(ctx.Param("path"), "/")
	// Rooted Clean keeps the resolved path under the archive root.
	cleaned := filepath.Clean("/" + id)
	ctx.File(filepath.Join(s.archiveDir, cleaned))
}
