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
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/labcas-platform/labcas-backend/access"
	"github.com/labcas-platform/labcas-backend/solr"
)

// idField maps a core to the files-core field referencing its records.
var idField = map[string]string{
	solr.CoreCollections: "CollectionId",
	solr.CoreDatasets:    "DatasetId",
}

// checkQueryParams rejects requests whose query inputs carry unsafe
// characters. Returns false after writing the 400.
func checkQueryParams(ctx *gin.Context) bool {
	values := append(ctx.QueryArray("q"), ctx.QueryArray("fq")...)
	if err := access.SafeValues(values); err != nil {
		ctx.String(http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// cappedRows parses the rows parameter, bounded by the configured maximum.
// Non-positive or unparseable values fall back to the maximum.
func (s *Server) cappedRows(ctx *gin.Context) int {
	rows := s.maxRows
	if raw := ctx.Query("rows"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed < rows {
			rows = parsed
		}
	}
	return rows
}

// startOffset parses the start parameter. Anything unusable means zero.
func startOffset(ctx *gin.Context) int {
	if raw := ctx.Query("start"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}

// listHandler answers the list endpoints: a newline-delimited sequence of
// ready-to-fetch download URLs for every matching file. Collections and
// datasets resolve their matching record ids first, then walk the files core.
func (s *Server) listHandler(core string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if core == solr.CoreFiles && s.isGuest(subject(ctx)) {
			unauthorized(ctx, "file listing requires a logged-in user")
			return
		}
		if !checkQueryParams(ctx) {
			return
		}
		query := ctx.DefaultQuery("q", "*:*")
		filter := s.accessFilter(ctx)

		// The caller's q, fq, start and rows drive the first-stage query:
		// the files core directly, or the listed core whose matching ids
		// then select the files.
		fileQuery := query
		filters := append(ctx.QueryArray("fq"), filter)
		start := startOffset(ctx)
		rows := s.cappedRows(ctx)
		if core != solr.CoreFiles {
			ids, err := s.matchingIDs(ctx, core, query, filters, start, rows)
			if err != nil {
				fail(ctx, err)
				return
			}
			if len(ids) == 0 {
				ctx.String(http.StatusOK, "")
				return
			}
			fileQuery = orQuery(idField[core], ids)
			filters = []string{filter}
			start, rows = 0, 0
		}

		records, err := s.resolver.PathsForQuery(ctx.Request.Context(), fileQuery, filters, start, rows)
		if err != nil {
			fail(ctx, err)
			return
		}

		var sb strings.Builder
		for _, record := range records {
			sb.WriteString(s.downloadURL)
			sb.WriteString("?id=")
			sb.WriteString(url.QueryEscape(record.ID))
			sb.WriteString("\n")
		}
		ctx.String(http.StatusOK, sb.String())
	}
}

// matchingIDs returns the ids of the core's records matching query under the
// given filter clauses.
func (s *Server) matchingIDs(ctx *gin.Context, core, query string, filters []string, start, rows int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	for _, filter := range filters {
		if filter != "" {
			params.Add("fq", filter)
		}
	}
	params.Set("fl", "id")
	params.Set("start", strconv.Itoa(start))
	params.Set("rows", strconv.Itoa(rows))

	res, err := s.index[core].Query(ctx.Request.Context(), params)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Response.Docs))
	for _, doc := range res.Response.Docs {
		if id := doc.First("id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// orQuery builds field:("a" OR "b" OR ...) over the given values.
func orQuery(field string, values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, fmt.Sprintf("%q", value))
	}
	return field + ":(" + strings.Join(quoted, " OR ") + ")"
}

// selectHandler proxies a select query to the core with the caller's
// ownership filter appended. The raw index response goes back untouched so
// existing portal clients keep working.
func (s *Server) selectHandler(core string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if core == solr.CoreFiles && s.isGuest(subject(ctx)) {
			unauthorized(ctx, "file queries require a logged-in user")
			return
		}
		if !checkQueryParams(ctx) {
			return
		}
		params := url.Values{}
		for name, values := range ctx.Request.URL.Query() {
			params[name] = values
		}
		if params.Get("q") == "" {
			params.Set("q", "*:*")
		}
		params.Set("rows", strconv.Itoa(s.cappedRows(ctx)))
		if filter := s.accessFilter(ctx); filter != "" {
			params.Add("fq", filter)
		}
		if err := s.index[core].Proxy(ctx.Request.Context(), ctx.Writer, params); err != nil {
			fail(ctx, err)
		}
	}
}
