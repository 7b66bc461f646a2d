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

// Package download resolves archived file locations from the metadata index
// and delivers their contents, either streamed from the local archive or
// redirected to a pre-signed object-store URL.
package download

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/labcas-platform/labcas-backend/solr"
)

// ErrNotFound covers both a missing file and one the caller may not see.
// The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("file not found")

// pageSize bounds each index page while walking a bulk query.
const pageSize = 100

// FileRecord is a resolved archive file.
type FileRecord struct {
	ID   string
	Name string
	Path string
}

// Resolver turns file ids and queries into archive paths, applying the
// caller's access-control filter on every lookup.
type Resolver struct {
	files   *solr.Client
	maxRows int
}

// NewResolver builds a resolver over the files core.
func NewResolver(files *solr.Client, maxRows int) *Resolver {
	return &Resolver{files: files, maxRows: maxRows}
}

// FileInfo fetches the record for a single file id, restricted by filter.
// The display name prefers the first value of the multi-valued name field
// over the raw FileName.
func (r *Resolver) FileInfo(ctx context.Context, filter, id string) (*FileRecord, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("id:%q", id))
	if filter != "" {
		params.Set("fq", filter)
	}
	params.Set("fl", "FileLocation,FileName,name")
	params.Set("rows", "1")

	res, err := r.files.Query(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(res.Response.Docs) == 0 {
		return nil, ErrNotFound
	}
	doc := res.Response.Docs[0]
	name := doc.First("name")
	if name == "" {
		name = doc.First("FileName")
	}
	location := doc.First("FileLocation")
	if location == "" || name == "" {
		return nil, errors.Errorf("Index record for file %s is missing its location or name", id)
	}
	return &FileRecord{ID: id, Name: name, Path: location + "/" + name}, nil
}

// PathsForQuery resolves every file matched by query, restricted by the
// given filter clauses, paging through the index from the start offset until
// all matches are in hand. A non-positive rows value means the configured
// maximum; either way the total never exceeds that maximum.
func (r *Resolver) PathsForQuery(ctx context.Context, query string, filters []string, start, rows int) ([]FileRecord, error) {
	if start < 0 {
		start = 0
	}
	limit := r.maxRows
	if rows > 0 && rows < limit {
		limit = rows
	}

	var records []FileRecord
	fetched := 0
	for fetched < limit {
		page := pageSize
		if remaining := limit - fetched; remaining < page {
			page = remaining
		}
		params := url.Values{}
		params.Set("q", query)
		for _, filter := range filters {
			if filter != "" {
				params.Add("fq", filter)
			}
		}
		params.Set("fl", "id,FileLocation,FileName,name")
		params.Set("start", strconv.Itoa(start))
		params.Set("rows", strconv.Itoa(page))

		res, err := r.files.Query(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, doc := range res.Response.Docs {
			name := doc.First("name")
			if name == "" {
				name = doc.First("FileName")
			}
			location := doc.First("FileLocation")
			if location == "" || name == "" {
				log.Warningln("Skipping index record with missing location or name:", doc.First("id"))
				continue
			}
			records = append(records, FileRecord{
				ID:   doc.First("id"),
				Name: name,
				Path: location + "/" + name,
			})
		}
		fetched += len(res.Response.Docs)
		start += len(res.Response.Docs)
		if len(res.Response.Docs) == 0 || start >= res.Response.NumFound {
			break
		}
	}
	return records, nil
}
