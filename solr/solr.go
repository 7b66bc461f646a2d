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

// Package solr is a thin client for the LabCAS metadata index. One Client is
// built per core at startup and injected into the components that query it.
package solr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// The cores the data-access API works with.
const (
	CoreCollections = "collections"
	CoreDatasets    = "datasets"
	CoreFiles       = "files"
	CoreUserData    = "userdata"
)

// Doc is a single index document. Fields may be single- or multi-valued.
type Doc map[string]any

// First returns the first value of a field, handling the index's habit of
// returning multi-valued fields as arrays. Missing fields yield "".
func (d Doc) First(field string) string {
	switch v := d[field].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// QueryResponse mirrors the select handler's JSON envelope.
type QueryResponse struct {
	Response struct {
		NumFound int   `json:"numFound"`
		Start    int   `json:"start"`
		Docs     []Doc `json:"docs"`
	} `json:"response"`
}

// Client queries a single core over the shared HTTP transport.
type Client struct {
	core string
	base string
	http *http.Client
}

// Clients holds one client per core.
type Clients map[string]*Client

// New builds clients for every core under baseURL using the given transport.
func New(baseURL string, transport http.RoundTripper) Clients {
	clients := make(Clients)
	httpClient := &http.Client{Transport: transport}
	for _, core := range []string{CoreCollections, CoreDatasets, CoreFiles, CoreUserData} {
		clients[core] = &Client{
			core: core,
			base: strings.TrimSuffix(baseURL, "/"),
			http: httpClient,
		}
	}
	return clients
}

// Core returns the client's core name.
func (c *Client) Core() string {
	return c.core
}

func (c *Client) selectURL(params url.Values) string {
	params.Set("wt", "json")
	return fmt.Sprintf("%s/%s/select?%s", c.base, c.core, params.Encode())
}

// Query runs a select against the core and decodes the response envelope.
func (c *Client) Query(ctx context.Context, params url.Values) (*QueryResponse, error) {
	target := c.selectURL(params)
	log.Debugln("Index query:", target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to build the index request")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "Index query against core %s failed", c.core)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Index query against core %s returned status %d", c.core, res.StatusCode)
	}
	var decoded QueryResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode the index response from core %s", c.core)
	}
	return &decoded, nil
}
