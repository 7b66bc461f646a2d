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

package solr

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Parameters that would make the index reach out to arbitrary hosts on the
// caller's behalf. Always stripped before forwarding.
var blockedParams = []string{"shards", "stream.url", "stream.file", "stream.body"}

func isBlockedParam(name string) bool {
	for _, blocked := range blockedParams {
		if name == blocked {
			return true
		}
	}
	return strings.HasPrefix(name, "shards.")
}

// SanitizeParams returns a copy of params with the distributed-query and
// remote-streaming parameters removed.
func SanitizeParams(params url.Values) url.Values {
	clean := url.Values{}
	for name, values := range params {
		if isBlockedParam(name) {
			log.Warningln("Dropping blocked index parameter", name)
			continue
		}
		clean[name] = values
	}
	return clean
}

// Proxy forwards a select query to the core and streams the raw response
// (status, content type, body) to w. Callers are expected to have appended
// their access-control filter already.
func (c *Client) Proxy(ctx context.Context, w http.ResponseWriter, params url.Values) error {
	target := c.selectURL(SanitizeParams(params))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, "Failed to build the proxied index request")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "Proxied query against core %s failed", c.core)
	}
	defer res.Body.Close()

	if contentType := res.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(res.StatusCode)
	if _, err := io.Copy(w, res.Body); err != nil {
		// Too late for an error status; the client likely went away.
		log.Warningln("Truncated proxied index response:", err)
	}
	return nil
}
