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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Publish adds (or replaces) documents in the core and commits immediately.
// Used by the ingestion workflow, not the request path.
func (c *Client) Publish(ctx context.Context, docs []Doc) error {
	payload, err := json.Marshal(docs)
	if err != nil {
		return errors.Wrap(err, "Failed to encode the index documents")
	}
	target := fmt.Sprintf("%s/%s/update/json/docs?commit=true", c.base, c.core)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "Failed to build the index update request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "Index update against core %s failed", c.core)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return errors.Errorf("Index update against core %s returned status %d", c.core, res.StatusCode)
	}
	log.Debugln("Published", len(docs), "documents to core", c.core)
	return nil
}
