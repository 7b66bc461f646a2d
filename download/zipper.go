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

package download

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Zipper submits archive file sets to the external zipping service, which
// assembles the archive offline and mails the caller a fetch link.
type Zipper struct {
	url  string
	http *http.Client
}

// NewZipper builds a client for the zipping service at serviceURL.
func NewZipper(serviceURL string, transport http.RoundTripper) *Zipper {
	return &Zipper{url: serviceURL, http: &http.Client{Transport: transport}}
}

type zipRequest struct {
	Operation string   `json:"operation"`
	Email     string   `json:"email"`
	Files     []string `json:"files"`
}

// Initiate asks the service to zip files for email and returns the tracking
// id from the first line of the response.
func (z *Zipper) Initiate(ctx context.Context, email string, files []string) (string, error) {
	payload, err := json.Marshal(zipRequest{Operation: "initiate", Email: email, Files: files})
	if err != nil {
		return "", errors.Wrap(err, "Failed to encode the zip request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "Failed to build the zip request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := z.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "Zip service request failed")
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("Zip service returned status %d", res.StatusCode)
	}

	scanner := bufio.NewScanner(res.Body)
	if !scanner.Scan() {
		return "", errors.New("Zip service returned an empty response")
	}
	id := strings.TrimSpace(scanner.Text())
	log.Debugln("Zip request accepted with tracking id", id)
	return id, nil
}
