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
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// auditFile is the fixed name of the download audit log.
const auditFile = "download.log"

// AuditLogger appends one line per served download. Audit failures are
// logged and swallowed; a full disk must never block a download.
type AuditLogger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewAuditLogger writes the audit trail under dir. An empty dir disables
// auditing.
func NewAuditLogger(dir string) *AuditLogger {
	path := ""
	if dir != "" {
		path = filepath.Join(dir, auditFile)
	}
	return &AuditLogger{path: path, now: time.Now}
}

// Record notes that subject fetched fileID.
func (a *AuditLogger) Record(subject, fileID string) {
	if a.path == "" {
		return
	}
	line := fmt.Sprintf("%s;%s;%s\n",
		a.now().UTC().Format("2006-01-02T15:04:05.000Z"), subject, fileID)

	a.mu.Lock()
	defer a.mu.Unlock()
	fp, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Errorf("Cannot open the download audit log %s: %v", a.path, err)
		return
	}
	defer fp.Close()
	if _, err := fp.WriteString(line); err != nil {
		log.Errorf("Cannot append to the download audit log %s: %v", a.path, err)
	}
}
