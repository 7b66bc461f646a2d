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

package workflow

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/labcas-platform/labcas-backend/param"
	"github.com/labcas-platform/labcas-backend/solr"
)

// metExtension marks per-product metadata files left behind by an earlier
// workflow submission.
const metExtension = ".met"

var whitespace = regexp.MustCompile(`\s+`)

// TaskConfig selects which steps an ingestion-initialization run performs.
// The historical upload, collection, and dataset variants are all
// configurations of the same task.
type TaskConfig struct {
	// CollectionNameKey is the metadata key naming the target collection.
	CollectionNameKey string
	// PublishToIndex also writes the dataset record to the datasets core.
	PublishToIndex bool
	// CleanStagingMetadata removes stale .met files from the staging area.
	CleanStagingMetadata bool
}

// Task initializes a dataset upload.
type Task struct {
	cfg        TaskConfig
	stagingDir string
	archiveDir string
	datasets   *solr.Client
}

// NewTask builds a task. datasets may be nil when PublishToIndex is unset.
func NewTask(cfg TaskConfig, stagingDir, archiveDir string, datasets *solr.Client) *Task {
	if cfg.CollectionNameKey == "" {
		cfg.CollectionNameKey = KeyCollectionName
	}
	return &Task{cfg: cfg, stagingDir: stagingDir, archiveDir: archiveDir, datasets: datasets}
}

// NewTaskFromConfig builds a task whose staging and archive locations come
// from the process configuration.
func NewTaskFromConfig(cfg TaskConfig, datasets *solr.Client) *Task {
	return NewTask(cfg, param.Workflow_StagingDir.GetString(),
		param.Workflow_ArchiveDir.GetString(), datasets)
}

// Run derives the dataset identifiers, assigns the next archive version, and
// records the final archive path, mutating md in place for the downstream
// ingestion steps.
func (t *Task) Run(ctx context.Context, md Metadata) error {
	collection := md.First(t.cfg.CollectionNameKey)
	if collection == "" {
		return errors.Errorf("Workflow metadata is missing %s", t.cfg.CollectionNameKey)
	}
	productType := whitespace.ReplaceAllString(collection, "_")
	md.Replace(KeyProductType, productType)
	md.Replace(KeyCollectionName, collection)
	md.Replace(KeyCollectionID, productType)

	// A dataset name may arrive with the request; uploads without one get
	// a generated identity.
	datasetName := md.First(KeyDatasetName)
	var datasetID string
	if datasetName != "" {
		datasetID = whitespace.ReplaceAllString(datasetName, "_")
	} else {
		datasetID = uuid.NewString()
		datasetName = datasetID
		md.Replace(KeyDatasetName, datasetName)
	}
	md.Replace(KeyDatasetID, datasetID)
	log.Debugln("Using DatasetId", datasetID)

	version := t.nextVersion(productType, datasetID)
	md.Replace(KeyDatasetVersion, strconv.Itoa(version))
	md.Replace(KeyFilePath, filepath.Join(t.archiveDir, productType, datasetID, strconv.Itoa(version)))

	if t.cfg.PublishToIndex {
		if t.datasets == nil {
			return errors.New("publication requested but no index client configured")
		}
		doc := solr.Doc{
			"id":              productType + "." + datasetID,
			KeyDatasetID:      datasetID,
			KeyDatasetName:    datasetName,
			KeyCollectionID:   productType,
			KeyCollectionName: collection,
			KeyDatasetVersion: version,
		}
		if err := t.datasets.Publish(ctx, []solr.Doc{doc}); err != nil {
			return err
		}
	}

	if t.cfg.CleanStagingMetadata {
		t.cleanStaging(datasetID)
	}
	return nil
}

// nextVersion scans the dataset's archive directory for numeric version
// subdirectories and returns one past the highest. A fresh dataset starts
// at version 1.
func (t *Task) nextVersion(productType, datasetID string) int {
	latest := 0
	entries, err := os.ReadDir(filepath.Join(t.archiveDir, productType, datasetID))
	if err != nil {
		return 1
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if version, err := strconv.Atoi(entry.Name()); err == nil && version > latest {
			latest = version
		}
	}
	return latest + 1
}

// cleanStaging removes leftover .met files from a previous submission of the
// same dataset. Failures are logged; they never abort the workflow.
func (t *Task) cleanStaging(datasetID string) {
	dir := filepath.Join(t.stagingDir, datasetID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != metExtension {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		log.Debugln("Deleting stale metadata file", path)
		if err := os.Remove(path); err != nil {
			log.Warningln("Cannot delete stale metadata file:", err)
		}
	}
}
