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

// Package data_access wires the REST endpoints of the data-access API:
// authentication, index queries, file downloads, and zip delegation.
package data_access

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"

	"github.com/labcas-platform/labcas-backend/directory"
	"github.com/labcas-platform/labcas-backend/download"
	"github.com/labcas-platform/labcas-backend/param"
	"github.com/labcas-platform/labcas-backend/sessions"
	"github.com/labcas-platform/labcas-backend/solr"
	"github.com/labcas-platform/labcas-backend/token"
)

// Presigner is the slice of the object-store helper the handlers need.
type Presigner interface {
	PresignGet(key string) (string, error)
	S3Key(path string) string
}

// Server carries every dependency the HTTP handlers use. Construct it once
// at startup and register it on a gin engine.
type Server struct {
	dir       directory.Client
	sessions  *sessions.Store
	issuer    *token.Issuer
	signer    *token.ResourceSigner
	index     solr.Clients
	resolver  *download.Resolver
	presigner Presigner
	audit     *download.AuditLogger
	zipper    *download.Zipper
	prefixes  download.PrefixMap

	guestDN     string
	superOwner  string
	publicOwner string
	downloadURL string
	archiveDir  string
	maxRows     int
	cookieAge   int
}

// NewServer assembles a Server from its collaborators plus the process
// configuration. presigner and zipper may be nil when the deployment has no
// object store or zipping service; the matching endpoints then fail cleanly.
func NewServer(dir directory.Client, store *sessions.Store, issuer *token.Issuer,
	signer *token.ResourceSigner, index solr.Clients, presigner Presigner,
	zipper *download.Zipper) *Server {
	downloadURL := param.Download_BaseUrl.GetString()
	if downloadURL == "" {
		downloadURL = param.Server_ExternalUrl.GetString() + "/data-access-api/download"
	}
	return &Server{
		dir:       dir,
		sessions:  store,
		issuer:    issuer,
		signer:    signer,
		index:     index,
		resolver:  download.NewResolver(index[solr.CoreFiles], param.Solr_MaxRows.GetInt()),
		presigner: presigner,
		audit:     download.NewAuditLogger(param.Download_AuditDir.GetString()),
		zipper:    zipper,
		prefixes:  download.NewPrefixMap(param.Download_PathPrefixMap.GetStringSlice()),

		guestDN:     param.Access_GuestDn.GetString(),
		superOwner:  param.Access_SuperOwnerPrincipal.GetString(),
		publicOwner: param.Access_PublicOwnerPrincipal.GetString(),
		downloadURL: downloadURL,
		archiveDir:  param.Workflow_ArchiveDir.GetString(),
		maxRows:     param.Solr_MaxRows.GetInt(),
		cookieAge:   param.Cookie_MaxAge.GetInt(),
	}
}

// RegisterRoutes attaches every endpoint to the engine, including the
// Prometheus middleware and scrape endpoint.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	prometheusMonitor := ginprometheus.NewPrometheus("gin")
	prometheusMonitor.Use(engine)
	s.registerAPI(engine)
}

// registerAPI attaches the API routes without the metrics middleware.
func (s *Server) registerAPI(engine *gin.Engine) {
	engine.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/data-access-api", s.authenticate)
	{
		api.POST("/auth", s.postAuth)
		api.GET("/logout", s.getLogout)
		api.GET("/ping", s.getPing)
		api.GET("/download", s.getDownload)
		api.POST("/zip", s.postZip)

		api.GET("/collections/list", s.listHandler(solr.CoreCollections))
		api.GET("/datasets/list", s.listHandler(solr.CoreDatasets))
		api.GET("/files/list", s.listHandler(solr.CoreFiles))

		api.GET("/collections/select", s.selectHandler(solr.CoreCollections))
		api.GET("/datasets/select", s.selectHandler(solr.CoreDatasets))
		api.GET("/files/select", s.selectHandler(solr.CoreFiles))

		api.GET("/resource", s.getResource)
		api.GET("/archive/*path", s.verifyResourceCookie, s.getArchive)
	}
}
