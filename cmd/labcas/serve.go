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

package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/labcas-platform/labcas-backend/config"
	"github.com/labcas-platform/labcas-backend/data_access"
	"github.com/labcas-platform/labcas-backend/directory"
	"github.com/labcas-platform/labcas-backend/download"
	"github.com/labcas-platform/labcas-backend/param"
	"github.com/labcas-platform/labcas-backend/sessions"
	"github.com/labcas-platform/labcas-backend/solr"
	"github.com/labcas-platform/labcas-backend/token"
)

func serve(cmd *cobra.Command, args []string) error {
	if err := config.InitConfig(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := config.InitServer(ctx); err != nil {
		return err
	}

	egrp, ctx := errgroup.WithContext(ctx)

	ldapClient, err := directory.NewLdapClient()
	if err != nil {
		return err
	}
	dir := directory.NewCachingClient(ldapClient, param.Ldap_GroupCacheTtl.GetDuration())
	defer dir.Stop()

	store := sessions.NewStore(param.Session_Ttl.GetDuration())
	if interval := param.Session_SweepInterval.GetDuration(); interval > 0 {
		egrp.Go(func() error {
			return store.Sweep(ctx, interval)
		})
	}

	signingKey, err := config.LoadCookieSigningKey()
	if err != nil {
		return err
	}

	var presigner data_access.Presigner
	if param.S3_Bucket.GetString() != "" {
		s3, err := download.NewS3Presigner()
		if err != nil {
			return err
		}
		presigner = s3
	}
	var zipper *download.Zipper
	if zipperURL := param.Zipper_Url.GetString(); zipperURL != "" {
		zipper = download.NewZipper(zipperURL, config.GetTransport())
	}

	server := data_access.NewServer(
		dir,
		store,
		token.NewIssuer(store),
		token.NewResourceSigner(signingKey),
		solr.New(param.Solr_Url.GetString(), config.GetTransport()),
		presigner,
		zipper,
	)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	server.RegisterRoutes(engine)

	addr := fmt.Sprintf(":%d", param.Server_Port.GetInt())
	httpServer := &http.Server{Addr: addr, Handler: engine}

	egrp.Go(func() error {
		log.Infoln("Serving the data-access API on", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	egrp.Go(func() error {
		<-ctx.Done()
		log.Infoln("Shutting down the data-access API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return egrp.Wait()
}
