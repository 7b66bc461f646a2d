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

// Package config handles process-level initialization: reading the viper
// configuration, setting up logging, and building the shared HTTP transport
// used when talking to backend services.
package config

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/labcas-platform/labcas-backend/param"
)

var (
	// Shared transport for outbound HTTP, built at most once
	transport     *http.Transport
	onceTransport sync.Once
)

func setDefaults() {
	viper.SetDefault("Server.Port", 8080)
	viper.SetDefault("Logging.Level", "info")

	viper.SetDefault("Ldap.UserFilter", "(uid=%s)")
	viper.SetDefault("Ldap.GroupFilter", "(&(objectClass=groupOfUniqueNames)(uniqueMember=%s))")
	viper.SetDefault("Ldap.InsecureSkipVerify", false)
	viper.SetDefault("Ldap.GroupCacheTtl", time.Minute)

	viper.SetDefault("Solr.Url", "http://localhost:8983/solr")
	viper.SetDefault("Solr.MaxRows", 500)

	viper.SetDefault("Access.SuperOwnerPrincipal", "cn=Super User,dc=labcas,dc=jpl,dc=nasa,dc=gov")
	viper.SetDefault("Access.PublicOwnerPrincipal", "cn=All Users,dc=labcas,dc=jpl,dc=nasa,dc=gov")
	viper.SetDefault("Access.GuestDn", "uid=guest,ou=public")

	viper.SetDefault("Token.Issuer", "LabCAS")
	viper.SetDefault("Token.Audience", "LabCAS")
	viper.SetDefault("Token.Lifetime", time.Hour)

	viper.SetDefault("Session.Ttl", time.Hour)
	viper.SetDefault("Session.SweepInterval", time.Duration(0))

	viper.SetDefault("Cookie.MaxAge", 900)

	viper.SetDefault("S3.Region", "us-west-2")
	viper.SetDefault("S3.Profile", "default")
	viper.SetDefault("S3.UrlLifetime", 20*time.Second)
}

// InitConfig reads the labcas.yaml configuration (if present) and the
// LABCAS_-prefixed environment, then configures logging. Call once, before
// any parameter is consulted.
func InitConfig() error {
	setDefaults()

	viper.SetEnvPrefix("LABCAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("labcas")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/labcas")
	viper.AddConfigPath("$HOME/.labcas")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Do not fail if the config file is missing
	}
	if envConfigFile := os.Getenv("LABCAS_CONFIG_FILE"); len(envConfigFile) != 0 {
		fp, err := os.Open(envConfigFile)
		if err != nil {
			return err
		}
		defer fp.Close()
		if err := viper.ReadConfig(fp); err != nil {
			return err
		}
	}

	logLevel := param.Logging_Level.GetString()
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return errors.Wrapf(err, "Failed to parse the configured log level %q", logLevel)
	}
	log.SetLevel(level)
	return nil
}

// InitServer validates the configuration the HTTP server cannot run without.
func InitServer(ctx context.Context) error {
	required := []struct {
		key   string
		value string
	}{
		{param.Ldap_UsersUrl.GetName(), param.Ldap_UsersUrl.GetString()},
		{param.Ldap_GroupsUrl.GetName(), param.Ldap_GroupsUrl.GetString()},
		{param.Ldap_AdminDn.GetName(), param.Ldap_AdminDn.GetString()},
		{param.Solr_Url.GetName(), param.Solr_Url.GetString()},
		{param.Token_Secret.GetName(), param.Token_Secret.GetString()},
	}
	for _, item := range required {
		if item.value == "" {
			return errors.Errorf("Required configuration %s is not set", item.key)
		}
	}
	if param.Server_TlsSkipVerify.GetBool() {
		log.Warningln("TLS certificate verification for backend services is disabled; " +
			"do not use this setting in production")
	}
	return nil
}

// GetTransport returns the shared outbound transport, building it on first use.
func GetTransport() *http.Transport {
	onceTransport.Do(func() {
		setupTransport()
	})
	return transport
}

// GetTLSConfig returns the TLS client configuration matching the configured
// trust policy. The LDAP dialer shares this with the HTTP transport so a
// single flag governs all backend connections.
func GetTLSConfig() *tls.Config {
	if param.Server_TlsSkipVerify.GetBool() {
		return &tls.Config{InsecureSkipVerify: true}
	}
	return &tls.Config{}
}

func setupTransport() {
	dialer := net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          30,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		TLSClientConfig:       GetTLSConfig(),
	}
}
