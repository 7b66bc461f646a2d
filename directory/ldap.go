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

package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/labcas-platform/labcas-backend/config"
	"github.com/labcas-platform/labcas-backend/param"
)

// ldapTimeLayout is the generalized-time format used by the directory's
// modifyTimestamp attribute.
const ldapTimeLayout = "20060102150405Z"

// endpoint is a parsed LDAP URL: the server address plus the search base DN
// carried in the URL path, e.g. ldaps://host:636/ou=users,dc=example.
type endpoint struct {
	serverURL string
	baseDN    string
}

func parseEndpoint(rawURL string) (endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return endpoint{}, errors.Wrapf(err, "Invalid LDAP URL %q", rawURL)
	}
	baseDN := strings.TrimPrefix(u.Path, "/")
	server := *u
	server.Path = ""
	return endpoint{serverURL: server.String(), baseDN: baseDN}, nil
}

// LdapClient talks to the directory over go-ldap. Each operation opens a
// fresh connection; credential binds never reuse the admin connection.
type LdapClient struct {
	users       endpoint
	groups      endpoint
	adminDN     string
	adminPass   string
	userFilter  string
	groupFilter string
	tlsConfig   *tls.Config
}

// NewLdapClient builds a client from the process configuration.
func NewLdapClient() (*LdapClient, error) {
	users, err := parseEndpoint(param.Ldap_UsersUrl.GetString())
	if err != nil {
		return nil, err
	}
	groups, err := parseEndpoint(param.Ldap_GroupsUrl.GetString())
	if err != nil {
		return nil, err
	}
	tlsConfig := config.GetTLSConfig()
	if param.Ldap_InsecureSkipVerify.GetBool() {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &LdapClient{
		users:       users,
		groups:      groups,
		adminDN:     param.Ldap_AdminDn.GetString(),
		adminPass:   param.Ldap_AdminPassword.GetString(),
		userFilter:  param.Ldap_UserFilter.GetString(),
		groupFilter: param.Ldap_GroupFilter.GetString(),
		tlsConfig:   tlsConfig,
	}, nil
}

func (c *LdapClient) dial(serverURL string) (*ldap.Conn, error) {
	conn, err := ldap.DialURL(serverURL, ldap.DialWithTLSConfig(c.tlsConfig))
	if err != nil {
		return nil, errors.Wrapf(ErrServiceUnavailable, "dial %s: %v", serverURL, err)
	}
	return conn, nil
}

func (c *LdapClient) adminConn(serverURL string) (*ldap.Conn, error) {
	conn, err := c.dial(serverURL)
	if err != nil {
		return nil, err
	}
	if err := conn.Bind(c.adminDN, c.adminPass); err != nil {
		conn.Close()
		return nil, errors.Wrapf(ErrServiceUnavailable, "admin bind: %v", err)
	}
	return conn, nil
}

// Authenticate looks up the entry matching username under the users base DN,
// then verifies the password by binding as that entry on a new connection.
func (c *LdapClient) Authenticate(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrMalformedCredentials
	}

	conn, err := c.adminConn(c.users.serverURL)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	filter := fmt.Sprintf(c.userFilter, ldap.EscapeFilter(username))
	req := ldap.NewSearchRequest(c.users.baseDN, ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases, 1, 0, false, filter, []string{"dn"}, nil)
	res, err := conn.Search(req)
	if err != nil {
		return "", errors.Wrapf(ErrServiceUnavailable, "user search: %v", err)
	}
	if len(res.Entries) == 0 {
		return "", ErrUnknownUser
	}
	dn := res.Entries[0].DN

	// The password bind happens on its own connection so a failed bind
	// cannot poison the admin-bound one.
	userConn, err := c.dial(c.users.serverURL)
	if err != nil {
		return "", err
	}
	defer userConn.Close()
	if err := userConn.Bind(dn, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return "", ErrBadPassword
		}
		return "", errors.Wrapf(ErrServiceUnavailable, "user bind: %v", err)
	}
	log.Debugln("Authenticated directory entry", dn)
	return dn, nil
}

// Groups returns the DNs of all groups listing dn as a unique member.
func (c *LdapClient) Groups(ctx context.Context, dn string) ([]string, error) {
	conn, err := c.adminConn(c.groups.serverURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	filter := fmt.Sprintf(c.groupFilter, ldap.EscapeFilter(dn))
	req := ldap.NewSearchRequest(c.groups.baseDN, ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases, 0, 0, false, filter, []string{"dn"}, nil)
	res, err := conn.Search(req)
	if err != nil {
		return nil, errors.Wrapf(ErrServiceUnavailable, "group search: %v", err)
	}
	groups := make([]string, 0, len(res.Entries))
	for _, entry := range res.Entries {
		groups = append(groups, entry.DN)
	}
	return groups, nil
}

// ModifyTimestamp reads the entry's modifyTimestamp attribute. Entries that
// lack the attribute, or carry one we cannot parse, report the Unix epoch so
// token staleness checks treat them as never modified.
func (c *LdapClient) ModifyTimestamp(ctx context.Context, dn string) (time.Time, error) {
	conn, err := c.adminConn(c.users.serverURL)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Close()

	req := ldap.NewSearchRequest(dn, ldap.ScopeBaseObject,
		ldap.NeverDerefAliases, 1, 0, false, "(objectClass=*)",
		[]string{"modifyTimestamp"}, nil)
	res, err := conn.Search(req)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrServiceUnavailable, "entry lookup: %v", err)
	}
	if len(res.Entries) == 0 {
		return time.Time{}, ErrUnknownUser
	}
	raw := res.Entries[0].GetAttributeValue("modifyTimestamp")
	if raw == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	ts, err := time.Parse(ldapTimeLayout, raw)
	if err != nil {
		log.Warningln("Unparsable modifyTimestamp", raw, "for entry", dn)
		return time.Unix(0, 0).UTC(), nil
	}
	return ts, nil
}
