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

package data_access

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labcas-platform/labcas-backend/directory"
	"github.com/labcas-platform/labcas-backend/download"
	"github.com/labcas-platform/labcas-backend/sessions"
	"github.com/labcas-platform/labcas-backend/solr"
	"github.com/labcas-platform/labcas-backend/token"
)

const (
	aliceDN     = "uid=alice,ou=users,dc=example"
	teamA       = "cn=Team A,ou=groups,dc=example"
	superOwner  = "cn=Super User,dc=example"
	publicOwner = "cn=All Users,dc=example"
	guestDN     = "uid=guest,ou=public"
)

type fakePresigner struct{}

func (fakePresigner) PresignGet(key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func (fakePresigner) S3Key(path string) string {
	return strings.TrimPrefix(strings.TrimPrefix(path, "s3://"), "labcas-archive/")
}

type fixture struct {
	engine   *gin.Engine
	server   *Server
	store    *sessions.Store
	users    *directory.MockClient
	tmpDir   string
	dataFile string
	// queries records every query the index backend received, in order.
	queries []url.Values
}

// newFixture stands up the API over mock collaborators: a static directory,
// a canned index backend, and a local zip endpoint.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	viper.Reset()
	viper.Set("Token.Secret", "unit-test-secret-0123456789abcdef")
	viper.Set("Token.Issuer", "LabCAS")
	viper.Set("Token.Audience", "LabCAS")
	viper.Set("Token.Lifetime", time.Hour)

	tmpDir := t.TempDir()
	dataFile := filepath.Join(tmpDir, "data.dcm")
	require.NoError(t, os.WriteFile(dataFile, []byte("dicom bytes"), 0644))

	f := &fixture{}
	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.queries = append(f.queries, r.URL.Query())
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/collections/"):
			fmt.Fprint(w, `{"response":{"numFound":1,"start":0,"docs":[{"id":"c1"}]}}`)
		case strings.Contains(q, `id:"f1"`):
			fmt.Fprintf(w, `{"response":{"numFound":1,"start":0,"docs":[`+
				`{"id":"f1","FileLocation":%q,"FileName":"data.dcm"}]}}`, tmpDir)
		case strings.Contains(q, `id:"s3f"`):
			fmt.Fprint(w, `{"response":{"numFound":1,"start":0,"docs":[`+
				`{"id":"s3f","FileLocation":"s3://labcas-archive/Coll","FileName":"f.dat"}]}}`)
		case strings.Contains(q, "CollectionId:"):
			fmt.Fprintf(w, `{"response":{"numFound":2,"start":0,"docs":[`+
				`{"id":"f1","FileLocation":%q,"FileName":"data.dcm"},`+
				`{"id":"f2","FileLocation":%q,"FileName":"other.dat"}]}}`, tmpDir, tmpDir)
		default:
			fmt.Fprint(w, `{"response":{"numFound":0,"start":0,"docs":[]}}`)
		}
	}))
	t.Cleanup(index.Close)

	zipBackend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "11111111-2222-3333-4444-555555555555")
	}))
	t.Cleanup(zipBackend.Close)

	users := &directory.MockClient{Users: map[string]directory.MockUser{
		"alice": {DN: aliceDN, Password: "s3cret", Groups: []string{teamA}},
	}}
	store := sessions.NewStore(time.Hour)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	clients := solr.New(index.URL, http.DefaultTransport)
	server := &Server{
		dir:       users,
		sessions:  store,
		issuer:    token.NewIssuer(store),
		signer:    token.NewResourceSigner(key),
		index:     clients,
		resolver:  download.NewResolver(clients[solr.CoreFiles], 500),
		presigner: fakePresigner{},
		audit:     download.NewAuditLogger(""),
		zipper:    download.NewZipper(zipBackend.URL, http.DefaultTransport),

		guestDN:     guestDN,
		superOwner:  superOwner,
		publicOwner: publicOwner,
		downloadURL: "https://labcas.example/data-access-api/download",
		archiveDir:  tmpDir,
		maxRows:     500,
		cookieAge:   900,
	}
	engine := gin.New()
	server.registerAPI(engine)
	f.engine, f.server, f.store, f.users = engine, server, store, users
	f.tmpDir, f.dataFile = tmpDir, dataFile
	return f
}

// lastQuery returns the query of the most recent index request.
func (f *fixture) lastQuery(t *testing.T) url.Values {
	t.Helper()
	require.NotEmpty(t, f.queries)
	return f.queries[len(f.queries)-1]
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func TestDownloadRequiresLogin(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/data-access-api/download?id=f1", nil)
	rec := f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized", rec.Body.String())
}

func TestDownloadStreamsLocalFile(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/data-access-api/download?id=f1", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dicom bytes", rec.Body.String())
	assert.Equal(t, "application/dicom", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="data.dcm"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))
}

func TestDownloadSuppressesContentDisposition(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet,
		"/data-access-api/download?id=f1&suppressContentDisposition=true", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestContentDispositionKeptWhenSuppressionIsFalse(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet,
		"/data-access-api/download?id=f1&suppressContentDisposition=false", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="data.dcm"`, rec.Header().Get("Content-Disposition"))
}

func TestDownloadValidatesID(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct {
		query string
		want  int
	}{
		{"", http.StatusBadRequest},
		{"?id=" + url.QueryEscape("evil<script>"), http.StatusBadRequest},
		{"?id=unknown", http.StatusNotFound},
	} {
		req := httptest.NewRequest(http.MethodGet, "/data-access-api/download"+tc.query, nil)
		req.SetBasicAuth("alice", "s3cret")
		rec := f.do(req)
		assert.Equal(t, tc.want, rec.Code, tc.query)
	}
}

func TestDownloadRedirectsToObjectStore(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/data-access-api/download?id=s3f", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://signed.example/Coll/f.dat", rec.Header().Get("Location"))
}

func TestAuthIssuesWorkingToken(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"username": {"alice"}, "password": {"s3cret"}}
	req := httptest.NewRequest(http.MethodPost, "/data-access-api/auth",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	tok := rec.Body.String()
	require.NotEmpty(t, tok)
	assert.Equal(t, 1, f.store.Len())

	dl := httptest.NewRequest(http.MethodGet, "/data-access-api/download?id=f1", nil)
	dl.Header.Set("Authorization", "Bearer "+tok)
	rec = f.do(dl)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejectsGuest(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/data-access-api/auth", nil)
	rec := f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerRejectedAfterDirectoryChange(t *testing.T) {
	f := newFixture(t)
	tok, err := f.server.issuer.Issue(aliceDN)
	require.NoError(t, err)

	// The entry changes after issuance, so the token goes stale.
	user := f.users.Users["alice"]
	user.Modified = time.Now().Add(time.Minute)
	f.users.Users["alice"] = user

	req := httptest.NewRequest(http.MethodGet, "/data-access-api/download?id=f1", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerOutageIsAServerFault(t *testing.T) {
	f := newFixture(t)
	tok, err := f.server.issuer.Issue(aliceDN)
	require.NoError(t, err)

	f.users.Unavailable = true
	req := httptest.NewRequest(http.MethodGet, "/data-access-api/download?id=f1", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := f.do(req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture(t)
	tok, err := f.server.issuer.Issue(aliceDN)
	require.NoError(t, err)
	id, err := token.SessionID(tok)
	require.NoError(t, err)

	rec := f.do(httptest.NewRequest(http.MethodGet,
		"/data-access-api/logout?sessionID="+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/data-access-api/download?id=f1", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCollectionsListReturnsDownloadURLs(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/data-access-api/collections/list", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "https://labcas.example/data-access-api/download?id=f1", lines[0])
	assert.Equal(t, "https://labcas.example/data-access-api/download?id=f2", lines[1])
}

func TestFilesListForwardsCallerQueryParams(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet,
		"/data-access-api/files/list?q=*:*&start=10&fq="+url.QueryEscape(`DatasetId:"d1"`), nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	got := f.lastQuery(t)
	assert.Equal(t, "*:*", got.Get("q"))
	assert.Equal(t, "10", got.Get("start"))
	require.Len(t, got["fq"], 2)
	assert.Equal(t, `DatasetId:"d1"`, got["fq"][0])
	assert.Contains(t, got["fq"][1], "OwnerPrincipal")
}

func TestFilesListHonorsRowsParameter(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/data-access-api/files/list?rows=7", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", f.lastQuery(t).Get("rows"))

	// Non-positive rows fall back to the configured maximum.
	req = httptest.NewRequest(http.MethodGet, "/data-access-api/files/list?rows=0", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "500", f.lastQuery(t).Get("rows"))
}

func TestCollectionsListForwardsParamsToFirstStage(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet,
		"/data-access-api/collections/list?start=5&rows=3&fq="+url.QueryEscape(`Institution:"JPL"`), nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	first := f.queries[0]
	assert.Equal(t, "5", first.Get("start"))
	assert.Equal(t, "3", first.Get("rows"))
	require.Len(t, first["fq"], 2)
	assert.Equal(t, `Institution:"JPL"`, first["fq"][0])
}

func TestGuestMayListCollectionsButNotFiles(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/data-access-api/collections/list", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/data-access-api/files/list", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/data-access-api/files/select", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSelectRejectsUnsafeQuery(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet,
		"/data-access-api/datasets/select?q="+url.QueryEscape("a<b"), nil)
	rec := f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestZipDelegatesToZippingService(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"email": {"alice@example.com"}, "id": {"f1"}}
	req := httptest.NewRequest(http.MethodPost, "/data-access-api/zip",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", rec.Body.String())
}

func TestZipWithNoMatchesReturnsNoContent(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"email": {"alice@example.com"}, "id": {"unknown"}}
	req := httptest.NewRequest(http.MethodPost, "/data-access-api/zip",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestResourceCookieGatesArchiveAccess(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/data-access-api/resource?id=data.dcm", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	signature := rec.Body.String()
	require.NotEmpty(t, signature)

	fetch := httptest.NewRequest(http.MethodGet, "/data-access-api/archive/data.dcm", nil)
	fetch.AddCookie(&http.Cookie{Name: resourceCookie, Value: signature})
	rec = f.do(fetch)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dicom bytes", rec.Body.String())

	// No cookie, and a cookie for a different resource, both fail.
	rec = f.do(httptest.NewRequest(http.MethodGet, "/data-access-api/archive/data.dcm", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := httptest.NewRequest(http.MethodGet, "/data-access-api/archive/other.dat", nil)
	other.AddCookie(&http.Cookie{Name: resourceCookie, Value: signature})
	rec = f.do(other)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDirectoryOutageIsAServerFault(t *testing.T) {
	f := newFixture(t)
	f.users.Unavailable = true
	req := httptest.NewRequest(http.MethodGet, "/data-access-api/download?id=f1", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := f.do(req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPing(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/data-access-api/ping?message=hello", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello")
}
