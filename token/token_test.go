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

package token

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labcas-platform/labcas-backend/sessions"
)

const testSubject = "uid=alice,ou=users,dc=example"

func newTestIssuer(t *testing.T) (*Issuer, *sessions.Store) {
	t.Helper()
	store := sessions.NewStore(time.Hour)
	return &Issuer{
		secret:   []byte("test-secret-test-secret-test-1234"),
		issuer:   "LabCAS",
		audience: "LabCAS",
		lifetime: time.Hour,
		sessions: store,
		now:      time.Now,
	}, store
}

func TestIssueAndVerify(t *testing.T) {
	issuer, store := newTestIssuer(t)

	tok, err := issuer.Issue(testSubject)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len(), "issuing a token must start a session")

	subject, issuedAt, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, testSubject, subject)
	assert.WithinDuration(t, time.Now(), issuedAt, time.Minute)
}

func TestVerifyRejectsEndedSession(t *testing.T) {
	issuer, store := newTestIssuer(t)

	tok, err := issuer.Issue(testSubject)
	require.NoError(t, err)

	id, err := SessionID(tok)
	require.NoError(t, err)
	store.End(id)

	_, _, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	other, _ := newTestIssuer(t)
	other.secret = []byte("a-different-secret-entirely-5678")

	tok, err := other.Issue(testSubject)
	require.NoError(t, err)

	_, _, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := issuer.Issue(testSubject)
	require.NoError(t, err)

	_, _, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResourceSignerRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer := NewResourceSigner(key)

	sig, err := signer.Sign("MyCollection/MyDataset/file001.dcm")
	require.NoError(t, err)
	assert.True(t, signer.Verify("MyCollection/MyDataset/file001.dcm", sig))
	assert.False(t, signer.Verify("MyCollection/MyDataset/file002.dcm", sig))
	assert.False(t, signer.Verify("MyCollection/MyDataset/file001.dcm", "bogus"))

	// PKCS#1 v1.5 signatures are deterministic, so re-signing yields the
	// same cookie value.
	again, err := signer.Sign("MyCollection/MyDataset/file001.dcm")
	require.NoError(t, err)
	assert.Equal(t, sig, again)
}
