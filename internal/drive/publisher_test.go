package drive

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcallister/fleetreport/internal/config"
)

func testKeyPEM(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// driveStub fakes the token, upload, and permission endpoints.
type driveStub struct {
	tokenCalls      atomic.Int32
	uploadCalls     atomic.Int32
	permissionCalls atomic.Int32
	uploadStatus    int
}

func (d *driveStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		d.tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostFormValue("grant_type"))
		assert.NotEmpty(t, r.PostFormValue("assertion"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
	mux.HandleFunc("/upload/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		d.uploadCalls.Add(1)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/related"))
		if d.uploadStatus != 0 {
			http.Error(w, "quota exceeded", d.uploadStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":             "file-1",
			"webViewLink":    "https://drive.example/view/file-1",
			"webContentLink": "https://drive.example/dl/file-1",
		})
	})
	mux.HandleFunc("/drive/v3/files/file-1/permissions", func(w http.ResponseWriter, r *http.Request) {
		d.permissionCalls.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "reader", body["role"])
		assert.Equal(t, "anyone", body["type"])
		fmt.Fprint(w, "{}")
	})
	return mux
}

func testPublisher(t *testing.T, stub *driveStub) (*Publisher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		DriveServiceAccount: "reporter@fleet.example",
		DrivePrivateKey:     testKeyPEM(t),
		DriveTokenURL:       srv.URL + "/token",
		DriveAPIBase:        srv.URL,
		DriveUploadBase:     srv.URL + "/upload",
		HTTPTimeout:         5 * time.Second,
	}
	p, err := NewPublisher(cfg, srv.Client(), nil)
	require.NoError(t, err)
	return p, srv
}

func TestPublishUploadsAndShares(t *testing.T) {
	stub := &driveStub{}
	p, _ := testPublisher(t, stub)

	result, err := p.Publish(context.Background(), []byte("%PDF-fake"), "report.pdf", PublishOptions{MakePublic: true})
	require.NoError(t, err)
	assert.Equal(t, "file-1", result.FileID)
	assert.Equal(t, "https://drive.example/view/file-1", result.WebViewLink)
	assert.Equal(t, "https://drive.example/dl/file-1", result.WebContentLink)
	assert.Equal(t, int32(1), stub.permissionCalls.Load())
}

func TestPublishSkipsShareWhenPrivate(t *testing.T) {
	stub := &driveStub{}
	p, _ := testPublisher(t, stub)

	_, err := p.Publish(context.Background(), []byte("data"), "report.pdf", PublishOptions{MakePublic: false})
	require.NoError(t, err)
	assert.Equal(t, int32(0), stub.permissionCalls.Load())
}

func TestPublishUploadFailure(t *testing.T) {
	stub := &driveStub{uploadStatus: http.StatusForbidden}
	p, _ := testPublisher(t, stub)

	_, err := p.Publish(context.Background(), []byte("data"), "report.pdf", PublishOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestPublishReusesCachedToken(t *testing.T) {
	stub := &driveStub{}
	p, _ := testPublisher(t, stub)

	ctx := context.Background()
	_, err := p.Publish(ctx, []byte("one"), "a.pdf", PublishOptions{})
	require.NoError(t, err)
	_, err = p.Publish(ctx, []byte("two"), "b.pdf", PublishOptions{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), stub.tokenCalls.Load())
	assert.Equal(t, int32(2), stub.uploadCalls.Load())
}

func TestNewPublisherRequiresCredentials(t *testing.T) {
	_, err := NewPublisher(&config.Config{}, nil, nil)
	require.Error(t, err)

	_, err = NewPublisher(&config.Config{
		DriveServiceAccount: "reporter@fleet.example",
		DrivePrivateKey:     []byte("not a pem key"),
	}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key")
}
