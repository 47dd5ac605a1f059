// Package drive publishes rendered report artifacts to Google Drive using a
// service-account JWT bearer flow. Only the pieces the export pipeline needs
// are implemented: token exchange, multipart upload, and a best-effort
// public-read permission grant.
package drive

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/jmcallister/fleetreport/internal/config"
)

const driveScope = "https://www.googleapis.com/auth/drive.file"

// tokenEarlyExpiry is how long before the reported expiry a cached token is
// discarded; re-issuance must happen strictly before expiry.
const tokenEarlyExpiry = time.Minute

// UploadResult is the durable reference returned by a successful publish.
type UploadResult struct {
	FileID         string `json:"fileId"`
	WebViewLink    string `json:"webViewLink,omitempty"`
	WebContentLink string `json:"webContentLink,omitempty"`
}

// PublishOptions tune a single publish call.
type PublishOptions struct {
	FolderID   string
	MakePublic bool
}

// Publisher uploads artifacts on behalf of a service account.
type Publisher struct {
	serviceAccount string
	key            *rsa.PrivateKey
	tokenURL       string
	apiBase        string
	uploadBase     string
	client         *http.Client
	log            *zap.Logger

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

// NewPublisher constructs a Publisher from config. The private key must be a
// PEM-encoded RSA key; signing uses PKCS#1 v1.5 with SHA-256.
func NewPublisher(cfg *config.Config, client *http.Client, log *zap.Logger) (*Publisher, error) {
	if err := cfg.RequireDrive(); err != nil {
		return nil, err
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.DrivePrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse drive private key: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		serviceAccount: cfg.DriveServiceAccount,
		key:            key,
		tokenURL:       cfg.DriveTokenURL,
		apiBase:        strings.TrimSuffix(cfg.DriveAPIBase, "/"),
		uploadBase:     strings.TrimSuffix(cfg.DriveUploadBase, "/"),
		client:         client,
		log:            log,
	}, nil
}

// Publish uploads the bytes under fileName and returns the storage-assigned
// reference. When opts.MakePublic is set, a follow-up permission grant gives
// anyone with the link read access; its failure is logged, never escalated.
func (p *Publisher) Publish(ctx context.Context, data []byte, fileName string, opts PublishOptions) (*UploadResult, error) {
	token, err := p.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("drive credential: %w", err)
	}

	result, err := p.upload(ctx, token, data, fileName, opts.FolderID)
	if err != nil {
		return nil, err
	}

	if opts.MakePublic {
		if err := p.grantPublicRead(ctx, token, result.FileID); err != nil {
			p.log.Warn("public share grant failed",
				zap.String("file_id", result.FileID), zap.Error(err))
		}
	}
	return result, nil
}

// token returns a bearer token, reusing the cached one while it is still
// comfortably inside its lifetime.
func (p *Publisher) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.cachedToken != "" && time.Now().Before(p.tokenExpiry.Add(-tokenEarlyExpiry)) {
		token := p.cachedToken
		p.mu.Unlock()
		return token, nil
	}
	p.mu.Unlock()

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   p.serviceAccount,
		"scope": driveScope,
		"aud":   p.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange: status %d: %s", resp.StatusCode, truncate(body))
	}
	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("token exchange: decode: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token exchange: empty access token")
	}

	p.mu.Lock()
	p.cachedToken = payload.AccessToken
	p.tokenExpiry = now.Add(time.Duration(payload.ExpiresIn) * time.Second)
	p.mu.Unlock()
	return payload.AccessToken, nil
}

// upload performs the multipart/related upload: a JSON metadata part followed
// by the binary payload.
func (p *Publisher) upload(ctx context.Context, token string, data []byte, fileName, folderID string) (*UploadResult, error) {
	meta := map[string]any{
		"name":     fileName,
		"mimeType": "application/pdf",
	}
	if folderID != "" {
		meta["parents"] = []string{folderID}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	metaPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return nil, err
	}
	filePart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/pdf"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := filePart.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	uploadURL := p.uploadBase + "/drive/v3/files?uploadType=multipart&fields=id,webViewLink,webContentLink"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upload: status %d: %s", resp.StatusCode, truncate(respBody))
	}
	var uploaded struct {
		ID             string `json:"id"`
		WebViewLink    string `json:"webViewLink"`
		WebContentLink string `json:"webContentLink"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		return nil, fmt.Errorf("upload: decode response: %w", err)
	}
	if uploaded.ID == "" {
		return nil, fmt.Errorf("upload: response missing file id")
	}
	return &UploadResult{
		FileID:         uploaded.ID,
		WebViewLink:    uploaded.WebViewLink,
		WebContentLink: uploaded.WebContentLink,
	}, nil
}

func (p *Publisher) grantPublicRead(ctx context.Context, token, fileID string) error {
	payload, err := json.Marshal(map[string]string{"role": "reader", "type": "anyone"})
	if err != nil {
		return err
	}
	permissionURL := fmt.Sprintf("%s/drive/v3/files/%s/permissions", p.apiBase, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, permissionURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body))
	}
	return nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
