// Google Drive v3 implementation of [StorageProvider]
//
// Reference: https://developers.google.com/drive/api/reference/rest/v3/files
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	driveBaseURL     = "https://www.googleapis.com/drive/v3"
	driveUploadURL   = "https://www.googleapis.com/upload/drive/v3"
	driveFolderMime  = "application/vnd.google-apps.folder"
	driveFileScope   = "https://www.googleapis.com/auth/drive.file"
	defaultMediaType = "application/octet-stream"
)

// DriveOpts configures a [DriveStorage].
type DriveOpts struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Authorizer   Authorizer
	BaseURL      string
	UploadURL    string
	HTTPClient   *http.Client
}

// DriveStorage stores uploads in Google Drive folders.
//
// The access token lives in memory only. Once it expires the next call runs the interactive grant again.
type DriveStorage struct {
	config     *oauth2.Config
	authorizer Authorizer
	baseURL    string
	uploadURL  string
	httpClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// NewDriveStorage creates a Drive provider.
func NewDriveStorage(opts DriveOpts) (*DriveStorage, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: storage client_id", shared.ErrMissingCredentials)
	}
	if opts.Authorizer == nil {
		return nil, fmt.Errorf("%w: drive storage needs an authorizer", shared.ErrInvalidArgument)
	}

	d := &DriveStorage{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       []string{driveFileScope},
			Endpoint:     endpoints.Google,
		},
		authorizer: opts.Authorizer,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		uploadURL:  strings.TrimRight(opts.UploadURL, "/"),
		httpClient: opts.HTTPClient,
	}
	if d.baseURL == "" {
		d.baseURL = driveBaseURL
	}
	if d.uploadURL == "" {
		d.uploadURL = driveUploadURL
	}
	if d.httpClient == nil {
		d.httpClient = http.DefaultClient
	}
	return d, nil
}

func (d *DriveStorage) Name() string {
	return "Google Drive"
}

// Authenticate runs the interactive grant unless a valid token is held. Concurrent callers share one grant.
func (d *DriveStorage) Authenticate(ctx context.Context) error {
	_, err := d.accessToken(ctx)
	return err
}

func (d *DriveStorage) accessToken(ctx context.Context) (*oauth2.Token, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.token.Valid() {
		return d.token, nil
	}

	token, err := d.authorizer.Authorize(ctx, d.config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageAuth, err)
	}
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty token", shared.ErrStorageAuth)
	}
	d.token = token
	return token, nil
}

// client returns an HTTP client that authorizes every request with token. The held token is never
// refreshed in place; expiry runs the grant again.
func (d *DriveStorage) client(ctx context.Context, token *oauth2.Token) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	client.Timeout = d.httpClient.Timeout
	return client
}

// revoke forgets the held token so the next call runs the grant again.
func (d *DriveStorage) revoke() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.token = nil
}

type driveFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FindContainer searches for a non-trashed folder called name directly under parentID.
func (d *DriveStorage) FindContainer(ctx context.Context, name, parentID string) (string, bool, error) {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and '%s' in parents and trashed=false",
		escapeQuery(name), driveFolderMime, escapeQuery(parentID))

	params := url.Values{}
	params.Set("q", q)
	params.Set("fields", "files(id,name)")
	params.Set("pageSize", "1")

	var list struct {
		Files []driveFile `json:"files"`
	}
	if err := d.do(ctx, http.MethodGet, d.baseURL+"/files?"+params.Encode(), "", nil, &list); err != nil {
		return "", false, &StorageRequestError{Op: "find container", Err: err}
	}
	if len(list.Files) == 0 {
		return "", false, nil
	}
	return list.Files[0].ID, true, nil
}

// CreateContainer creates a folder called name under parentID.
func (d *DriveStorage) CreateContainer(ctx context.Context, name, parentID string) (string, error) {
	meta, err := json.Marshal(map[string]any{
		"name":     name,
		"mimeType": driveFolderMime,
		"parents":  []string{parentID},
	})
	if err != nil {
		return "", &StorageRequestError{Op: "create container", Err: err}
	}

	var created driveFile
	if err := d.do(ctx, http.MethodPost, d.baseURL+"/files?fields=id", "application/json", bytes.NewReader(meta), &created); err != nil {
		return "", &StorageRequestError{Op: "create container", Err: err}
	}
	return created.ID, nil
}

// Upload sends file as a multipart request of metadata plus media.
func (d *DriveStorage) Upload(ctx context.Context, file models.UploadFile, containerID string) (string, error) {
	if file.Open == nil {
		return "", &StorageRequestError{Op: "upload", FileName: file.Name, Err: shared.ErrInvalidArgument}
	}
	src, err := file.Open()
	if err != nil {
		return "", &StorageRequestError{Op: "upload", FileName: file.Name, Err: err}
	}
	defer src.Close()

	body, contentType, err := multipartBody(file, containerID, src)
	if err != nil {
		return "", &StorageRequestError{Op: "upload", FileName: file.Name, Err: err}
	}

	var created driveFile
	endpoint := d.uploadURL + "/files?uploadType=multipart&fields=id"
	if err := d.do(ctx, http.MethodPost, endpoint, contentType, body, &created); err != nil {
		return "", &StorageRequestError{Op: "upload", FileName: file.Name, Err: err}
	}
	return created.ID, nil
}

// multipartBody builds the metadata and media parts of a Drive multipart upload.
func multipartBody(file models.UploadFile, containerID string, src io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	meta, err := json.Marshal(map[string]any{"name": file.Name, "parents": []string{containerID}})
	if err != nil {
		return nil, "", err
	}

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(meta); err != nil {
		return nil, "", err
	}

	mediaType := file.ContentType
	if mediaType == "" {
		mediaType = defaultMediaType
	}
	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mediaType)
	part, err = w.CreatePart(mediaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, "multipart/related; boundary=" + w.Boundary(), nil
}

// do performs an authorized request. A 401 drops the held token and reports [shared.ErrStorageAuth].
func (d *DriveStorage) do(ctx context.Context, method, endpoint, contentType string, body io.Reader, result any) error {
	token, err := d.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := d.client(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		d.revoke()
		return fmt.Errorf("%w: status %d", shared.ErrStorageAuth, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("drive API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// escapeQuery escapes a literal for a Drive search query.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
