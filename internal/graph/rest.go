package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/config"
	"github.com/bail-wils/Support-Knowledge-Agent/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// RESTConnector exchanges client credentials with the identity platform and
// calls the Graph REST endpoints directly.
type RESTConnector struct {
	creds   *clientcredentials.Config
	baseURL string
	client  *http.Client
}

func NewRESTConnector(cfg config.GraphConfig) *RESTConnector {
	return &RESTConnector{
		creds: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL(cfg.AuthorityURL, cfg.TenantID),
			Scopes:       []string{DefaultScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout(cfg.TimeoutSeconds)},
	}
}

func tokenURL(authority, tenant string) string {
	if authority == "" || authority == "https://login.microsoftonline.com" {
		return microsoft.AzureADEndpoint(tenant).TokenURL
	}
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", authority, tenant)
}

func timeout(seconds int) time.Duration {
	if seconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(seconds) * time.Second
}

func (c *RESTConnector) Connect(ctx context.Context) (Drive, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	tok, err := c.creds.Token(ctx)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, fmt.Errorf("%w: %s %s", ErrAuth, rerr.ErrorCode, rerr.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	logger.Log.Debug().Time("expiry", tok.Expiry).Msg("acquired graph token")

	return &restDrive{
		baseURL: c.baseURL,
		client: &http.Client{
			Timeout: c.client.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(tok),
				Base:   c.client.Transport,
			},
		},
	}, nil
}

type restDrive struct {
	baseURL string
	client  *http.Client
}

type graphErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (d *restDrive) DownloadByPath(ctx context.Context, driveID, itemPath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentByPathURL(d.baseURL, driveID, itemPath), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", ErrUpstream, itemPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readStatusError("download", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUpstream, itemPath, err)
	}
	return data, nil
}

func (d *restDrive) UploadToFolder(ctx context.Context, driveID, folderID, name string, data []byte) (*Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL(d.baseURL, driveID, folderID, name), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: upload %s: %v", ErrUpstream, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, readStatusError("upload", resp)
	}

	var item Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("%w: decode upload response for %s: %v", ErrUpstream, name, err)
	}
	return &item, nil
}

func readStatusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var ge graphErrorBody
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Code != "" {
		return newStatusError(op, resp.StatusCode, ge.Error.Code, ge.Error.Message)
	}
	return newStatusError(op, resp.StatusCode, "", string(bytes.TrimSpace(body)))
}
