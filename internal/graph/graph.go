// Package graph talks to Microsoft Graph drives on behalf of the relay.
//
// A Connector performs the client-credentials exchange; the Drive it returns
// reuses that single token for every call made during one invocation.
package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/config"
)

// DefaultScope requests every application permission granted to the app
// registration.
const DefaultScope = "https://graph.microsoft.com/.default"

var (
	ErrAuth         = errors.New("graph authentication failed")
	ErrItemNotFound = errors.New("drive item not found")
	ErrUpstream     = errors.New("graph request failed")
)

// Item is the subset of a driveItem the relay reports back.
type Item struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl,omitempty"`
	Size   int64  `json:"size"`
}

type Drive interface {
	// DownloadByPath reads the content of the item at itemPath, relative to
	// the drive root.
	DownloadByPath(ctx context.Context, driveID, itemPath string) ([]byte, error)
	// UploadToFolder creates or replaces name inside folderID.
	UploadToFolder(ctx context.Context, driveID, folderID, name string, data []byte) (*Item, error)
}

type Connector interface {
	Connect(ctx context.Context) (Drive, error)
}

// NewConnector picks the backend named in cfg.Backend.
func NewConnector(cfg config.GraphConfig) (Connector, error) {
	switch cfg.Backend {
	case config.GraphBackendREST, "":
		return NewRESTConnector(cfg), nil
	case config.GraphBackendSDK:
		return NewSDKConnector(cfg)
	default:
		return nil, fmt.Errorf("unknown graph backend %q", cfg.Backend)
	}
}

// StatusError carries the HTTP status and Graph error code of a failed call.
type StatusError struct {
	Op     string
	Status int
	Code   string
	Msg    string
	kind   error
}

func (e *StatusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: status %d", e.Op, e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *StatusError) Unwrap() error { return e.kind }

func newStatusError(op string, status int, code, msg string) *StatusError {
	var kind error
	switch status {
	case http.StatusNotFound:
		kind = ErrItemNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrAuth
	default:
		kind = ErrUpstream
	}
	return &StatusError{Op: op, Status: status, Code: code, Msg: msg, kind: kind}
}

// escapePath escapes each segment of a drive-relative path, keeping the
// separators, so it can be placed between "root:/" and ":".
func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func contentByPathURL(baseURL, driveID, itemPath string) string {
	return fmt.Sprintf("%s/drives/%s/root:/%s:/content",
		baseURL, url.PathEscape(driveID), escapePath(itemPath))
}

func uploadURL(baseURL, driveID, folderID, name string) string {
	return fmt.Sprintf("%s/drives/%s/items/%s:/%s:/content",
		baseURL, url.PathEscape(driveID), url.PathEscape(folderID), url.PathEscape(name))
}
