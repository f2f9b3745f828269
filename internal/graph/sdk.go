package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/drives"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/config"
	"github.com/bail-wils/Support-Knowledge-Agent/pkg/logger"
)

// SDKConnector authenticates with azidentity and issues drive calls through
// the msgraph-sdk-go request builders.
type SDKConnector struct {
	cred    azcore.TokenCredential
	baseURL string
}

func NewSDKConnector(cfg config.GraphConfig) (*SDKConnector, error) {
	opts := &azidentity.ClientSecretCredentialOptions{}
	if cfg.AuthorityURL != "" {
		opts.ClientOptions.Cloud = cloud.Configuration{
			ActiveDirectoryAuthorityHost: cfg.AuthorityURL + "/",
		}
	}

	cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, opts)
	if err != nil {
		return nil, fmt.Errorf("create client secret credential: %w", err)
	}

	return NewSDKConnectorWithCredential(cred, cfg.BaseURL), nil
}

// NewSDKConnectorWithCredential builds a connector around any azcore
// credential, such as a managed identity.
func NewSDKConnectorWithCredential(cred azcore.TokenCredential, baseURL string) *SDKConnector {
	return &SDKConnector{cred: cred, baseURL: baseURL}
}

func (c *SDKConnector) Connect(ctx context.Context) (Drive, error) {
	tok, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{DefaultScope}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	logger.Log.Debug().Time("expiry", tok.ExpiresOn).Msg("acquired graph token")

	return newSDKDrive(tok.Token, c.baseURL)
}

type sdkDrive struct {
	adapter abstractions.RequestAdapter
	baseURL string
}

func newSDKDrive(accessToken, baseURL string) (*sdkDrive, error) {
	adapter, err := msgraphcore.NewGraphRequestAdapterBase(&staticTokenProvider{accessToken: accessToken}, msgraphcore.GraphClientOptions{
		GraphServiceVersion: "v1.0",
	})
	if err != nil {
		return nil, fmt.Errorf("create graph request adapter: %w", err)
	}
	adapter.SetBaseUrl(baseURL)

	// Building the service client registers the JSON and text serializers the
	// raw request builders rely on for error bodies and driveItem responses.
	_ = msgraphsdk.NewGraphServiceClient(adapter)

	return &sdkDrive{adapter: adapter, baseURL: baseURL}, nil
}

func (d *sdkDrive) DownloadByPath(ctx context.Context, driveID, itemPath string) ([]byte, error) {
	builder := drives.NewItemItemsItemContentRequestBuilder(contentByPathURL(d.baseURL, driveID, itemPath), d.adapter)
	data, err := builder.Get(ctx, nil)
	if err != nil {
		return nil, mapSDKError("download", err)
	}
	return data, nil
}

func (d *sdkDrive) UploadToFolder(ctx context.Context, driveID, folderID, name string, data []byte) (*Item, error) {
	builder := drives.NewItemItemsItemContentRequestBuilder(uploadURL(d.baseURL, driveID, folderID, name), d.adapter)
	created, err := builder.Put(ctx, data, nil)
	if err != nil {
		return nil, mapSDKError("upload", err)
	}
	return itemFromModel(created), nil
}

func itemFromModel(m models.DriveItemable) *Item {
	item := &Item{}
	if m == nil {
		return item
	}
	if v := m.GetId(); v != nil {
		item.ID = *v
	}
	if v := m.GetName(); v != nil {
		item.Name = *v
	}
	if v := m.GetWebUrl(); v != nil {
		item.WebURL = *v
	}
	if v := m.GetSize(); v != nil {
		item.Size = *v
	}
	return item
}

func mapSDKError(op string, err error) error {
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		var code, msg string
		if main := odataErr.GetErrorEscaped(); main != nil {
			if v := main.GetCode(); v != nil {
				code = *v
			}
			if v := main.GetMessage(); v != nil {
				msg = *v
			}
		}
		return newStatusError(op, odataErr.ResponseStatusCode, code, msg)
	}

	var apiErr *abstractions.ApiError
	if errors.As(err, &apiErr) {
		return newStatusError(op, apiErr.ResponseStatusCode, "", apiErr.Message)
	}

	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}

// staticTokenProvider hands the token acquired in Connect to every request.
type staticTokenProvider struct {
	accessToken string
}

func (p *staticTokenProvider) AuthenticateRequest(ctx context.Context, request *abstractions.RequestInformation, _ map[string]interface{}) error {
	if request == nil {
		return fmt.Errorf("request cannot be nil")
	}
	request.Headers.Add("Authorization", "Bearer "+p.accessToken)
	return nil
}
