package purge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tcerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	tchttp "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/http"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"

	"github.com/wikistore/cosbackend/config"
)

const (
	cdnService = "cdn"
	cdnVersion = "2018-06-06"
	cdnAction  = "PurgeUrlsCache"
)

// Purger invalidates cached copies of URLs.
type Purger interface {
	PurgeURLs(ctx context.Context, urls []string) error
}

// CDNClient purges URLs through the Tencent Cloud CDN API.
type CDNClient struct {
	client *common.Client
}

// NewCDNClient constructs a CDN client from config.
func NewCDNClient(cfg config.CDNConfig) (*CDNClient, error) {
	if strings.TrimSpace(cfg.SecretID) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("cdn secret id and secret key are required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, errors.New("cdn region is required")
	}

	cpf := profile.NewClientProfile()
	if cfg.Endpoint != "" {
		cpf.HttpProfile.Endpoint = cfg.Endpoint
	}
	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)

	return &CDNClient{
		client: common.NewCommonClient(credential, cfg.Region, cpf),
	}, nil
}

// PurgeURLs issues a single PurgeUrlsCache request for all urls.
func (c *CDNClient) PurgeURLs(ctx context.Context, urls []string) error {
	request := tchttp.NewCommonRequest(cdnService, cdnVersion, cdnAction)
	request.SetContext(ctx)
	if err := request.SetActionParameters(map[string]interface{}{"Urls": urls}); err != nil {
		return err
	}

	response := tchttp.NewCommonResponse()
	if err := c.client.Send(request, response); err != nil {
		var sdkErr *tcerrors.TencentCloudSDKError
		if errors.As(err, &sdkErr) {
			return fmt.Errorf("cdn purge failed: %s: %s", sdkErr.GetCode(), sdkErr.GetMessage())
		}
		return fmt.Errorf("cdn purge failed: %w", err)
	}
	return nil
}
