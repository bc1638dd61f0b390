package ipfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/logger"
)

var (
	ErrDisabled      = errors.New("ipfs pinning is disabled")
	ErrFailedToParse = errors.New("failed to parse pinata response")
	ErrEmptyIpfsHash = errors.New("pinata returned empty hash")
)

type Pinned struct {
	Cid  string `json:"cid"`
	Size int64  `json:"size"`
	Url  string `json:"url"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinJSONRequest struct {
	PinataContent  interface{} `json:"pinataContent"`
	PinataMetadata pinMetadata `json:"pinataMetadata"`
}

// Pins files and JSON documents through the Pinata API
type Client struct {
	log    *logrus.Entry
	config *config.Pinata
	client *resty.Client
}

func NewClient(config *config.Config) (self *Client) {
	self = new(Client)
	self.log = logger.NewSublogger("ipfs")
	self.config = &config.Pinata

	self.client = resty.New().
		SetBaseURL(config.Pinata.ApiUrl).
		SetTimeout(config.Pinata.Timeout).
		SetAuthToken(config.Pinata.Jwt).
		SetHeader("User-Agent", "market/ipfs").
		SetRetryCount(2).
		AddRetryCondition(self.onRetryCondition).
		OnAfterResponse(self.onStatusToError)
	return
}

func (self *Client) IsEnabled() bool {
	return self != nil && self.config.Jwt != ""
}

// Public gateway link to the content
func (self *Client) GatewayUrl(cid string) string {
	return fmt.Sprintf("%s/ipfs/%s", strings.TrimSuffix(self.config.Gateway, "/"), cid)
}

func (self *Client) onStatusToError(c *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	self.log.WithField("status", resp.StatusCode()).
		WithField("resp", string(resp.Body())).
		WithField("url", resp.Request.URL).
		Debug("Pinata request failed")
	return fmt.Errorf("unexpected status: %s", resp.Status())
}

// Retry only upon server errors
func (self *Client) onRetryCondition(resp *resty.Response, err error) bool {
	return resp != nil && resp.StatusCode() >= 500
}

func (self *Client) result(resp *resty.Response) (out *Pinned, err error) {
	parsed, ok := resp.Result().(*pinResponse)
	if !ok {
		return nil, ErrFailedToParse
	}
	if parsed.IpfsHash == "" {
		return nil, ErrEmptyIpfsHash
	}
	return &Pinned{
		Cid:  parsed.IpfsHash,
		Size: parsed.PinSize,
		Url:  self.GatewayUrl(parsed.IpfsHash),
	}, nil
}

func (self *Client) PinJSON(ctx context.Context, name string, content interface{}) (out *Pinned, err error) {
	if !self.IsEnabled() {
		return nil, ErrDisabled
	}

	resp, err := self.client.R().
		SetContext(ctx).
		SetBody(pinJSONRequest{
			PinataContent:  content,
			PinataMetadata: pinMetadata{Name: name},
		}).
		SetResult(&pinResponse{}).
		ForceContentType("application/json").
		Post("/pinning/pinJSONToIPFS")
	if err != nil {
		return
	}

	out, err = self.result(resp)
	if err != nil {
		return
	}

	self.log.WithField("cid", out.Cid).WithField("name", name).Debug("Pinned JSON")
	return
}

func (self *Client) PinFile(ctx context.Context, name string, reader io.Reader) (out *Pinned, err error) {
	if !self.IsEnabled() {
		return nil, ErrDisabled
	}

	resp, err := self.client.R().
		SetContext(ctx).
		SetFileReader("file", name, reader).
		SetResult(&pinResponse{}).
		ForceContentType("application/json").
		Post("/pinning/pinFileToIPFS")
	if err != nil {
		return
	}

	out, err = self.result(resp)
	if err != nil {
		return
	}

	self.log.WithField("cid", out.Cid).WithField("name", name).Debug("Pinned file")
	return
}
