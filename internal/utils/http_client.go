package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClientOptions configures [NewHTTPClient].
type HTTPClientOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// HTTPClient is a wrapper around the resty.Client HTTP client.
// It embeds *resty.Client to expose all of its methods directly.
//
// Example usage:
//
//	client := utils.NewHTTPClient(utils.HTTPClientOptions{BaseURL: "https://www.evernote.com"})
//	resp, err := client.R().SetBody(params).Post("/edam/user/getUser")
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient creates an independent client that expects JSON answers.
// Zero option fields keep the resty defaults.
func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	client := resty.New().SetHeader("Accept", "application/json")
	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	return &HTTPClient{Client: client}
}
