// Package client is a small Go client for the passlens HTTP API.
package client

import (
	"net/http"
)

type Client struct {
	Extractions ExtractionService

	Health HealthService
}

func New(url string, opts ...RequestOption) *Client {
	opts = append(opts, WithURL(url))

	return &Client{
		Extractions: NewExtractionService(opts...),

		Health: NewHealthService(opts...),
	}
}

type RequestConfig struct {
	URL string

	Client *http.Client
}

type RequestOption func(*RequestConfig)

func WithURL(url string) RequestOption {
	return func(c *RequestConfig) {
		c.URL = url
	}
}

func WithClient(client *http.Client) RequestOption {
	return func(c *RequestConfig) {
		c.Client = client
	}
}

func newRequestConfig(opts ...RequestOption) *RequestConfig {
	c := &RequestConfig{
		Client: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}
