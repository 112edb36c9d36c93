package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

type HealthService struct {
	Options []RequestOption
}

func NewHealthService(opts ...RequestOption) HealthService {
	return HealthService{
		Options: opts,
	}
}

type Health struct {
	Status string `json:"status"`

	ModelLoaded bool   `json:"model_loaded"`
	ModelType   string `json:"model_type"`
	Device      string `json:"device"`
}

func (r *HealthService) Get(ctx context.Context, opts ...RequestOption) (*Health, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	req, _ := http.NewRequestWithContext(ctx, "GET", c.URL+"/health", nil)

	resp, err := c.Client.Do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}

	var result Health

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}
