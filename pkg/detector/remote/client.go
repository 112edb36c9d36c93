package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/passlens/passlens/pkg/detector"
)

var _ detector.Provider = (*Client)(nil)
var _ detector.Pinger = (*Client)(nil)

// Client delegates inference to an external model server speaking the
// multipart /predict protocol: POST an image, receive {"detections": [...]}.
type Client struct {
	url string

	client *http.Client
}

type Option func(*Client)

func WithClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func New(url string, options ...Option) (*Client, error) {
	if url == "" || !strings.HasPrefix(url, "http") {
		return nil, errors.New("invalid url")
	}

	c := &Client{
		url: strings.TrimRight(url, "/"),

		client: http.DefaultClient,
	}

	for _, option := range options {
		option(c)
	}

	return c, nil
}

func (c *Client) Info() detector.Info {
	return detector.Info{
		ModelType: "remote",
		Device:    "remote",

		ModelLoaded: true,
	}
}

func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url+"/health", nil)

	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server unhealthy: %s", resp.Status)
	}

	return nil
}

func (c *Client) Detect(ctx context.Context, image []byte, options *detector.DetectOptions) ([]detector.Detection, error) {
	if options == nil {
		options = new(detector.DetectOptions)
	}

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "image.png")

	if err != nil {
		return nil, err
	}

	if _, err := part.Write(image); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/predict", &body)

	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed: %s", resp.Status)
	}

	var result PredictResponse

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var detections []detector.Detection

	for _, d := range result.Detections {
		if d.Box.X1 >= d.Box.X2 || d.Box.Y1 >= d.Box.Y2 {
			continue
		}

		if options.Threshold != nil && d.Confidence < *options.Threshold {
			continue
		}

		detections = append(detections, detector.Detection{
			ClassID: d.ClassID,

			Confidence: d.Confidence,

			Box: d.Box,
		})
	}

	// The server's ordering is not guaranteed.
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	return detections, nil
}

type PredictResponse struct {
	Detections []Prediction `json:"detections"`
}

type Prediction struct {
	ClassID int `json:"class_id"`

	Confidence float64 `json:"confidence"`

	Box detector.Box `json:"bbox"`
}
