package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

type ExtractionService struct {
	Options []RequestOption
}

func NewExtractionService(opts ...RequestOption) ExtractionService {
	return ExtractionService{
		Options: opts,
	}
}

type ExtractionRequest struct {
	// Name is the filename; its extension selects the handling (pdf vs image).
	Name string

	Reader io.Reader

	// PageNumber selects the PDF page, 1-indexed. Zero means the first page.
	PageNumber int
}

type Extraction struct {
	Success bool `json:"success"`

	Fields map[string]ExtractionField `json:"fields"`

	ModelType string `json:"model_type"`

	Message string `json:"message"`
}

type ExtractionField struct {
	Value string `json:"value"`
	URL   string `json:"url"`

	Confidence float64 `json:"confidence"`
}

func (r *ExtractionService) New(ctx context.Context, input ExtractionRequest, opts ...RequestOption) (*Extraction, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", input.Name)

	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(part, input.Reader); err != nil {
		return nil, err
	}

	if input.PageNumber > 0 {
		writer.WriteField("page_number", strconv.Itoa(input.PageNumber))
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, _ := http.NewRequestWithContext(ctx, "POST", c.URL+"/extract", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.Client.Do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}

		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error != "" {
			return nil, errors.New(failure.Error)
		}

		return nil, errors.New(resp.Status)
	}

	var result Extraction

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}
