package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/passlens/passlens/pkg/detector"

	"github.com/google/uuid"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tiff": true,
	".bmp":  true,
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")

	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("no file uploaded"))
		return
	}

	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))

	if !allowedExtensions[ext] {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file type %q not allowed", ext))
		return
	}

	page := 1

	if val := r.FormValue("page_number"); val != "" {
		page, err = strconv.Atoi(val)

		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, errors.New("invalid page_number"))
			return
		}
	}

	upload := filepath.Join(s.UploadDir, uuid.NewString()+ext)

	if err := save(upload, file); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// The upload and any rasterized page are request-scoped; only crops in
	// the extracted directory survive the response.
	defer os.Remove(upload)

	path := upload

	var pageNumber *int

	if ext == ".pdf" {
		if s.Converter == nil {
			writeError(w, http.StatusInternalServerError, errors.New("pdf support unavailable"))
			return
		}

		path, err = s.Converter.Page(ctx, upload, page)

		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("pdf conversion failed: %w", err))
			return
		}

		defer os.Remove(path)

		pageNumber = &page
	}

	data, err := os.ReadFile(path)

	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(data))

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("%w: %v", detector.ErrInvalidImage, err))
		return
	}

	detections, err := s.Detector.Detect(ctx, data, &detector.DetectOptions{
		Threshold: detector.Threshold(s.Threshold),
	})

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("detection failed: %w", err))
		return
	}

	results, err := s.Mapper.Map(ctx, img, detections)

	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := ExtractResponse{
		Success: true,

		Fields: map[string]FieldValue{},

		Detections: detections,

		Metadata: Metadata{
			Filename: header.Filename,
			FileType: ext,

			PageNumber: pageNumber,
		},

		ModelType: s.Detector.Info().ModelType,
	}

	for name, result := range results {
		result := result

		value := FieldValue{
			Value: result.Value,

			Confidence: result.Confidence,

			Box: &result.Box,
		}

		if result.CropFile != "" {
			value.URL = "/extracted/" + result.CropFile
		}

		resp.Fields[name] = value
	}

	if len(resp.Fields) > 0 {
		resp.Message = fmt.Sprintf("Extracted %d fields", len(resp.Fields))
	} else {
		resp.Message = "No passport fields detected"
	}

	writeJson(w, resp)
}

func save(path string, r io.Reader) error {
	f, err := os.Create(path)

	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
