package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// handleCleanup removes leftover files in the upload directory. Crops in the
// extracted subdirectory are kept; they expire with the directory itself.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.UploadDir)

	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	count := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if err := os.Remove(filepath.Join(s.UploadDir, entry.Name())); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		count++
	}

	writeJson(w, CleanupResponse{
		Message: fmt.Sprintf("Cleaned up %d files", count),
		Count:   count,
	})
}
