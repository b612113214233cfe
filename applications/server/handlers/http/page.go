package http

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
)

// LoadPage reads the upload form once, a missing asset is a startup error.
func LoadPage(path string) ([]byte, error) {
	page, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't load page: %w", err)
	}

	return page, nil
}

func PageHandler(page []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(page)))
		_, _ = w.Write(page)
	}
}
