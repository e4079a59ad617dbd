// Package document turns PDF attachments into page images and text
// through external tools, the same way the publishing authority's
// staff would open them.
package document

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

// PopplerRasterizer shells out to pdftoppm to render PDF pages as PNG.
// The binary must be on PATH.
type PopplerRasterizer struct {
	binary string
	logger *zap.Logger
}

// NewPopplerRasterizer builds a rasterizer. binary defaults to
// "pdftoppm" when empty.
func NewPopplerRasterizer(binary string, logger *zap.Logger) *PopplerRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &PopplerRasterizer{binary: binary, logger: logger}
}

// Render rasterizes pdf at dpi. maxPages caps the number of rendered
// pages; zero renders everything. Pages come back in document order.
func (r *PopplerRasterizer) Render(ctx context.Context, pdf []byte, dpi, maxPages int) ([][]byte, error) {
	if len(pdf) == 0 {
		return nil, fmt.Errorf("empty pdf")
	}

	dir, err := os.MkdirTemp("", "gosi-render-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	args := []string{"-png", "-r", strconv.Itoa(dpi)}
	if maxPages > 0 {
		args = append(args, "-l", strconv.Itoa(maxPages))
	}
	args = append(args, pdfPath, filepath.Join(dir, "page"))

	cmd := exec.CommandContext(ctx, r.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", r.binary, err, string(out))
	}

	pages, err := readRenderedPages(dir)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages rendered")
	}
	r.logger.Debug("pdf rasterized", zap.Int("pages", len(pages)), zap.Int("dpi", dpi))
	return pages, nil
}

// readRenderedPages collects page-*.png sorted by name. pdftoppm
// zero-pads page numbers, so lexical order is page order.
func readRenderedPages(dir string) ([][]byte, error) {
	names, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, fmt.Errorf("glob pages: %w", err)
	}
	sort.Strings(names)

	pages := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read page %s: %w", name, err)
		}
		pages = append(pages, data)
	}
	return pages, nil
}
