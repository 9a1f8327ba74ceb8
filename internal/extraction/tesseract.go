package extraction

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"
	"golang.org/x/sync/errgroup"
)

const TesseractEngine = "tesseract-ocr"

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/tiff": ".tiff",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
}

// TesseractOptions configures the Tesseract backend.
type TesseractOptions struct {
	Path     string
	Language string
	DPI      int
	Timeout  time.Duration
	Version  string
}

// Rasterizer renders every page of a PDF file to an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string) ([][]byte, error)
}

type tesseract struct {
	opts   TesseractOptions
	runner Runner
	raster Rasterizer
	logger *slog.Logger
}

// NewTesseract returns an OCR backend that runs the tesseract CLI in TSV mode.
// PDF input is rasterized page by page before recognition.
func NewTesseract(opts TesseractOptions, runner Runner, raster Rasterizer, logger *slog.Logger) Backend {
	if opts.Path == "" {
		opts.Path = "tesseract"
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.DPI == 0 {
		opts.DPI = 300
	}
	if opts.Version == "" {
		opts.Version = "5"
	}
	return &tesseract{
		opts:   opts,
		runner: runner,
		raster: raster,
		logger: logger.With("backend", TesseractEngine),
	}
}

func (t *tesseract) Engine() (string, string) {
	return TesseractEngine, t.opts.Version
}

func (t *tesseract) Annotate(ctx context.Context, data []byte, mimeType string) (*Annotation, error) {
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp("", "clearcase-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create ocr workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	images, err := t.images(ctx, dir, data, mimeType)
	if err != nil {
		return nil, err
	}

	ann := &Annotation{}
	texts := make([]string, 0, len(images))
	for i, path := range images {
		out, err := t.runner.Run(ctx, t.opts.Path, path, "stdout",
			"-l", t.opts.Language,
			"--dpi", strconv.Itoa(t.opts.DPI),
			"tsv",
		)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %s", ErrBackend, i+1, commandError(err))
		}

		text, page := parseTSV(out)
		ann.Pages = append(ann.Pages, page)
		if text != "" {
			texts = append(texts, text)
		}
	}
	ann.Text = strings.Join(texts, "\n\n")

	t.logger.Debug("ocr complete", "pages", len(ann.Pages), "chars", len(ann.Text))
	return ann, nil
}

func (t *tesseract) images(ctx context.Context, dir string, data []byte, mimeType string) ([]string, error) {
	if isPDF(mimeType, "") {
		src := filepath.Join(dir, "source.pdf")
		if err := os.WriteFile(src, data, 0600); err != nil {
			return nil, fmt.Errorf("write pdf: %w", err)
		}

		pages, err := t.raster.Rasterize(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("%w: rasterize pdf: %w", ErrBackend, err)
		}

		paths := make([]string, len(pages))
		for i, img := range pages {
			paths[i] = filepath.Join(dir, fmt.Sprintf("page-%d.png", i+1))
			if err := os.WriteFile(paths[i], img, 0600); err != nil {
				return nil, fmt.Errorf("write page %d: %w", i+1, err)
			}
		}
		return paths, nil
	}

	ext, ok := imageExtensions[strings.ToLower(mimeType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mimeType)
	}

	path := filepath.Join(dir, "source"+ext)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}
	return []string{path}, nil
}

// parseTSV reads tesseract TSV output. Words are joined by spaces within a
// line and lines are separated by newlines.
func parseTSV(out []byte) (string, AnnotatedPage) {
	var (
		page     AnnotatedPage
		lines    []string
		current  []string
		lineKey  string
		confSum  float64
		confSeen int
	)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < 11 || cols[0] == "level" {
			continue
		}

		switch cols[0] {
		case "1":
			page.Width, _ = strconv.Atoi(cols[8])
			page.Height, _ = strconv.Atoi(cols[9])
		case "2":
			page.Blocks++
		case "5":
			text := ""
			if len(cols) > 11 {
				text = strings.TrimSpace(cols[11])
			}
			if text == "" {
				continue
			}

			key := cols[2] + "." + cols[3] + "." + cols[4]
			if key != lineKey && len(current) > 0 {
				lines = append(lines, strings.Join(current, " "))
				current = nil
			}
			lineKey = key
			current = append(current, text)
			page.Words++

			if conf, err := strconv.ParseFloat(cols[10], 64); err == nil && conf >= 0 {
				confSum += conf
				confSeen++
			}
		}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}

	if confSeen > 0 {
		page.Confidence = confSum / float64(confSeen) / 100
	}

	return strings.Join(lines, "\n"), page
}

func commandError(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return strings.TrimSpace(string(exitErr.Stderr))
	}
	return err.Error()
}

type documentRasterizer struct {
	cfg config.ImageConfig
}

// NewRasterizer renders PDF pages to PNG through document-context and ImageMagick.
func NewRasterizer(dpi int) Rasterizer {
	return &documentRasterizer{
		cfg: config.ImageConfig{
			Format:  "png",
			DPI:     dpi,
			Options: map[string]any{"background": "white"},
		},
	}
}

func (r *documentRasterizer) Rasterize(ctx context.Context, pdfPath string) ([][]byte, error) {
	doc, err := document.OpenPDF(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	renderer, err := image.NewImageMagickRenderer(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	pages, err := doc.ExtractAllPages()
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}

	images := make([][]byte, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(runtime.NumCPU(), len(pages)), 1))

	for i, page := range pages {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			data, err := page.ToImage(renderer, nil)
			if err != nil {
				return fmt.Errorf("render page %d: %w", i+1, err)
			}
			images[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}
