package extraction_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/clearcase/worker/internal/extraction"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t2480\t3508\t-1\t\n" +
	"2\t1\t1\t0\t0\t0\t100\t100\t2000\t400\t-1\t\n" +
	"3\t1\t1\t1\t0\t0\t100\t100\t2000\t400\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t100\t100\t2000\t80\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t100\t100\t300\t80\t96\tNOTICE\n" +
	"5\t1\t1\t1\t1\t2\t420\t100\t120\t80\t94\tTO\n" +
	"5\t1\t1\t1\t1\t3\t560\t100\t300\t80\t90\tVACATE\n" +
	"4\t1\t1\t1\t2\t0\t100\t200\t2000\t80\t-1\t\n" +
	"5\t1\t1\t1\t2\t1\t100\t200\t300\t80\t80\tWithin\n" +
	"5\t1\t1\t1\t2\t2\t420\t200\t80\t80\t-1\t \n" +
	"5\t1\t1\t1\t2\t3\t520\t200\t80\t80\t80\t3\n" +
	"5\t1\t1\t1\t2\t4\t620\t200\t200\t80\t80\tdays\n" +
	"2\t1\t2\t0\t0\t0\t100\t600\t2000\t400\t-1\t\n"

type fakeRunner struct {
	calls [][]string
	out   []byte
	err   error
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if len(args) > 0 {
		if _, err := os.Stat(args[0]); err != nil {
			return nil, err
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.out, nil
}

type fakeRasterizer struct {
	pages [][]byte
	err   error
}

func (r *fakeRasterizer) Rasterize(context.Context, string) ([][]byte, error) {
	return r.pages, r.err
}

func TestTesseractParsesTSV(t *testing.T) {
	runner := &fakeRunner{out: []byte(sampleTSV)}
	backend := extraction.NewTesseract(extraction.TesseractOptions{Language: "spa", DPI: 200}, runner, nil, discardLogger())

	ann, err := backend.Annotate(context.Background(), []byte("png"), "image/png")
	if err != nil {
		t.Fatal(err)
	}

	if ann.Text != "NOTICE TO VACATE\nWithin 3 days" {
		t.Errorf("text = %q", ann.Text)
	}
	if len(ann.Pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(ann.Pages))
	}

	page := ann.Pages[0]
	if page.Width != 2480 || page.Height != 3508 {
		t.Errorf("size = %dx%d", page.Width, page.Height)
	}
	if page.Blocks != 2 || page.Words != 6 {
		t.Errorf("blocks = %d, words = %d", page.Blocks, page.Words)
	}
	if page.Confidence < 0.866 || page.Confidence > 0.867 {
		t.Errorf("confidence = %v, want 0.8667", page.Confidence)
	}

	args := strings.Join(runner.calls[0], " ")
	if !strings.HasPrefix(args, "tesseract ") || !strings.HasSuffix(args, "stdout -l spa --dpi 200 tsv") {
		t.Errorf("command = %q", args)
	}
	if !strings.HasSuffix(runner.calls[0][1], ".png") {
		t.Errorf("image path = %q", runner.calls[0][1])
	}

	name, version := backend.Engine()
	if name != extraction.TesseractEngine || version != "5" {
		t.Errorf("engine = %s/%s", name, version)
	}
}

func TestTesseractRasterizesPDF(t *testing.T) {
	runner := &fakeRunner{out: []byte(sampleTSV)}
	raster := &fakeRasterizer{pages: [][]byte{[]byte("p1"), []byte("p2")}}
	backend := extraction.NewTesseract(extraction.TesseractOptions{}, runner, raster, discardLogger())

	ann, err := backend.Annotate(context.Background(), []byte("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatal(err)
	}

	if len(runner.calls) != 2 || len(ann.Pages) != 2 {
		t.Fatalf("calls = %d, pages = %d, want 2", len(runner.calls), len(ann.Pages))
	}
	if strings.Count(ann.Text, "NOTICE TO VACATE") != 2 {
		t.Errorf("text = %q", ann.Text)
	}
}

func TestTesseractErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported media", func(t *testing.T) {
		backend := extraction.NewTesseract(extraction.TesseractOptions{}, &fakeRunner{}, nil, discardLogger())
		_, err := backend.Annotate(ctx, []byte("doc"), "application/msword")
		if !errors.Is(err, extraction.ErrUnsupportedMedia) {
			t.Errorf("err = %v, want ErrUnsupportedMedia", err)
		}
	})

	t.Run("command failure", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 1")}
		backend := extraction.NewTesseract(extraction.TesseractOptions{}, runner, nil, discardLogger())
		_, err := backend.Annotate(ctx, []byte("jpg"), "image/jpeg")
		if !errors.Is(err, extraction.ErrBackend) {
			t.Errorf("err = %v, want ErrBackend", err)
		}
	})

	t.Run("rasterize failure", func(t *testing.T) {
		raster := &fakeRasterizer{err: errors.New("magick missing")}
		backend := extraction.NewTesseract(extraction.TesseractOptions{}, &fakeRunner{}, raster, discardLogger())
		_, err := backend.Annotate(ctx, []byte("%PDF"), "application/pdf")
		if !errors.Is(err, extraction.ErrBackend) {
			t.Errorf("err = %v, want ErrBackend", err)
		}
	})
}
