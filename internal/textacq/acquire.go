package textacq

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
)

// Recognizer converts one page image to text. Satisfied by ocr.Client.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Config for text acquisition.
type Config struct {
	Pdftoppm         string // binary name or absolute path, default "pdftoppm"
	DPI              int    // rasterization DPI, default 300
	DensityThreshold int    // min embedded chars per page before falling to OCR
}

// Result is the acquired text plus how it was obtained.
type Result struct {
	Text     string
	Pages    int
	Method   constants.AcquisitionMethod
	Duration time.Duration
	Warnings []string
}

// Acquirer turns a source file into plain text, preferring the embedded
// text layer and falling back to rasterize-and-recognize for scans.
type Acquirer struct {
	cfg        Config
	recognizer Recognizer
	runner     Runner
	logger     *slog.Logger
}

func NewAcquirer(cfg Config, recognizer Recognizer, logger *slog.Logger) *Acquirer {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.DensityThreshold <= 0 {
		cfg.DensityThreshold = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{cfg: cfg, recognizer: recognizer, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner. Tests use this to stub pdftoppm.
func (a *Acquirer) WithRunner(r Runner) *Acquirer {
	a.runner = r
	return a
}

// Acquire picks a strategy based on media type. The same input bytes always
// take the same path: the density rule depends only on file content and the
// configured threshold.
func (a *Acquirer) Acquire(ctx context.Context, path string, media constants.MediaType) (Result, error) {
	start := time.Now()
	a.logger.Debug("textacq.start", "path", path, "media_type", media)

	var res Result
	var err error
	switch media {
	case constants.MediaPDF:
		res, err = a.acquirePDF(ctx, path)
	case constants.MediaImage:
		res, err = a.acquireImage(ctx, path)
	default:
		return Result{}, common.NewPipelineError(common.ClassAcquisition, "textacq",
			fmt.Sprintf("unsupported media type %q", media), nil)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	a.logger.Info("textacq.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"text_len", len(res.Text),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (a *Acquirer) acquirePDF(ctx context.Context, path string) (Result, error) {
	pages, err := pageCount(path)
	if err != nil {
		return Result{}, err
	}

	text, warns := embeddedText(path, pages)
	density := len(strings.TrimSpace(text)) / pages
	if density >= a.cfg.DensityThreshold {
		return Result{
			Text:     text,
			Pages:    pages,
			Method:   constants.MethodEmbeddedText,
			Warnings: warns,
		}, nil
	}

	a.logger.Debug("textacq.density_below_threshold",
		"path", path,
		"chars_per_page", density,
		"threshold", a.cfg.DensityThreshold,
	)

	ocrText, ocrWarns, err := a.pdfToOCR(ctx, path, pages)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:     ocrText,
		Pages:    pages,
		Method:   constants.MethodOpticalRecognition,
		Warnings: append(warns, ocrWarns...),
	}, nil
}

// pdfToOCR rasterizes every page and recognizes them one by one. A page
// that fails recognition leaves a marker in the text so downstream stages
// see the gap; only a document with zero readable pages is fatal.
func (a *Acquirer) pdfToOCR(ctx context.Context, path string, pages int) (string, []string, error) {
	tmpDir, err := os.MkdirTemp("", "taxdoc-pp-*")
	if err != nil {
		return "", nil, common.NewPipelineError(common.ClassAcquisition, "textacq",
			"create raster temp dir", err)
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			a.logger.Warn("textacq.tmpdir_cleanup_failed", "dir", tmpDir, "error", rerr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := a.runner.Run(ctx, a.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", a.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", []string{string(errb)}, common.NewPipelineError(common.ClassAcquisition, "textacq",
			"rasterize pdf: "+path, err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", nil, common.NewPipelineError(common.ClassAcquisition, "textacq",
			"pdftoppm produced no images for "+path, nil)
	}

	var warns []string
	if len(matches) != pages {
		warns = append(warns, fmt.Sprintf("expected %d pages, rasterized %d", pages, len(matches)))
	}

	var b strings.Builder
	readable := 0
	for i, img := range matches {
		if err := ctx.Err(); err != nil {
			return "", warns, err
		}
		txt := fmt.Sprintf("[unreadable page %d]", i+1)
		data, err := os.ReadFile(img)
		if err != nil {
			warns = append(warns, pageWarning(i+1, err.Error()))
		} else if recognized, rerr := a.recognizer.Recognize(ctx, data); rerr != nil {
			if common.Retryable(rerr) {
				// An unreachable backend is not a property of the page.
				return "", warns, rerr
			}
			warns = append(warns, pageWarning(i+1, rerr.Error()))
		} else {
			txt = recognized
			readable++
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}
	if readable == 0 {
		return "", warns, common.NewPipelineError(common.ClassAcquisition, "textacq",
			"no readable pages in "+path, nil)
	}
	return b.String(), warns, nil
}

func (a *Acquirer) acquireImage(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, common.NewPipelineError(common.ClassAcquisition, "textacq",
			"read image: "+path, err)
	}
	text, err := a.recognizer.Recognize(ctx, data)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:   text,
		Pages:  1,
		Method: constants.MethodOpticalRecognition,
	}, nil
}
