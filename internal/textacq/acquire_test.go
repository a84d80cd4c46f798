package textacq

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(context.Context, []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAcquireImage(t *testing.T) {
	rec := &fakeRecognizer{text: "Form W-2 Wage and Tax Statement"}
	a := NewAcquirer(Config{}, rec, nil)
	path := writeTemp(t, "scan.png", []byte("png-bytes"))

	res, err := a.Acquire(context.Background(), path, constants.MediaImage)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if res.Method != constants.MethodOpticalRecognition {
		t.Errorf("Method = %s", res.Method)
	}
	if res.Pages != 1 {
		t.Errorf("Pages = %d", res.Pages)
	}
	if res.Text != rec.text {
		t.Errorf("Text = %q", res.Text)
	}
	if rec.calls != 1 {
		t.Errorf("recognizer calls = %d", rec.calls)
	}
}

func TestAcquireImageBackendDown(t *testing.T) {
	cause := common.NewPipelineError(common.ClassAcquisitionUnavailable, "ocr", "connect refused", nil)
	a := NewAcquirer(Config{}, &fakeRecognizer{err: cause}, nil)
	path := writeTemp(t, "scan.jpg", []byte("jpg-bytes"))

	_, err := a.Acquire(context.Background(), path, constants.MediaImage)
	if err == nil {
		t.Fatal("expected error")
	}
	if !common.Retryable(err) {
		t.Fatalf("backend unavailability must stay retryable, got %v", err)
	}
}

func TestAcquireMissingImage(t *testing.T) {
	a := NewAcquirer(Config{}, &fakeRecognizer{}, nil)

	_, err := a.Acquire(context.Background(), filepath.Join(t.TempDir(), "nope.png"), constants.MediaImage)
	if err == nil {
		t.Fatal("expected error")
	}
	if !common.IsClass(err, common.ClassAcquisition) {
		t.Fatalf("class = %s, want acquisition_error", common.ClassOf(err))
	}
	if common.Retryable(err) {
		t.Error("an unreadable file is not transient")
	}
}

func TestAcquireUnsupportedMedia(t *testing.T) {
	a := NewAcquirer(Config{}, &fakeRecognizer{}, nil)

	_, err := a.Acquire(context.Background(), "whatever.docx", constants.MediaType("docx"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !common.IsClass(err, common.ClassAcquisition) {
		t.Fatalf("class = %s", common.ClassOf(err))
	}
}

type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return f(ctx, name, args...)
}

// A page image that cannot be read back leaves the same marker in the
// text as a page that fails recognition.
func TestPDFOCRMarksUnreadableRaster(t *testing.T) {
	rec := &fakeRecognizer{text: "Form W-2 Wage and Tax Statement"}
	a := NewAcquirer(Config{}, rec, nil).WithRunner(runnerFunc(
		func(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
			prefix := args[len(args)-1]
			if err := os.WriteFile(prefix+"-1.png", []byte("img"), 0o644); err != nil {
				return nil, nil, err
			}
			// A directory in place of the second page makes the read fail.
			return nil, nil, os.Mkdir(prefix+"-2.png", 0o755)
		}))

	text, warns, err := a.pdfToOCR(context.Background(), "scan.pdf", 2)
	if err != nil {
		t.Fatalf("pdfToOCR: %v", err)
	}
	if !strings.Contains(text, rec.text) {
		t.Errorf("text = %q, want the recognized page", text)
	}
	if !strings.Contains(text, "[unreadable page 2]") {
		t.Errorf("text = %q, want the unreadable-page marker", text)
	}
	if len(warns) != 1 {
		t.Errorf("warnings = %v, want one per unreadable page", warns)
	}
	if rec.calls != 1 {
		t.Errorf("recognizer calls = %d", rec.calls)
	}
}

func TestAcquirerDefaults(t *testing.T) {
	a := NewAcquirer(Config{}, &fakeRecognizer{}, nil)
	if a.cfg.Pdftoppm != "pdftoppm" {
		t.Errorf("Pdftoppm = %q", a.cfg.Pdftoppm)
	}
	if a.cfg.DPI != 300 {
		t.Errorf("DPI = %d", a.cfg.DPI)
	}
	if a.cfg.DensityThreshold != 200 {
		t.Errorf("DensityThreshold = %d", a.cfg.DensityThreshold)
	}
}
