package textacq

import (
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
)

// pageCount validates the PDF structure and returns its page count.
// Truncated or corrupt files fail here, before any text work starts.
func pageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, common.NewPipelineError(common.ClassAcquisition, "textacq",
			"unreadable pdf: "+path, err)
	}
	if n < 1 {
		return 0, common.NewPipelineError(common.ClassAcquisition, "textacq",
			"pdf has no pages: "+path, nil)
	}
	return n, nil
}

// embeddedText pulls the text layer page by page. Pages whose fonts defeat
// extraction contribute an empty string rather than failing the document.
func embeddedText(path string, pages int) (string, []string) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", []string{"text layer unreadable: " + err.Error()}
	}
	defer func() { _ = f.Close() }()

	if n := r.NumPage(); n < pages {
		pages = n
	}

	var b strings.Builder
	var warnings []string
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			warnings = append(warnings, pageWarning(i, "missing page object"))
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			warnings = append(warnings, pageWarning(i, err.Error()))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}
	return b.String(), warnings
}

func pageWarning(page int, msg string) string {
	return "page " + strconv.Itoa(page) + ": " + msg
}
