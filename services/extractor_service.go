package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// TextExtractor turns PDF bytes into one text blob, pages joined by "\n".
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// NewTextExtractor uses UniPDF when a metered license key is accepted and
// falls back to the pure Go reader otherwise.
func NewTextExtractor(licenseKey string) TextExtractor {
	if licenseKey != "" {
		if err := license.SetMeteredKey(licenseKey); err != nil {
			log.Warn().Err(err).Msg("EXTRACTOR: unidoc license rejected, using ledongthuc/pdf")
		} else {
			log.Info().Msg("EXTRACTOR: using unipdf")
			return &unipdfExtractor{}
		}
	}
	return &plainPDFExtractor{}
}

var pdfMagic = []byte("%PDF-")

func checkPDFHeader(data []byte) error {
	if len(data) == 0 {
		return &ExtractionError{Reason: "empty upload"}
	}
	// the header may be preceded by a little garbage
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, pdfMagic) {
		return &ExtractionError{Reason: "missing %PDF- header"}
	}
	return nil
}

type plainPDFExtractor struct{}

func (e *plainPDFExtractor) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	if err := checkPDFHeader(data); err != nil {
		return "", err
	}
	// the reader panics on some malformed cross reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", &ExtractionError{Reason: "malformed pdf", Err: fmt.Errorf("%v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Reason: "cannot open pdf", Err: err}
	}

	n := reader.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := reader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Reason: fmt.Sprintf("page %d", i), Err: err}
		}
		pages = append(pages, content)
	}
	log.Debug().Int("pages", n).Msg("EXTRACTOR: extracted text")
	return strings.Join(pages, "\n"), nil
}

type unipdfExtractor struct{}

func (e *unipdfExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if err := checkPDFHeader(data); err != nil {
		return "", err
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", &ExtractionError{Reason: "cannot open pdf", Err: err}
	}

	encrypted, err := pdfReader.IsEncrypted()
	if err != nil {
		return "", &ExtractionError{Reason: "cannot read encryption dictionary", Err: err}
	}
	if encrypted {
		ok, err := pdfReader.Decrypt([]byte(""))
		if err != nil || !ok {
			return "", &ExtractionError{Reason: "pdf is encrypted", Err: err}
		}
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", &ExtractionError{Reason: "cannot count pages", Err: err}
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", &ExtractionError{Reason: fmt.Sprintf("page %d", i), Err: err}
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", &ExtractionError{Reason: fmt.Sprintf("page %d", i), Err: err}
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", &ExtractionError{Reason: fmt.Sprintf("page %d", i), Err: err}
		}
		pages = append(pages, text)
	}
	log.Debug().Int("pages", numPages).Msg("EXTRACTOR: extracted text with unipdf")
	return strings.Join(pages, "\n"), nil
}
