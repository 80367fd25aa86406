package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// onePagePDF builds a minimal uncompressed PDF with a single text line.
func onePagePDF(line string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", line)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPlainPDFExtractorReadsText(t *testing.T) {
	t.Parallel()
	text, err := NewTextExtractor("").ExtractText(context.Background(), onePagePDF("Revenue grew 12 percent"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(text, "Revenue") {
		t.Fatalf("expected extracted text to mention Revenue, got %q", text)
	}
}

func TestPlainPDFExtractorRejectsNonPDF(t *testing.T) {
	t.Parallel()
	cases := map[string][]byte{
		"empty":       nil,
		"text":        []byte("this is not a pdf at all"),
		"truncated":   []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"),
		"png":         {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
		"header only": []byte("%PDF-1.7\n%%EOF\n"),
	}
	for name, data := range cases {
		name, data := name, data
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTextExtractor("").ExtractText(context.Background(), data)
			var ee *ExtractionError
			if !errors.As(err, &ee) {
				t.Fatalf("expected ExtractionError, got %v", err)
			}
		})
	}
}
