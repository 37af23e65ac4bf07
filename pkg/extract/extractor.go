// Package extract pulls plain text out of uploaded source documents.
// Minimum-length policy is the generation pipeline's concern, not this
// package's.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// maxDocumentBytes bounds how much of a fetched document is read.
const maxDocumentBytes = 32 << 20

// Extractor converts documents (PDF, HTML, plain text) to normalized text.
type Extractor struct {
	httpClient *http.Client
}

// New builds an extractor.
func New() *Extractor {
	return &Extractor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FromReader extracts text from a document, routed by file extension.
func (e *Extractor) FromReader(name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return e.extractPDF(data)
	case ".html", ".htm":
		return extractHTML(data)
	default:
		return normalizeText(string(data)), nil
	}
}

// FromURL fetches a document (e.g. a presigned object URL) and extracts its
// text. The name in the URL path selects the extraction strategy.
func (e *Extractor) FromURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch document: %s", resp.Status)
	}
	name := path(url)
	return e.FromReader(name, resp.Body)
}

// extractPDF tries pdftotext first (better support for complex PDFs) and
// falls back to the Go PDF library.
func (e *Extractor) extractPDF(data []byte) (string, error) {
	if text, err := extractPDFWithPdftotext(data); err == nil && text != "" {
		return text, nil
	}
	return extractPDFWithGoLib(data)
}

// extractPDFWithPdftotext uses the system pdftotext tool (poppler-utils).
func extractPDFWithPdftotext(data []byte) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not found: %w", err)
	}
	tmp, err := os.CreateTemp("", "diagramai-*.pdf")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.Command("pdftotext", "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	text := normalizeText(string(output))
	if text == "" {
		return "", fmt.Errorf("no text extracted from PDF")
	}
	return text, nil
}

// extractPDFWithGoLib walks pages with the Go PDF library, skipping
// problematic pages instead of failing entirely.
func extractPDFWithGoLib(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString(" ")
	}
	text := normalizeText(b.String())
	if text == "" {
		return "", fmt.Errorf("no text extracted from PDF")
	}
	return text, nil
}

func extractHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return normalizeText(htmlText(doc)), nil
}

func htmlText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
			buf.WriteString(" ")
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && (node.Data == "p" || node.Data == "br" || node.Data == "div" || node.Data == "li") {
			buf.WriteString(" ")
		}
	}
	walk(n)
	return buf.String()
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

// path extracts the last URL path element, ignoring query parameters.
func path(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if i := strings.LastIndex(url, "/"); i >= 0 {
		url = url[i+1:]
	}
	return url
}
