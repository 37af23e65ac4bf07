package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromReaderPlainText(t *testing.T) {
	e := New()
	got, err := e.FromReader("notes.txt", strings.NewReader("  line one\n\n\tline   two  "))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "line one line two" {
		t.Fatalf("normalized text = %q", got)
	}
}

func TestFromReaderHTML(t *testing.T) {
	page := `<html><head><style>body{color:red}</style>
<script>alert("hi")</script></head>
<body><h1>Title</h1><p>First paragraph.</p><ul><li>Item one</li></ul></body></html>`
	e := New()
	got, err := e.FromReader("page.html", strings.NewReader(page))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, want := range []string{"Title", "First paragraph.", "Item one"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
	for _, banned := range []string{"alert", "color:red"} {
		if strings.Contains(got, banned) {
			t.Fatalf("script/style content leaked into %q", got)
		}
	}
}

func TestFromReaderBadPDF(t *testing.T) {
	e := New()
	if _, err := e.FromReader("broken.pdf", strings.NewReader("this is not a pdf")); err == nil {
		t.Fatalf("expected error for non-PDF bytes")
	}
}

func TestFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fetched   document  text"))
	}))
	defer srv.Close()

	e := New()
	got, err := e.FromURL(context.Background(), srv.URL+"/sources/u1/dg_1_notes.txt?X-Amz-Signature=abc")
	if err != nil {
		t.Fatalf("from url: %v", err)
	}
	if got != "fetched document text" {
		t.Fatalf("text = %q", got)
	}
}

func TestFromURLErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	e := New()
	if _, err := e.FromURL(context.Background(), srv.URL+"/missing.txt"); err == nil {
		t.Fatalf("expected error for 404 response")
	}
}

func TestNormalizeTextStripsControlBytes(t *testing.T) {
	got := normalizeText("a\x00b\xff\xfe c")
	if strings.ContainsRune(got, 0) {
		t.Fatalf("NUL byte survived: %q", got)
	}
	if !strings.HasPrefix(got, "a b") {
		t.Fatalf("normalized = %q", got)
	}
}

func TestPathHelper(t *testing.T) {
	cases := map[string]string{
		"https://s3.local/bucket/sources/u1/dg_1_report.pdf?sig=x": "dg_1_report.pdf",
		"https://example.com/plain.txt":                            "plain.txt",
		"file.html#frag":                                           "file.html",
	}
	for in, want := range cases {
		if got := path(in); got != want {
			t.Fatalf("path(%q) = %q, want %q", in, got, want)
		}
	}
}
