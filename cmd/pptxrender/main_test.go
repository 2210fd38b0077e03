package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	gopresentation "github.com/VantageDataChat/SlideOCR"
)

func TestRender(t *testing.T) {
	in := filepath.Join(t.TempDir(), "deck.pptx")
	p := gopresentation.New()
	for i := 0; i < 3; i++ {
		p.CreateSlide()
	}
	if err := p.Save(in); err != nil {
		t.Fatal(err)
	}
	out := t.TempDir()
	log, _ := test.NewNullLogger()

	o, err := parseFlags([]string{"-i", in, "-o", out, "-slide", "2", "-format", "jpeg"})
	if err != nil {
		t.Fatal(err)
	}
	if err := render(o, log); err != nil {
		t.Fatalf("render: %v", err)
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 1 || entries[0].Name() != "deck-slide02.jpg" {
		t.Errorf("files = %v", entries)
	}

	o.slide = 9
	if err := render(o, log); err == nil {
		t.Error("expected an error for a missing slide")
	}
}

func TestParseFlagsErrors(t *testing.T) {
	if _, err := parseFlags(nil); err == nil {
		t.Error("missing -i should fail")
	}
	if _, err := parseFlags([]string{"-i", "x", "-format", "gif"}); err == nil {
		t.Error("unknown format should fail")
	}
}
