package ui

import (
	"strings"
	"testing"
)

func TestCanvasDrawAndRender(t *testing.T) {
	c := NewCanvas(10, 3)
	c.DrawStringAt(2, 0, "top")
	c.DrawStringAt(0, 1, "left\nnext")

	out := c.Render()
	lines := strings.Split(out, "\n")
	if len(lines) < 3 {
		t.Fatalf("expected 3 rendered rows, got %d: %q", len(lines), out)
	}
	if !strings.Contains(lines[0], "top") {
		t.Errorf("row 0 = %q, want to contain %q", lines[0], "top")
	}
	if !strings.Contains(lines[1], "left") {
		t.Errorf("row 1 = %q, want to contain %q", lines[1], "left")
	}
	if !strings.Contains(lines[2], "next") {
		t.Errorf("row 2 = %q, want to contain %q", lines[2], "next")
	}
}

func TestCanvasCropsBelowHeight(t *testing.T) {
	c := NewCanvas(8, 2)
	c.DrawStringAt(0, 0, "a\nb\nc\nd")

	out := c.Render()
	if strings.Contains(out, "c") || strings.Contains(out, "d") {
		t.Errorf("rows below the canvas must be dropped, got %q", out)
	}
}

func TestCanvasOverdraw(t *testing.T) {
	// Later draws at the same position win: this is what lets the
	// overlay composite over the field box.
	c := NewCanvas(8, 1)
	c.DrawStringAt(0, 0, "xxxxx")
	c.DrawStringAt(1, 0, "ab")

	out := c.Render()
	if !strings.Contains(out, "xabxx") {
		t.Errorf("render = %q, want overdrawn %q", out, "xabxx")
	}
}

func TestSplitBlockLines(t *testing.T) {
	if got := splitBlockLines(""); got != nil {
		t.Errorf("empty block: got %v, want nil", got)
	}
	got := splitBlockLines("a\r\nb\nc")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("got %v, want [a b c]", got)
	}
}
