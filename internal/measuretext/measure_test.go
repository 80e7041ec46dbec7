package measuretext

import (
	"strings"
	"testing"

	"github.com/jackzampolin/pageflow/internal/style"
)

func testStyle() Style {
	return style.Style{FontSize: 16, LineHeight: 20}
}

func TestMeasureCoversWholeText(t *testing.T) {
	m := NewBitmapMeasurer()
	text := strings.TrimSpace(strings.Repeat("cover every byte ", 40))
	laid := m.Measure(text, testStyle(), 200)

	if len(laid.Lines) == 0 {
		t.Fatalf("no lines for non-empty text")
	}
	if laid.Lines[0].FirstChar != 0 {
		t.Errorf("first line FirstChar = %d, want 0", laid.Lines[0].FirstChar)
	}
	if last := laid.Lines[len(laid.Lines)-1].LastChar; last != len(text) {
		t.Errorf("last line LastChar = %d, want %d", last, len(text))
	}
	for i := 1; i < len(laid.Lines)-1; i++ {
		if laid.Lines[i].FirstChar <= laid.Lines[i-1].FirstChar {
			t.Errorf("line %d FirstChar %d not monotonic after %d", i, laid.Lines[i].FirstChar, laid.Lines[i-1].FirstChar)
		}
	}
}

func TestMeasureIsDeterministic(t *testing.T) {
	m := NewBitmapMeasurer()
	text := strings.Repeat("determinism is the whole point ", 30)
	a := m.Measure(text, testStyle(), 240)
	b := m.Measure(text, testStyle(), 240)

	if len(a.Lines) != len(b.Lines) {
		t.Fatalf("line counts differ between identical measurements: %d vs %d", len(a.Lines), len(b.Lines))
	}
	for i := range a.Lines {
		if a.Lines[i] != b.Lines[i] {
			t.Errorf("line %d differs between identical measurements: %+v vs %+v", i, a.Lines[i], b.Lines[i])
		}
	}
}

func TestMeasureRespectsExplicitNewlines(t *testing.T) {
	m := NewBitmapMeasurer()
	laid := m.Measure("one\ntwo\nthree", testStyle(), 1000)
	if len(laid.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(laid.Lines))
	}
}

func TestTotalHeightSumsLineHeights(t *testing.T) {
	m := NewBitmapMeasurer()
	laid := m.Measure("one\ntwo", testStyle(), 1000)
	want := 0.0
	for _, l := range laid.Lines {
		want += l.Height
	}
	if got := laid.TotalHeight(); got != want {
		t.Errorf("TotalHeight() = %v, want %v", got, want)
	}
}

func TestPositionAtOffsetPicksLineByY(t *testing.T) {
	m := NewBitmapMeasurer()
	text := strings.TrimSpace(strings.Repeat("hit testing line ", 30))
	laid := m.Measure(text, testStyle(), 150)
	if len(laid.Lines) < 3 {
		t.Fatalf("need at least 3 lines for this test, got %d", len(laid.Lines))
	}

	second := laid.Lines[1]
	got := laid.PositionAtOffset(0, second.Top+1)
	if got != second.FirstChar {
		t.Errorf("PositionAtOffset at second line's left edge = %d, want %d", got, second.FirstChar)
	}

	// An offset past every line clamps to the last line's range.
	last := laid.Lines[len(laid.Lines)-1]
	got = laid.PositionAtOffset(1e9, 1e9)
	if got < last.FirstChar || got > last.LastChar {
		t.Errorf("PositionAtOffset far past the text = %d, outside last line [%d,%d]", got, last.FirstChar, last.LastChar)
	}
}

func TestMeasureEmptyTextYieldsOneEmptyLine(t *testing.T) {
	m := NewBitmapMeasurer()
	laid := m.Measure("", testStyle(), 100)
	if len(laid.Lines) != 1 {
		t.Fatalf("got %d lines for empty text, want 1", len(laid.Lines))
	}
	if laid.Lines[0].FirstChar != 0 || laid.Lines[0].LastChar != 0 {
		t.Errorf("empty line range = [%d,%d], want [0,0]", laid.Lines[0].FirstChar, laid.Lines[0].LastChar)
	}
}
