package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortContent(t *testing.T) {
	chunks := Split("hello", 100)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("expected single unmodified chunk, got %v", chunks)
	}
}

func TestSplitRespectsMaxLen(t *testing.T) {
	content := strings.Repeat("word ", 200)
	chunks := Split(content, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Fatalf("chunk %d exceeds limit: %d chars", i, len(c))
		}
	}
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("a", 60)
	content := para + "\n\n" + para + "\n\n" + para
	chunks := Split(content, 100)
	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, "\n\n") && !strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk %d does not end on a line boundary: %q", i, c[len(c)-10:])
		}
	}
}

func TestSplitKeepsCodeBlockIntact(t *testing.T) {
	code := "```go\nfunc main() {}\n```"
	content := strings.Repeat("x", 90) + "\n" + code + "\nafter"
	chunks := Split(content, 120)

	for _, c := range chunks {
		opens := strings.Count(c, "```")
		if opens == 1 {
			t.Fatalf("code block split across chunks: %q", c)
		}
	}
}

func TestSplitReassemblesToOriginal(t *testing.T) {
	content := strings.Repeat("line of text\n", 500)
	chunks := Split(content, 1000)
	if strings.Join(chunks, "") != content {
		t.Fatal("concatenated chunks differ from original content")
	}
}

func TestSplitNeverCutsRunes(t *testing.T) {
	// Continuous multi-byte text with no space or newline to break on.
	content := strings.Repeat("世界和平万岁", 400)
	chunks := Split(content, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
		}
		if len(c) > 100 {
			t.Fatalf("chunk %d exceeds limit: %d bytes", i, len(c))
		}
	}
	if strings.Join(chunks, "") != content {
		t.Fatal("concatenated chunks differ from original content")
	}
}

func TestSplitTinyLimitAdvances(t *testing.T) {
	// A limit smaller than one rune must still make progress.
	chunks := Split("日本語", 2)
	if strings.Join(chunks, "") != "日本語" {
		t.Fatalf("content lost: %v", chunks)
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
		}
	}
}

func TestSplitOversizedCodeBlock(t *testing.T) {
	content := "```\n" + strings.Repeat("long code line\n", 100) + "```"
	chunks := Split(content, 200)
	if len(chunks) < 2 {
		t.Fatal("expected oversized block to be split")
	}
	if strings.Join(chunks, "") != content {
		t.Fatal("content lost while splitting code block")
	}
}
