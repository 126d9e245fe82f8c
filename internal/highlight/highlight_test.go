// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package highlight

import (
	"strings"
	"testing"
)

func TestHTML_KnownLanguage(t *testing.T) {
	s := New(DefaultStyle)

	out, err := s.HTML(`fmt.Println("hi")`, "go")
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	if !strings.Contains(out, "<span") {
		t.Errorf("expected styled spans in output: %q", out)
	}
	if strings.Contains(out, "<pre") {
		t.Errorf("output must not carry its own <pre>: %q", out)
	}
}

func TestHTML_EscapesCode(t *testing.T) {
	s := New(DefaultStyle)

	out, err := s.HTML(`<script>alert(1)</script>`, "text")
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("code was not escaped: %q", out)
	}
}

func TestHTML_UnknownLanguageFallsBack(t *testing.T) {
	s := New(DefaultStyle)

	out, err := s.HTML("just words", "no-such-language")
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	if !strings.Contains(out, "just words") {
		t.Errorf("fallback lexer lost the content: %q", out)
	}
}

func TestNew_UnknownStyleFallsBack(t *testing.T) {
	s := New("no-such-style")
	if _, err := s.HTML("x = 1", "python"); err != nil {
		t.Fatalf("fallback style should still highlight: %v", err)
	}
}
