package util

import "testing"

func TestParseBoolDefault(t *testing.T) {
	cases := map[string]bool{"1": true, "TRUE": true, "no": false, "0": false}
	for in, want := range cases {
		if got := ParseBoolDefault(in, !want); got != want {
			t.Fatalf("%q: got %v", in, got)
		}
	}
	if !ParseBoolDefault("maybe", true) {
		t.Fatalf("expected default")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a, ,b,c ")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected %v", got)
	}
}

func TestPreviewTruncatesAndEscapes(t *testing.T) {
	if got := Preview("ab\r\ncd", 4); got != `ab\r\n` {
		t.Fatalf("unexpected %q", got)
	}
	if got := Preview("héllo", 2); got != "hé" {
		t.Fatalf("unexpected %q", got)
	}
}
