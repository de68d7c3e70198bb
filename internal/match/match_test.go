package match

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Apollo   Tyres Ltd. ", "apollo tyres ltd"},
		{"MRF-ZLX (Premium)", "mrfzlx premium"},
		{"100/35R24 50P", "10035r24 50p"},
		{"", ""},
		{"???", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("chennai", "chennai"); got != 100 {
		t.Fatalf("identical strings = %d, want 100", got)
	}
	if got := Ratio("", ""); got != 100 {
		t.Fatalf("empty strings = %d, want 100", got)
	}
	if got := Ratio("abc", "xyz"); got != 0 {
		t.Fatalf("disjoint strings = %d, want 0", got)
	}
	// single edit over seven runes rounds to 86
	if got := Ratio("chennai", "chenai"); got < 80 {
		t.Fatalf("near match = %d, want >= 80", got)
	}
	if Ratio("a", "") != 0 {
		t.Fatal("one empty side should score 0")
	}
}

func TestBestMatch(t *testing.T) {
	dealers := []string{"Sharma Tyres", "Kumar Auto Parts", "Chennai Wheels"}

	got, score := BestMatch("sharmaa tyres", dealers, 75)
	if got != "Sharma Tyres" {
		t.Fatalf("got %q (score %d), want Sharma Tyres", got, score)
	}
	if score < 75 {
		t.Fatalf("score = %d, want >= 75", score)
	}

	if got, _ := BestMatch("completely unrelated", dealers, 75); got != "" {
		t.Fatalf("expected no match below threshold, got %q", got)
	}
	if got, _ := BestMatch("", dealers, 75); got != "" {
		t.Fatalf("empty query should not match, got %q", got)
	}
	if got, _ := BestMatch("sharma", nil, 75); got != "" {
		t.Fatalf("nil candidates should not match, got %q", got)
	}
}
