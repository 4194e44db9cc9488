package game

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Bohemian Rhapsody  ", "bohemian rhapsody"},
		{"Beyoncé", "beyonce"},
		{"Shape of You (Remastered 2020)", "shape of you"},
		{"Empire State of Mind [feat. Alicia Keys]", "empire state of mind"},
		{"Don't Stop Me Now", "don t stop me now"},
		{"Uptown Funk feat. Bruno Mars", "uptown funk"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMatchAnswerExact(t *testing.T) {
	if !MatchAnswer("bohemian rhapsody", "Bohemian Rhapsody") {
		t.Fatal("case-insensitive exact match should pass")
	}
	if !MatchAnswer("Deja Vu", "Déjà Vu") {
		t.Fatal("accent-insensitive match should pass")
	}
	if !MatchAnswer("shape of you", "Shape of You (Acoustic Version)") {
		t.Fatal("decoration-stripped match should pass")
	}
}

func TestMatchAnswerAcronym(t *testing.T) {
	if !MatchAnswer("SOYC", "Sound of Your City") {
		t.Fatal("acronym match should pass")
	}
	if MatchAnswer("x", "Xylophone Dreams Forever") {
		t.Fatal("single-letter guess should not match as acronym")
	}
}

func TestMatchAnswerSafePrefix(t *testing.T) {
	if !MatchAnswer("final fantasy", "Final Fantasy VII Main Theme") {
		t.Fatal("franchise prefix should match")
	}
	if MatchAnswer("fin", "Final Fantasy VII Main Theme") {
		t.Fatal("short prefix should not match")
	}
	if MatchAnswer("final f", "Final Fantasy VII Main Theme") {
		t.Fatal("prefix ending mid-word should not match")
	}
}

func TestMatchAnswerSimilarity(t *testing.T) {
	if !MatchAnswer("bohemian rapsody", "Bohemian Rhapsody") {
		t.Fatal("one-typo guess should pass the similarity threshold")
	}
	if MatchAnswer("stairway to heaven", "Bohemian Rhapsody") {
		t.Fatal("unrelated guess should fail")
	}
}

func TestMatchAnswerEmptyInputs(t *testing.T) {
	if MatchAnswer("", "Bohemian Rhapsody") {
		t.Fatal("empty guess should not match")
	}
	if MatchAnswer("anything", "") {
		t.Fatal("empty canonical should not match")
	}
	if MatchAnswer("!!!", "Bohemian Rhapsody") {
		t.Fatal("punctuation-only guess should not match")
	}
}

func TestMatchAny(t *testing.T) {
	if !MatchAny("queen", "Bohemian Rhapsody", "Queen") {
		t.Fatal("artist-side match should pass")
	}
	if MatchAny("nope", "Bohemian Rhapsody", "Queen") {
		t.Fatal("no candidate should match")
	}
}
