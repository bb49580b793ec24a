package eval

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello, World!", "hello world"},
		{"  spaced   out  ", "spaced out"},
		{"Pikachu's HP: 35", "pikachus hp 35"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExactMatch_Identity(t *testing.T) {
	for _, s := range []string{"Pikachu", "fire and flying", "HP: 35"} {
		if got := ExactMatch(s, s); got != 1.0 {
			t.Errorf("ExactMatch(%q, %q) = %f, want 1.0", s, s, got)
		}
	}
}

func TestExactMatch_WhitespaceInsensitive(t *testing.T) {
	if got := ExactMatch("Pikachu", "Pikachu "); got != 1.0 {
		t.Errorf("trailing whitespace broke exact match: %f", got)
	}
	if got := ExactMatch("Pikachu has 35 HP", "pikachu  HAS 35 hp!"); got != 1.0 {
		t.Errorf("case/punctuation broke exact match: %f", got)
	}
}

func TestExactMatch_Mismatch(t *testing.T) {
	if got := ExactMatch("Pikachu", "Raichu"); got != 0.0 {
		t.Errorf("ExactMatch mismatch = %f, want 0.0", got)
	}
	if got := ExactMatch("Pikachu", ""); got != 0.0 {
		t.Errorf("ExactMatch against empty reference = %f, want 0.0", got)
	}
}

func TestExactMatch_EmptyAfterNormalization(t *testing.T) {
	if got := ExactMatch("", ""); got != 1.0 {
		t.Errorf("ExactMatch(\"\", \"\") = %f, want 1.0", got)
	}
	if got := ExactMatch("!!!", "???"); got != 1.0 {
		t.Errorf("ExactMatch on punctuation-only pair = %f, want 1.0", got)
	}
}

func TestTokenF1_Identity(t *testing.T) {
	if got := TokenF1("the quick brown fox", "the quick brown fox"); got != 1.0 {
		t.Errorf("TokenF1(a, a) = %f, want 1.0", got)
	}
}

func TestTokenF1_Symmetry(t *testing.T) {
	a := "Pikachu has 35 HP and 55 Attack"
	b := "Pikachu has 35 HP, 55 Attack, 40 Defense"
	if TokenF1(a, b) != TokenF1(b, a) {
		t.Errorf("TokenF1 not symmetric: %f vs %f", TokenF1(a, b), TokenF1(b, a))
	}
}

func TestTokenF1_PartialOverlap(t *testing.T) {
	got := TokenF1(
		"Pikachu has 35 HP and 55 Attack",
		"Pikachu has 35 HP, 55 Attack, 40 Defense",
	)
	if got <= 0.0 || got >= 1.0 {
		t.Errorf("partial overlap F1 = %f, want strictly between 0 and 1", got)
	}
}

func TestTokenF1_Degenerate(t *testing.T) {
	cases := []struct{ a, b string }{
		{"", "reference"},
		{"prediction", ""},
		{"", ""},
		{"!!!", "reference"},
	}
	for _, tc := range cases {
		got := TokenF1(tc.a, tc.b)
		if got != 0.0 || math.IsNaN(got) {
			t.Errorf("TokenF1(%q, %q) = %f, want 0.0", tc.a, tc.b, got)
		}
	}
}

func TestContextOverlap_EmptyContext(t *testing.T) {
	if got := ContextOverlap("Pikachu is electric", nil); got != 0.0 {
		t.Errorf("overlap with empty context = %f, want 0.0", got)
	}
	if got := ContextOverlap("Pikachu is electric", []string{}); got != 0.0 {
		t.Errorf("overlap with empty context slice = %f, want 0.0", got)
	}
}

func TestContextOverlap_FullSupport(t *testing.T) {
	ctx := []string{"Pikachu is an electric type Pokémon.", "Its base stats are: HP: 35."}
	if got := ContextOverlap("Pikachu is electric", ctx); got != 1.0 {
		t.Errorf("fully supported prediction overlap = %f, want 1.0", got)
	}
}

func TestContextOverlap_Partial(t *testing.T) {
	got := ContextOverlap("Pikachu eats ketchup", []string{"Pikachu is an electric mouse"})
	if got <= 0.0 || got >= 1.0 {
		t.Errorf("partial overlap = %f, want strictly between 0 and 1", got)
	}
}

func TestContextPrecisionRecall(t *testing.T) {
	ctx := []string{"pikachu electric mouse"}
	ref := "pikachu electric"

	if got := ContextRecall(ctx, ref); got != 1.0 {
		t.Errorf("recall = %f, want 1.0 (all reference tokens retrieved)", got)
	}
	prec := ContextPrecision(ctx, ref)
	if math.Abs(prec-2.0/3.0) > 1e-9 {
		t.Errorf("precision = %f, want 2/3", prec)
	}

	if got := ContextPrecision(nil, ref); got != 0.0 {
		t.Errorf("precision with no context = %f, want 0.0", got)
	}
	if got := ContextRecall(ctx, ""); got != 0.0 {
		t.Errorf("recall with empty reference = %f, want 0.0", got)
	}
}

func TestAllMetricsStayInRange(t *testing.T) {
	preds := []string{"", "a", "Pikachu has 35 HP", "completely unrelated words"}
	refs := []string{"", "a", "Pikachu has 35 HP and more", "nothing shared here"}
	ctxs := [][]string{nil, {"a"}, {"Pikachu has 35 HP"}, {""}}

	for i := range preds {
		scores := New(nil).Score(preds[i], refs[i], ctxs[i])
		for metric, v := range scores {
			if math.IsNaN(v) || v < 0.0 || v > 1.0 {
				t.Errorf("case %d: metric %s out of range: %f", i, metric, v)
			}
		}
	}
}
