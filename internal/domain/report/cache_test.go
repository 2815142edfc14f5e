package report

import "testing"

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"incendio": "incendio",
		"50%":      `50\%`,
		"a_b":      `a\_b`,
		`c:\tmp`:   `c:\\tmp`,
		"100%_%":   `100\%\_\%`,
	}
	for in, want := range cases {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilterMatchesLiteralSearch(t *testing.T) {
	discount := pendingReport("Descuento falso del 50% en la tienda", TypeOther)
	plain := pendingReport("Robo de 50 mil pesos", TypeRobbery)

	f := Filter{Search: "50%"}
	if !f.Matches(discount) {
		t.Error("search should match a title containing the literal term")
	}
	if f.Matches(plain) {
		t.Error("percent sign must match literally, not as a wildcard")
	}
}
