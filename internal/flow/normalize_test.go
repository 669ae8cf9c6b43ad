package flow

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Hola", "hola"},
		{"  Buenos   Días!! ", "buenos dias"},
		{"¿Dónde están?", "donde estan"},
		{"Quiero 2 PIZZAS, por favor.", "quiero 2 pizzas por favor"},
		{"Cumpleaños", "cumpleanos"},
		{"Pingüino\tcañón\nmenú", "pinguino canon menu"},
		{"$$$", ""},
		{"h1", "h1"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Hola, quiero ver el MENÚ",
		"  ¿Tienen opción vegana?  ",
		"Zona X, Calle Y #12",
		"ñandú 123 áéíóú",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
