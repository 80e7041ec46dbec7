package layout

import "testing"

func TestKeyStableAcrossEqualConfigs(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	if a.Key() != b.Key() {
		t.Fatalf("identical configs produced different keys: %q vs %q", a.Key(), b.Key())
	}
}

func TestKeyIgnoresNonMaterialRounding(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	b.FontSize += 0.0001 // jitter below the 2-decimal rounding
	if a.Key() != b.Key() {
		t.Fatalf("imperceptible float jitter busted the key: %q vs %q", a.Key(), b.Key())
	}
}

func TestKeyDiffersOnFontSizeChange(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	b.FontSize = 18
	if a.Key() == b.Key() {
		t.Fatalf("16pt and 18pt configs produced the same key %q", a.Key())
	}
}

func TestKeyDiffersOnMaxWidthChange(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	b.MaxWidth = 400
	if a.Key() == b.Key() {
		t.Fatalf("different max_width produced the same key %q", a.Key())
	}
}

func TestKeyDiffersOnScalerFingerprint(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	b.Scaler = LinearScaler{Factor: 1.5}
	if a.Key() == b.Key() {
		t.Fatalf("different scaler produced the same key %q", a.Key())
	}
}

func TestMatchesWithinEpsilon(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	b.MaxWidth += 0.1
	if !a.Matches(b) {
		t.Fatalf("configs within dimension epsilon should Match")
	}
	b.MaxWidth += 1.0
	if a.Matches(b) {
		t.Fatalf("configs 1.1px apart should not Match")
	}
}

func TestLinearScalerFingerprintRounds(t *testing.T) {
	a := LinearScaler{Factor: 1.23456}
	b := LinearScaler{Factor: 1.234999}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("scalers rounding to the same 2 decimals should fingerprint equal: %q vs %q", a.Fingerprint(), b.Fingerprint())
	}
}
