package fairdraw

import "testing"

func TestDrawDeterministic(t *testing.T) {
	d1 := New("tx-123", "0xplayer", 1_700_000_000)
	d2 := New("tx-123", "0xplayer", 1_700_000_000)
	if d1 != d2 {
		t.Error("identical inputs produced different draws")
	}
	for i, digit := range d1.Digits {
		if digit < 0 || digit > 9 {
			t.Errorf("digit %d out of range: %d", i, digit)
		}
	}
	if len(d1.Commitment) != 2+64 {
		t.Errorf("commitment length = %d, want 66", len(d1.Commitment))
	}
}

func TestDrawInputSensitivity(t *testing.T) {
	base := New("tx-123", "0xplayer", 1_700_000_000)

	if got := New("tx-124", "0xplayer", 1_700_000_000); got.Commitment == base.Commitment {
		t.Error("different tx id produced the same commitment")
	}
	if got := New("tx-123", "0xother", 1_700_000_000); got.Commitment == base.Commitment {
		t.Error("different player produced the same commitment")
	}
	if got := New("tx-123", "0xplayer", 1_700_000_001); got.Commitment == base.Commitment {
		t.Error("different timestamp produced the same commitment")
	}
}

func TestVerify(t *testing.T) {
	d := New("tx-123", "0xplayer", 1_700_000_000)
	if !Verify("tx-123", "0xplayer", 1_700_000_000, d) {
		t.Error("genuine draw failed verification")
	}

	tampered := d
	tampered.Digits[0] = (tampered.Digits[0] + 1) % 10
	if Verify("tx-123", "0xplayer", 1_700_000_000, tampered) {
		t.Error("tampered digits passed verification")
	}
	if Verify("tx-999", "0xplayer", 1_700_000_000, d) {
		t.Error("draw verified against wrong inputs")
	}
}
