package portal

import "testing"

func TestValidEmail(t *testing.T) {
	t.Parallel()

	valid := []string{"ada@example.com", "Ada Lovelace <ada@example.com>"}
	for _, s := range valid {
		if !ValidEmail(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []string{"", "not-an-email", "@example.com"}
	for _, s := range invalid {
		if ValidEmail(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestValidPhone(t *testing.T) {
	t.Parallel()

	if !ValidPhone("11987654321") {
		t.Error("expected 11 digits to be valid")
	}

	invalid := []string{"", "1198765432", "119876543210", "1198765432a", "11 98765432"}
	for _, s := range invalid {
		if ValidPhone(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestValidMAC(t *testing.T) {
	t.Parallel()

	valid := []string{"aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF", "00:11:22:33:44:55"}
	for _, s := range valid {
		if !ValidMAC(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []string{"", "aa-bb-cc-dd-ee-ff", "aa:bb:cc:dd:ee", "aa:bb:cc:dd:ee:ff:00", "zz:bb:cc:dd:ee:ff"}
	for _, s := range invalid {
		if ValidMAC(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
