package metrics

import "testing"

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"/api/guests", "/api/guests"},
		{"/api/guests/9f1c2b34-5a6d-4e7f-8a9b-0c1d2e3f4a5b", "/api/guests/:id"},
		{"/api/guests/9f1c2b34-5a6d-4e7f-8a9b-0c1d2e3f4a5b/approve", "/api/guests/:id/approve"},
		{"/api/status/aa:bb:cc:dd:ee:ff", "/api/status/:mac"},
	}

	for _, tc := range cases {
		if got := normalizePath(tc.in); got != tc.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
