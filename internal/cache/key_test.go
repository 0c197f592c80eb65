package cache

import "testing"

func TestCompose(t *testing.T) {
	t.Parallel()

	if got := Compose("jira", "PROJ-1"); got != "jira:PROJ-1" {
		t.Errorf("Compose() = %q, want %q", got, "jira:PROJ-1")
	}
}

func TestValidNamespace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		namespace string
		want      bool
	}{
		{"jira", true},
		{"confluence", true},
		{"", false},
		{"a:b", false},
		{":", false},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			t.Parallel()
			if got := ValidNamespace(tt.namespace); got != tt.want {
				t.Errorf("ValidNamespace(%q) = %v, want %v", tt.namespace, got, tt.want)
			}
		})
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	a := Fingerprint("project = PROJ ORDER BY updated")
	b := Fingerprint("project = PROJ ORDER BY updated")
	if a != b {
		t.Errorf("Fingerprint not deterministic: %q != %q", a, b)
	}
	if len(a) != 32 {
		t.Errorf("Fingerprint length = %d, want 32", len(a))
	}

	if Fingerprint("a") == Fingerprint("b") {
		t.Error("distinct inputs produced the same fingerprint")
	}
}

func TestQueryKey(t *testing.T) {
	t.Parallel()

	// The limit is part of the key: the same query with different limits
	// caches separately.
	if QueryKey("project = PROJ", 10) == QueryKey("project = PROJ", 20) {
		t.Error("QueryKey ignores the limit")
	}
	if QueryKey("project = PROJ", 10) != QueryKey("project = PROJ", 10) {
		t.Error("QueryKey not deterministic")
	}
}
