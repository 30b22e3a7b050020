package model

import (
	"encoding/json"
	"net/netip"
	"testing"
)

// TestFieldStates verifies that the three states never collapse.
func TestFieldStates(t *testing.T) {
	t.Parallel()

	t.Run("zero value is unknown", func(t *testing.T) {
		t.Parallel()

		var f Field[string]
		if !f.IsUnknown() {
			t.Errorf("expected zero Field to be unknown, got %s", f.State())
		}
		if _, ok := f.Get(); ok {
			t.Error("expected Get to report absent value")
		}
	})

	t.Run("empty is not unknown", func(t *testing.T) {
		t.Parallel()

		f := Empty[[]netip.Addr]()
		if !f.IsEmpty() {
			t.Errorf("expected empty, got %s", f.State())
		}
		if f.IsUnknown() || f.IsPresent() {
			t.Error("empty field must not report unknown or present")
		}
	})

	t.Run("known holds value", func(t *testing.T) {
		t.Parallel()

		f := Known("TLSv1.3")
		v, ok := f.Get()
		if !ok {
			t.Fatal("expected present value")
		}
		if v != "TLSv1.3" {
			t.Errorf("expected TLSv1.3, got %q", v)
		}
	})

	t.Run("known empty string stays present", func(t *testing.T) {
		t.Parallel()

		f := Known("")
		if !f.IsPresent() {
			t.Errorf("expected present, got %s", f.State())
		}
	})
}

// TestFieldMarshalJSON verifies the JSON shape keeps the state explicit.
func TestFieldMarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field[[]string]
		want  string
	}{
		{
			name:  "unknown",
			field: Unknown[[]string](),
			want:  `{"state":"unknown"}`,
		},
		{
			name:  "empty",
			field: Empty[[]string](),
			want:  `{"state":"empty"}`,
		},
		{
			name:  "present",
			field: Known([]string{"a", "b"}),
			want:  `{"state":"present","value":["a","b"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := json.Marshal(tt.field)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// TestFieldUnmarshalJSON verifies rejected inputs.
func TestFieldUnmarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("present without value is rejected", func(t *testing.T) {
		t.Parallel()

		var f Field[string]
		if err := json.Unmarshal([]byte(`{"state":"present"}`), &f); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unrecognized state is rejected", func(t *testing.T) {
		t.Parallel()

		var f Field[string]
		if err := json.Unmarshal([]byte(`{"state":"maybe"}`), &f); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("empty state decodes", func(t *testing.T) {
		t.Parallel()

		f := Known("x")
		if err := json.Unmarshal([]byte(`{"state":"empty"}`), &f); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !f.IsEmpty() {
			t.Errorf("expected empty, got %s", f.State())
		}
	})
}
