package uuid

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("produces a version 7 uuid", func(t *testing.T) {
		id := New()
		if !IsValid(id) {
			t.Fatalf("expected valid uuid, got %q", id)
		}
		if id[14] != '7' {
			t.Errorf("expected version nibble 7, got %q in %s", id[14], id)
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)
		for i := 0; i < 1000; i++ {
			id := New()
			if _, ok := seen[id]; ok {
				t.Fatalf("duplicate id %s", id)
			}
			seen[id] = struct{}{}
		}
	})

	t.Run("ids sort by creation time", func(t *testing.T) {
		first := New()
		second := New()
		if strings.Compare(first[:13], second[:13]) > 0 {
			t.Errorf("expected %s to sort before %s", first, second)
		}
	})
}

func TestParse(t *testing.T) {
	t.Run("normalises upper case input", func(t *testing.T) {
		got, err := Parse("0190A6E2-7C1B-7D3E-8F00-112233445566")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "0190a6e2-7c1b-7d3e-8f00-112233445566" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		if _, err := Parse("not-a-uuid"); err == nil {
			t.Error("expected error")
		}
		if IsValid("not-a-uuid") {
			t.Error("expected IsValid to be false")
		}
	})
}
