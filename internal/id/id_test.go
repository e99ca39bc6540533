package id

import (
	"strings"
	"testing"

	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
)

func TestNewGeneratesValidID(t *testing.T) {
	got, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := Validate(got); err != nil {
		t.Errorf("generated id %q does not validate: %v", got, err)
	}
	if !strings.HasPrefix(got, Prefix) {
		t.Errorf("id %q missing prefix %q", got, Prefix)
	}
}

func TestNewRetriesOnCollision(t *testing.T) {
	calls := 0
	exists := func(candidate string) (bool, error) {
		calls++
		return calls < 3, nil
	}
	got, err := New(exists)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 exists() calls before a free id, got %d", calls)
	}
	if err := Validate(got); err != nil {
		t.Errorf("generated id %q does not validate: %v", got, err)
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	cases := []string{"", "wv-", "wv-123", "wv-1234567", "bd-abcd", "wv-xyz1", "WV-abcd"}
	for _, c := range cases {
		if err := Validate(c); err == nil {
			t.Errorf("expected Validate(%q) to fail", c)
		}
	}
	valid := []string{"wv-abcd", "wv-ABCD", "wv-a1b2c3"}
	for _, c := range valid {
		if err := Validate(c); err != nil {
			t.Errorf("Validate(%q) should pass: %v", c, err)
		}
	}
}

func TestValidateAliasAllowsEmpty(t *testing.T) {
	if err := ValidateAlias(""); err != nil {
		t.Errorf("empty alias should be allowed (no alias set): %v", err)
	}
	if err := ValidateAlias("my-alias_1"); err != nil {
		t.Errorf("valid alias rejected: %v", err)
	}
	if err := ValidateAlias("1bad"); err == nil {
		t.Error("alias starting with a digit should be rejected")
	}
	if err := ValidateAlias("has space"); err == nil {
		t.Error("alias with a space should be rejected")
	}
}

func TestValidateStatusClosedEnum(t *testing.T) {
	if err := ValidateStatus(types.StatusTodo); err != nil {
		t.Errorf("todo should validate: %v", err)
	}
	if err := ValidateStatus(types.Status("banana")); err == nil {
		t.Error("expected invalid status to be rejected")
	} else if !werr.Has(err, werr.InvalidInput) {
		t.Errorf("expected InvalidInput kind, got %v", err)
	}
}

func TestValidateEdgeTypeClosedEnum(t *testing.T) {
	if err := ValidateEdgeType(types.EdgeBlocks); err != nil {
		t.Errorf("blocks should validate: %v", err)
	}
	if err := ValidateEdgeType(types.EdgeType("frobnicates")); err == nil {
		t.Error("expected invalid edge type to be rejected")
	}
}

func TestValidateWeightRange(t *testing.T) {
	if err := ValidateWeight(0.0); err != nil {
		t.Errorf("0.0 should be valid: %v", err)
	}
	if err := ValidateWeight(1.0); err != nil {
		t.Errorf("1.0 should be valid: %v", err)
	}
	if err := ValidateWeight(-0.01); err == nil {
		t.Error("negative weight should be rejected")
	}
	if err := ValidateWeight(1.01); err == nil {
		t.Error("weight above 1.0 should be rejected")
	}
}

func TestIsID(t *testing.T) {
	if !IsID("wv-abcd") {
		t.Error("wv-abcd should look like an id")
	}
	if IsID("my-alias") {
		t.Error("my-alias should not look like an id")
	}
}
