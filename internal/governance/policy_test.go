package governance

import (
	"testing"
)

func TestDefaultPolicyEngine_Evaluate(t *testing.T) {
	engine := NewDefaultPolicyEngine()

	// Test Allow (Default)
	res1 := engine.Evaluate(Request{Title: "Book the venue"})
	if res1.Effect != EffectAllow {
		t.Errorf("Expected EffectAllow, got %s", res1.Effect)
	}

	// Test Deny
	engine.DenyTitle("Step title")
	res2 := engine.Evaluate(Request{Title: "Step title"})
	if res2.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny, got %s", res2.Effect)
	}
}

func TestEchoPolicyEngine(t *testing.T) {
	engine := NewEchoPolicyEngine()

	denied := []string{"Guidelines: provide 5-7 steps", "Task Title: Launch", "  task description: x", "Format each step as JSON"}
	for _, title := range denied {
		if res := engine.Evaluate(Request{Title: title}); res.Effect != EffectDeny {
			t.Errorf("Expected %q to be denied", title)
		}
	}

	allowed := []string{"Draft the guest list", "Review formatting of slides"}
	for _, title := range allowed {
		if res := engine.Evaluate(Request{Title: title}); res.Effect != EffectAllow {
			t.Errorf("Expected %q to be allowed, got %s", title, res.Reason)
		}
	}
}

func TestDenyPatternRejectsInvalidRegex(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	if err := engine.DenyPattern(`([`); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}
