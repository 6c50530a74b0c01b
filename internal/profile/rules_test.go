package profile

import (
	"errors"
	"testing"

	"github.com/riftlabs/corelaunch/internal/corerr"
)

func TestApplies_NilRulesUnconditional(t *testing.T) {
	ok, err := Applies(nil, Environment{OSName: "linux"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("absent rules key should mean unconditional inclusion")
	}
}

func TestApplies_EmptyRulesDefaultDeny(t *testing.T) {
	ok, err := Applies([]Rule{}, Environment{OSName: "linux"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("an explicit empty rules array should default deny")
	}
}

func TestApplies_DefaultDenyWhenNoneMatch(t *testing.T) {
	rules := []Rule{{Action: "allow", OS: &OSRule{Name: "windows"}}}
	ok, err := Applies(rules, Environment{OSName: "linux"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected default deny when no rule matches")
	}
}

func TestApplies_LastMatchingRuleWins(t *testing.T) {
	// S3: allow on linux, then disallow on linux with version /^5\./
	rules := []Rule{
		{Action: "allow", OS: &OSRule{Name: "linux"}},
		{Action: "disallow", OS: &OSRule{Name: "linux", Version: `^5\.`}},
	}

	ok, err := Applies(rules, Environment{OSName: "linux", OSVersion: "5.15.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("linux 5.x should be excluded")
	}

	ok, err = Applies(rules, Environment{OSName: "linux", OSVersion: "6.1.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("linux 6.x should be included")
	}
}

func TestApplies_FeaturesPredicate(t *testing.T) {
	rules := []Rule{{Action: "allow", Features: &Features{IsDemoUser: true}}}

	ok, err := Applies(rules, Environment{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("rule requiring demo user should not match a non-demo environment")
	}

	ok, err = Applies(rules, Environment{Features: FeatureSet{IsDemoUser: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("rule requiring demo user should match a demo environment")
	}
}

func TestApplies_MalformedRegexSurfacesKindRegex(t *testing.T) {
	rules := []Rule{{Action: "allow", OS: &OSRule{Name: "linux", Version: "("}}}

	_, err := Applies(rules, Environment{OSName: "linux", OSVersion: "6.1.0"})
	if err == nil {
		t.Fatal("expected an error for a malformed os.version regex")
	}
	var cerr *corerr.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected a *corerr.Error, got %T: %v", err, err)
	}
	if cerr.Kind != corerr.KindRegex {
		t.Errorf("expected KindRegex, got %v", cerr.Kind)
	}
}

func TestLibraryApplies(t *testing.T) {
	lib := Library{Rules: []Rule{{Action: "allow", OS: &OSRule{Name: "osx"}}}}

	ok, err := LibraryApplies(lib, Environment{OSName: "linux"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("osx-only library should not apply on linux")
	}

	ok, err = LibraryApplies(lib, Environment{OSName: "osx"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("osx-only library should apply on osx")
	}
}

func TestLibraryApplies_NoRulesUnconditional(t *testing.T) {
	lib := Library{}
	ok, err := LibraryApplies(lib, Environment{OSName: "linux"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("a library with no rules key should be unconditionally included")
	}
}
