package profile

import (
	"fmt"
	"regexp"

	"github.com/riftlabs/corelaunch/internal/corerr"
)

// FeatureSet is the launch-time feature flags a Rule's Features
// predicate is matched against.
type FeatureSet struct {
	IsDemoUser        bool
	HasCustomRes      bool
	HasQuickPlaysup   bool
	IsQuickPlaySingle bool
	IsQuickPlayMulti  bool
	IsQuickPlayRealms bool
}

// Environment is the "current host" the rule interpreter evaluates
// against: OS name (as used in library rules: "windows"/"linux"/"osx"),
// OS version string, and architecture.
type Environment struct {
	OSName    string
	OSVersion string
	Arch      string
	Features  FeatureSet
}

// Applies evaluates rules in order against env: each rule whose
// os/features predicates all match updates the verdict to its Action;
// the last matching rule wins. A nil rules slice (no "rules" key present
// at all, the overwhelming common case for a plain library) is
// unconditional inclusion. A non-nil, empty slice and a populated slice
// that matches nothing both default-deny, per the last-match-wins
// semantics below.
func Applies(rules []Rule, env Environment) (bool, error) {
	if rules == nil {
		return true, nil
	}

	verdict := false
	matchedAny := false
	for _, rule := range rules {
		matched, err := ruleMatches(rule, env)
		if err != nil {
			return false, err
		}
		if !matched {
			continue
		}
		matchedAny = true
		verdict = rule.Action == "allow"
	}
	if !matchedAny {
		return false, nil // default deny
	}
	return verdict, nil
}

func ruleMatches(rule Rule, env Environment) (bool, error) {
	if rule.OS != nil {
		if rule.OS.Name != "" && rule.OS.Name != env.OSName {
			return false, nil
		}
		if rule.OS.Arch != "" && rule.OS.Arch != env.Arch {
			return false, nil
		}
		if rule.OS.Version != "" {
			matched, err := regexp.MatchString(rule.OS.Version, env.OSVersion)
			if err != nil {
				return false, corerr.New(corerr.KindRegex, fmt.Sprintf("compiling os.version rule %q", rule.OS.Version), err)
			}
			if !matched {
				return false, nil
			}
		}
	}
	if rule.Features != nil {
		f := rule.Features
		if f.IsDemoUser && !env.Features.IsDemoUser {
			return false, nil
		}
		if f.HasCustomRes && !env.Features.HasCustomRes {
			return false, nil
		}
		if f.HasQuickPlaysup && !env.Features.HasQuickPlaysup {
			return false, nil
		}
		if f.IsQuickPlaySingle && !env.Features.IsQuickPlaySingle {
			return false, nil
		}
		if f.IsQuickPlayMulti && !env.Features.IsQuickPlayMulti {
			return false, nil
		}
		if f.IsQuickPlayRealms && !env.Features.IsQuickPlayRealms {
			return false, nil
		}
	}
	return true, nil
}

// LibraryApplies reports whether lib should be included for env,
// evaluating its Rules (unconditional inclusion when it has none).
func LibraryApplies(lib Library, env Environment) (bool, error) {
	return Applies(lib.Rules, env)
}
