package launch

import (
	"reflect"
	"testing"

	"github.com/riftlabs/corelaunch/internal/profile"
)

func TestResolveArgumentList_PlainStringsPassThrough(t *testing.T) {
	entries := []interface{}{"--username", "${auth_player_name}"}
	out, err := resolveArgumentList(entries, profile.Environment{OSName: "linux"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"--username", "${auth_player_name}"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestResolveArgumentList_ConditionalValueIncludedWhenRuleMatches(t *testing.T) {
	entries := []interface{}{
		map[string]interface{}{
			"rules": []interface{}{
				map[string]interface{}{
					"action": "allow",
					"os":     map[string]interface{}{"name": "osx"},
				},
			},
			"value": "-XstartOnFirstThread",
		},
	}
	out, err := resolveArgumentList(entries, profile.Environment{OSName: "osx"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0] != "-XstartOnFirstThread" {
		t.Errorf("got %v, want [-XstartOnFirstThread]", out)
	}
}

func TestResolveArgumentList_ConditionalValueExcludedWhenRuleDoesNotMatch(t *testing.T) {
	entries := []interface{}{
		map[string]interface{}{
			"rules": []interface{}{
				map[string]interface{}{
					"action": "allow",
					"os":     map[string]interface{}{"name": "osx"},
				},
			},
			"value": "-XstartOnFirstThread",
		},
	}
	out, err := resolveArgumentList(entries, profile.Environment{OSName: "linux"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("got %v, want empty", out)
	}
}

func TestResolveArgumentList_ArrayValuedEntry(t *testing.T) {
	entries := []interface{}{
		map[string]interface{}{
			"rules": []interface{}{
				map[string]interface{}{
					"action":   "allow",
					"features": map[string]interface{}{"has_custom_resolution": true},
				},
			},
			"value": []interface{}{"--width", "${resolution_width}"},
		},
	}
	env := profile.Environment{Features: profile.FeatureSet{HasCustomRes: true}}
	out, err := resolveArgumentList(entries, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"--width", "${resolution_width}"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestLegacyArguments_Tokenizes(t *testing.T) {
	out := legacyArguments("--username ${auth_player_name} --uuid ${auth_uuid}")
	want := []string{"--username", "${auth_player_name}", "--uuid", "${auth_uuid}"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestLegacyArguments_CollapsesRepeatedWhitespace(t *testing.T) {
	out := legacyArguments("  a   b\tc  ")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}
