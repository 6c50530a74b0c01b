package launch

import (
	"fmt"

	"github.com/riftlabs/corelaunch/internal/profile"
)

// resolveArgumentList interprets one modern argument list (Arguments.JVM
// or Arguments.Game, decoded from JSON as []interface{}): a plain string
// entry passes through unconditionally; a {rules, value} object
// contributes its value (a string, or an array of strings) only when its
// rules evaluate to true against env.
func resolveArgumentList(entries []interface{}, env profile.Environment) ([]string, error) {
	var out []string
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			out = append(out, v)
		case map[string]interface{}:
			rules, err := decodeArgumentRules(v["rules"])
			if err != nil {
				return nil, err
			}
			applies, err := profile.Applies(rules, env)
			if err != nil {
				return nil, err
			}
			if !applies {
				continue
			}
			values, err := decodeArgumentValue(v["value"])
			if err != nil {
				return nil, err
			}
			out = append(out, values...)
		default:
			return nil, fmt.Errorf("unsupported argument entry type %T", entry)
		}
	}
	return out, nil
}

func decodeArgumentValue(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("argument value entry is not a string: %v", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported argument value type %T", raw)
	}
}

func decodeArgumentRules(raw interface{}) ([]profile.Rule, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("rules is not a list: %T", raw)
	}

	rules := make([]profile.Rule, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("rule entry is not an object: %T", item)
		}

		var rule profile.Rule
		if action, ok := obj["action"].(string); ok {
			rule.Action = action
		}
		if osRaw, ok := obj["os"].(map[string]interface{}); ok {
			rule.OS = &profile.OSRule{
				Name:    stringField(osRaw, "name"),
				Version: stringField(osRaw, "version"),
				Arch:    stringField(osRaw, "arch"),
			}
		}
		if featRaw, ok := obj["features"].(map[string]interface{}); ok {
			rule.Features = &profile.Features{
				IsDemoUser:        boolField(featRaw, "is_demo_user"),
				HasCustomRes:      boolField(featRaw, "has_custom_resolution"),
				HasQuickPlaysup:   boolField(featRaw, "has_quick_plays_support"),
				IsQuickPlaySingle: boolField(featRaw, "is_quick_play_singleplayer"),
				IsQuickPlayMulti:  boolField(featRaw, "is_quick_play_multiplayer"),
				IsQuickPlayRealms: boolField(featRaw, "is_quick_play_realms"),
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// legacyArguments splits the pre-1.13 MinecraftArguments string on
// whitespace: the legacy format has no quoting rules, each token is one
// argument.
func legacyArguments(raw string) []string {
	var out []string
	var cur []byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == ' ' || c == '\t' {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
