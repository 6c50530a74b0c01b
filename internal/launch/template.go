package launch

import (
	"fmt"
	"strings"

	"github.com/riftlabs/corelaunch/internal/corerr"
)

// TemplateParams is the substitution table available to every ${...}
// placeholder in a profile's jvm/game argument lists.
type TemplateParams struct {
	AuthPlayerName   string
	VersionName      string
	GameDirectory    string
	AssetsRoot       string
	AssetsIndexName  string
	AuthUUID         string
	AuthAccessToken  string
	UserType         string
	VersionType      string
	NativesDirectory string
	LauncherName     string
	LauncherVersion  string
	Classpath        string
	UserProperties   string
	ClientID         string
	AuthXUID         string
}

func (p TemplateParams) lookup(name string) (string, bool) {
	switch name {
	case "auth_player_name":
		return p.AuthPlayerName, true
	case "version_name":
		return p.VersionName, true
	case "game_directory":
		return p.GameDirectory, true
	case "assets_root":
		return p.AssetsRoot, true
	case "assets_index_name":
		return p.AssetsIndexName, true
	case "auth_uuid":
		return p.AuthUUID, true
	case "auth_access_token":
		return p.AuthAccessToken, true
	case "user_type":
		return p.UserType, true
	case "version_type":
		return p.VersionType, true
	case "natives_directory":
		return p.NativesDirectory, true
	case "launcher_name":
		return p.LauncherName, true
	case "launcher_version":
		return p.LauncherVersion, true
	case "classpath":
		return p.Classpath, true
	case "user_properties":
		return p.UserProperties, true
	case "clientid":
		return p.ClientID, true
	case "auth_xuid":
		return p.AuthXUID, true
	default:
		return "", false
	}
}

func isTemplateIdentByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// Substitute replaces every ${identifier} placeholder in s with its
// value from params. It fails closed rather than passing unknown syntax
// through silently: an unterminated "${" is an InvalidVersionProfile
// ("missing '}'"), a placeholder whose name contains a character outside
// [A-Za-z0-9_] is likewise InvalidVersionProfile, and a well-formed but
// unrecognised parameter name is UnknownTemplateParameter.
func Substitute(s string, params TemplateParams) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		rel := strings.Index(s[i:], "${")
		if rel < 0 {
			out.WriteString(s[i:])
			break
		}
		start := i + rel
		out.WriteString(s[i:start])

		closeRel := strings.IndexByte(s[start+2:], '}')
		if closeRel < 0 {
			return "", corerr.New(corerr.KindInvalidVersionProfile, "missing '}'", nil)
		}
		end := start + 2 + closeRel

		name := s[start+2 : end]
		for j := 0; j < len(name); j++ {
			if !isTemplateIdentByte(name[j]) {
				return "", corerr.New(corerr.KindInvalidVersionProfile,
					fmt.Sprintf("invalid character in template parameter %q", name), nil)
			}
		}

		value, ok := params.lookup(name)
		if !ok {
			return "", corerr.New(corerr.KindUnknownTemplateParameter, name, nil)
		}
		out.WriteString(value)

		i = end + 1
	}
	return out.String(), nil
}

// SubstituteAll applies Substitute to every entry in args, stopping at
// the first failure.
func SubstituteAll(args []string, params TemplateParams) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		v, err := Substitute(a, params)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
