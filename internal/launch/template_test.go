package launch

import (
	"errors"
	"testing"

	"github.com/riftlabs/corelaunch/internal/corerr"
)

func testParams() TemplateParams {
	return TemplateParams{
		AuthPlayerName:   "Steve",
		VersionName:      "1.21.4",
		GameDirectory:    "/game",
		NativesDirectory: "/game/natives",
		Classpath:        "/a.jar:/b.jar",
	}
}

func TestSubstitute_PlainString(t *testing.T) {
	out, err := Substitute("no placeholders here", testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "no placeholders here" {
		t.Errorf("got %q", out)
	}
}

func TestSubstitute_KnownParameters(t *testing.T) {
	out, err := Substitute("--username ${auth_player_name} --gameDir ${game_directory}", testParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "--username Steve --gameDir /game"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestSubstitute_UnknownParameter(t *testing.T) {
	_, err := Substitute("${does_not_exist}", testParams())
	var cerr *corerr.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected a corerr.Error, got %v (%T)", err, err)
	}
	if cerr.Kind != corerr.KindUnknownTemplateParameter {
		t.Errorf("got kind %v, want KindUnknownTemplateParameter", cerr.Kind)
	}
}

func TestSubstitute_MissingClosingBrace(t *testing.T) {
	_, err := Substitute("${auth_player_name", testParams())
	var cerr *corerr.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected a corerr.Error, got %v (%T)", err, err)
	}
	if cerr.Kind != corerr.KindInvalidVersionProfile {
		t.Errorf("got kind %v, want KindInvalidVersionProfile", cerr.Kind)
	}
}

func TestSubstitute_InvalidIdentifierCharacter(t *testing.T) {
	_, err := Substitute("${auth-player-name}", testParams())
	var cerr *corerr.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected a corerr.Error, got %v (%T)", err, err)
	}
	if cerr.Kind != corerr.KindInvalidVersionProfile {
		t.Errorf("got kind %v, want KindInvalidVersionProfile", cerr.Kind)
	}
}

func TestSubstituteAll_StopsAtFirstFailure(t *testing.T) {
	_, err := SubstituteAll([]string{"${auth_player_name}", "${bogus}"}, testParams())
	if err == nil {
		t.Fatal("expected an error")
	}
}
