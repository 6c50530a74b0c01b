package launch

import (
	"context"
	"reflect"
	"testing"

	"github.com/riftlabs/corelaunch/internal/auth"
	"github.com/riftlabs/corelaunch/internal/config"
	"github.com/riftlabs/corelaunch/internal/platform"
	"github.com/riftlabs/corelaunch/internal/profile"
)

func newTestLauncher(p *profile.Details, creds *auth.Credentials) *Launcher {
	return &Launcher{
		opts: &Options{
			Profile:     p,
			Credentials: creds,
			PlayerName:  "OfflineSteve",
			Config:      &config.Config{AssetsDir: "/data/assets", MSAClientID: "client-id"},
			GameDir:     "/data/game",
		},
		probe:         platform.Probe{OS: platform.Linux, Arch: platform.X86_64},
		clientJarPath: "/data/versions/1.21.4/1.21.4.jar",
	}
}

func TestBuildArguments_ModernProfileSubstitutesTemplates(t *testing.T) {
	p := &profile.Details{
		ID:        "1.21.4",
		MainClass: "net.minecraft.client.main.Main",
		Arguments: &profile.Arguments{
			JVM:  []interface{}{"-Djava.library.path=${natives_directory}", "-cp", "${classpath}"},
			Game: []interface{}{"--username", "${auth_player_name}", "--version", "${version_name}"},
		},
		AssetIndex: profile.AssetIndexRef{ID: "1.21"},
	}
	l := newTestLauncher(p, nil)
	l.nativesDir = "/data/game/natives"

	args, err := l.buildArguments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"-Djava.library.path=/data/game/natives",
		"-cp", "/data/versions/1.21.4/1.21.4.jar",
		"net.minecraft.client.main.Main",
		"--username", "OfflineSteve",
		"--version", "1.21.4",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("got %v, want %v", args, want)
	}
}

func TestBuildArguments_LegacyProfileFallsBackToTokenizedArguments(t *testing.T) {
	p := &profile.Details{
		ID:                 "1.7.10",
		MainClass:          "net.minecraft.client.main.Main",
		MinecraftArguments: "--username ${auth_player_name} --uuid ${auth_uuid}",
		AssetIndex:         profile.AssetIndexRef{ID: "legacy"},
	}
	l := newTestLauncher(p, nil)
	l.nativesDir = "/data/game/natives"

	args, err := l.buildArguments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(args, "net.minecraft.client.main.Main") {
		t.Errorf("expected main class in args: %v", args)
	}
	if !contains(args, "--username") || !contains(args, "OfflineSteve") {
		t.Errorf("expected legacy game args to be tokenized and substituted: %v", args)
	}
	if !contains(args, "00000000-0000-0000-0000-000000000000") {
		t.Errorf("expected offline uuid placeholder, got: %v", args)
	}
}

func TestBuildArguments_AuthenticatedCredentialsOverridePlayerName(t *testing.T) {
	p := &profile.Details{
		ID:        "1.21.4",
		MainClass: "net.minecraft.client.main.Main",
		Arguments: &profile.Arguments{
			Game: []interface{}{"--username", "${auth_player_name}", "--uuid", "${auth_uuid}", "--userType", "${user_type}"},
		},
	}
	creds := &auth.Credentials{ID: "11111111-1111-1111-1111-111111111111", Username: "RealPlayer", AccessToken: "tok"}
	l := newTestLauncher(p, creds)

	args, err := l.buildArguments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(args, "RealPlayer") {
		t.Errorf("expected authenticated username, got: %v", args)
	}
	if !contains(args, "11111111-1111-1111-1111-111111111111") {
		t.Errorf("expected authenticated uuid, got: %v", args)
	}
	if !contains(args, "msa") {
		t.Errorf("expected user_type msa for authenticated launch, got: %v", args)
	}
}

func TestBuildArguments_UnknownTemplateParameterFails(t *testing.T) {
	p := &profile.Details{
		ID:        "1.21.4",
		MainClass: "net.minecraft.client.main.Main",
		Arguments: &profile.Arguments{
			Game: []interface{}{"--bogus", "${not_a_real_param}"},
		},
	}
	l := newTestLauncher(p, nil)
	if _, err := l.buildArguments(context.Background()); err == nil {
		t.Fatal("expected an error for an unknown template parameter")
	}
}
