package launch

import (
	"context"

	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/platform"
)

// buildArguments concatenates jvm arguments, the main class, and game
// arguments, substituting every ${...} template against the account,
// instance, and classpath state resolved by the earlier pipeline steps.
func (l *Launcher) buildArguments(_ context.Context) ([]string, error) {
	p := l.opts.Profile
	env := l.environment()

	classpath := buildClasspath(l.resolved, []string{l.clientJarPath}, l.probe.OS.PathSeparator())

	params := TemplateParams{
		AuthPlayerName:   l.playerName(),
		VersionName:      p.ID,
		GameDirectory:    l.opts.GameDir,
		AssetsRoot:       l.opts.Config.AssetsDir,
		AssetsIndexName:  p.AssetIndex.ID,
		AuthUUID:         l.authUUID(),
		AuthAccessToken:  l.authAccessToken(),
		UserType:         l.userType(),
		VersionType:      string(p.Type),
		NativesDirectory: l.nativesDir,
		LauncherName:     defaultString(l.opts.LauncherName, "corelaunch"),
		LauncherVersion:  defaultString(l.opts.LauncherVersion, "1.0"),
		Classpath:        classpath,
		UserProperties:   "{}",
		ClientID:         l.opts.Config.MSAClientID,
		AuthXUID:         "",
	}

	var jvmArgs, gameArgs []string
	var err error

	if p.Arguments != nil && len(p.Arguments.JVM) > 0 {
		jvmArgs, err = resolveArgumentList(p.Arguments.JVM, env)
		if err != nil {
			return nil, corerr.New(corerr.KindInvalidVersionProfile, "resolving jvm arguments", err)
		}
	} else {
		jvmArgs = defaultJVMArgs(l.opts.Config.JVMArgs, l.probe.OS == platform.MacOS)
	}

	if p.Arguments != nil && len(p.Arguments.Game) > 0 {
		gameArgs, err = resolveArgumentList(p.Arguments.Game, env)
		if err != nil {
			return nil, corerr.New(corerr.KindInvalidVersionProfile, "resolving game arguments", err)
		}
	} else if p.MinecraftArguments != "" {
		gameArgs = legacyArguments(p.MinecraftArguments)
	}

	jvmArgs, err = SubstituteAll(jvmArgs, params)
	if err != nil {
		return nil, err
	}
	gameArgs, err = SubstituteAll(gameArgs, params)
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, len(jvmArgs)+1+len(gameArgs))
	args = append(args, jvmArgs...)
	args = append(args, p.MainClass)
	args = append(args, gameArgs...)
	return args, nil
}

// defaultJVMArgs builds the legacy (<1.13) fallback JVM argument list:
// configured/user JVM flags, the macOS AWT-on-main-thread requirement,
// then the classpath and natives-path flags the modern "arguments.jvm"
// list would otherwise contribute. natives_directory and classpath are
// filled in by the template substitution pass that follows.
func defaultJVMArgs(configured []string, isMacOS bool) []string {
	var args []string
	if len(configured) > 0 {
		args = append(args, configured...)
	} else {
		args = append(args, "-Xmx2G", "-Xms512M")
	}
	if isMacOS {
		args = append(args, "-XstartOnFirstThread")
	}
	args = append(args,
		"-Djava.library.path=${natives_directory}",
		"-cp", "${classpath}",
	)
	return args
}

func (l *Launcher) playerName() string {
	if l.opts.Credentials != nil && l.opts.Credentials.Username != "" {
		return l.opts.Credentials.Username
	}
	if l.opts.PlayerName != "" {
		return l.opts.PlayerName
	}
	return "Player"
}

func (l *Launcher) authUUID() string {
	if l.opts.Credentials != nil && l.opts.Credentials.ID != "" {
		return l.opts.Credentials.ID
	}
	return "00000000-0000-0000-0000-000000000000"
}

func (l *Launcher) authAccessToken() string {
	if l.opts.Credentials != nil && l.opts.Credentials.AccessToken != "" {
		return l.opts.Credentials.AccessToken
	}
	return "0"
}

func (l *Launcher) userType() string {
	if l.opts.Credentials != nil {
		return "msa"
	}
	return "legacy"
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
