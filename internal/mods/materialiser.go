package mods

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/riftlabs/corelaunch/internal/corerr"
	"github.com/riftlabs/corelaunch/internal/download"
)

// Materialiser reconciles manifest-declared and user-added mods,
// shaders, resourcepacks, and datapacks into a branch's game directory.
type Materialiser struct {
	dl           *download.Manager
	gameDir      string // gameDir/<branch>
	modCacheDir  string // data dir /mod_cache
	repositories map[string]string
}

// NewMaterialiser builds a Materialiser rooted at gameDir with a shared
// content cache at modCacheDir.
func NewMaterialiser(dl *download.Manager, gameDir, modCacheDir string) *Materialiser {
	return &Materialiser{dl: dl, gameDir: gameDir, modCacheDir: modCacheDir}
}

// ClearMods deletes every regular file directly under gameDir/mods,
// leaving subdirectories untouched.
func (m *Materialiser) ClearMods() error {
	return clearRegularFiles(filepath.Join(m.gameDir, "mods"))
}

func clearRegularFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return corerr.New(corerr.KindFilesystem, "reading "+dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return corerr.New(corerr.KindFilesystem, "removing "+entry.Name(), err)
		}
	}
	return nil
}

// UserOverride is a user-added or user-modified mod/shader/resourcepack
// declaration, layered on top of the manifest's declared set.
type UserOverride struct {
	LoaderMod
}

// InstallMods materialises manifestMods plus userMods into gameDir/mods:
//   - Skip a mod if it is optional and disabled, if an already-installed
//     mod shares its slug (case-insensitive, first-wins), or if a user
//     override for that slug declares the PLACEHOLDER repository.
//   - Resolve the download URL from source.URL if present, else
//     repositories[source.Repository] + MavenPath(source.Artifact).
//   - Cache at mod_cache/<mavenPath>, then copy to mods/<name>.jar.
func (m *Materialiser) InstallMods(ctx context.Context, manifestMods []LoaderMod, userMods []UserOverride, repositories map[string]string) error {
	m.repositories = repositories
	destDir := filepath.Join(m.gameDir, "mods")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return corerr.New(corerr.KindFilesystem, "creating mods directory", err)
	}

	placeholders := make(map[string]struct{})
	for _, u := range userMods {
		if u.Source.IsPlaceholderOverride() {
			placeholders[u.Slug()] = struct{}{}
		}
	}

	installed := make(map[string]struct{})

	install := func(mod LoaderMod) error {
		if !mod.Required && !mod.Enabled {
			return nil
		}
		slug := mod.Slug()
		if _, skip := placeholders[slug]; skip {
			return nil
		}
		if _, dup := installed[slug]; dup {
			return nil
		}

		if err := m.fetchAndCopy(ctx, mod, destDir); err != nil {
			return err
		}
		installed[slug] = struct{}{}
		return nil
	}

	for _, mod := range manifestMods {
		if err := install(mod); err != nil {
			return err
		}
	}
	for _, u := range userMods {
		if u.Source.IsPlaceholderOverride() {
			continue
		}
		if err := install(u.LoaderMod); err != nil {
			return err
		}
	}
	return nil
}

func (m *Materialiser) fetchAndCopy(ctx context.Context, mod LoaderMod, destDir string) error {
	url, mavenPath, err := m.resolveURL(mod.Source)
	if err != nil {
		return err
	}

	cachePath := filepath.Join(m.modCacheDir, mavenPath)
	if _, err := os.Stat(cachePath); err != nil {
		if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
			return corerr.New(corerr.KindFilesystem, "creating mod cache directory", err)
		}
		if err := m.dl.FetchToPath(ctx, url, cachePath); err != nil {
			return fmt.Errorf("downloading mod %s: %w", mod.Name, err)
		}
	}

	destPath := filepath.Join(destDir, mod.Name+".jar")
	return copyFile(cachePath, destPath)
}

// resolveURL picks the mod's download URL (explicit-url-then-
// repository+maven-path priority) and the cache-key maven path used
// regardless of which URL source was used.
func (m *Materialiser) resolveURL(source ModSource) (url, mavenPath string, err error) {
	mavenPath, err = MavenPath(source.Artifact)
	if err != nil {
		return "", "", err
	}
	if source.URL != "" {
		return source.URL, mavenPath, nil
	}
	base, ok := m.Repositories()[source.Repository]
	if !ok {
		return "", "", corerr.New(corerr.KindInvalidVersionProfile, "unknown repository: "+source.Repository, nil)
	}
	return strings.TrimRight(base, "/") + "/" + mavenPath, mavenPath, nil
}

// Repositories returns the repository map set by InstallMods (from its
// repositories argument) or by SetRepositories; kept as a field rather
// than a parameter threaded through every call.
func (m *Materialiser) Repositories() map[string]string {
	return m.repositories
}

func (m *Materialiser) SetRepositories(repos map[string]string) {
	m.repositories = repos
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return corerr.New(corerr.KindFilesystem, "opening cached file", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return corerr.New(corerr.KindFilesystem, "creating destination file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return corerr.New(corerr.KindFilesystem, "copying file", err)
	}
	return nil
}
