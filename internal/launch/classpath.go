package launch

import (
	"path/filepath"
	"strings"

	"github.com/riftlabs/corelaunch/internal/download"
	"github.com/riftlabs/corelaunch/internal/profile"
)

// resolvedLibrary is one profile library's contribution to the launch:
// its classpath entry (empty for a native-only library) and the native
// classifier archive it needs extracted into natives/, if any.
type resolvedLibrary struct {
	Name          string
	ClasspathPath string
	ArtifactItem  *download.Item
	NativeItem    *download.Item
}

// resolveLibraries filters libs to those that apply to env, resolving
// each surviving entry's classpath artifact and, when the library
// declares a native classifier for env's OS, its native archive.
func resolveLibraries(libs []profile.Library, librariesDir string, env profile.Environment) ([]resolvedLibrary, error) {
	var out []resolvedLibrary
	for _, lib := range libs {
		applies, err := profile.LibraryApplies(lib, env)
		if err != nil {
			return nil, err
		}
		if !applies {
			continue
		}
		if lib.Downloads == nil {
			continue
		}

		r := resolvedLibrary{Name: lib.Name}
		if lib.Downloads.Artifact != nil {
			artifact := lib.Downloads.Artifact
			r.ClasspathPath = filepath.Join(librariesDir, artifact.Path)
			r.ArtifactItem = &download.Item{
				URL:  artifact.URL,
				Path: r.ClasspathPath,
				SHA1: artifact.SHA1,
				Size: artifact.Size,
			}
		}

		if classifier, ok := lib.Natives[env.OSName]; ok && lib.Downloads.Classifiers != nil {
			if artifact, ok := lib.Downloads.Classifiers[classifier]; ok && artifact != nil {
				r.NativeItem = &download.Item{
					URL:  artifact.URL,
					Path: filepath.Join(librariesDir, artifact.Path),
					SHA1: artifact.SHA1,
					Size: artifact.Size,
				}
			}
		}

		if r.ClasspathPath == "" && r.NativeItem == nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// buildClasspath joins every non-empty classpath entry, in resolved's
// order (which is profile declaration order, not download-completion
// order), using sep (";" on Windows, ":" elsewhere).
func buildClasspath(resolved []resolvedLibrary, extra []string, sep string) string {
	var parts []string
	for _, r := range resolved {
		if r.ClasspathPath != "" {
			parts = append(parts, r.ClasspathPath)
		}
	}
	parts = append(parts, extra...)
	return strings.Join(parts, sep)
}
