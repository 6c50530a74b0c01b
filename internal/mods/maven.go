package mods

import (
	"strings"

	"github.com/gosimple/slug"

	"github.com/riftlabs/corelaunch/internal/corerr"
)

// MavenPath resolves a "group:artifact:version" coordinate to its
// on-disk/URL path:
//   - "CUSTOM:a:v" passes through as "CUSTOM/a/v" (the literal artifact
//     id with ':' replaced by '/', no filename expansion).
//   - "g:a:v" expands to "g/a/v/a-v.jar" with dots in the group segment
//     turned into path separators.
//
// Anything else (wrong segment count) is an InvalidVersionProfile error.
func MavenPath(artifact string) (string, error) {
	parts := strings.Split(artifact, ":")
	if len(parts) != 3 {
		return "", corerr.New(corerr.KindInvalidVersionProfile, "invalid artifact name: "+artifact, nil)
	}

	group, name, version := parts[0], parts[1], parts[2]

	if group == "CUSTOM" {
		return strings.ReplaceAll(artifact, ":", "/"), nil
	}

	return strings.ReplaceAll(group, ".", "/") + "/" + name + "/" + version + "/" + name + "-" + version + ".jar", nil
}

// ArtifactSlug derives the case-insensitive identity of a maven
// coordinate's middle (artifact-name) segment, used for mod/shader/
// resourcepack dedup. "CUSTOM:a:v" and "g:a:v" both use the middle
// segment; a coordinate that fails to split returns the slug of the whole
// string so dedup still degrades gracefully instead of panicking on a
// malformed source.
func ArtifactSlug(artifact string) string {
	parts := strings.Split(artifact, ":")
	if len(parts) != 3 {
		return slug.Make(artifact)
	}
	return slug.Make(parts[1])
}
