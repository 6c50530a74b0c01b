package mods

import (
	"context"
	"os"
	"path/filepath"
)

// InstallShaders materialises shader packs into shaderpacks/ with
// per-collection slug dedup.
func (m *Materialiser) InstallShaders(ctx context.Context, shaders []LoaderMod) error {
	return m.installCollection(ctx, shaders, filepath.Join(m.gameDir, "shaderpacks"))
}

// InstallResourcePacks materialises resourcepacks into resourcepacks/.
func (m *Materialiser) InstallResourcePacks(ctx context.Context, packs []LoaderMod) error {
	return m.installCollection(ctx, packs, filepath.Join(m.gameDir, "resourcepacks"))
}

// InstallDatapacks materialises datapacks by basename into
// saves/<worldName>/datapacks/.
func (m *Materialiser) InstallDatapacks(ctx context.Context, worldName string, packs []LoaderMod) error {
	dest := filepath.Join(m.gameDir, "saves", worldName, "datapacks")
	return m.installCollection(ctx, packs, dest)
}

func (m *Materialiser) installCollection(ctx context.Context, items []LoaderMod, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}

	seen := make(map[string]struct{})
	for _, item := range items {
		slug := item.Slug()
		if _, dup := seen[slug]; dup {
			continue
		}
		if err := m.fetchAndCopy(ctx, item, destDir); err != nil {
			return err
		}
		seen[slug] = struct{}{}
	}
	return nil
}

// RemoveShader deletes a shader jar and its companion Iris/Optifine
// "<name>.txt" settings file.
func (m *Materialiser) RemoveShader(name string) error {
	shaderDir := filepath.Join(m.gameDir, "shaderpacks")
	if err := os.Remove(filepath.Join(shaderDir, name+".jar")); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(filepath.Join(shaderDir, name+".txt")); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
