package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOverlay_DestinationFor(t *testing.T) {
	o := &Overlay{gameDir: "/data/gameDir/main"}

	cosmetic := o.destinationFor("nrc-cosmetics/capes/a.png")
	want := filepath.Join("/data/gameDir/main", "NoRiskClient", "assets", "capes/a.png")
	if cosmetic != want {
		t.Errorf("destinationFor(cosmetic) = %q, want %q", cosmetic, want)
	}

	regular := o.destinationFor("resourcepacks/pack.zip")
	wantRegular := filepath.Join("/data/gameDir/main", "resourcepacks/pack.zip")
	if regular != wantRegular {
		t.Errorf("destinationFor(regular) = %q, want %q", regular, wantRegular)
	}
}

func TestOverlay_PrunesOrphanedCosmetics(t *testing.T) {
	gameDir := t.TempDir()
	cosmeticsDir := filepath.Join(gameDir, "NoRiskClient", "assets")
	if err := os.MkdirAll(cosmeticsDir, 0755); err != nil {
		t.Fatal(err)
	}

	// stale.png predates this overlay application and should be pruned.
	if err := os.WriteFile(filepath.Join(cosmeticsDir, "stale.png"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cosmeticsDir, "a.png"), []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cosmeticsDir, ".DS_Store"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	o := &Overlay{gameDir: gameDir}
	idx := OverlayIndex{"nrc-cosmetics/a.png": OverlayObject{Hash: "deadbeef", Size: 3}}

	if err := o.prune(idx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cosmeticsDir, "stale.png")); !os.IsNotExist(err) {
		t.Error("expected stale.png to be removed")
	}
	if _, err := os.Stat(filepath.Join(cosmeticsDir, "a.png")); err != nil {
		t.Error("expected a.png to remain")
	}
	if _, err := os.Stat(filepath.Join(cosmeticsDir, ".DS_Store")); err != nil {
		t.Error(".DS_Store should never be pruned")
	}
}

func TestOverlay_NonCosmeticSkippedWhenAlreadyPresent(t *testing.T) {
	gameDir := t.TempDir()
	existing := filepath.Join(gameDir, "options.txt")
	if err := os.WriteFile(existing, []byte("user content"), 0644); err != nil {
		t.Fatal(err)
	}

	o := NewOverlay(nil, gameDir, func(hash string) string { return "http://example/" + hash }, nil)
	idx := OverlayIndex{"options.txt": OverlayObject{Hash: "abc", Size: 1}}

	if err := o.Apply(context.Background(), idx, 1); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "user content" {
		t.Error("expected existing non-cosmetic file to be left untouched")
	}
}
