package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
)

func libraryWith(n int) (*tu.MockLibrary, []string) {
	lib := &tu.MockLibrary{}
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("playlist%d", i)
		ids = append(ids, id)
		lib.Playlists = append(lib.Playlists, models.Playlist{
			ID:    id,
			Title: fmt.Sprintf("Playlist %d", i),
			Type:  models.PlaylistRegular,
			Tracks: []models.Track{
				{ID: id + "-a", Title: "Song A", Artist: "Artist", Duration: 180},
				{ID: id + "-b", Title: "Song B", Artist: "Artist", Duration: 200},
			},
		})
	}
	return lib, ids
}

func TestBulkExport_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name           string
		format         string
		playlistCount  int
		validateResult func(t *testing.T, result *BulkExportResult, dir string)
	}{
		{
			name:          "single playlist json export",
			format:        "json",
			playlistCount: 1,
			validateResult: func(t *testing.T, result *BulkExportResult, dir string) {
				if len(result.Results[0].Files) != 1 {
					t.Errorf("expected 1 file, got %d", len(result.Results[0].Files))
				}
				tu.AssertFileExists(t, filepath.Join(dir, "playlist1.json"))
			},
		},
		{
			name:          "multiple playlists csv export",
			format:        "csv",
			playlistCount: 3,
			validateResult: func(t *testing.T, result *BulkExportResult, dir string) {
				for _, res := range result.Results {
					if len(res.Files) != 2 {
						t.Errorf("CSV export should create 2 files, got %d", len(res.Files))
					}
				}
				tu.AssertFileExists(t, filepath.Join(dir, "playlist3_tracks.csv"))
			},
		},
		{
			name:          "text export",
			format:        "text",
			playlistCount: 2,
			validateResult: func(t *testing.T, result *BulkExportResult, dir string) {
				content := tu.MustReadFile(t, filepath.Join(dir, "playlist2_tracks.txt"))
				if !strings.Contains(content, "Playlist: Playlist 2") {
					t.Errorf("unexpected text export %q", content)
				}
			},
		},
		{
			name:          "markdown export without cover",
			format:        "markdown",
			playlistCount: 2,
			validateResult: func(t *testing.T, result *BulkExportResult, dir string) {
				tu.AssertDirExists(t, filepath.Join(dir, "playlist1"))
				tu.AssertFileExists(t, filepath.Join(dir, "playlist1", "README.md"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			lib, ids := libraryWith(tt.playlistCount)

			result, err := NewExporter(lib, nil).BulkExport(context.Background(), nil, ids, BulkExportOpts{
				Format:    tt.format,
				OutputDir: dir,
				RateLimit: 100,
			})
			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}

			if result.SuccessfulExports != tt.playlistCount {
				t.Errorf("SuccessfulExports = %d, want %d", result.SuccessfulExports, tt.playlistCount)
			}
			if result.FailedExports != 0 {
				t.Errorf("FailedExports = %d, want 0", result.FailedExports)
			}
			if len(result.Results) != tt.playlistCount {
				t.Fatalf("expected %d results, got %d", tt.playlistCount, len(result.Results))
			}
			tu.AssertFileExists(t, result.ManifestPath)
			tt.validateResult(t, result, dir)
		})
	}
}

func TestBulkExport_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	lib, ids := libraryWith(2)
	ids = []string{ids[0], "missing", ids[1]}

	result, err := NewExporter(lib, nil).BulkExport(context.Background(), nil, ids, BulkExportOpts{
		OutputDir:  dir,
		RateLimit:  100,
		NumWorkers: 2,
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if result.SuccessfulExports != 2 || result.FailedExports != 1 {
		t.Errorf("got %d ok / %d failed, want 2 / 1", result.SuccessfulExports, result.FailedExports)
	}

	for i, want := range ids {
		if result.Results[i].PlaylistID != want {
			t.Errorf("result %d is %s, want %s", i, result.Results[i].PlaylistID, want)
		}
	}

	failed := result.Results[1]
	if failed.Success || !errors.Is(failed.Error, shared.ErrPlaylistNotFound) {
		t.Errorf("expected a not-found failure, got %+v", failed)
	}

	var manifest BulkExportResult
	if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if manifest.FailedExports != 1 || manifest.Format != "json" {
		t.Errorf("unexpected manifest %+v", manifest)
	}
	if !strings.Contains(manifest.Results[1].Message, "failed to fetch playlist") {
		t.Errorf("expected failure message in manifest, got %q", manifest.Results[1].Message)
	}
}

func TestBulkExport_Cover(t *testing.T) {
	dir := t.TempDir()
	lib, ids := libraryWith(1)
	lib.Playlists[0].ImageName = "cover.png"

	var asked []string
	_, err := NewExporter(lib, nil).BulkExport(context.Background(), nil, ids, BulkExportOpts{
		Format:    "markdown",
		OutputDir: dir,
		RateLimit: 100,
		Cover: func(ctx context.Context, name string) (string, error) {
			asked = append(asked, name)
			return "", errors.New("offline")
		},
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if len(asked) != 1 || asked[0] != "cover.png" {
		t.Errorf("expected cover lookup for cover.png, got %v", asked)
	}
	if content := tu.MustReadFile(t, filepath.Join(dir, "playlist1", "README.md")); strings.Contains(content, "![Cover]") {
		t.Error("expected no cover reference when the lookup fails")
	}
}

func TestBulkExport_Progress(t *testing.T) {
	lib, ids := libraryWith(3)
	prog := make(chan ProgressUpdate, 32)

	_, err := NewExporter(lib, nil).BulkExport(context.Background(), prog, ids, BulkExportOpts{
		OutputDir: t.TempDir(),
		RateLimit: 100,
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	close(prog)

	phases := map[Phase]int{}
	for u := range prog {
		phases[u.Phase]++
	}
	if phases[FetchPlaylists] != 1 {
		t.Errorf("expected one fetch update, got %d", phases[FetchPlaylists])
	}
	// one update when a playlist is queued and one when it is written
	if phases[ExportPlaylist] != 6 {
		t.Errorf("expected 6 export updates, got %d", phases[ExportPlaylist])
	}
	if phases[WriteManifest] != 1 {
		t.Errorf("expected one manifest update, got %d", phases[WriteManifest])
	}
}

func TestBulkExport_Errors(t *testing.T) {
	t.Run("nil library", func(t *testing.T) {
		_, err := NewExporter(nil, nil).BulkExport(context.Background(), nil, []string{"x"}, BulkExportOpts{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		lib, ids := libraryWith(1)
		_, err := NewExporter(lib, nil).BulkExport(context.Background(), nil, ids, BulkExportOpts{
			Format:    "xml",
			OutputDir: t.TempDir(),
		})
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		lib, ids := libraryWith(3)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		dir := t.TempDir()
		result, err := NewExporter(lib, nil).BulkExport(ctx, nil, ids, BulkExportOpts{OutputDir: dir})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result == nil || len(result.Results) == len(ids) {
			t.Errorf("expected a partial result, got %+v", result)
		}
		if _, err := os.Stat(filepath.Join(dir, "export_manifest.json")); !os.IsNotExist(err) {
			t.Error("expected no manifest for an interrupted export")
		}
	})
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchPlaylists: "fetch_playlists",
		ExportPlaylist: "export_playlist",
		WriteManifest:  "write_manifest",
		Phase(99):      "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
