// package formatter renders durations and search highlights, and exports track listings to CSV, Markdown, and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/desertthunder/encore/internal/models"
)

// FormatDuration renders seconds as m:ss. Negative values render as 0:00.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		return "0:00"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatTime renders d as m:ss, truncated to whole seconds.
func FormatTime(d time.Duration) string {
	return FormatDuration(int(d / time.Second))
}

// Segment is a run of text that either matches a search query or does not.
type Segment struct {
	Text  string
	Match bool
}

// Highlight splits text around case-insensitive occurrences of query. The query is matched literally.
// An empty query yields the whole text as a single unmatched segment.
func Highlight(text, query string) []Segment {
	if query == "" || text == "" {
		return []Segment{{Text: text}}
	}

	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []Segment{{Text: text}}
	}

	segments := make([]Segment, 0, len(matches)*2+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			segments = append(segments, Segment{Text: text[last:m[0]]})
		}
		segments = append(segments, Segment{Text: text[m[0]:m[1]], Match: true})
		last = m[1]
	}
	if last < len(text) {
		segments = append(segments, Segment{Text: text[last:]})
	}
	return segments
}

// Listing is a titled, ordered set of tracks to export: a playlist or the whole library.
type Listing struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Favorites  bool           `json:"favorites,omitempty"`
	CoverImage string         `json:"cover_image,omitempty"`
	Tracks     []models.Track `json:"tracks,omitempty"`
}

// PlaylistListing builds a Listing from a playlist and its tracks.
func PlaylistListing(p models.Playlist) *Listing {
	return &Listing{
		ID:         p.ID,
		Title:      p.Title,
		Favorites:  p.IsFavorites(),
		CoverImage: p.ImageName,
		Tracks:     p.Tracks,
	}
}

// LibraryListing builds a Listing for every track in the library.
func LibraryListing(tracks []models.Track) *Listing {
	return &Listing{ID: "library", Title: "All Tracks", Tracks: tracks}
}

// TotalDuration is the sum of track durations in seconds.
func (l *Listing) TotalDuration() int {
	total := 0
	for _, t := range l.Tracks {
		total += t.Duration
	}
	return total
}

// ExportToCSV converts a Listing to CSV format with columns: ID, Title, Artist, Duration, Favorite, TrackName
func ExportToCSV(l *Listing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Duration", "Favorite", "TrackName"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range l.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			strconv.Itoa(track.Duration),
			strconv.FormatBool(track.Favorite),
			track.TrackName,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Listing to Markdown format with optional cover image
func ExportToMarkdown(l *Listing, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", l.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(l.Tracks))
	fmt.Fprintf(&buf, "**Duration**: %s\n\n", FormatDuration(l.TotalDuration()))

	buf.WriteString("## Tracks\n\n")
	for i, track := range l.Tracks {
		star := ""
		if track.Favorite && !l.Favorites {
			star = " ★"
		}
		fmt.Fprintf(&buf, "%d. %s - %s [%s]%s\n", i+1, track.Artist, track.Title, FormatDuration(track.Duration), star)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Listing to plain text format
func ExportToText(l *Listing) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", l.Title)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(l.Tracks))

	for i, track := range l.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a Listing to indented JSON, tracks included
func ExportToJSON(l *Listing) ([]byte, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal listing: %w", err)
	}
	return data, nil
}

// ToMetadataJSON generates a JSON representation of listing metadata (without tracks)
func ToMetadataJSON(l *Listing) ([]byte, error) {
	meta := *l
	meta.Tracks = nil

	data, err := json.MarshalIndent(struct {
		Listing
		TrackCount int `json:"track_count"`
		Duration   int `json:"duration"`
	}{meta, len(l.Tracks), l.TotalDuration()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a listing to CSV format with accompanying metadata JSON file.
//
// Defaults to the listing ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(l *Listing, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = l.ID
	}

	csvData, err := ExportToCSV(l)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(l)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a listing to Markdown format in a dedicated directory.
//
// Directory name defaults to the listing ID.
// The imageURL parameter is optional - if provided, attempts to download the cover image.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(l *Listing, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = l.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := fmt.Sprintf("%s/%s", outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(l, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a listing to plain text format.
//
// Defaults to {listing.ID}_tracks.txt as the filename.
func WriteTextExport(l *Listing, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_tracks.txt", l.ID)
	}

	textData, err := ExportToText(l)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
