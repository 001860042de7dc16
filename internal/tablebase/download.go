package tablebase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/kingfisher/internal/board"
	"github.com/hailam/kingfisher/internal/storage"
)

// Downloader fetches Syzygy tablebase files from the Lichess mirror into
// a local directory. Files are downloaded to a temp name and renamed into
// place, so an interrupted download never leaves a truncated table.
type Downloader struct {
	Dir      string
	BaseURL  string
	Client   *http.Client
	Parallel int // concurrent downloads
}

func NewDownloader(dir string) *Downloader {
	if dir == "" {
		if d, err := storage.SyzygyDir(); err == nil {
			dir = d
		} else {
			dir = "./syzygy"
		}
	}
	return &Downloader{
		Dir:      dir,
		BaseURL:  "https://tablebase.lichess.ovh/tables/standard/",
		Client:   &http.Client{Timeout: 5 * time.Minute},
		Parallel: 4,
	}
}

// FivePieceTables lists the material signatures of the full 5-piece set,
// roughly 939 MB across WDL and DTZ files.
var FivePieceTables = []string{
	"KQvK", "KRvK", "KBvK", "KNvK", "KPvK",
	"KQQvK", "KQRvK", "KQBvK", "KQNvK", "KQPvK",
	"KRRvK", "KRBvK", "KRNvK", "KRPvK",
	"KBBvK", "KBNvK", "KBPvK",
	"KNNvK", "KNPvK",
	"KPPvK",
	"KQvKQ", "KQvKR", "KQvKB", "KQvKN", "KQvKP",
	"KRvKR", "KRvKB", "KRvKN", "KRvKP",
	"KBvKB", "KBvKN", "KBvKP",
	"KNvKN", "KNvKP",
	"KPvKP",
	"KQQvKQ", "KQQvKR", "KQQvKB", "KQQvKN", "KQQvKP",
	"KQRvKQ", "KQRvKR", "KQRvKB", "KQRvKN", "KQRvKP",
	"KQBvKQ", "KQBvKR", "KQBvKB", "KQBvKN", "KQBvKP",
	"KQNvKQ", "KQNvKR", "KQNvKB", "KQNvKN", "KQNvKP",
	"KQPvKQ", "KQPvKR", "KQPvKB", "KQPvKN", "KQPvKP",
	"KRRvKQ", "KRRvKR", "KRRvKB", "KRRvKN", "KRRvKP",
	"KRBvKQ", "KRBvKR", "KRBvKB", "KRBvKN", "KRBvKP",
	"KRNvKQ", "KRNvKR", "KRNvKB", "KRNvKN", "KRNvKP",
	"KRPvKQ", "KRPvKR", "KRPvKB", "KRPvKN", "KRPvKP",
	"KBBvKQ", "KBBvKR", "KBBvKB", "KBBvKN", "KBBvKP",
	"KBNvKQ", "KBNvKR", "KBNvKB", "KBNvKN", "KBNvKP",
	"KBPvKQ", "KBPvKR", "KBPvKB", "KBPvKN", "KBPvKP",
	"KNNvKQ", "KNNvKR", "KNNvKB", "KNNvKN", "KNNvKP",
	"KNPvKQ", "KNPvKR", "KNPvKB", "KNPvKN", "KNPvKP",
	"KPPvKQ", "KPPvKR", "KPPvKB", "KPPvKN", "KPPvKP",
}

// Progress reports the state of one file download.
type Progress struct {
	File          string
	BytesReceived int64
	TotalBytes    int64
	Done          bool
	Error         error
}

// HasTable reports whether both the WDL and DTZ file for a material
// signature are present.
func (d *Downloader) HasTable(name string) bool {
	_, wdlErr := os.Stat(filepath.Join(d.Dir, name+".rtbw"))
	_, dtzErr := os.Stat(filepath.Join(d.Dir, name+".rtbz"))
	return wdlErr == nil && dtzErr == nil
}

// DownloadTable fetches the WDL and DTZ files for one material signature.
func (d *Downloader) DownloadTable(ctx context.Context, name string, progress chan<- Progress) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	if err := d.fetch(ctx, d.BaseURL+"wdl/"+name+".rtbw", name+".rtbw", progress); err != nil {
		return fmt.Errorf("wdl table %s: %w", name, err)
	}
	if err := d.fetch(ctx, d.BaseURL+"dtz/"+name+".rtbz", name+".rtbz", progress); err != nil {
		return fmt.Errorf("dtz table %s: %w", name, err)
	}
	return nil
}

// DownloadFivePiece fetches every missing 5-piece table, several files in
// flight at once. The first failure cancels the remaining downloads.
func (d *Downloader) DownloadFivePiece(ctx context.Context, progress chan<- Progress) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Parallel)

	for _, name := range FivePieceTables {
		if d.HasTable(name) {
			continue
		}
		name := name
		g.Go(func() error {
			return d.DownloadTable(ctx, name, progress)
		})
	}
	return g.Wait()
}

func (d *Downloader) fetch(ctx context.Context, url, file string, progress chan<- Progress) error {
	path := filepath.Join(d.Dir, file)
	if _, err := os.Stat(path); err == nil {
		report(progress, Progress{File: file, Done: true})
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d for %s", resp.StatusCode, url)
	}

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				os.Remove(tmp)
				return werr
			}
			written += int64(n)
			report(progress, Progress{File: file, BytesReceived: written, TotalBytes: resp.ContentLength})
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			os.Remove(tmp)
			return rerr
		}
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}

	report(progress, Progress{File: file, Done: true})
	return nil
}

func report(progress chan<- Progress, p Progress) {
	if progress != nil {
		progress <- p
	}
}

// AvailableTables returns the material signatures with both files present,
// sorted.
func (d *Downloader) AvailableTables() []string {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil
	}

	seen := make(map[string]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".rtbw"):
			seen[strings.TrimSuffix(name, ".rtbw")]++
		case strings.HasSuffix(name, ".rtbz"):
			seen[strings.TrimSuffix(name, ".rtbz")]++
		}
	}

	var tables []string
	for base, count := range seen {
		if count >= 2 {
			tables = append(tables, base)
		}
	}
	sort.Strings(tables)
	return tables
}

// MaxPiecesAvailable returns the largest piece count covered by the local
// tables, or 0 when none are present.
func (d *Downloader) MaxPiecesAvailable() int {
	maxPieces := 0
	for _, name := range d.AvailableTables() {
		if n := piecesInName(name); n > maxPieces {
			maxPieces = n
		}
	}
	return maxPieces
}

// piecesInName counts the pieces in a signature like "KQRvKR".
func piecesInName(name string) int {
	count := 0
	for _, c := range name {
		switch c {
		case 'K', 'Q', 'R', 'B', 'N', 'P':
			count++
		}
	}
	return count
}

// MaterialKey returns the position's material signature in tablebase
// naming order, strongest piece first, white before black.
func MaterialKey(pos *board.Position) string {
	var sb strings.Builder
	chars := [6]byte{'P', 'N', 'B', 'R', 'Q', 'K'}

	for _, c := range [2]board.Color{board.White, board.Black} {
		sb.WriteByte('K')
		for pt := board.Queen; ; pt-- {
			for i := pos.Pieces[c][pt].PopCount(); i > 0; i-- {
				sb.WriteByte(chars[pt])
			}
			if pt == board.Pawn {
				break
			}
		}
		if c == board.White {
			sb.WriteByte('v')
		}
	}
	return sb.String()
}
