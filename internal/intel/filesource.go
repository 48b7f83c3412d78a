package intel

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// FileSource is a reputation feed backed by a local newline-delimited
// hostname list. Lines starting with '#' are comments. Every hit carries
// the feed's configured tier and severity; LastSeen is the file's
// modification time, which is how list-based feeds express freshness.
type FileSource struct {
	ref config.FeedRef

	loadOnce sync.Once
	loadErr  error
	hosts    map[string]bool
	modTime  time.Time
}

// NewFileSource builds a source over a feed reference. The file is loaded
// lazily on first query so construction never touches the filesystem.
func NewFileSource(ref config.FeedRef) *FileSource {
	return &FileSource{ref: ref}
}

func (f *FileSource) Name() string { return f.ref.Name }
func (f *FileSource) Tier() int    { return f.ref.Tier }

// Query reports a finding when the hostname, or any parent domain of it,
// appears in the feed.
func (f *FileSource) Query(_ context.Context, _ string, hostname string) ([]models.TIFinding, error) {
	f.loadOnce.Do(f.load)
	if f.loadErr != nil {
		return nil, f.loadErr
	}

	// example.com matches a listing of example.com; a.b.example.com walks
	// up through b.example.com and example.com.
	for h := hostname; h != ""; {
		if f.hosts[h] {
			return []models.TIFinding{{
				Severity: models.Severity(f.ref.Severity),
				LastSeen: f.modTime,
			}}, nil
		}
		idx := strings.IndexByte(h, '.')
		if idx < 0 {
			break
		}
		h = h[idx+1:]
	}
	return nil, nil
}

func (f *FileSource) load() {
	file, err := os.Open(f.ref.Path)
	if err != nil {
		f.loadErr = fmt.Errorf("intel: opening feed %s: %w", f.ref.Name, err)
		return
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil {
		f.modTime = info.ModTime()
	}

	f.hosts = make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f.hosts[strings.ToLower(line)] = true
	}
	if err := scanner.Err(); err != nil {
		f.loadErr = fmt.Errorf("intel: reading feed %s: %w", f.ref.Name, err)
	}
}
