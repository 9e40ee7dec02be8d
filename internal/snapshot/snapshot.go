// Package snapshot reads and writes per-period analytics snapshots for a
// client. It stands in for the live GA4 and Search Console collaborators:
// each period's data lives in
//
//	<root>/<client>/<YYYY-MM-DD>_<YYYY-MM-DD>/{ga4,gsc}.{json,yaml,yml}
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/quarterly/internal/cache"
	"github.com/panbanda/quarterly/pkg/config"
	"github.com/panbanda/quarterly/pkg/models"
)

var (
	// ErrUnavailable means the source has no data for the request.
	ErrUnavailable = errors.New("snapshot unavailable")
	// ErrInvalid means a snapshot file exists but cannot be used.
	ErrInvalid = errors.New("invalid snapshot")
)

// Kind names a snapshot source.
type Kind string

const (
	KindGA4 Kind = "ga4"
	KindGSC Kind = "gsc"
)

// Kinds lists every snapshot kind.
var Kinds = []Kind{KindGA4, KindGSC}

var extensions = []string{".json", ".yaml", ".yml"}

// Meta describes the file a snapshot was read from.
type Meta struct {
	Kind   Kind   `json:"kind"`
	Path   string `json:"path"`
	Digest string `json:"digest"`
	Period string `json:"period"`
}

// Store is a file-backed snapshot source. It is safe for concurrent reads.
type Store struct {
	root      string
	validator *Validator
}

// Option configures a Store.
type Option func(*Store)

// WithValidator checks every loaded document against v.
func WithValidator(v *Validator) Option {
	return func(s *Store) {
		s.validator = v
	}
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{root: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

// Dir returns the directory holding one client's period.
func (s *Store) Dir(client string, p models.DatePeriod) string {
	return filepath.Join(s.root, client, PeriodDir(p))
}

// PeriodDir names the directory for a period.
func PeriodDir(p models.DatePeriod) string {
	return p.StartDate() + "_" + p.EndDate()
}

// GA4 loads the web analytics snapshot for a period.
func (s *Store) GA4(ctx context.Context, client string, p models.DatePeriod) (*models.GA4Snapshot, Meta, error) {
	var snap models.GA4Snapshot
	meta, err := s.load(ctx, client, KindGA4, p, &snap)
	if err != nil {
		return nil, meta, err
	}
	return &snap, meta, nil
}

// GSC loads the search console snapshot for a period.
func (s *Store) GSC(ctx context.Context, client string, p models.DatePeriod) (*models.GSCSnapshot, Meta, error) {
	var snap models.GSCSnapshot
	meta, err := s.load(ctx, client, KindGSC, p, &snap)
	if err != nil {
		return nil, meta, err
	}
	return &snap, meta, nil
}

func (s *Store) load(ctx context.Context, client string, kind Kind, p models.DatePeriod, dst any) (Meta, error) {
	meta := Meta{Kind: kind, Period: p.String()}
	if err := ctx.Err(); err != nil {
		return meta, err
	}

	if err := config.ValidateClientName(client); err != nil {
		return meta, err
	}

	log := zerolog.Ctx(ctx).With().Str("client", client).Str("kind", string(kind)).Str("period", p.String()).Logger()

	path, err := s.find(client, kind, p)
	if err != nil {
		log.Debug().Msg("snapshot not found")
		return meta, err
	}
	meta.Path = path

	raw, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("read %s: %w", path, err)
	}
	meta.Digest = cache.HashBytes(raw)

	doc, err := normalize(path, raw)
	if err != nil {
		return meta, fmt.Errorf("%s: %w", path, err)
	}
	if s.validator != nil {
		if err := s.validator.Validate(kind, doc); err != nil {
			return meta, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return meta, fmt.Errorf("%s: %w: %v", path, ErrInvalid, err)
	}

	log.Debug().Str("path", path).Str("digest", meta.Digest[:12]).Msg("loaded snapshot")
	return meta, nil
}

func (s *Store) find(client string, kind Kind, p models.DatePeriod) (string, error) {
	dir := s.Dir(client, p)
	for _, ext := range extensions {
		path := filepath.Join(dir, string(kind)+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no %s data for %s in %s", ErrUnavailable, kind, p, dir)
}

// normalize converts YAML documents to JSON so both formats share one
// decoder and one schema.
func normalize(path string, raw []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		return json.Marshal(doc)
	default:
		if !json.Valid(raw) {
			return nil, fmt.Errorf("%w: malformed JSON", ErrInvalid)
		}
		return raw, nil
	}
}

// Save writes a snapshot as indented JSON and returns its path.
func (s *Store) Save(client string, kind Kind, p models.DatePeriod, snap any) (string, error) {
	if err := config.ValidateClientName(client); err != nil {
		return "", err
	}
	dir := s.Dir(client, p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %q: %w", dir, err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, string(kind)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Clients lists client directories under the store root.
func (s *Store) Clients() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Periods lists the periods stored for a client, oldest first.
// Directories that do not follow the naming scheme are ignored.
func (s *Store) Periods(client string) ([]models.DatePeriod, error) {
	if err := config.ValidateClientName(client); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, client))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var periods []models.DatePeriod
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, ok := parsePeriodDir(e.Name())
		if ok {
			periods = append(periods, p)
		}
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})
	return periods, nil
}

func parsePeriodDir(name string) (models.DatePeriod, bool) {
	a, b, ok := strings.Cut(name, "_")
	if !ok {
		return models.DatePeriod{}, false
	}
	start, err := time.Parse(models.DateLayout, a)
	if err != nil {
		return models.DatePeriod{}, false
	}
	end, err := time.Parse(models.DateLayout, b)
	if err != nil || end.Before(start) {
		return models.DatePeriod{}, false
	}
	return models.NewDatePeriod(start, end, a+" to "+b), true
}
