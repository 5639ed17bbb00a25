package downloader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	jpdicterrors "github.com/birchill/hikibiki-data/pkg/errors"
	"github.com/birchill/hikibiki-data/pkg/seriesspec"
	"github.com/birchill/hikibiki-data/pkg/types"
)

// Config configures a Downloader.
type Config struct {
	BaseURL string
	Client  *http.Client

	// MaxProgressResolution is the minimum advance in
	// recordsRead/totalRecords between two progress events. Zero uses
	// DefaultMaxProgressResolution.
	MaxProgressResolution float64

	// StallTimeout bounds how long the stream may go without reading a
	// line before it cancels itself. Zero uses DefaultStallTimeout.
	StallTimeout time.Duration
}

// Downloader turns (series, major version, language, current version)
// into a Stream of typed events, per §4.2.
type Downloader struct {
	cfg       Config
	manifests *manifestCache
}

// New constructs a Downloader from cfg, filling in defaults.
func New(cfg Config) *Downloader {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxProgressResolution <= 0 {
		cfg.MaxProgressResolution = DefaultMaxProgressResolution
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = DefaultStallTimeout
	}
	return &Downloader{
		cfg:       cfg,
		manifests: newManifestCache(cfg.BaseURL, cfg.Client),
	}
}

// Request names one download attempt.
type Request struct {
	Series       types.Series
	MajorVersion int
	Lang         string
	Current      types.Version
	HasCurrent   bool
	ForceFetch   bool // bypass the cached manifest for Lang
}

// Download starts a lazy, cancellable stream of events for req. The
// caller must range over Stream.Events() until it closes, then check
// Stream.Err().
func (d *Downloader) Download(ctx context.Context, req Request) (*Stream, error) {
	m, err := d.manifests.fetch(ctx, req.Lang, req.ForceFetch)
	if err != nil {
		return nil, err
	}

	entry, err := entryFor(m, req.Series, req.MajorVersion)
	if err != nil {
		return nil, err
	}

	files, err := plan(entry, req.Current, req.HasCurrent)
	if err != nil {
		return nil, err
	}

	spec, err := seriesspec.ForSeries(req.Series)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := &Stream{
		events: make(chan Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go d.run(streamCtx, req, entry, spec, files, s)

	return s, nil
}

func (d *Downloader) run(ctx context.Context, req Request, entry manifestEntry, spec seriesspec.Spec, files []fileSpec, s *Stream) {
	defer close(s.events)
	defer close(s.done)

	wd := newStallWatchdog(d.cfg.StallTimeout, s.cancel)
	defer wd.Stop()

	for _, f := range files {
		select {
		case <-ctx.Done():
			s.err = jpdicterrors.ErrAbort
			return
		default:
		}

		if err := d.runFile(ctx, req, entry, spec, f, s, wd); err != nil {
			s.err = err
			return
		}
	}
}

// runFile streams one file: GET, then incrementally parse its header
// followed by entry/deletion lines, emitting events as it goes. It never
// buffers the body beyond the scanner's line-sized window.
func (d *Downloader) runFile(ctx context.Context, req Request, entry manifestEntry, spec seriesspec.Spec, f fileSpec, s *Stream, wd *stallWatchdog) error {
	url := fmt.Sprintf("%s%s-rc-%s-%d.%d.%d-%s.ljson",
		d.cfg.BaseURL, req.Series.String(), req.Lang, entry.Major, entry.Minor, f.Patch, f.FileType)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", jpdicterrors.ErrDataFileNotAccessible, err)
	}

	resp, err := d.cfg.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", jpdicterrors.ErrDataFileNotAccessible, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return jpdicterrors.ErrDataFileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", jpdicterrors.ErrDataFileNotAccessible, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	scanner.Split(splitLJSONLines)

	var header *ljsonHeader
	recordsRead := 0
	lastProgressRatio := 0.0
	sawHeader := false

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return jpdicterrors.ErrAbort
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		wd.Reset()

		if header == nil {
			h, err := parseHeader(line)
			if err != nil {
				return err
			}
			if h.Version.Major != entry.Major || h.Version.Minor != entry.Minor || h.Version.Patch != f.Patch {
				return jpdicterrors.ErrVersionMismatch
			}
			header = h
			sawHeader = true

			s.send(ctx, Event{
				Kind:    EventVersion,
				Partial: f.FileType == FileTypePatch,
				Version: types.Version{
					Major:           header.Version.Major,
					Minor:           header.Version.Minor,
					Patch:           header.Version.Patch,
					DatabaseVersion: header.Version.DatabaseVersion,
					DateOfCreation:  header.Version.DateOfCreation,
					Lang:            req.Lang,
				},
			})
			continue
		}

		if isHeaderLine(line) {
			return jpdicterrors.ErrHeaderDuplicate
		}

		raw := append([]byte(nil), line...)

		switch {
		case spec.IsEntry(raw):
			s.send(ctx, Event{Kind: EventEntry, Raw: raw})
		case spec.IsDeletion(raw):
			if f.FileType == FileTypeFull {
				return jpdicterrors.ErrDeletionInSnapshot
			}
			s.send(ctx, Event{Kind: EventDeletion, Raw: raw})
		default:
			return jpdicterrors.ErrInvalidRecord
		}

		recordsRead++
		if header.Records > 0 {
			ratio := float64(recordsRead) / float64(header.Records)
			if ratio-lastProgressRatio >= d.cfg.MaxProgressResolution || recordsRead == header.Records {
				lastProgressRatio = ratio
				s.send(ctx, Event{Kind: EventProgress, Loaded: recordsRead, Total: header.Records})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", jpdicterrors.ErrDataFileNotAccessible, err)
	}
	if !sawHeader {
		return jpdicterrors.ErrHeaderMissing
	}

	s.send(ctx, Event{Kind: EventVersionEnd})
	return nil
}

// ljsonHeader is line 1 of every .ljson file, per §6.2:
//
//	{"type":"header","version":{"major":N,"minor":N,"patch":N,"databaseVersion":"...","dateOfCreation":"..."},"records":N}
type ljsonHeader struct {
	Type    string `json:"type"`
	Version struct {
		Major           int    `json:"major"`
		Minor           int    `json:"minor"`
		Patch           int    `json:"patch"`
		DatabaseVersion string `json:"databaseVersion,omitempty"`
		DateOfCreation  string `json:"dateOfCreation"`
	} `json:"version"`
	Records int `json:"records"`
}

func isHeaderLine(line []byte) bool {
	var probe struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(line, &probe) == nil && probe.Type == "header"
}

func parseHeader(line []byte) (*ljsonHeader, error) {
	var h ljsonHeader
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", jpdicterrors.ErrInvalidJSON, err)
	}
	if h.Type != "header" {
		return nil, jpdicterrors.ErrHeaderMissing
	}
	return &h, nil
}
