// Package relay downloads a report from a drive, converts it to Markdown and
// uploads the result to the configured target folder.
package relay

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/convert"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/graph"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/ledger"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultUploadConcurrency = 4

var (
	ErrMissingDriveID  = errors.New("driveId is required")
	ErrMissingItemPath = errors.New("itemPath is required")
	ErrNoTargetFolder  = errors.New("target folder is not configured")
	ErrLedgerDisabled  = errors.New("run ledger is not configured")
	ErrNoHistory       = errors.New("run ledger does not keep history")
)

// Request is the trigger payload.
type Request struct {
	DriveID  string `json:"driveId"`
	ItemPath string `json:"itemPath"`
}

type Result struct {
	InputFile string       `json:"inputFile"`
	Parser    string       `json:"parser"`
	Rows      int          `json:"rows"`
	Skipped   int          `json:"skipped"`
	Count     int          `json:"count"`
	Uploaded  []string     `json:"uploaded"`
	Items     []graph.Item `json:"items"`
}

type Options struct {
	// DriveID is used when a request does not name a drive.
	DriveID           string
	TargetFolderID    string
	OutputMode        convert.Mode
	UploadConcurrency int
}

type Service struct {
	connector graph.Connector
	ledger    ledger.Ledger
	opts      Options
	now       func() time.Time
}

func NewService(connector graph.Connector, l ledger.Ledger, opts Options) *Service {
	if l == nil {
		l = ledger.Noop{}
	}
	if opts.UploadConcurrency <= 0 {
		opts.UploadConcurrency = defaultUploadConcurrency
	}
	if opts.OutputMode == "" {
		opts.OutputMode = convert.ModeBundle
	}
	return &Service{connector: connector, ledger: l, opts: opts, now: time.Now}
}

// Relay runs one invocation: authenticate, download itemPath, convert it and
// upload the documents. Nothing remote is touched when the request is invalid
// and nothing is read or written when authentication fails.
func (s *Service) Relay(ctx context.Context, req Request) (*Result, error) {
	driveID, itemPath, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	if s.opts.TargetFolderID == "" {
		return nil, newError(KindInternal, "validate", ErrNoTargetFolder)
	}

	logger := log.With().Str("drive_id", driveID).Str("item_path", itemPath).Logger()

	drive, err := s.connector.Connect(ctx)
	if err != nil {
		return nil, newError(KindAuth, "authenticate", err)
	}

	raw, err := drive.DownloadByPath(ctx, driveID, itemPath)
	if err != nil {
		return nil, newError(graphKind(err), "download "+itemPath, err)
	}
	logger.Info().Int("bytes", len(raw)).Msg("relay: report downloaded")

	inputFile := path.Base(itemPath)
	out, err := convert.Convert(inputFile, raw, convert.Options{Mode: s.opts.OutputMode})
	if err != nil {
		return nil, newError(KindParse, "convert "+inputFile, err)
	}
	logger.Info().
		Str("parser", string(out.Parser)).
		Str("encoding", out.Encoding).
		Int("rows", out.Rows).
		Int("skipped", out.Skipped).
		Int("documents", len(out.Documents)).
		Msg("relay: report converted")

	items, err := s.upload(ctx, drive, driveID, out.Documents)
	if err != nil {
		return nil, newError(uploadKind(err), "upload", err)
	}

	res := &Result{
		InputFile: inputFile,
		Parser:    string(out.Parser),
		Rows:      out.Rows,
		Skipped:   out.Skipped,
		Count:     len(items),
		Uploaded:  make([]string, 0, len(items)),
		Items:     items,
	}
	for _, it := range items {
		res.Uploaded = append(res.Uploaded, it.Name)
	}
	logger.Info().Int("uploaded", res.Count).Str("folder_id", s.opts.TargetFolderID).Msg("relay: documents uploaded")

	entry := ledger.Entry{
		InputFile:   inputFile,
		ItemPath:    itemPath,
		DriveID:     driveID,
		Parser:      res.Parser,
		Uploaded:    res.Uploaded,
		ProcessedAt: s.now().UTC(),
	}
	if err := s.ledger.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Msg("relay: ledger record failed")
	}

	return res, nil
}

// Last returns the most recently recorded run.
func (s *Service) Last(ctx context.Context) (*ledger.Entry, error) {
	if _, ok := s.ledger.(ledger.Noop); ok {
		return nil, ErrLedgerDisabled
	}
	return s.ledger.Last(ctx)
}

// History returns up to limit previous runs, newest first.
func (s *Service) History(ctx context.Context, limit int64) ([]ledger.Entry, error) {
	if _, ok := s.ledger.(ledger.Noop); ok {
		return nil, ErrLedgerDisabled
	}
	h, ok := s.ledger.(ledger.Historian)
	if !ok {
		return nil, ErrNoHistory
	}
	return h.History(ctx, limit)
}

func (s *Service) resolve(req Request) (string, string, error) {
	driveID := strings.TrimSpace(req.DriveID)
	if driveID == "" {
		driveID = s.opts.DriveID
	}
	itemPath := strings.TrimLeft(strings.TrimSpace(req.ItemPath), "/")

	switch {
	case driveID == "":
		return "", "", newError(KindInvalidInput, "validate", ErrMissingDriveID)
	case itemPath == "":
		return "", "", newError(KindInvalidInput, "validate", ErrMissingItemPath)
	}
	return driveID, itemPath, nil
}

// upload writes docs to the target folder, at most UploadConcurrency at a
// time. The first failure cancels the remaining uploads. Items keep the order
// of docs.
func (s *Service) upload(ctx context.Context, drive graph.Drive, driveID string, docs []convert.Document) ([]graph.Item, error) {
	items := make([]graph.Item, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.UploadConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			item, err := drive.UploadToFolder(gctx, driveID, s.opts.TargetFolderID, doc.Name, doc.Content)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Name, err)
			}
			if item == nil {
				item = &graph.Item{Name: doc.Name}
			}
			items[i] = *item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// uploadKind classifies write failures. A missing target folder is an
// upstream failure, not a missing source report.
func uploadKind(err error) Kind {
	if errors.Is(err, graph.ErrAuth) {
		return KindAuth
	}
	return KindUpstream
}

func graphKind(err error) Kind {
	switch {
	case errors.Is(err, graph.ErrItemNotFound):
		return KindNotFound
	case errors.Is(err, graph.ErrAuth):
		return KindAuth
	default:
		return KindUpstream
	}
}
