// Package service orchestrates validation, encoding, and persistence for
// codes. Handlers call into here; nothing in this package touches HTTP.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/koda/internal/metrics"
	"github.com/erazemk/koda/internal/model"
	"github.com/erazemk/koda/internal/qr"
	"github.com/erazemk/koda/internal/shortpath"
	"github.com/erazemk/koda/internal/store"
)

// mintAttempts bounds retries when a minted short path collides.
const mintAttempts = 3

// Style bounds. Anything larger produces absurd images and is rejected
// rather than clamped.
const (
	maxScale  = 64
	maxBorder = 32
)

// Listing page bounds.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service implements the code lifecycle over the store.
type Service struct {
	db      *sql.DB
	baseURL string

	mint func() (string, error)
	now  func() time.Time
}

// New creates a service. baseURL is the public address dynamic codes point
// at, e.g. "https://ko.da".
func New(db *sql.DB, baseURL string) *Service {
	return &Service{
		db:      db,
		baseURL: strings.TrimRight(baseURL, "/"),
		mint:    shortpath.New,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateStaticParams describes a new static code. A nil style uses the
// defaults; zero-valued style fields inherit defaults individually.
type CreateStaticParams struct {
	Content     string
	Tier        string
	Style       *model.Style
	Title       string
	Description string
}

// CreateDynamicParams describes a new dynamic code.
type CreateDynamicParams struct {
	Destination string
	Tier        string
	Style       *model.Style
	Title       string
	Description string
}

// CreateStatic validates and persists a static code whose payload is the
// given content.
func (s *Service) CreateStatic(ctx context.Context, p CreateStaticParams) (*model.Code, error) {
	tier, err := normalizeTier(p.Tier)
	if err != nil {
		return nil, err
	}
	style, err := normalizeStyle(p.Style)
	if err != nil {
		return nil, err
	}
	if p.Content == "" {
		return nil, &model.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if limit := qr.Capacity(tier); len(p.Content) > limit {
		return nil, &model.CapacityError{Length: len(p.Content), Limit: limit, Tier: tier}
	}
	// Prove the content encodes before persisting anything.
	if _, err := qr.Encode(p.Content, tier); err != nil {
		return nil, err
	}

	now := s.now()
	code := &model.Code{
		ID:          uuid.NewString(),
		Kind:        model.KindStatic,
		Payload:     p.Content,
		Tier:        tier,
		Style:       style,
		Title:       p.Title,
		Description: p.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.CreateCode(ctx, s.db, code); err != nil {
		return nil, err
	}
	metrics.CodesCreated.Add(1)
	return code, nil
}

// CreateDynamic validates the destination, mints a unique short path, and
// persists the code. Collisions are retried a few times before surfacing.
func (s *Service) CreateDynamic(ctx context.Context, p CreateDynamicParams) (*model.Code, error) {
	tier, err := normalizeTier(p.Tier)
	if err != nil {
		return nil, err
	}
	style, err := normalizeStyle(p.Style)
	if err != nil {
		return nil, err
	}
	if err := validateDestination(p.Destination); err != nil {
		return nil, err
	}

	for range mintAttempts {
		path, err := s.mint()
		if err != nil {
			return nil, fmt.Errorf("minting short path: %w", err)
		}

		now := s.now()
		code := &model.Code{
			ID:          uuid.NewString(),
			Kind:        model.KindDynamic,
			Payload:     path,
			Destination: p.Destination,
			Tier:        tier,
			Style:       style,
			Title:       p.Title,
			Description: p.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err = store.CreateCode(ctx, s.db, code)
		if errors.Is(err, model.ErrShortPathConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		metrics.CodesCreated.Add(1)
		return code, nil
	}
	return nil, model.ErrShortPathConflict
}

// Get returns a code by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.Code, error) {
	return store.GetCode(ctx, s.db, id)
}

// UpdateParams carries an update request. Pointer fields distinguish "leave
// unchanged" from a new value. The frozen fields are represented so that
// attempts to change them get a typed rejection instead of being silently
// ignored.
type UpdateParams struct {
	Destination *string
	Title       *string
	Description *string

	// Immutable after creation.
	Kind       *string
	Payload    *string
	Tier       *string
	Foreground *string
	Background *string
	Scale      *int
	Border     *int
	Shape      *string
}

func (p UpdateParams) touchesFrozenField() bool {
	return p.Kind != nil || p.Payload != nil || p.Tier != nil ||
		p.Foreground != nil || p.Background != nil ||
		p.Scale != nil || p.Border != nil || p.Shape != nil
}

// Update applies metadata and destination changes. A validation failure
// leaves the stored code untouched.
func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (*model.Code, error) {
	if p.touchesFrozenField() {
		return nil, model.ErrImmutableField
	}

	code, err := store.GetCode(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if p.Destination != nil {
		if code.Kind != model.KindDynamic {
			// Static codes have no destination to point anywhere.
			return nil, model.ErrImmutableField
		}
		if err := validateDestination(*p.Destination); err != nil {
			return nil, err
		}
	}

	if p.Destination == nil && p.Title == nil && p.Description == nil {
		return code, nil
	}

	if err := store.UpdateCode(ctx, s.db, id, p.Destination, p.Title, p.Description, s.now()); err != nil {
		return nil, err
	}
	return store.GetCode(ctx, s.db, id)
}

// Delete removes a code. Scan events are retained for audit.
func (s *Service) Delete(ctx context.Context, id string) error {
	return store.DeleteCode(ctx, s.db, id)
}

// List returns one page of codes plus the total matching the filter.
func (s *Service) List(ctx context.Context, f model.CodeFilter) ([]model.Code, int64, error) {
	if f.Kind != "" && f.Kind != model.KindStatic && f.Kind != model.KindDynamic {
		return nil, 0, &model.ValidationError{Field: "kind", Reason: "must be static or dynamic"}
	}
	switch f.SortBy {
	case "":
		f.SortBy = model.SortCreatedAt
	case model.SortCreatedAt, model.SortScanCount, model.SortTitle:
	default:
		return nil, 0, &model.ValidationError{Field: "sort", Reason: "must be created_at, scan_count, or title"}
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	codes, err := store.ListCodes(ctx, s.db, f)
	if err != nil {
		return nil, 0, err
	}
	if codes == nil {
		codes = []model.Code{}
	}
	total, err := store.CountCodes(ctx, s.db, f)
	if err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// RenderParams are per-request render settings layered over the stored
// style. Zero values keep the stored style; the stored code is never
// modified by a render.
type RenderParams struct {
	Format  string
	Scale   int
	Border  int
	Quality int
}

// RenderCode encodes and renders a stored code on demand.
func (s *Service) RenderCode(ctx context.Context, id string, p RenderParams) ([]byte, string, error) {
	code, err := store.GetCode(ctx, s.db, id)
	if err != nil {
		return nil, "", err
	}

	content := code.Payload
	if code.Kind == model.KindDynamic {
		content = s.ScanURL(code.Payload)
	}
	sym, err := qr.Encode(content, code.Tier)
	if err != nil {
		return nil, "", err
	}

	style := code.Style
	if p.Scale != 0 {
		if p.Scale < 1 || p.Scale > maxScale {
			return nil, "", &model.ValidationError{Field: "scale", Reason: fmt.Sprintf("must be between 1 and %d", maxScale)}
		}
		style.Scale = p.Scale
	}
	if p.Border != 0 {
		if p.Border < 0 || p.Border > maxBorder {
			return nil, "", &model.ValidationError{Field: "border", Reason: fmt.Sprintf("must be between 0 and %d", maxBorder)}
		}
		style.Border = p.Border
	}

	format := p.Format
	if format == "" {
		format = qr.FormatPNG
	}

	data, contentType, err := qr.Render(sym, style, qr.RenderOptions{Format: format, Quality: p.Quality})
	if err != nil {
		return nil, "", err
	}
	metrics.ImagesRendered.Add(1)
	return data, contentType, nil
}

// Resolve returns the dynamic code for a short path.
func (s *Service) Resolve(ctx context.Context, path string) (*model.Code, error) {
	return store.GetCodeByShortPath(ctx, s.db, path)
}

// ScanEvents returns recent usage events for a code, newest first.
func (s *Service) ScanEvents(ctx context.Context, id string, since time.Time, limit int) ([]model.ScanEvent, error) {
	if _, err := store.GetCode(ctx, s.db, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := store.ListScanEvents(ctx, s.db, id, since, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.ScanEvent{}
	}
	return events, nil
}

// ScanURL returns the absolute URL a dynamic code's symbol encodes.
func (s *Service) ScanURL(path string) string {
	return s.baseURL + "/r/" + path
}

// normalizeTier applies the default tier and rejects unknown ones.
func normalizeTier(tier string) (string, error) {
	switch tier {
	case "":
		return model.TierMedium, nil
	case model.TierLow, model.TierMedium, model.TierQuartile, model.TierHigh:
		return tier, nil
	default:
		return "", &model.ValidationError{Field: "tier", Reason: "must be low, medium, quartile, or high"}
	}
}

// normalizeStyle fills unset fields with defaults and validates the rest.
func normalizeStyle(in *model.Style) (model.Style, error) {
	style := model.DefaultStyle()
	if in != nil {
		if in.Foreground != "" {
			style.Foreground = in.Foreground
		}
		if in.Background != "" {
			style.Background = in.Background
		}
		if in.Scale != 0 {
			style.Scale = in.Scale
		}
		if in.Border != 0 {
			style.Border = in.Border
		}
		if in.Shape != "" {
			style.Shape = in.Shape
		}
	}

	if _, err := qr.ParseColor(style.Foreground); err != nil {
		return model.Style{}, &model.ValidationError{Field: "fg_color", Reason: err.Error()}
	}
	if _, err := qr.ParseColor(style.Background); err != nil {
		return model.Style{}, &model.ValidationError{Field: "bg_color", Reason: err.Error()}
	}
	if style.Scale < 1 || style.Scale > maxScale {
		return model.Style{}, &model.ValidationError{Field: "scale", Reason: fmt.Sprintf("must be between 1 and %d", maxScale)}
	}
	if style.Border < qr.MinQuietZone || style.Border > maxBorder {
		return model.Style{}, &model.ValidationError{Field: "border", Reason: fmt.Sprintf("must be between %d (the quiet zone) and %d", qr.MinQuietZone, maxBorder)}
	}
	if style.Shape != model.ShapeSquare && style.Shape != model.ShapeDot {
		return model.Style{}, &model.ValidationError{Field: "shape", Reason: "must be square or dot"}
	}
	return style, nil
}

// validateDestination requires a well-formed absolute http(s) URL.
func validateDestination(dest string) error {
	if dest == "" {
		return &model.ValidationError{Field: "destination", Reason: "must not be empty"}
	}
	u, err := url.Parse(dest)
	if err != nil {
		return &model.ValidationError{Field: "destination", Reason: "not a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &model.ValidationError{Field: "destination", Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &model.ValidationError{Field: "destination", Reason: "missing host"}
	}
	return nil
}
