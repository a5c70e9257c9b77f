package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Locator supplies the device position for a record. ok is false when the
// position is unavailable, which never blocks recording.
type Locator interface {
	Locate(ctx context.Context) (latitude, longitude float64, ok bool)
}

// Recorder turns tag scans into attendance records.
type Recorder struct {
	repo    Repo
	locator Locator
	nowTime func() time.Time
	logger  zerolog.Logger
}

type Option func(*Recorder)

func WithLocator(locator Locator) Option {
	return func(r *Recorder) {
		r.locator = locator
	}
}

func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Recorder) {
		r.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func NewRecorder(repo Repo, options ...Option) *Recorder {
	r := &Recorder{
		repo:    repo,
		nowTime: time.Now,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// RegisterEmployee assigns an NFC tag to an employee.
func (r *Recorder) RegisterEmployee(ctx context.Context, e Employee) error {
	e.ID = strings.TrimSpace(e.ID)
	e.NFCTag = strings.ToUpper(strings.TrimSpace(e.NFCTag))
	if e.ID == "" || e.NFCTag == "" || strings.TrimSpace(e.Name) == "" {
		return apperrors.ValidationError("employee id, name and tag are required")
	}
	return r.repo.UpsertEmployee(ctx, e)
}

// Handle records one scan for the employee owning the tag. An unknown tag
// returns errors.ErrNotFound.
func (r *Recorder) Handle(ctx context.Context, ev TagEvent, mode Mode) (*Employee, *Record, error) {
	if mode != ModeEntry && mode != ModeExit {
		return nil, nil, apperrors.ValidationError("unknown attendance mode %q", mode)
	}
	emp, err := r.repo.FindByTag(ctx, strings.ToUpper(ev.TagID))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "tag %s", ev.TagID)
	}

	rec := Record{
		ID:         uuid.NewString(),
		EmployeeID: emp.ID,
		Type:       mode,
		Timestamp:  r.nowTime().UTC(),
	}
	if r.locator != nil {
		if lat, lon, ok := r.locator.Locate(ctx); ok {
			rec.Latitude, rec.Longitude = &lat, &lon
		}
	}
	if err := r.repo.Insert(ctx, rec); err != nil {
		return emp, nil, err
	}

	r.logger.Info().Str("employee_id", emp.ID).Str("type", string(mode)).Msg("Attendance recorded")
	return emp, &rec, nil
}

// Run handles scanner events until the scanner closes its event channel or ctx
// ends. mode is read per event so the caller can switch between entry and
// exit while scanning.
func (r *Recorder) Run(ctx context.Context, scanner Scanner, mode func() Mode, outcomes chan<- Outcome) error {
	if err := scanner.Start(ctx); err != nil {
		return errors.Wrap(err, "start scanner")
	}
	defer scanner.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanner.Errors():
			r.logger.Warn().Err(err).Msg("NFC scan error")
			if !send(ctx, outcomes, Outcome{Err: err}) {
				return ctx.Err()
			}
		case ev, ok := <-scanner.Events():
			if !ok {
				return nil
			}
			emp, rec, err := r.Handle(ctx, ev, mode())
			if err != nil {
				r.logger.Warn().Err(err).Str("tag", ev.TagID).Msg("Could not record attendance")
			}
			if !send(ctx, outcomes, Outcome{Event: ev, Employee: emp, Record: rec, Err: err}) {
				return ctx.Err()
			}
		}
	}
}

func send(ctx context.Context, outcomes chan<- Outcome, o Outcome) bool {
	if outcomes == nil {
		return true
	}
	select {
	case outcomes <- o:
		return true
	case <-ctx.Done():
		return false
	}
}

// Log returns an employee's most recent records, newest first.
func (r *Recorder) Log(ctx context.Context, employeeID string, limit int) ([]Record, error) {
	return r.repo.Log(ctx, employeeID, limit)
}
