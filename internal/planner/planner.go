// Package planner is the application service behind the CLI, the TUI and the HTTP API.
// It resolves a user's timezone and logical day, materializes instances before reading
// them, and keeps templates and their recurrence rules consistent.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/lifeplan/internal/constants"
	apperrors "github.com/julianstephens/lifeplan/internal/errors"
	"github.com/julianstephens/lifeplan/internal/logger"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/materializer"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/storage"
	"github.com/julianstephens/lifeplan/internal/validation"
)

// StaleNotice is attached to reads whose materialization step failed
const StaleNotice = "Scheduled items could not be refreshed; showing what is already on record."

type Service struct {
	store     storage.Provider
	mat       *materializer.Service
	clock     logicalday.Clock
	newID     func() string
	defaultTZ string
}

type Option func(*Service)

func WithClock(c logicalday.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithDefaultTimezone sets the zone used for users without a profile timezone
func WithDefaultTimezone(tz string) Option {
	return func(s *Service) {
		if tz != "" {
			s.defaultTZ = tz
		}
	}
}

// WithMaterializer replaces the materializer built by New
func WithMaterializer(m *materializer.Service) Option {
	return func(s *Service) { s.mat = m }
}

func New(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:     store,
		clock:     logicalday.SystemClock{},
		newID:     uuid.NewString,
		defaultTZ: constants.DefaultTimezone,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mat == nil {
		s.mat = materializer.New(store, materializer.WithClock(s.clock))
	}
	return s
}

// Store exposes the underlying provider for callers that only need raw reads
func (s *Service) Store() storage.Provider {
	return s.store
}

// Profile returns the user's profile, or defaults when none has been saved
func (s *Service) Profile(ctx context.Context, userID string) (models.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.Profile{UserID: userID, Timezone: s.defaultTZ, WeekStart: constants.WeekStartMonday}, nil
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if p.Timezone == "" {
		p.Timezone = s.defaultTZ
	}
	if p.WeekStart == "" {
		p.WeekStart = constants.WeekStartMonday
	}
	return p, nil
}

func (s *Service) SaveProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	if err := validation.Timezone(p.Timezone); err != nil {
		return models.Profile{}, err
	}
	if err := validation.WeekStart(p.WeekStart); err != nil {
		return models.Profile{}, err
	}
	if p.WeekStart == "" {
		p.WeekStart = constants.WeekStartMonday
	}
	p.WeekStart = strings.ToLower(p.WeekStart)
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return models.Profile{}, fmt.Errorf("failed to save profile: %w", err)
	}
	return p, nil
}

// Timezone returns the zone the user's logical days are evaluated in
func (s *Service) Timezone(ctx context.Context, userID string) (string, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Timezone, nil
}

// Day is a logical day together with the zone it was resolved in
type Day struct {
	Date     logicalday.Date `json:"date"`
	Timezone string          `json:"timezone"`
}

func (s *Service) Today(ctx context.Context, userID string) (Day, error) {
	tz, err := s.Timezone(ctx, userID)
	if err != nil {
		return Day{}, err
	}
	return Day{Date: logicalday.Today(s.clock, tz), Timezone: tz}, nil
}

// Horizon returns today through the next days-1 days for the user
func (s *Service) Horizon(ctx context.Context, userID string, days int) (logicalday.Date, logicalday.Date, error) {
	tz, err := s.Timezone(ctx, userID)
	if err != nil {
		return logicalday.Date{}, logicalday.Date{}, err
	}
	start, end := materializer.Horizon(s.clock, tz, days)
	return start, end, nil
}

func (s *Service) Ensure(ctx context.Context, userID string, start, end logicalday.Date) (materializer.Result, error) {
	tz, err := s.Timezone(ctx, userID)
	if err != nil {
		return materializer.Result{}, err
	}
	return s.mat.EnsureInstancesForRange(ctx, userID, start, end, tz)
}

// prepare validates a read range, resolves the timezone and materializes the range.
// A materialization failure is logged and turned into a notice; only a bad range or an
// unreadable profile is an error.
func (s *Service) prepare(ctx context.Context, userID string, start, end logicalday.Date) (string, string, error) {
	if err := logicalday.ValidateRange(start, end, s.mat.MaxRangeDays()); err != nil {
		return "", "", err
	}
	tz, err := s.Timezone(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if _, err := s.mat.EnsureInstancesForRange(ctx, userID, start, end, tz); err != nil {
		logger.Warn("Materialization failed, serving existing instances", "user", userID, "start", start, "end", end, "error", err)
		return tz, StaleNotice, nil
	}
	return tz, "", nil
}

// Item is an instance decorated with its template's display fields
type Item struct {
	models.Instance
	Title     string `json:"title"`
	LocalTime string `json:"local_time,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Category  string `json:"category,omitempty"`
}

type Agenda struct {
	Start    logicalday.Date `json:"start"`
	End      logicalday.Date `json:"end"`
	Timezone string          `json:"timezone"`
	Items    []Item          `json:"items"`
	Notice   string          `json:"notice,omitempty"`
}

// Agenda materializes [start, end] on a best-effort basis and lists its instances
func (s *Service) Agenda(ctx context.Context, userID string, start, end logicalday.Date) (Agenda, error) {
	tz, notice, err := s.prepare(ctx, userID, start, end)
	if err != nil {
		return Agenda{}, err
	}

	instances, err := s.store.ListInstances(ctx, userID, start, end)
	if err != nil {
		return Agenda{}, fmt.Errorf("failed to list instances: %w", err)
	}
	owners, err := s.owners(ctx, userID)
	if err != nil {
		return Agenda{}, err
	}

	items := make([]Item, 0, len(instances))
	for _, in := range instances {
		item := Item{Instance: in, Title: in.OwnerID}
		switch in.OwnerKind {
		case constants.OwnerHabit:
			if h, ok := owners.Habits[in.OwnerID]; ok {
				item.Title = h.Name
				item.LocalTime = h.LocalTime
			}
		case constants.OwnerTransaction:
			if t, ok := owners.Transactions[in.OwnerID]; ok {
				item.Title = t.Name
				item.Currency = t.Currency
				item.Category = t.Category
			}
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := a.Day.Compare(b.Day); c != 0 {
			return c < 0
		}
		// all-day items sort before timed ones
		if a.LocalTime != b.LocalTime {
			return a.LocalTime < b.LocalTime
		}
		return a.Title < b.Title
	})

	return Agenda{Start: start, End: end, Timezone: tz, Items: items, Notice: notice}, nil
}

// Mark sets an instance's status. "completed" is accepted for done.
func (s *Service) Mark(ctx context.Context, userID, instanceID, status string) (models.Instance, error) {
	st, ok := constants.NormalizeStatus(status)
	if !ok {
		return models.Instance{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, status)
	}
	if err := s.store.SetInstanceStatus(ctx, userID, instanceID, st, s.clock.Now().UTC()); err != nil {
		return models.Instance{}, err
	}
	return s.store.GetInstance(ctx, userID, instanceID)
}

// Check runs the stored-data validator over the user's templates and rules
func (s *Service) Check(ctx context.Context, userID string) (validation.ValidationResult, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return validation.ValidationResult{}, err
	}
	habits, err := s.store.ListHabits(ctx, userID, false)
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to list habits: %w", err)
	}
	txns, err := s.store.ListTransactions(ctx, userID, false)
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to list transactions: %w", err)
	}
	rules, err := s.store.ListActiveRules(ctx, userID)
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to list rules: %w", err)
	}
	return validation.New().Validate(profile, habits, txns, rules), nil
}
