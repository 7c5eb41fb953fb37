package service

import (
	"context"
	"fmt"
	"time"

	"lifedash-api/internal/cache"
	"lifedash-api/internal/model"
	"lifedash-api/internal/repository"

	"go.uber.org/zap"
)

// Cache tags used by tracker reads.
const (
	TagEvents    = "events"
	TagAllEvents = "events:all"
	TagExams     = "exams"
	TagNotes     = "notes"
)

// EventTypeTag returns the tag carried by lists filtered to one event type.
func EventTypeTag(t model.EventType) string {
	return "events:" + string(t)
}

// Publisher fans tag invalidations out to other instances.
type Publisher interface {
	Publish(ctx context.Context, tags ...string) error
}

// TrackerConfig holds tracker service settings.
type TrackerConfig struct {
	// ReadTTL is how long list reads stay cached. <= 0 uses the cache default.
	ReadTTL time.Duration
}

// TrackerService handles tracker business logic. List reads are memoized in
// the tagged cache and writes invalidate the tags those reads carry.
type TrackerService struct {
	repo      repository.TrackerRepository
	cache     cache.Store
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	allEvents  cache.Func[model.List[model.Event]]
	typeEvents map[model.EventType]cache.Func[model.List[model.Event]]
	listExams  cache.Func[model.List[model.Exam]]
	listNotes  cache.Func[model.List[model.Note]]
}

// NewTrackerService creates a new tracker service.
// store and publisher may be nil, which disables caching and fan-out.
func NewTrackerService(repo repository.TrackerRepository, store cache.Store, publisher Publisher, cfg TrackerConfig, logger *zap.Logger) *TrackerService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &TrackerService{
		repo:       repo,
		cache:      store,
		publisher:  publisher,
		logger:     logger.Named("tracker"),
		now:        time.Now,
		typeEvents: make(map[model.EventType]cache.Func[model.List[model.Event]]),
	}

	events := func(ctx context.Context, args cache.Args) (model.List[model.Event], error) {
		return repo.ListEvents(ctx, args.Positional[0].(model.EventFilter))
	}
	exams := func(ctx context.Context, args cache.Args) (model.List[model.Exam], error) {
		return repo.ListExams(ctx, args.Positional[0].(bool), args.Positional[1].(time.Time), args.Positional[2].(model.Page))
	}
	notes := func(ctx context.Context, args cache.Args) (model.List[model.Note], error) {
		return repo.ListNotes(ctx, args.Positional[0].(model.NoteFilter))
	}

	if store == nil {
		s.allEvents, s.listExams, s.listNotes = events, exams, notes
		for _, t := range model.EventTypes() {
			s.typeEvents[t] = events
		}
		return s
	}

	s.allEvents = cache.Memoize(store, "tracker.ListEvents", cache.Policy{
		TTL:  cfg.ReadTTL,
		Tags: []string{TagEvents, TagAllEvents},
	}, events)
	for _, t := range model.EventTypes() {
		s.typeEvents[t] = cache.Memoize(store, "tracker.ListEvents", cache.Policy{
			TTL:  cfg.ReadTTL,
			Tags: []string{TagEvents, EventTypeTag(t)},
		}, events)
	}
	s.listExams = cache.Memoize(store, "tracker.ListExams", cache.Policy{
		TTL:  cfg.ReadTTL,
		Tags: []string{TagExams},
	}, exams)
	s.listNotes = cache.Memoize(store, "tracker.ListNotes", cache.Policy{
		TTL:  cfg.ReadTTL,
		Tags: []string{TagNotes},
	}, notes)

	return s
}

// invalidate drops cached reads for tags locally and on other instances.
func (s *TrackerService) invalidate(ctx context.Context, tags ...string) {
	if s.cache == nil {
		return
	}

	removed := s.cache.InvalidateByTags(tags...)
	s.logger.Debug("invalidated cached reads", zap.Strings("tags", tags), zap.Int("removed", removed))

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, tags...); err != nil {
			s.logger.Warn("failed to publish invalidation", zap.Strings("tags", tags), zap.Error(err))
		}
	}
}

// CreateEvent records an event.
func (s *TrackerService) CreateEvent(ctx context.Context, event model.Event) (*model.Event, error) {
	if !event.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}

	created, err := s.repo.CreateEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, TagAllEvents, EventTypeTag(created.Type))
	return created, nil
}

// ListEvents returns events matching filter.
func (s *TrackerService) ListEvents(ctx context.Context, filter model.EventFilter) (model.List[model.Event], error) {
	filter.Page = filter.Page.Normalize()
	filter.From = filter.From.UTC()
	filter.To = filter.To.UTC()

	fn := s.allEvents
	if filter.Type != "" {
		typed, ok := s.typeEvents[filter.Type]
		if !ok {
			return model.List[model.Event]{}, fmt.Errorf("unknown event type %q", filter.Type)
		}
		fn = typed
	}
	return fn(ctx, cache.Positional(filter))
}

// DeleteEvent removes an event.
func (s *TrackerService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return err
	}

	// the type of the removed row is unknown here
	s.invalidate(ctx, TagEvents)
	return nil
}

// CreateExam schedules an exam.
func (s *TrackerService) CreateExam(ctx context.Context, exam model.Exam) (*model.Exam, error) {
	created, err := s.repo.CreateExam(ctx, exam)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, TagExams)
	return created, nil
}

// ListExams returns exams ordered by date, optionally only those from today on.
func (s *TrackerService) ListExams(ctx context.Context, upcomingOnly bool, page model.Page) (model.List[model.Exam], error) {
	y, m, d := s.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if !upcomingOnly {
		today = time.Time{}
	}

	return s.listExams(ctx, cache.Positional(upcomingOnly, today, page.Normalize()))
}

// DeleteExam removes an exam.
func (s *TrackerService) DeleteExam(ctx context.Context, id int64) error {
	if err := s.repo.DeleteExam(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, TagExams)
	return nil
}

// CreateNote stores a note.
func (s *TrackerService) CreateNote(ctx context.Context, note model.Note) (*model.Note, error) {
	created, err := s.repo.CreateNote(ctx, note)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, TagNotes)
	return created, nil
}

// ListNotes returns notes matching filter.
func (s *TrackerService) ListNotes(ctx context.Context, filter model.NoteFilter) (model.List[model.Note], error) {
	filter.Page = filter.Page.Normalize()
	return s.listNotes(ctx, cache.Positional(filter))
}

// DeleteNote removes a note.
func (s *TrackerService) DeleteNote(ctx context.Context, id int64) error {
	if err := s.repo.DeleteNote(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, TagNotes)
	return nil
}

// GetStats returns store statistics.
func (s *TrackerService) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return s.repo.GetStats(ctx)
}
