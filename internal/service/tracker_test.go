package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lifedash-api/internal/cache"
	"lifedash-api/internal/model"
	"lifedash-api/internal/repository"
	"lifedash-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepo counts list calls that reach the store.
type countingRepo struct {
	repository.TrackerRepository
	mu    sync.Mutex
	lists map[string]int
}

func (r *countingRepo) hit(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[name]++
}

func (r *countingRepo) calls(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lists[name]
}

func (r *countingRepo) ListEvents(ctx context.Context, f model.EventFilter) (model.List[model.Event], error) {
	r.hit("events")
	return r.TrackerRepository.ListEvents(ctx, f)
}

func (r *countingRepo) ListExams(ctx context.Context, upcoming bool, now time.Time, p model.Page) (model.List[model.Exam], error) {
	r.hit("exams")
	return r.TrackerRepository.ListExams(ctx, upcoming, now, p)
}

func (r *countingRepo) ListNotes(ctx context.Context, f model.NoteFilter) (model.List[model.Note], error) {
	r.hit("notes")
	return r.TrackerRepository.ListNotes(ctx, f)
}

type recordingPublisher struct {
	mu   sync.Mutex
	tags [][]string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, tags ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tags = append(p.tags, tags)
	return p.err
}

type fixture struct {
	svc   *service.TrackerService
	repo  *countingRepo
	cache *cache.TaggedCache
	pub   *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	store, err := repository.NewSQLiteTrackerRepository(repository.MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c, err := cache.New(cache.Config{MaxSize: 100, DefaultTTL: time.Hour})
	require.NoError(t, err)

	repo := &countingRepo{TrackerRepository: store, lists: map[string]int{}}
	pub := &recordingPublisher{}
	svc := service.NewTrackerService(repo, c, pub, service.TrackerConfig{ReadTTL: time.Minute}, nil)

	return fixture{svc: svc, repo: repo, cache: c, pub: pub}
}

func TestTrackerService_ListEventsIsMemoized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateEvent(ctx, model.Event{Type: model.EventSport, Name: "Run", OccurredAt: time.Now()})
	require.NoError(t, err)

	first, err := f.svc.ListEvents(ctx, model.EventFilter{})
	require.NoError(t, err)
	second, err := f.svc.ListEvents(ctx, model.EventFilter{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.repo.calls("events"))
	assert.Equal(t, int64(1), f.cache.Stats().Hits)
}

func TestTrackerService_CreateEventInvalidatesOnlyAffectedLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListEvents(ctx, model.EventFilter{})
	require.NoError(t, err)
	_, err = f.svc.ListEvents(ctx, model.EventFilter{Type: model.EventSport})
	require.NoError(t, err)
	_, err = f.svc.ListEvents(ctx, model.EventFilter{Type: model.EventWork})
	require.NoError(t, err)
	require.Equal(t, 3, f.repo.calls("events"))

	_, err = f.svc.CreateEvent(ctx, model.Event{Type: model.EventSport, Name: "Swim", OccurredAt: time.Now()})
	require.NoError(t, err)

	all, err := f.svc.ListEvents(ctx, model.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)

	sport, err := f.svc.ListEvents(ctx, model.EventFilter{Type: model.EventSport})
	require.NoError(t, err)
	assert.Len(t, sport.Items, 1)

	_, err = f.svc.ListEvents(ctx, model.EventFilter{Type: model.EventWork})
	require.NoError(t, err)

	assert.Equal(t, 5, f.repo.calls("events"), "work list stays cached")
	assert.Equal(t, [][]string{{service.TagAllEvents, service.EventTypeTag(model.EventSport)}}, f.pub.tags)
}

func TestTrackerService_DeleteEventInvalidatesEveryEventList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateEvent(ctx, model.Event{Type: model.EventMeal, Name: "Lunch", OccurredAt: time.Now()})
	require.NoError(t, err)

	_, err = f.svc.ListEvents(ctx, model.EventFilter{Type: model.EventWork})
	require.NoError(t, err)
	require.Equal(t, 1, f.cache.Len())

	require.NoError(t, f.svc.DeleteEvent(ctx, created.ID))
	assert.Zero(t, f.cache.Len())

	assert.ErrorIs(t, f.svc.DeleteEvent(ctx, created.ID), repository.ErrNotFound)
}

func TestTrackerService_RejectsUnknownEventType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateEvent(ctx, model.Event{Type: "nap", Name: "x", OccurredAt: time.Now()})
	assert.Error(t, err)

	_, err = f.svc.ListEvents(ctx, model.EventFilter{Type: "nap"})
	assert.Error(t, err)
}

func TestTrackerService_ExamsAndNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListExams(ctx, true, model.Page{})
	require.NoError(t, err)
	_, err = f.svc.ListNotes(ctx, model.NoteFilter{})
	require.NoError(t, err)

	_, err = f.svc.CreateExam(ctx, model.Exam{Name: "Math", ExamDate: time.Now().Add(72 * time.Hour)})
	require.NoError(t, err)

	exams, err := f.svc.ListExams(ctx, true, model.Page{})
	require.NoError(t, err)
	assert.Len(t, exams.Items, 1)
	assert.Equal(t, 2, f.repo.calls("exams"))

	_, err = f.svc.ListNotes(ctx, model.NoteFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.calls("notes"), "exam writes leave notes cached")

	note, err := f.svc.CreateNote(ctx, model.Note{Title: "Idea", Tags: []string{"x"}})
	require.NoError(t, err)
	notes, err := f.svc.ListNotes(ctx, model.NoteFilter{})
	require.NoError(t, err)
	assert.Len(t, notes.Items, 1)

	require.NoError(t, f.svc.DeleteNote(ctx, note.ID))
	notes, err = f.svc.ListNotes(ctx, model.NoteFilter{})
	require.NoError(t, err)
	assert.Empty(t, notes.Items)
}

func TestTrackerService_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("redis down")

	_, err := f.svc.CreateNote(context.Background(), model.Note{Title: "still saved"})
	assert.NoError(t, err)
}

func TestTrackerService_WithoutCache(t *testing.T) {
	store, err := repository.NewSQLiteTrackerRepository(repository.MemoryPath, nil)
	require.NoError(t, err)
	defer store.Close()

	repo := &countingRepo{TrackerRepository: store, lists: map[string]int{}}
	svc := service.NewTrackerService(repo, nil, nil, service.TrackerConfig{}, nil)
	ctx := context.Background()

	_, err = svc.ListNotes(ctx, model.NoteFilter{})
	require.NoError(t, err)
	_, err = svc.ListNotes(ctx, model.NoteFilter{})
	require.NoError(t, err)

	assert.Equal(t, 2, repo.calls("notes"))
}
