package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"learnsphere/internal/event"
	"learnsphere/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// In-memory stand-ins for the repositories. They return the same sentinel
// errors the Mongo and Redis implementations do.

var errStoreDown = errors.New("store unavailable")

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	count int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]*models.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return ErrDuplicateDoc
		}
	}
	f.count++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", f.count)
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeUsers) FindByIDs(_ context.Context, ids []string) (map[string]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]*models.User{}
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeUsers) AddPointsOnce(_ context.Context, id, submissionID string, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	for _, done := range u.CreditedSubmissions {
		if done == submissionID {
			return nil
		}
	}
	u.Points += points
	u.CreditedSubmissions = append(u.CreditedSubmissions, submissionID)
	return nil
}

func (f *fakeUsers) TopByPoints(_ context.Context, limit int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []models.User
	for _, u := range f.byID {
		if u.Points > 0 {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Points != users[j].Points {
			return users[i].Points > users[j].Points
		}
		return users[i].ID < users[j].ID
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (f *fakeUsers) CountByRole(_ context.Context) (map[models.Role]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[models.Role]int64{}
	for _, u := range f.byID {
		out[u.Role]++
	}
	return out, nil
}

type fakeCourses struct {
	mu   sync.Mutex
	byID map[string]*models.Course
	n    int
}

func newFakeCourses(courses ...*models.Course) *fakeCourses {
	f := &fakeCourses{byID: map[string]*models.Course{}}
	for _, c := range courses {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCourses) Create(_ context.Context, c *models.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	c.ID = fmt.Sprintf("course-%d", f.n)
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCourses) FindByID(_ context.Context, id string) (*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) ListPublished(_ context.Context, skip, limit int64) ([]models.Course, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Course
	for _, c := range f.byID {
		if c.Published {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	if skip >= total {
		return []models.Course{}, total, nil
	}
	end := min(skip+limit, total)
	return out[skip:end], total, nil
}

func (f *fakeCourses) ListByInstructor(_ context.Context, instructorID string) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Course{}
	for _, c := range f.byID {
		if c.InstructorID == instructorID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCourses) FindByIDs(_ context.Context, ids []string) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Course{}
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCourses) Update(_ context.Context, id string, update bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range update {
		switch k {
		case "title":
			c.Title = v.(string)
		case "description":
			c.Description = v.(string)
		case "price":
			c.Price = v.(float64)
		case "published":
			c.Published = v.(bool)
		}
	}
	return nil
}

func (f *fakeCourses) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeCourses) IncrementEnrollment(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.byID[id]; ok {
		c.EnrollmentCount++
	}
	return nil
}

func (f *fakeCourses) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byID)), nil
}

type fakeLessons struct {
	mu   sync.Mutex
	byID map[string]*models.Lesson
	n    int
}

func newFakeLessons(lessons ...*models.Lesson) *fakeLessons {
	f := &fakeLessons{byID: map[string]*models.Lesson{}}
	for _, l := range lessons {
		f.byID[l.ID] = l
	}
	return f
}

func (f *fakeLessons) Create(_ context.Context, l *models.Lesson) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	l.ID = fmt.Sprintf("lesson-%d", f.n)
	cp := *l
	f.byID[l.ID] = &cp
	return nil
}

func (f *fakeLessons) FindByID(_ context.Context, id string) (*models.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLessons) ListByCourse(_ context.Context, courseID string) ([]models.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Lesson{}
	for _, l := range f.byID {
		if l.CourseID == courseID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeLessons) CountByCourse(ctx context.Context, courseID string) (int64, error) {
	lessons, _ := f.ListByCourse(ctx, courseID)
	return int64(len(lessons)), nil
}

func (f *fakeLessons) Update(_ context.Context, id string, update bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := update["quiz_id"]; ok {
		l.QuizID = v.(string)
	}
	if v, ok := update["title"]; ok {
		l.Title = v.(string)
	}
	return nil
}

func (f *fakeLessons) AddMaterial(_ context.Context, id, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	l.MaterialKeys = append(l.MaterialKeys, key)
	return nil
}

func (f *fakeLessons) DeleteByCourse(_ context.Context, courseID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, l := range f.byID {
		if l.CourseID == courseID {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

type fakeQuizzes struct {
	mu   sync.Mutex
	byID map[string]*models.Quiz
	n    int
}

func newFakeQuizzes(quizzes ...*models.Quiz) *fakeQuizzes {
	f := &fakeQuizzes{byID: map[string]*models.Quiz{}}
	for _, q := range quizzes {
		f.byID[q.ID] = q
	}
	return f
}

func (f *fakeQuizzes) Create(_ context.Context, q *models.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	q.ID = fmt.Sprintf("quiz-%d", f.n)
	cp := *q
	f.byID[q.ID] = &cp
	return nil
}

func (f *fakeQuizzes) FindByID(_ context.Context, id string) (*models.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuizzes) Replace(_ context.Context, q *models.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[q.ID]; !ok {
		return ErrNotFound
	}
	cp := *q
	f.byID[q.ID] = &cp
	return nil
}

func (f *fakeQuizzes) DeleteByCourse(_ context.Context, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, q := range f.byID {
		if q.CourseID == courseID {
			delete(f.byID, id)
		}
	}
	return nil
}

type fakeAttempts struct {
	mu          sync.Mutex
	attempts    []models.Attempt
	// failInserts makes the next n inserts fail.
	failInserts int
	inserts     int
}

func (f *fakeAttempts) Insert(_ context.Context, a *models.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.failInserts > 0 {
		f.failInserts--
		return errStoreDown
	}
	for _, existing := range f.attempts {
		if existing.SubmissionID == a.SubmissionID {
			return ErrDuplicateDoc
		}
	}
	a.ID = fmt.Sprintf("attempt-%d", len(f.attempts)+1)
	f.attempts = append(f.attempts, *a)
	return nil
}

func (f *fakeAttempts) FindBySubmission(_ context.Context, sid string) (*models.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.SubmissionID == sid {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeAttempts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func (f *fakeAttempts) filter(keep func(models.Attempt) bool, limit int) []models.Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Attempt{}
	for i := len(f.attempts) - 1; i >= 0; i-- {
		if keep(f.attempts[i]) {
			out = append(out, f.attempts[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (f *fakeAttempts) ListByUserQuiz(_ context.Context, userID, quizID string) ([]models.Attempt, error) {
	return f.filter(func(a models.Attempt) bool { return a.UserID == userID && a.QuizID == quizID }, 0), nil
}

func (f *fakeAttempts) ListByQuiz(_ context.Context, quizID string) ([]models.Attempt, error) {
	return f.filter(func(a models.Attempt) bool { return a.QuizID == quizID }, 0), nil
}

func (f *fakeAttempts) RecentByUser(_ context.Context, userID string, limit int64) ([]models.Attempt, error) {
	return f.filter(func(a models.Attempt) bool { return a.UserID == userID }, int(limit)), nil
}

// fakeCounter numbers attempts the way the Mongo counter does.
type fakeCounter struct {
	mu     sync.Mutex
	failed map[string]int
	passed map[string]bool
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{failed: map[string]int{}, passed: map[string]bool{}}
}

func (f *fakeCounter) Peek(_ context.Context, userID, quizID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID + ":" + quizID
	return f.failed[key] + 1, f.passed[key], nil
}

func (f *fakeCounter) Reserve(_ context.Context, userID, quizID string, passed bool) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID + ":" + quizID
	before := f.passed[key]
	if !passed {
		f.failed[key]++
		return f.failed[key], before, nil
	}
	f.passed[key] = true
	return f.failed[key] + 1, before, nil
}

type fakeEnrollments struct {
	mu           sync.Mutex
	byKey        map[string]*models.Enrollment
	// failComplete makes the next n lesson completions fail.
	failComplete int
}

func newFakeEnrollments(es ...*models.Enrollment) *fakeEnrollments {
	f := &fakeEnrollments{byKey: map[string]*models.Enrollment{}}
	for _, e := range es {
		f.byKey[e.CourseID+"/"+e.UserID] = e
	}
	return f
}

func (f *fakeEnrollments) Create(_ context.Context, e *models.Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := e.CourseID + "/" + e.UserID
	if _, ok := f.byKey[key]; ok {
		return ErrDuplicateDoc
	}
	e.ID = "enrollment-" + key
	cp := *e
	f.byKey[key] = &cp
	return nil
}

func (f *fakeEnrollments) Find(_ context.Context, courseID, userID string) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byKey[courseID+"/"+userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEnrollments) CompleteLesson(_ context.Context, courseID, userID, lessonID, submissionID string, points int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failComplete > 0 {
		f.failComplete--
		return false, errStoreDown
	}
	e, ok := f.byKey[courseID+"/"+userID]
	if !ok {
		return false, nil
	}
	for _, done := range e.CompletedLessons {
		if done == lessonID {
			return e.LessonCredits[lessonID] == submissionID, nil
		}
	}
	e.CompletedLessons = append(e.CompletedLessons, lessonID)
	e.Points += points
	if e.LessonCredits == nil {
		e.LessonCredits = map[string]string{}
	}
	e.LessonCredits[lessonID] = submissionID
	return true, nil
}

func (f *fakeEnrollments) ListByUser(_ context.Context, userID string) ([]models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Enrollment{}
	for _, e := range f.byKey {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEnrollments) DeleteByCourse(_ context.Context, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, e := range f.byKey {
		if e.CourseID == courseID {
			delete(f.byKey, key)
		}
	}
	return nil
}

type fakeReviews struct {
	mu      sync.Mutex
	reviews []models.Review
	courses *fakeCourses
}

func (f *fakeReviews) Submit(_ context.Context, r *models.Review) (*models.RatingAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reviews {
		if existing.CourseID == r.CourseID && existing.UserID == r.UserID {
			return nil, ErrDuplicateDoc
		}
	}
	r.ID = fmt.Sprintf("review-%d", len(f.reviews)+1)
	r.CreatedAt = time.Now()
	f.reviews = append(f.reviews, *r)

	f.courses.mu.Lock()
	defer f.courses.mu.Unlock()
	c := f.courses.byID[r.CourseID]
	c.RatingSum += r.Rating
	c.RatingCount++
	c.Rating = float64(c.RatingSum) / float64(c.RatingCount)
	return &models.RatingAggregate{Rating: c.Rating, RatingCount: c.RatingCount}, nil
}

func (f *fakeReviews) ListByCourse(_ context.Context, courseID string, limit int64) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Review{}
	for _, r := range f.reviews {
		if r.CourseID == courseID && int64(len(out)) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReviews) DeleteByCourse(_ context.Context, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.reviews[:0]
	for _, r := range f.reviews {
		if r.CourseID != courseID {
			kept = append(kept, r)
		}
	}
	f.reviews = kept
	return nil
}

// fakeCache stores JSON like the Redis cache does.
type fakeCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated []string
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (f *fakeCache) SaveStructCached(_ context.Context, key string, model any) error {
	data, err := json.Marshal(model)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = data
	return nil
}

func (f *fakeCache) GetStructCached(_ context.Context, key string, model any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[key]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, model)
}

func (f *fakeCache) Invalidate(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
		f.invalidated = append(f.invalidated, k)
	}
	return nil
}

// fakeLive round-trips through JSON so tests see what Redis would hold.
type fakeLive struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeLive() *fakeLive { return &fakeLive{data: map[string][]byte{}} }

func (f *fakeLive) Create(_ context.Context, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[id]; ok {
		return ErrDuplicateDoc
	}
	f.data[id] = data
	return nil
}

func (f *fakeLive) Get(_ context.Context, id string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[id]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func (f *fakeLive) Update(_ context.Context, id string, v any, mutate func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[id]
	if !ok {
		return ErrNotFound
	}
	reflect.ValueOf(v).Elem().SetZero()
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	if err := mutate(); err != nil {
		return err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.data[id] = out
	return nil
}

func (f *fakeLive) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, id)
	return nil
}

type fakeBoard struct {
	mu      sync.Mutex
	entries []models.LeaderboardEntry
	err     error
	rebuilt map[string]int
}

func (f *fakeBoard) Top(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := append([]models.LeaderboardEntry(nil), f.entries...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBoard) Rebuild(_ context.Context, totals map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuilt = totals
	return nil
}

type fakeStates struct {
	mu     sync.Mutex
	states map[string]bool
}

func (f *fakeStates) Save(_ context.Context, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.states == nil {
		f.states = map[string]bool{}
	}
	f.states[state] = true
	return nil
}

func (f *fakeStates) Consume(_ context.Context, state string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok := f.states[state]
	delete(f.states, state)
	return ok, nil
}

type fakeQueue struct {
	mu     sync.Mutex
	queued []*models.Attempt
	err    error
}

func (f *fakeQueue) QueueAttemptPersist(_ context.Context, a *models.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, a)
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	attempts []event.AttemptEvent
	courses  []event.CourseEvent
}

func (p *recordingPublisher) PublishAttemptEvent(_ context.Context, e *event.AttemptEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts = append(p.attempts, *e)
	return nil
}

func (p *recordingPublisher) PublishCourseEvent(_ context.Context, e *event.CourseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.courses = append(p.courses, *e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) attemptTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.attempts {
		out = append(out, e.EventType)
	}
	return out
}
