package repository

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"learnsphere/internal/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// These tests run against real servers and are skipped unless
// MONGODB_TEST_URI or REDIS_TEST_ADDR is set.

func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	db := client.Database(fmt.Sprintf("learnsphere_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	if err := EnsureIndexes(context.Background(), db); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	return db
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("FlushDB: %v", err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestApplyRatingConcurrently(t *testing.T) {
	db := testDatabase(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()
	if err := repo.Create(ctx, &models.Course{ID: "c1", Title: "Go"}); err != nil {
		t.Fatal(err)
	}

	const n = 20
	var wg sync.WaitGroup
	sum := 0
	for i := 0; i < n; i++ {
		rating := i%5 + 1
		sum += rating
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ApplyRating(ctx, "c1", rating); err != nil {
				t.Errorf("ApplyRating: %v", err)
			}
		}()
	}
	wg.Wait()

	course, err := repo.FindByID(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if course.RatingCount != n || course.RatingSum != sum {
		t.Errorf("Expected %d ratings summing to %d, got %d and %d", n, sum, course.RatingCount, course.RatingSum)
	}
	want := math.Round(float64(sum)/n*100) / 100
	if course.Rating != want {
		t.Errorf("Expected rating %.2f, got %.2f", want, course.Rating)
	}

	if _, err := repo.ApplyRating(ctx, "missing", 5); err == nil {
		t.Error("Expected an error for a missing course")
	}
}

func TestAttemptCounterReserve(t *testing.T) {
	db := testDatabase(t)
	counter := NewAttemptCounterRepository(db)
	ctx := context.Background()

	if n, passed, err := counter.Peek(ctx, "u1", "q1"); err != nil || n != 1 || passed {
		t.Fatalf("Fresh counter: expected 1 not passed, got %d %v (%v)", n, passed, err)
	}

	const failures = 10
	seen := make(chan int, failures)
	var wg sync.WaitGroup
	for i := 0; i < failures; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, _, err := counter.Reserve(ctx, "u1", "q1", false)
			if err != nil {
				t.Errorf("Reserve: %v", err)
				return
			}
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)
	numbers := map[int]bool{}
	for n := range seen {
		if numbers[n] {
			t.Errorf("Number %d handed out twice", n)
		}
		numbers[n] = true
	}
	if len(numbers) != failures {
		t.Errorf("Expected %d distinct numbers, got %d", failures, len(numbers))
	}

	n, before, err := counter.Reserve(ctx, "u1", "q1", true)
	if err != nil || n != failures+1 || before {
		t.Errorf("First pass: expected %d not passed before, got %d %v (%v)", failures+1, n, before, err)
	}
	n, before, err = counter.Reserve(ctx, "u1", "q1", true)
	if err != nil || n != failures+1 || !before {
		t.Errorf("Retake: expected %d passed before, got %d %v (%v)", failures+1, n, before, err)
	}

	if n, before, err := counter.Reserve(ctx, "u2", "q1", true); err != nil || n != 1 || before {
		t.Errorf("First attempt pass: expected 1 not passed before, got %d %v (%v)", n, before, err)
	}
}

func TestFailedAttemptNumberCollision(t *testing.T) {
	db := testDatabase(t)
	attempts := NewAttemptRepository(db)
	ctx := context.Background()

	failed := func(sid string) *models.Attempt {
		return &models.Attempt{SubmissionID: sid, UserID: "u1", QuizID: "q1", AttemptNumber: 1}
	}
	if err := attempts.Insert(ctx, failed("s1")); err != nil {
		t.Fatal(err)
	}
	if err := attempts.Insert(ctx, failed("s2")); err == nil {
		t.Error("Expected a duplicate failed attempt number to be rejected")
	}
	pass := &models.Attempt{SubmissionID: "s3", UserID: "u1", QuizID: "q1", AttemptNumber: 2, Passed: true}
	retake := &models.Attempt{SubmissionID: "s4", UserID: "u1", QuizID: "q1", AttemptNumber: 2, Passed: true}
	if err := attempts.Insert(ctx, pass); err != nil {
		t.Fatal(err)
	}
	if err := attempts.Insert(ctx, retake); err != nil {
		t.Errorf("A retake after a pass shares its number: %v", err)
	}
}

func TestCreditingIsRepeatable(t *testing.T) {
	db := testDatabase(t)
	enrollments := NewEnrollmentRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	if err := users.Create(ctx, &models.User{ID: "u1", Email: "u1@example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := enrollments.Create(ctx, &models.Enrollment{CourseID: "c1", UserID: "u1"}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		credited, err := enrollments.CompleteLesson(ctx, "c1", "u1", "l1", "s1", 30)
		if err != nil || !credited {
			t.Fatalf("Try %d: expected s1 to hold the credit, got %v (%v)", i, credited, err)
		}
		if err := users.AddPointsOnce(ctx, "u1", "s1", 30); err != nil {
			t.Fatalf("AddPointsOnce: %v", err)
		}
	}
	if credited, err := enrollments.CompleteLesson(ctx, "c1", "u1", "l1", "s2", 30); err != nil || credited {
		t.Errorf("Another submission: expected no credit, got %v (%v)", credited, err)
	}

	e, _ := enrollments.Find(ctx, "c1", "u1")
	if e.Points != 30 || len(e.CompletedLessons) != 1 {
		t.Errorf("Expected one lesson worth 30, got %+v", e)
	}
	u, _ := users.FindByID(ctx, "u1")
	if u.Points != 30 {
		t.Errorf("Expected user points 30, got %d", u.Points)
	}
	if err := users.AddPointsOnce(ctx, "nobody", "s1", 5); err == nil {
		t.Error("Expected an error for a missing user")
	}
}

func TestLeaderboardAddPointsOnce(t *testing.T) {
	client := testRedis(t)
	board := NewLeaderboardRepository(client)
	ctx := context.Background()

	// a failing increment must not leave the submission marked
	if err := client.Set(ctx, leaderboardKey, "not a sorted set", 0).Err(); err != nil {
		t.Fatal(err)
	}
	if _, err := board.AddPointsOnce(ctx, "s1", "u1", 30); err == nil {
		t.Fatal("Expected ZINCRBY on a string key to fail")
	}
	if n, _ := client.Exists(ctx, creditedKey("s1")).Result(); n != 0 {
		t.Error("Marker written although the increment failed")
	}
	_ = client.Del(ctx, leaderboardKey).Err()

	// redelivery
	added, err := board.AddPointsOnce(ctx, "s1", "u1", 30)
	if err != nil || !added {
		t.Fatalf("Redelivery: expected points added, got %v (%v)", added, err)
	}
	added, err = board.AddPointsOnce(ctx, "s1", "u1", 30)
	if err != nil || added {
		t.Errorf("Duplicate: expected no-op, got %v (%v)", added, err)
	}

	top, err := board.Top(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 || top[0].UserID != "u1" || top[0].Points != 30 {
		t.Errorf("Expected u1 with 30 points, got %+v", top)
	}
	if ttl, _ := client.TTL(ctx, creditedKey("s1")).Result(); ttl <= 0 || ttl > creditedTTL {
		t.Errorf("Expected marker TTL within %v, got %v", creditedTTL, ttl)
	}
}
