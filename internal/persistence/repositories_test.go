package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/court-reservations/internal/application"
	"github.com/example/court-reservations/internal/persistence"
	"github.com/example/court-reservations/internal/scheduler"
	"github.com/example/court-reservations/internal/testfixtures"
)

func hourAfterReference(hours int) time.Time {
	return testfixtures.ReferenceTime().Truncate(time.Hour).Add(time.Duration(hours) * time.Hour)
}

func TestUserRepository(t *testing.T) {
	t.Parallel()

	t.Run("creates, reads, and updates users", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		user := harness.SeedUser(t, testfixtures.NewUserFixture(
			testfixtures.WithUserEmail("Alice@Example.com"),
			testfixtures.WithUserPasswordHash("hash"),
			testfixtures.WithUserRole(application.RoleManager),
		))

		fetched, err := harness.Storage.GetUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if fetched.Email != "alice@example.com" || fetched.Role != "manager" || !fetched.IsActive || fetched.PasswordHash != "hash" {
			t.Fatalf("unexpected user data: %#v", fetched)
		}

		fetched.FullName = "Alice Updated"
		fetched.IsActive = false
		if _, err := harness.Storage.UpdateUser(ctx, fetched); err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}

		byEmail, err := harness.Storage.GetUserByEmail(ctx, "ALICE@EXAMPLE.COM")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if byEmail.FullName != "Alice Updated" || byEmail.IsActive {
			t.Fatalf("unexpected updated user: %#v", byEmail)
		}

		users, err := harness.Storage.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 1 || users[0].ID != user.ID {
			t.Fatalf("expected single user, got %#v", users)
		}

		if _, err := harness.Storage.GetUser(ctx, user.ID+100); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
	})

	t.Run("enforces unique email addresses", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		harness.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserEmail("duplicate@example.com")))

		conflicting := testfixtures.NewUserFixture(testfixtures.WithUserEmail("DUPLICATE@example.com")).Persistence()
		if _, err := harness.Storage.CreateUser(ctx, conflicting); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
		}
	})
}

func TestCourtRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	court := harness.SeedCourt(t, testfixtures.NewCourtFixture(
		testfixtures.WithCourtName("Centre Court"),
		testfixtures.WithCourtImages("centre-1.jpg", "centre-2.jpg"),
	))

	fetched, err := harness.Storage.GetCourt(ctx, court.ID)
	if err != nil {
		t.Fatalf("GetCourt failed: %v", err)
	}
	if fetched.Name != "Centre Court" || len(fetched.Images) != 2 || fetched.Images[1] != "centre-2.jpg" || !fetched.IsAvailable {
		t.Fatalf("unexpected court: %#v", fetched)
	}

	fetched.HourlyRate = 1250.5
	fetched.IsAvailable = false
	updated, err := harness.Storage.UpdateCourt(ctx, fetched)
	if err != nil {
		t.Fatalf("UpdateCourt failed: %v", err)
	}
	if updated.HourlyRate != 1250.5 || updated.IsAvailable {
		t.Fatalf("unexpected updated court: %#v", updated)
	}

	if _, err := harness.Storage.CreateCourt(ctx, testfixtures.NewCourtFixture(testfixtures.WithCourtName("Centre Court")).Persistence()); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected duplicate court name to be rejected, got %v", err)
	}

	courts, err := harness.Storage.ListCourts(ctx)
	if err != nil {
		t.Fatalf("ListCourts failed: %v", err)
	}
	if len(courts) != 1 {
		t.Fatalf("expected one court, got %d", len(courts))
	}
}

func TestCourtDeletionKeepsReservationHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	user := harness.SeedUser(t, testfixtures.NewUserFixture())
	court := harness.SeedCourt(t, testfixtures.NewCourtFixture())
	reservation := harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, user.ID))

	if err := harness.Storage.DeleteCourt(ctx, court.ID); err != nil {
		t.Fatalf("DeleteCourt failed: %v", err)
	}
	if err := harness.Storage.DeleteCourt(ctx, court.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound, got %v", err)
	}

	kept, err := harness.Storage.GetReservation(ctx, reservation.ID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if kept.CourtID != nil {
		t.Fatalf("expected court reference to be cleared, got %d", *kept.CourtID)
	}
}

func TestReservationRepository(t *testing.T) {
	t.Parallel()

	t.Run("rejects overlapping active reservations on the same court", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		user := harness.SeedUser(t, testfixtures.NewUserFixture())
		court := harness.SeedCourt(t, testfixtures.NewCourtFixture())
		other := harness.SeedCourt(t, testfixtures.NewCourtFixture())

		first := harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, user.ID,
			testfixtures.WithReservationWindow(hourAfterReference(24), hourAfterReference(26)),
		))

		overlapping := testfixtures.NewReservationFixture(court.ID, user.ID,
			testfixtures.WithReservationWindow(hourAfterReference(25), hourAfterReference(27)),
		).Persistence()
		if _, err := harness.Storage.InsertReservation(ctx, overlapping); !errors.Is(err, persistence.ErrOverlap) {
			t.Fatalf("expected persistence.ErrOverlap, got %v", err)
		}

		// Touching intervals and other courts do not conflict.
		harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, user.ID,
			testfixtures.WithReservationWindow(hourAfterReference(26), hourAfterReference(27)),
		))
		harness.SeedReservation(t, testfixtures.NewReservationFixture(other.ID, user.ID,
			testfixtures.WithReservationWindow(hourAfterReference(25), hourAfterReference(27)),
		))

		// Cancelled reservations neither block nor are blocked.
		harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, user.ID,
			testfixtures.WithReservationWindow(hourAfterReference(24), hourAfterReference(26)),
			testfixtures.WithReservationStatus(scheduler.StatusCancelled),
		))

		if _, err := harness.Storage.UpdateReservationStatus(ctx, first.ID, string(scheduler.StatusCancelled), hourAfterReference(1)); err != nil {
			t.Fatalf("UpdateReservationStatus failed: %v", err)
		}
		harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, user.ID,
			testfixtures.WithReservationWindow(hourAfterReference(25), hourAfterReference(26)),
		))

		overlaps, err := harness.Storage.ListCourtOverlaps(ctx, court.ID, hourAfterReference(24), hourAfterReference(27))
		if err != nil {
			t.Fatalf("ListCourtOverlaps failed: %v", err)
		}
		if len(overlaps) != 2 {
			t.Fatalf("expected 2 active overlaps, got %#v", overlaps)
		}
		if !overlaps[0].Start.Before(overlaps[1].Start) {
			t.Fatalf("expected overlaps ordered by start, got %#v", overlaps)
		}
	})

	t.Run("refuses leaving the cancelled state", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		user := harness.SeedUser(t, testfixtures.NewUserFixture())
		court := harness.SeedCourt(t, testfixtures.NewCourtFixture())
		reservation := harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, user.ID,
			testfixtures.WithReservationStatus(scheduler.StatusCancelled),
		))

		if _, err := harness.Storage.UpdateReservationStatus(ctx, reservation.ID, string(scheduler.StatusPending), hourAfterReference(1)); !errors.Is(err, persistence.ErrInvalidTransition) {
			t.Fatalf("expected persistence.ErrInvalidTransition, got %v", err)
		}
		if _, err := harness.Storage.UpdateReservationStatus(ctx, reservation.ID+10, string(scheduler.StatusCancelled), hourAfterReference(1)); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
	})

	t.Run("enforces the reservor foreign key", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		court := harness.SeedCourt(t, testfixtures.NewCourtFixture())

		orphan := testfixtures.NewReservationFixture(court.ID, 999).Persistence()
		if _, err := harness.Storage.InsertReservation(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected persistence.ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("filters listings", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		alice := harness.SeedUser(t, testfixtures.NewUserFixture())
		bob := harness.SeedUser(t, testfixtures.NewUserFixture())
		court := harness.SeedCourt(t, testfixtures.NewCourtFixture())

		harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, alice.ID,
			testfixtures.WithReservationWindow(hourAfterReference(24), hourAfterReference(25)),
		))
		harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, bob.ID,
			testfixtures.WithReservationWindow(hourAfterReference(48), hourAfterReference(49)),
			testfixtures.WithReservationStatus(scheduler.StatusConfirmed),
		))

		reservorID := bob.ID
		byReservor, err := harness.Storage.ListReservations(ctx, persistence.ReservationFilter{ReservorID: &reservorID})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(byReservor) != 1 || byReservor[0].ReservorID != bob.ID {
			t.Fatalf("unexpected reservor listing: %#v", byReservor)
		}

		byStatus, err := harness.Storage.ListReservations(ctx, persistence.ReservationFilter{Statuses: []string{"Pending"}})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(byStatus) != 1 || byStatus[0].ReservorID != alice.ID {
			t.Fatalf("unexpected status listing: %#v", byStatus)
		}

		from, to := hourAfterReference(24), hourAfterReference(25)
		byWindow, err := harness.Storage.ListReservations(ctx, persistence.ReservationFilter{From: &from, To: &to})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(byWindow) != 1 || !byWindow[0].Start.Equal(from) {
			t.Fatalf("unexpected window listing: %#v", byWindow)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	user := harness.SeedUser(t, testfixtures.NewUserFixture())

	live := testfixtures.NewSessionFixture(user.ID)
	stale := testfixtures.NewSessionFixture(user.ID, testfixtures.WithSessionExpiresAt(testfixtures.ReferenceTime().Add(-time.Minute)))

	for _, s := range []testfixtures.SessionFixture{live, stale} {
		if _, err := harness.Storage.CreateSession(ctx, s.Persistence()); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	revokedAt := testfixtures.ReferenceTime().Add(time.Hour)
	revoked, err := harness.Storage.RevokeSession(ctx, live.ID, revokedAt)
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
		t.Fatalf("expected revoked_at %v, got %v", revokedAt, revoked.RevokedAt)
	}

	if err := harness.Storage.DeleteExpiredSessions(ctx, testfixtures.ReferenceTime()); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if _, err := harness.Storage.GetSession(ctx, stale.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected expired session to be removed, got %v", err)
	}
	if _, err := harness.Storage.GetSession(ctx, live.ID); err != nil {
		t.Fatalf("expected live session to remain, got %v", err)
	}
}

func TestEventRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	host := harness.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserRole(application.RoleManager)))
	first := harness.SeedUser(t, testfixtures.NewUserFixture())
	second := harness.SeedUser(t, testfixtures.NewUserFixture())
	court := harness.SeedCourt(t, testfixtures.NewCourtFixture())

	courtID := court.ID
	event, err := harness.Storage.CreateEvent(ctx, persistence.Event{
		CourtID:         &courtID,
		Title:           "Doubles ladder",
		Start:           hourAfterReference(48),
		End:             hourAfterReference(51),
		MaxParticipants: 1,
		CreatedBy:       host.ID,
	})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	joined, err := harness.Storage.JoinEvent(ctx, event.ID, first.ID, hourAfterReference(1))
	if err != nil {
		t.Fatalf("JoinEvent failed: %v", err)
	}
	if joined.CurrentParticipants != 1 {
		t.Fatalf("expected 1 participant, got %d", joined.CurrentParticipants)
	}

	if _, err := harness.Storage.JoinEvent(ctx, event.ID, first.ID, hourAfterReference(1)); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
	}
	if _, err := harness.Storage.JoinEvent(ctx, event.ID, second.ID, hourAfterReference(1)); !errors.Is(err, persistence.ErrCapacityExceeded) {
		t.Fatalf("expected persistence.ErrCapacityExceeded, got %v", err)
	}

	participants, err := harness.Storage.ListParticipants(ctx, event.ID)
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if len(participants) != 1 || participants[0].UserID != first.ID {
		t.Fatalf("unexpected participants: %#v", participants)
	}

	left, err := harness.Storage.LeaveEvent(ctx, event.ID, first.ID)
	if err != nil {
		t.Fatalf("LeaveEvent failed: %v", err)
	}
	if left.CurrentParticipants != 0 {
		t.Fatalf("expected 0 participants, got %d", left.CurrentParticipants)
	}
	if _, err := harness.Storage.LeaveEvent(ctx, event.ID, first.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound, got %v", err)
	}

	if _, err := harness.Storage.JoinEvent(ctx, event.ID, second.ID, hourAfterReference(2)); err != nil {
		t.Fatalf("expected freed place to be joinable, got %v", err)
	}

	from := hourAfterReference(47)
	to := hourAfterReference(49)
	events, err := harness.Storage.ListEvents(ctx, &from, &to)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != event.ID {
		t.Fatalf("unexpected events: %#v", events)
	}
}

func TestTaskRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	manager := harness.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserRole(application.RoleManager)))
	employee := harness.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserRole(application.RoleEmployee)))

	due := hourAfterReference(72)
	task, err := harness.Storage.CreateTask(ctx, persistence.Task{
		Title:      "Resurface court 2",
		AssigneeID: employee.ID,
		AssignerID: manager.ID,
		DueDate:    &due,
		Status:     "pending",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.DueDate == nil || !task.DueDate.Equal(due) {
		t.Fatalf("unexpected due date: %v", task.DueDate)
	}

	task.Status = "in_progress"
	if _, err := harness.Storage.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	assignee := employee.ID
	tasks, err := harness.Storage.ListTasks(ctx, persistence.TaskFilter{AssigneeID: &assignee, Status: "in_progress"})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}

	if err := harness.Storage.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := harness.Storage.GetTask(ctx, task.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound, got %v", err)
	}
}

func TestDashboardRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	active := harness.SeedUser(t, testfixtures.NewUserFixture())
	harness.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserInactive()))
	court := harness.SeedCourt(t, testfixtures.NewCourtFixture())

	harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, active.ID,
		testfixtures.WithReservationWindow(hourAfterReference(24), hourAfterReference(25)),
		testfixtures.WithReservationRate(500),
	))
	harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, active.ID,
		testfixtures.WithReservationWindow(hourAfterReference(26), hourAfterReference(27)),
		testfixtures.WithReservationRate(250),
		testfixtures.WithReservationStatus(scheduler.StatusConfirmed),
	))
	harness.SeedReservation(t, testfixtures.NewReservationFixture(court.ID, active.ID,
		testfixtures.WithReservationWindow(hourAfterReference(24), hourAfterReference(25)),
		testfixtures.WithReservationRate(900),
		testfixtures.WithReservationStatus(scheduler.StatusCancelled),
	))

	totals, err := harness.Storage.DashboardTotals(ctx)
	if err != nil {
		t.Fatalf("DashboardTotals failed: %v", err)
	}
	if totals.TotalUsers != 2 || totals.ActiveUsers != 1 || totals.TotalReservations != 3 {
		t.Fatalf("unexpected counters: %#v", totals)
	}
	if totals.TotalRevenue != 750 {
		t.Fatalf("expected revenue 750, got %v", totals.TotalRevenue)
	}
	if totals.ByStatus["Cancelled"] != 1 || totals.ByStatus["Pending"] != 1 || totals.ByStatus["Confirmed"] != 1 {
		t.Fatalf("unexpected status breakdown: %#v", totals.ByStatus)
	}

	slices, err := harness.Storage.ReservationSlices(ctx, hourAfterReference(24), hourAfterReference(26))
	if err != nil {
		t.Fatalf("ReservationSlices failed: %v", err)
	}
	if len(slices) != 2 {
		t.Fatalf("expected 2 slices starting in window, got %d", len(slices))
	}
}
