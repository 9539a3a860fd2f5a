package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/court-reservations/internal/persistence"
)

type courtRepoStub struct {
	createErr error
	created   Court

	getCourt Court
	getErr   error

	updateErr error
	updated   Court

	deleteErr error
	deletedID int64

	list    []Court
	listErr error
}

func (r *courtRepoStub) CreateCourt(ctx context.Context, court Court) (Court, error) {
	if r.createErr != nil {
		return Court{}, r.createErr
	}
	court.ID = 1
	r.created = court
	return court, nil
}

func (r *courtRepoStub) GetCourt(ctx context.Context, id int64) (Court, error) {
	if r.getErr != nil {
		return Court{}, r.getErr
	}
	if r.getCourt.ID == 0 {
		return Court{}, persistence.ErrNotFound
	}
	return r.getCourt, nil
}

func (r *courtRepoStub) UpdateCourt(ctx context.Context, court Court) (Court, error) {
	if r.updateErr != nil {
		return Court{}, r.updateErr
	}
	r.updated = court
	return court, nil
}

func (r *courtRepoStub) DeleteCourt(ctx context.Context, id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedID = id
	return nil
}

func (r *courtRepoStub) ListCourts(ctx context.Context) ([]Court, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Court, len(r.list))
	copy(out, r.list)
	return out, nil
}

func validCourtInput() CourtInput {
	return CourtInput{
		Name:        "  Court A ",
		CourtType:   "futsal",
		Capacity:    10,
		HourlyRate:  1000,
		Images:      []string{" a.png ", ""},
		IsAvailable: true,
	}
}

func TestCourtService_CreateCourt(t *testing.T) {
	t.Run("requires manager", func(t *testing.T) {
		svc := NewCourtService(&courtRepoStub{}, nil)

		_, err := svc.CreateCourt(context.Background(), CreateCourtParams{Principal: testEmployee, Input: validCourtInput()})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		svc := NewCourtService(&courtRepoStub{}, nil)

		_, err := svc.CreateCourt(context.Background(), CreateCourtParams{
			Principal: testManager,
			Input:     CourtInput{Name: " ", Capacity: 0, HourlyRate: -1},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"court_name", "court_type", "capacity", "hourly_rate"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("normalises and persists", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
		repo := &courtRepoStub{}
		svc := NewCourtService(repo, func() time.Time { return now })

		court, err := svc.CreateCourt(context.Background(), CreateCourtParams{Principal: testManager, Input: validCourtInput()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if court.ID != 1 || repo.created.Name != "Court A" {
			t.Fatalf("expected trimmed court to be stored, got %+v", repo.created)
		}
		if len(repo.created.Images) != 1 || repo.created.Images[0] != "a.png" {
			t.Fatalf("expected cleaned images, got %v", repo.created.Images)
		}
		if !repo.created.CreatedAt.Equal(now) {
			t.Fatalf("expected CreatedAt %v, got %v", now, repo.created.CreatedAt)
		}
	})

	t.Run("maps duplicate name", func(t *testing.T) {
		svc := NewCourtService(&courtRepoStub{createErr: persistence.ErrDuplicate}, nil)

		_, err := svc.CreateCourt(context.Background(), CreateCourtParams{Principal: testManager, Input: validCourtInput()})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestCourtService_UpdateCourt(t *testing.T) {
	t.Run("returns not found", func(t *testing.T) {
		svc := NewCourtService(&courtRepoStub{}, nil)

		_, err := svc.UpdateCourt(context.Background(), UpdateCourtParams{Principal: testManager, CourtID: 5, Input: validCourtInput()})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("keeps creation time", func(t *testing.T) {
		created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		repo := &courtRepoStub{getCourt: Court{ID: 5, Name: "Old", CreatedAt: created}}
		svc := NewCourtService(repo, nil)

		input := validCourtInput()
		input.IsAvailable = false
		court, err := svc.UpdateCourt(context.Background(), UpdateCourtParams{Principal: testManager, CourtID: 5, Input: input})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if court.Name != "Court A" || court.IsAvailable {
			t.Fatalf("expected fields to be replaced, got %+v", court)
		}
		if !court.CreatedAt.Equal(created) {
			t.Fatalf("expected CreatedAt to be preserved, got %v", court.CreatedAt)
		}
	})
}

func TestCourtService_DeleteAndList(t *testing.T) {
	repo := &courtRepoStub{list: []Court{{ID: 2, Name: "beta"}, {ID: 1, Name: "Alpha"}, {ID: 3, Name: "alpha"}}}
	svc := NewCourtService(repo, nil)

	if err := svc.DeleteCourt(context.Background(), testCustomer, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteCourt(context.Background(), testManager, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.deletedID != 7 {
		t.Fatalf("expected court 7 deleted, got %d", repo.deletedID)
	}

	courts, err := svc.ListCourts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if courts[0].ID != 1 || courts[1].ID != 3 || courts[2].ID != 2 {
		t.Fatalf("expected case-insensitive name order, got %+v", courts)
	}

	repo.listErr = errors.New("boom")
	if _, err := svc.ListCourts(context.Background()); ErrorKind(err) != "storage" {
		t.Fatalf("expected storage error, got %v", err)
	}
}
