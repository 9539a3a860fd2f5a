package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/court-reservations/internal/scheduler"
)

var (
	testManager  = Principal{UserID: 1, Role: RoleManager}
	testEmployee = Principal{UserID: 2, Role: RoleEmployee}
	testCustomer = Principal{UserID: 3, Role: RoleCustomer}
	otherPatron  = Principal{UserID: 4, Role: RoleCustomer}
)

func newTestReservationService() (*ReservationService, *memoryReservations) {
	store := newMemoryReservations()
	authority := newTestAuthority(testCourts(), store, nil)
	return NewReservationService(authority, store), store
}

func int64Ptr(v int64) *int64 { return &v }

func float64Ptr(v float64) *float64 { return &v }

func TestReservationService_CreateReservationPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		principal Principal
		input     ReservationInput
		wantErr   error
		wantFor   int64
	}{
		{name: "customer books for self", principal: testCustomer, input: ReservationInput{CourtID: 1, Start: at(10, 0), End: at(11, 0)}, wantFor: 3},
		{name: "customer cannot book for others", principal: testCustomer, input: ReservationInput{CourtID: 1, Start: at(10, 0), End: at(11, 0), ReservorID: int64Ptr(4)}, wantErr: ErrUnauthorized},
		{name: "customer cannot override rate", principal: testCustomer, input: ReservationInput{CourtID: 1, Start: at(10, 0), End: at(11, 0), Rate: float64Ptr(1)}, wantErr: ErrUnauthorized},
		{name: "employee books for customer", principal: testEmployee, input: ReservationInput{CourtID: 1, Start: at(10, 0), End: at(11, 0), ReservorID: int64Ptr(3)}, wantFor: 3},
		{name: "employee cannot override rate", principal: testEmployee, input: ReservationInput{CourtID: 1, Start: at(10, 0), End: at(11, 0), Rate: float64Ptr(1)}, wantErr: ErrUnauthorized},
		{name: "manager overrides rate", principal: testManager, input: ReservationInput{CourtID: 1, Start: at(10, 0), End: at(11, 0), Rate: float64Ptr(0)}, wantFor: 1},
		{name: "anonymous rejected", principal: Principal{}, input: ReservationInput{CourtID: 1, Start: at(10, 0), End: at(11, 0)}, wantErr: ErrUnauthorized},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, store := newTestReservationService()
			got, err := svc.CreateReservation(context.Background(), CreateReservationParams{Principal: tc.principal, Input: tc.input})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if len(store.rows) != 0 {
					t.Fatalf("expected nothing persisted, got %d rows", len(store.rows))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ReservorID != tc.wantFor {
				t.Fatalf("expected reservor %d, got %d", tc.wantFor, got.ReservorID)
			}
		})
	}
}

func TestReservationService_UpdateStatusPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestReservationService()

	r, err := svc.CreateReservation(ctx, CreateReservationParams{Principal: testCustomer, Input: ReservationInput{CourtID: 1, Start: at(10, 0), End: at(11, 0)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.UpdateReservationStatus(ctx, UpdateReservationStatusParams{Principal: testCustomer, ReservationID: r.ID, Status: "Confirmed"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected customer confirmation to be refused, got %v", err)
	}
	if _, err := svc.UpdateReservationStatus(ctx, UpdateReservationStatusParams{Principal: otherPatron, ReservationID: r.ID, Status: "Cancelled"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected other customer cancellation to be refused, got %v", err)
	}

	confirmed, err := svc.UpdateReservationStatus(ctx, UpdateReservationStatusParams{Principal: testEmployee, ReservationID: r.ID, Status: "Confirmed"})
	if err != nil {
		t.Fatalf("expected employee confirmation to succeed, got %v", err)
	}
	if confirmed.Status != scheduler.StatusConfirmed {
		t.Fatalf("expected Confirmed, got %s", confirmed.Status)
	}

	cancelled, err := svc.UpdateReservationStatus(ctx, UpdateReservationStatusParams{Principal: testCustomer, ReservationID: r.ID, Status: "Cancelled"})
	if err != nil {
		t.Fatalf("expected owner cancellation to succeed, got %v", err)
	}
	if cancelled.Status != scheduler.StatusCancelled {
		t.Fatalf("expected Cancelled, got %s", cancelled.Status)
	}
}

func TestReservationService_VisibilityAndListing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestReservationService()

	mine, err := svc.CreateReservation(ctx, CreateReservationParams{Principal: testCustomer, Input: ReservationInput{CourtID: 1, Start: at(10, 0), End: at(11, 0)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateReservation(ctx, CreateReservationParams{Principal: otherPatron, Input: ReservationInput{CourtID: 2, Start: at(10, 0), End: at(11, 0)}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.GetReservation(ctx, otherPatron, mine.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other customer to get ErrNotFound, got %v", err)
	}
	if _, err := svc.GetReservation(ctx, testEmployee, mine.ID); err != nil {
		t.Fatalf("expected staff to read any reservation, got %v", err)
	}

	list, err := svc.ListReservations(ctx, ListReservationsParams{Principal: testCustomer, ReservorID: int64Ptr(otherPatron.UserID)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ReservorID != testCustomer.UserID {
		t.Fatalf("expected customer listing forced to self, got %+v", list)
	}

	list, err = svc.ListReservations(ctx, ListReservationsParams{Principal: testManager})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected manager to see 2 reservations, got %d", len(list))
	}

	if _, err := svc.ListReservations(ctx, ListReservationsParams{Principal: testManager, Status: "unknown"}); err == nil {
		t.Fatalf("expected unknown status filter to be rejected")
	}
}

func TestReservationService_Availability(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestReservationService()

	if _, err := svc.CreateReservation(ctx, CreateReservationParams{Principal: testCustomer, Input: ReservationInput{CourtID: 1, Start: at(10, 0), End: at(11, 0)}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	availability, err := svc.Availability(ctx, 1, at(15, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !availability.Day.Equal(at(0, 0)) {
		t.Fatalf("expected day to be normalised to midnight, got %v", availability.Day)
	}
	if len(availability.Reservations) != 1 {
		t.Fatalf("expected 1 reservation, got %d", len(availability.Reservations))
	}

	if _, err := svc.Availability(ctx, 42, at(15, 0)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown court, got %v", err)
	}
}
