package services

import (
	"errors"
	"reflect"
	"testing"

	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/shared"
)

func TestFlow(t *testing.T) {
	t.Run("HappyPath", func(t *testing.T) {
		f := NewFlow("s1")
		if err := f.ReceiveCode(); err != nil {
			t.Fatalf("ReceiveCode() error = %v", err)
		}
		if err := f.Complete(); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}

		want := []models.FlowStatus{models.FlowStarted, models.FlowCodeReceived, models.FlowTokenExchanged}
		if !reflect.DeepEqual(f.History(), want) {
			t.Errorf("History() = %v, want %v", f.History(), want)
		}
		if !f.Status().Terminal() {
			t.Error("expected TOKEN_EXCHANGED to be terminal")
		}
	})

	t.Run("FailAfterCallback", func(t *testing.T) {
		f := NewFlow("s1")
		f.ReceiveCode()
		if err := f.Fail(shared.ErrCSRFMismatch); err != nil {
			t.Fatalf("Fail() from CODE_RECEIVED error = %v", err)
		}
		if !errors.Is(f.Err(), shared.ErrCSRFMismatch) {
			t.Errorf("Err() = %v", f.Err())
		}

		want := []models.FlowStatus{models.FlowStarted, models.FlowCodeReceived, models.FlowFailed}
		if !reflect.DeepEqual(f.History(), want) {
			t.Errorf("History() = %v, want %v", f.History(), want)
		}
	})

	t.Run("IllegalTransitions", func(t *testing.T) {
		tests := []struct {
			name  string
			setup func() *Flow
			step  func(*Flow) error
		}{
			{"CompleteWithoutCode", func() *Flow { return NewFlow("s") }, (*Flow).Complete},
			{"FailSkippingCallback", func() *Flow { return NewFlow("s") }, func(f *Flow) error { return f.Fail(shared.ErrCSRFMismatch) }},
			{"ReceiveCodeTwice", func() *Flow { f := NewFlow("s"); f.ReceiveCode(); return f }, (*Flow).ReceiveCode},
			{"FailAfterExchange", func() *Flow {
				f := NewFlow("s")
				f.ReceiveCode()
				f.Complete()
				return f
			}, func(f *Flow) error { return f.Fail(errors.New("late")) }},
			{"ReviveFailed", func() *Flow { return FailedFlow("s", shared.ErrCSRFMismatch) }, (*Flow).ReceiveCode},
			{"FailTwice", func() *Flow { return FailedFlow("s", shared.ErrCSRFMismatch) }, func(f *Flow) error { return f.Fail(errors.New("again")) }},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				f := tc.setup()
				before := f.Status()
				if err := tc.step(f); !errors.Is(err, shared.ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				if f.Status() != before {
					t.Errorf("status changed from %s to %s", before, f.Status())
				}
			})
		}
	})

	t.Run("FailedFlowNeverStarted", func(t *testing.T) {
		f := FailedFlow("s", shared.ErrCSRFMismatch)
		want := []models.FlowStatus{models.FlowFailed}
		if !reflect.DeepEqual(f.History(), want) {
			t.Errorf("History() = %v, want %v", f.History(), want)
		}
	})
}
