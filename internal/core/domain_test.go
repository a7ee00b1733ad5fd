package core

import (
	"errors"
	"testing"
	"time"
)

func TestStableHash_Deterministic(t *testing.T) {
	a := StableHash("Hello from the timeline!")
	b := StableHash("Hello from the timeline!")
	if a != b {
		t.Fatalf("StableHash not deterministic: %q != %q", a, b)
	}
	if a == StableHash("different text") {
		t.Fatal("StableHash collided on different inputs")
	}

	// Known UUIDv5 vector for the DNS namespace.
	if got := StableHash("python.org"); got != "886313e1-3b8a-5372-9b90-0c9aee199e5d" {
		t.Errorf("StableHash(python.org) = %q, want 886313e1-3b8a-5372-9b90-0c9aee199e5d", got)
	}
}

func TestSignUpInput_Validate(t *testing.T) {
	valid := SignUpInput{
		Email:     "user@example.com",
		FirstName: "Ana",
		Password1: "longenough",
		Password2: "longenough",
	}

	tests := []struct {
		name    string
		mutate  func(in *SignUpInput)
		wantErr error
	}{
		{"valid", func(in *SignUpInput) {}, nil},
		{"short email", func(in *SignUpInput) { in.Email = "a@b" }, ErrEmailTooShort},
		{"short name", func(in *SignUpInput) { in.FirstName = "A" }, ErrNameTooShort},
		{"one-rune multibyte name", func(in *SignUpInput) { in.FirstName = "李" }, ErrNameTooShort},
		{"two-rune multibyte name", func(in *SignUpInput) { in.FirstName = "李明" }, nil},
		{"password mismatch", func(in *SignUpInput) { in.Password2 = "different" }, ErrPasswordMismatch},
		{"short password", func(in *SignUpInput) {
			in.Password1 = "short"
			in.Password2 = "short"
		}, ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpenseInput_Record(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 15, 0, time.UTC)
	in := ExpenseInput{
		Type:     "Need",
		Category: "Food",
		Amount:   "42.50",
		Date:     "2024-03-30",
		Note:     " lunch ",
	}

	rec, err := in.Record("x@example.com", now)
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if rec.UserEmail != "x@example.com" {
		t.Errorf("UserEmail = %q", rec.UserEmail)
	}
	if rec.Amount != "42.50" {
		t.Errorf("Amount = %q, want 42.50", rec.Amount)
	}
	if rec.Note != "lunch" {
		t.Errorf("Note = %q, want trimmed", rec.Note)
	}

	// Timestamp carries the submitted date with the current time-of-day.
	want := FormatEpoch(time.Date(2024, 3, 30, 9, 30, 15, 0, time.UTC))
	if rec.Timestamp != want {
		t.Errorf("Timestamp = %q, want %q", rec.Timestamp, want)
	}
}

// A day that does not exist in the submitted month must be rejected, not
// silently rolled into the following month.
func TestExpenseInput_Record_ImpossibleDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 15, 0, time.UTC)
	in := ExpenseInput{Amount: "10", Date: "2024-02-30"}

	rec, err := in.Record("x@example.com", now)
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("Record error = %v, want %v", err, ErrInvalidDate)
	}
	if rec != (ExpenseRecord{}) {
		t.Fatalf("Record returned a non-empty record for an impossible date: %+v", rec)
	}
}

func TestExpenseInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      ExpenseInput
		wantErr error
	}{
		{"valid", ExpenseInput{Amount: "10", Date: "2024-01-02"}, nil},
		{"bad date format", ExpenseInput{Amount: "10", Date: "01/02/2024"}, ErrInvalidDate},
		{"month out of range", ExpenseInput{Amount: "10", Date: "2024-13-02"}, ErrInvalidDate},
		{"day past leap february", ExpenseInput{Amount: "10", Date: "2024-02-30"}, ErrInvalidDate},
		{"day past non-leap february", ExpenseInput{Amount: "10", Date: "2023-02-29"}, ErrInvalidDate},
		{"day past thirty-day month", ExpenseInput{Amount: "10", Date: "2024-04-31"}, ErrInvalidDate},
		{"leap day accepted", ExpenseInput{Amount: "10", Date: "2024-02-29"}, nil},
		{"bad amount", ExpenseInput{Amount: "ten", Date: "2024-01-02"}, ErrInvalidAmount},
		{"negative amount", ExpenseInput{Amount: "-5", Date: "2024-01-02"}, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.in.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
