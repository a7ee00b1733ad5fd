package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type (
	// Credential is a stored user record in the login table.
	Credential struct {
		UserID       string `dynamodbav:"user_id"`
		Email        string `dynamodbav:"email"`
		FirstName    string `dynamodbav:"firstName"`
		PasswordHash string `dynamodbav:"password"`
	}

	// ExpenseRecord is an expense item as persisted in the expense table.
	// The sort key is a fixed-width epoch-second string so string ordering
	// matches chronological ordering.
	ExpenseRecord struct {
		UserEmail string `dynamodbav:"userEmail"`
		Timestamp string `dynamodbav:"expenseTimestamp"`
		Type      string `dynamodbav:"expenseType"`
		Category  string `dynamodbav:"expenseCategory"`
		Amount    string `dynamodbav:"expenseAmount"`
		Note      string `dynamodbav:"userNote"`
	}

	// SummaryRecord is an ExpenseRecord normalized for display: amount and
	// timestamp parsed to float64 and a date string derived from the
	// timestamp.
	SummaryRecord struct {
		UserEmail string
		Timestamp float64
		Type      string
		Category  string
		Amount    float64
		Note      string
		DateStr   string
	}

	// Post is a content-addressed item keyed by its author and a stable
	// hash of its text, so repeated inserts of the same content are
	// idempotent.
	Post struct {
		Username  string `dynamodbav:"bskyUsername"`
		PostHash  string `dynamodbav:"bskyPostHash"`
		Text      string `dynamodbav:"text"`
		CreatedAt string `dynamodbav:"created_at"`
	}

	// SignUpInput holds the raw sign-up form fields.
	SignUpInput struct {
		Email     string
		FirstName string
		Password1 string
		Password2 string
	}

	// ExpenseInput holds the raw expense form fields.
	ExpenseInput struct {
		Type     string
		Category string
		Amount   string
		Date     string // YYYY-MM-DD
		Note     string
	}
)

var (
	ErrEmailTooShort    = errors.New("Email must be greater than 3 characters.")
	ErrNameTooShort     = errors.New("First name must be greater than 1 character.")
	ErrPasswordMismatch = errors.New("Passwords don't match.")
	ErrPasswordTooShort = errors.New("Password must be at least 7 characters.")
	ErrInvalidAmount    = errors.New("invalid expense amount")
	ErrInvalidDate      = errors.New("invalid expense date")
)

// Validate checks sign-up field constraints in the order they are reported
// to the user.
func (in SignUpInput) Validate() error {
	if utf8.RuneCountInString(in.Email) < 4 {
		return ErrEmailTooShort
	}
	if utf8.RuneCountInString(in.FirstName) < 2 {
		return ErrNameTooShort
	}
	if in.Password1 != in.Password2 {
		return ErrPasswordMismatch
	}
	if len(in.Password1) < 7 {
		return ErrPasswordTooShort
	}
	return nil
}

// ParseDate parses the submitted calendar date.
func (in ExpenseInput) ParseDate() (year, month, day int, err error) {
	parts := strings.Split(strings.TrimSpace(in.Date), "-")
	if len(parts) != 3 {
		return 0, 0, 0, ErrInvalidDate
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, ErrInvalidDate
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, ErrInvalidDate
	}
	day, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, ErrInvalidDate
	}
	days, derr := DaysInMonth(year, month)
	if derr != nil || day < 1 || day > days {
		return 0, 0, 0, ErrInvalidDate
	}
	return year, month, day, nil
}

// Validate checks that the expense form parses into a persistable record.
func (in ExpenseInput) Validate() error {
	if _, _, _, err := in.ParseDate(); err != nil {
		return err
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(in.Amount), 64); err != nil || v < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Record builds the persistable expense record for the given owner. The
// stored timestamp combines the submitted calendar date with the current
// UTC time-of-day.
func (in ExpenseInput) Record(ownerEmail string, now time.Time) (ExpenseRecord, error) {
	if err := in.Validate(); err != nil {
		return ExpenseRecord{}, err
	}
	year, month, day, _ := in.ParseDate()
	ts := CombineDateWithTime(year, month, day, now)
	return ExpenseRecord{
		UserEmail: ownerEmail,
		Timestamp: FormatEpoch(ts),
		Type:      strings.TrimSpace(in.Type),
		Category:  strings.TrimSpace(in.Category),
		Amount:    strings.TrimSpace(in.Amount),
		Note:      strings.TrimSpace(in.Note),
	}, nil
}
