package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type addItemRequest struct {
	ID       int    `json:"id"       validate:"required,gt=0"`
	Kind     string `json:"kind"     validate:"required"`
	Title    string `json:"title"    validate:"required"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	Genre    string `json:"genre"`
	Composer string `json:"composer"`
	Director string `json:"director"`
	Narrator string `json:"narrator"`
}

type registerPatronRequest struct {
	ID         int    `json:"id"          validate:"required,gt=0"`
	Name       string `json:"name"        validate:"required"`
	Email      string `json:"email"       validate:"omitempty,email"`
	Role       string `json:"role"        validate:"required"`
	Course     string `json:"course"`
	Year       int    `json:"year"        validate:"gte=0"`
	GuardianID int    `json:"guardian_id" validate:"gte=0"`
}

type assignGuardianRequest struct {
	GuardianID int `json:"guardian_id" validate:"required,gt=0"`
}

type loanRequest struct {
	PatronID int `json:"patron_id" validate:"required,gt=0"`
	ItemID   int `json:"item_id"   validate:"required,gt=0"`
}

// --- Response types ---
// Owned by the transport layer so the JSON contract does not follow internal changes.

type itemResponse struct {
	ID        int    `json:"id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Available bool   `json:"available"`
	Author    string `json:"author,omitempty"`
	ISBN      string `json:"isbn,omitempty"`
	Genre     string `json:"genre,omitempty"`
	Composer  string `json:"composer,omitempty"`
	Director  string `json:"director,omitempty"`
	Narrator  string `json:"narrator,omitempty"`
	Summary   string `json:"summary"`
}

type itemListResponse struct {
	Data  []itemResponse `json:"data"`
	Count int            `json:"count"`
}

type patronLinks struct {
	Self    string `json:"self"`
	Loans   string `json:"loans"`
	History string `json:"history"`
}

type patronResponse struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email,omitempty"`
	Role       string      `json:"role"`
	GuardianID int         `json:"guardian_id,omitempty"`
	Dependents []int       `json:"dependents,omitempty"`
	Course     string      `json:"course,omitempty"`
	Year       int         `json:"year,omitempty"`
	OpenLoans  int         `json:"open_loans"`
	Summary    string      `json:"summary"`
	Links      patronLinks `json:"_links"`
}

type loanResponse struct {
	ID          int        `json:"id"`
	ItemID      int        `json:"item_id"`
	ItemTitle   string     `json:"item_title"`
	ItemKind    string     `json:"item_kind"`
	PatronID    int        `json:"patron_id"`
	PatronName  string     `json:"patron_name"`
	PatronRole  string     `json:"patron_role"`
	StartDate   time.Time  `json:"start_date"`
	DueDate     time.Time  `json:"due_date"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
	RenewCount  int        `json:"renew_count"`
	MaxRenewals int        `json:"max_renewals"`
	Reminder    string     `json:"reminder,omitempty"`
	Overdue     bool       `json:"overdue"`
	AccruedFine string     `json:"accrued_fine"`
	Summary     string     `json:"summary"`
}

type loanResultResponse struct {
	Loan           loanResponse `json:"loan"`
	AlreadyExisted bool         `json:"already_existed"`
}

type loanListResponse struct {
	Data  []loanResponse `json:"data"`
	Count int            `json:"count"`
}

type loanEventResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	LoanID     int       `json:"loan_id"`
	ItemID     int       `json:"item_id"`
	DueDate    time.Time `json:"due_date"`
	RenewCount int       `json:"renew_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

type historyResponse struct {
	PatronID int                 `json:"patron_id"`
	Events   []loanEventResponse `json:"events"`
}
