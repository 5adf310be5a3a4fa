package handler

import (
	"strconv"

	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/ports"
)

// --- Request → Service input ---

func toAddItemInput(r addItemRequest) ports.AddItemInput {
	return ports.AddItemInput{
		ID:       r.ID,
		Kind:     r.Kind,
		Title:    r.Title,
		Author:   r.Author,
		ISBN:     r.ISBN,
		Genre:    r.Genre,
		Composer: r.Composer,
		Director: r.Director,
		Narrator: r.Narrator,
	}
}

func toRegisterInput(r registerPatronRequest) ports.RegisterPatronInput {
	return ports.RegisterPatronInput{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		Role:       r.Role,
		Course:     r.Course,
		Year:       r.Year,
		GuardianID: r.GuardianID,
	}
}

// --- Service output → Response ---

func toItemResponse(it domain.Item) itemResponse {
	return itemResponse{
		ID:        it.ID,
		Kind:      string(it.Kind),
		Title:     it.Title,
		Available: it.Available,
		Author:    it.Author,
		ISBN:      it.ISBN,
		Genre:     it.Genre,
		Composer:  it.Composer,
		Director:  it.Director,
		Narrator:  it.Narrator,
		Summary:   it.Describe(),
	}
}

func toItemList(items []domain.Item) itemListResponse {
	data := make([]itemResponse, 0, len(items))
	for _, it := range items {
		data = append(data, toItemResponse(it))
	}
	return itemListResponse{Data: data, Count: len(data)}
}

func toPatronResponse(p *ports.PatronView) patronResponse {
	self := "/v1/patrons/" + strconv.Itoa(p.ID)
	return patronResponse{
		ID:         p.ID,
		Name:       p.Name,
		Email:      p.Email,
		Role:       string(p.Role),
		GuardianID: p.GuardianID,
		Dependents: p.Dependents,
		Course:     p.Course,
		Year:       p.Year,
		OpenLoans:  p.OpenLoans,
		Summary:    p.Summary,
		Links: patronLinks{
			Self:    self,
			Loans:   self + "/loans",
			History: self + "/history",
		},
	}
}

func toLoanResponse(v ports.LoanView) loanResponse {
	resp := loanResponse{
		ID:          v.ID,
		ItemID:      v.ItemID,
		ItemTitle:   v.ItemTitle,
		ItemKind:    string(v.ItemKind),
		PatronID:    v.PatronID,
		PatronName:  v.PatronName,
		PatronRole:  string(v.PatronRole),
		StartDate:   v.StartDate,
		DueDate:     v.DueDate,
		RenewCount:  v.RenewCount,
		MaxRenewals: v.MaxRenewals,
		Reminder:    v.Reminder,
		Overdue:     v.Overdue,
		AccruedFine: v.AccruedFine.StringFixed(2),
		Summary:     v.Summary,
	}
	if !v.ReturnDate.IsZero() {
		returned := v.ReturnDate
		resp.ReturnDate = &returned
	}
	return resp
}

func toLoanList(views []ports.LoanView) loanListResponse {
	data := make([]loanResponse, 0, len(views))
	for _, v := range views {
		data = append(data, toLoanResponse(v))
	}
	return loanListResponse{Data: data, Count: len(data)}
}

func toHistoryResponse(patronID int, events []domain.LoanEvent) historyResponse {
	out := make([]loanEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, loanEventResponse{
			ID:         e.ID,
			Type:       string(e.Type),
			LoanID:     e.LoanID,
			ItemID:     e.ItemID,
			DueDate:    e.DueDate,
			RenewCount: e.RenewCount,
			OccurredAt: e.OccurredAt,
		})
	}
	return historyResponse{PatronID: patronID, Events: out}
}
