package mongo

import (
	"errors"
	"testing"

	"github.com/univlib/lending-system/internal/core/domain"
)

func TestPatronDocument_RoundTrip(t *testing.T) {
	student := domain.NewStudent(3, "Sara", "sara@uni.edu", "Computing", 2)

	got, err := toPatronDocument(student).toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Role != domain.RoleStudent || got.Course != "Computing" || got.Year != 2 {
		t.Errorf("student fields lost: %+v", got)
	}
}

func TestPatronDocument_KeepsGuardianID(t *testing.T) {
	doc := patronDocument{ID: 2, Name: "Tim", Email: "tim@mail.com", Role: "child", GuardianID: 1}

	p, err := doc.toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.GuardianID != 1 || p.Role != domain.RoleChild {
		t.Errorf("unexpected patron %+v", p)
	}
	if len(p.Dependents) != 0 {
		t.Error("dependents are rebuilt by the engine, not stored")
	}
}

func TestPatronDocument_UnknownRole(t *testing.T) {
	_, err := patronDocument{ID: 9, Role: "visitor"}.toDomain()
	if !errors.Is(err, domain.ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
}
