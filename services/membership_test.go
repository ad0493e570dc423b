package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"sporty/apperrors"
	"sporty/models"
	"sporty/services"
)

type fakeSource struct {
	memberships []services.ExternalMembership
	err         error
}

func (s fakeSource) FetchMemberships(context.Context, string) ([]services.ExternalMembership, error) {
	return s.memberships, s.err
}

func TestSyncMemberships(t *testing.T) {
	f := newFixture(t)
	red := f.newTeam(t, "Red", "red")
	user := f.member(t, "Bo", models.RoleUser)

	svc := f.memberships(fakeSource{memberships: []services.ExternalMembership{
		{GroupSlug: "blue", MembershipType: "ADMINISTRATOR"},
		{GroupSlug: "red", MembershipType: "MEMBER"},
		{GroupSlug: "green", MembershipType: "MEMBER"},
	}})

	result, err := svc.Sync(f.ctx, user, "csrf-token")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	want := services.SyncResult{Created: 1, Updated: 1, Skipped: 1}
	if result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}

	blue, err := f.store.Memberships.FindByUserAndTeam(f.ctx, user.ID, f.team.ID)
	if err != nil || blue.Role != models.RoleAdmin {
		t.Errorf("blue membership = %+v, %v", blue, err)
	}
	joined, err := f.store.Memberships.FindByUserAndTeam(f.ctx, user.ID, red.ID)
	if err != nil || joined.Role != models.RoleUser {
		t.Errorf("red membership = %+v, %v", joined, err)
	}

	again, err := svc.Sync(f.ctx, user, "csrf-token")
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if again != (services.SyncResult{Unchanged: 2, Skipped: 1}) {
		t.Errorf("second result = %+v", again)
	}
}

func TestSyncFailures(t *testing.T) {
	f := newFixture(t)
	user := f.member(t, "Bo", models.RoleUser)

	_, err := f.memberships(fakeSource{err: errors.New("status 403")}).Sync(f.ctx, user, "token")
	wantKind(t, err, apperrors.KindBadRequest)

	_, err = f.memberships(nil).Sync(f.ctx, user, "token")
	wantKind(t, err, apperrors.KindBadRequest)
}

func TestRoleFromMembershipType(t *testing.T) {
	for typ, want := range map[string]models.TeamRole{
		"MEMBER":        models.RoleUser,
		"ADMINISTRATOR": models.RoleAdmin,
		"LEADER":        models.RoleAdmin,
	} {
		if got := services.RoleFromMembershipType(typ); got != want {
			t.Errorf("RoleFromMembershipType(%q) = %s, want %s", typ, got, want)
		}
	}
}

func TestMembershipAdministration(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "Ada", models.RoleAdmin)
	sub := f.member(t, "Bo", models.RoleSubadmin)
	newcomer := f.newUser(t, "Cy")
	other := f.newTeam(t, "Red", "red")
	svc := f.memberships(nil)

	_, err := svc.AddMember(f.ctx, sub, f.team.ID, newcomer.ID, models.RoleUser)
	wantKind(t, err, apperrors.KindForbidden)

	added, err := svc.AddMember(f.ctx, admin, f.team.ID, newcomer.ID, "")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if added.Role != models.RoleUser {
		t.Errorf("role = %s, want USER", added.Role)
	}
	_, err = svc.AddMember(f.ctx, admin, f.team.ID, newcomer.ID, models.RoleUser)
	wantKind(t, err, apperrors.KindConflict)

	updated, err := svc.UpdateRole(f.ctx, admin, f.team.ID, added.ID, models.RoleSubadmin)
	if err != nil || updated.Role != models.RoleSubadmin {
		t.Fatalf("UpdateRole = %+v, %v", updated, err)
	}
	_, err = svc.UpdateRole(f.ctx, admin, other.ID, added.ID, models.RoleAdmin)
	wantKind(t, err, apperrors.KindForbidden)
	_, err = svc.UpdateRole(f.ctx, admin, f.team.ID, "missing", models.RoleAdmin)
	wantKind(t, err, apperrors.KindNotFound)
	_, err = svc.UpdateRole(f.ctx, admin, f.team.ID, added.ID, "OWNER")
	wantKind(t, err, apperrors.KindBadRequest)
}

func TestListMembersPages(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "Ada", models.RoleAdmin)
	for i := 0; i < services.MembersPageSize+2; i++ {
		f.member(t, fmt.Sprintf("Player %02d", i), models.RoleUser)
	}
	svc := f.memberships(nil)

	first, err := svc.ListMembers(f.ctx, admin, f.team.ID, 1, "")
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(first.Members) != services.MembersPageSize || first.NextPage == nil || *first.NextPage != 2 {
		t.Errorf("first page = %d members, next %v", len(first.Members), first.NextPage)
	}
	if first.Total != int64(services.MembersPageSize+3) || first.TotalPages != 2 {
		t.Errorf("total = %d, pages = %d", first.Total, first.TotalPages)
	}

	second, err := svc.ListMembers(f.ctx, admin, f.team.ID, 2, "")
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(second.Members) != 3 || second.NextPage != nil {
		t.Errorf("second page = %d members, next %v", len(second.Members), second.NextPage)
	}
	// Newest first, so the oldest membership closes the last page.
	if last := second.Members[len(second.Members)-1]; last.User.Name != "Ada" {
		t.Errorf("last member = %s, want Ada", last.User.Name)
	}

	found, err := svc.ListMembers(f.ctx, admin, f.team.ID, 1, "ADA")
	if err != nil {
		t.Fatalf("ListMembers search: %v", err)
	}
	if found.Total != 1 || found.Members[0].User.Name != "Ada" {
		t.Errorf("search = %+v", found)
	}
}
