package rbac

import "testing"

func TestVisibleMenuIsOrderedSubset(t *testing.T) {
	svc := NewService(nil)
	full := FullMenu()

	for _, role := range Roles() {
		menu := svc.VisibleMenu(role)
		if len(menu) > len(full) {
			t.Fatalf("%s: menu larger than full navigation", role)
		}
		// Every visible item must appear in the full menu, in the same
		// relative order, and be permitted for the role.
		idx := 0
		for _, item := range menu {
			for idx < len(full) && full[idx].Path != item.Path {
				idx++
			}
			if idx == len(full) {
				t.Fatalf("%s: item %q out of menu order", role, item.Path)
			}
			if !svc.Allowed(role, item.Path) {
				t.Fatalf("%s: item %q visible but not permitted", role, item.Path)
			}
			idx++
		}
	}
}

func TestVisibleMenuReflectsPermissionEdits(t *testing.T) {
	svc := NewService(nil)

	before := svc.VisibleMenu(RoleHR)
	if len(before) != 2 {
		t.Fatalf("expected 2 default hr items, got %d", len(before))
	}

	if err := svc.SetPermissions(RoleHR, []string{PathDashboard, PathJobs, PathEvents}); err != nil {
		t.Fatalf("SetPermissions: %v", err)
	}
	after := svc.VisibleMenu(RoleHR)
	if len(after) != 3 {
		t.Fatalf("expected 3 hr items after edit, got %d", len(after))
	}
	if after[2].Path != PathEvents {
		t.Fatalf("menu order broken: %v", after)
	}
}

func TestVisibleMenuHidesUnpermittedButDoesNotBlock(t *testing.T) {
	svc := NewService(nil)

	for _, item := range svc.VisibleMenu(RoleHR) {
		if item.Path == PathUsers {
			t.Fatalf("hr must not see user management in navigation")
		}
	}
	// Navigation is presentation-only; route reachability is decided by the
	// session guard, not this table.
	if svc.Allowed(RoleHR, PathUsers) {
		t.Fatalf("default table leaked user management to hr")
	}
}
