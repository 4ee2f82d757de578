package rbac

// MenuItem is one entry of the admin navigation.
type MenuItem struct {
	Path  string `json:"path"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// adminMenu is the full navigation in display order.
var adminMenu = []MenuItem{
	{Path: PathDashboard, Label: "Dashboard", Icon: "gauge"},
	{Path: PathContent, Label: "Site Content", Icon: "file-text"},
	{Path: PathAnalytics, Label: "Analytics", Icon: "bar-chart"},
	{Path: PathJobs, Label: "Job Postings", Icon: "briefcase"},
	{Path: PathEvents, Label: "Events", Icon: "calendar"},
	{Path: PathUsers, Label: "User Management", Icon: "users"},
}

// FullMenu returns the complete navigation list.
func FullMenu() []MenuItem {
	out := make([]MenuItem, len(adminMenu))
	copy(out, adminMenu)
	return out
}

// VisibleMenu intersects the full menu with the role's permitted paths,
// preserving menu order. It recomputes from the live table on every call so
// a permission edit is reflected on the next render with no cache to bust.
func (s *Service) VisibleMenu(role Role) []MenuItem {
	allowed := s.PermissionsFor(role)
	set := make(map[string]struct{}, len(allowed))
	for _, p := range allowed {
		set[p] = struct{}{}
	}
	out := make([]MenuItem, 0, len(adminMenu))
	for _, item := range adminMenu {
		if _, ok := set[item.Path]; ok {
			out = append(out, item)
		}
	}
	return out
}
