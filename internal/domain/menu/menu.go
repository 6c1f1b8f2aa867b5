package menu

// Package menu contains the pure navigation-menu model. Building a
// tree is a side-effect-free function of the privilege boolean plus a
// static catalog; nothing here touches the session or the router.

// ActionKind discriminates what clicking an item does.
type ActionKind int

const (
	// ActionNone marks parent items that only group children.
	ActionNone ActionKind = iota
	// ActionNavigate routes to Item.Route.
	ActionNavigate
	// ActionOpenProfile publishes the profile-dialog signal.
	ActionOpenProfile
	// ActionLogout signs out, then routes to the login entry point.
	ActionLogout
)

// Item is a single menu entry. Parents carry Items; leaves carry an
// action. Visible defaults to true and is overridden to the privilege
// boolean for role-gated entries.
type Item struct {
	Label   string
	Icon    string
	Route   string
	Action  ActionKind
	Visible bool
	Items   []Item
}

// Tree is an ordered sequence of top-level items.
type Tree []Item

// Route constants for the fixed navigation targets.
const (
	RouteHome          = "/home"
	RouteLogin         = "/auth/login"
	RouteAccountList   = "/account/account-list"
	RouteAccountRange  = "/account/between"
	RouteAccountDetail = "/account/between-detail"
	RouteAccountYear   = "/account/allyear"
	RouteCreditList    = "/credit/credit-list"
	RouteCreditRange   = "/credit/between"
	RouteCreditYear    = "/credit/allyear"
	RouteBloodList     = "/bloods/blood-list"
	RouteBloodRange    = "/bloods/blood-time-period"
	RouteBloodYear     = "/bloods/blood-year-period"
	RouteMonthly       = "/monthly"
	RouteManageUsers   = "/manage-user"
)

func leaf(label, icon, route string) Item {
	return Item{Label: label, Icon: icon, Route: route, Action: ActionNavigate, Visible: true}
}

// Build returns the full navigation tree for the given privilege
// state. The tree is rebuilt from scratch on every call; callers must
// not mutate the result and reuse it across privilege changes.
func Build(privileged bool) Tree {
	return Tree{
		{Label: "Home", Icon: "pi pi-home", Route: RouteHome, Action: ActionNavigate, Visible: true},
		{Label: "Accounts", Icon: "pi pi-database", Visible: true, Items: []Item{
			leaf("Account list", "pi pi-list", RouteAccountList),
			leaf("By period", "pi pi-calendar-clock", RouteAccountRange),
			leaf("Period and detail", "pi pi-calendar-plus", RouteAccountDetail),
			leaf("Whole year", "pi pi-book", RouteAccountYear),
		}},
		{Label: "Credits", Icon: "pi pi-credit-card", Visible: true, Items: []Item{
			leaf("Credit list", "pi pi-list", RouteCreditList),
			leaf("By period", "pi pi-clock", RouteCreditRange),
			leaf("Whole year", "pi pi-book", RouteCreditYear),
		}},
		{Label: "Blood pressure", Icon: "pi pi-heart", Visible: true, Items: []Item{
			leaf("Blood list", "pi pi-list", RouteBloodList),
			leaf("Time period", "pi pi-calendar-clock", RouteBloodRange),
			leaf("Year period", "pi pi-calendar-plus", RouteBloodYear),
		}},
		{Label: "Monthly", Icon: "pi pi-calendar", Visible: true, Items: []Item{
			leaf("Fixed dates", "pi pi-book", RouteMonthly),
		}},
		{Label: "Manage users", Icon: "pi pi-users", Visible: privileged, Items: []Item{
			leaf("Users list", "pi pi-users", RouteManageUsers),
		}},
		{Label: "Logout", Icon: "pi pi-sign-out", Action: ActionLogout, Visible: true},
	}
}

// PopupItems returns the avatar popup entries (profile + logout).
// They are not privilege-dependent and can be built once.
func PopupItems() Tree {
	return Tree{
		{Label: "Profile", Icon: "pi pi-user", Action: ActionOpenProfile, Visible: true},
		{Label: "Logout", Icon: "pi pi-sign-out", Action: ActionLogout, Visible: true},
	}
}

// VisibleLabels flattens the tree into the labels a user with the
// current privilege actually sees. Hidden parents hide their children.
func (t Tree) VisibleLabels() []string {
	var out []string
	for _, it := range t {
		if !it.Visible {
			continue
		}
		out = append(out, it.Label)
		for _, child := range it.Items {
			if child.Visible {
				out = append(out, child.Label)
			}
		}
	}
	return out
}

// Find returns the first item (top-level or child) with the label.
func (t Tree) Find(label string) (Item, bool) {
	for _, it := range t {
		if it.Label == label {
			return it, true
		}
		for _, child := range it.Items {
			if child.Label == label {
				return child, true
			}
		}
	}
	return Item{}, false
}
