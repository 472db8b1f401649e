package remote

// Member roles as reported by the API.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// MemberInfo is one member's per-group metadata. Fetched fresh per call
// (no_cache); never cached here.
type MemberInfo struct {
	UserID   string `json:"user_id"`
	Card     string `json:"card"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

// DisplayName resolves the name shown in the group: explicit card first,
// then global nickname, else empty.
func (m MemberInfo) DisplayName() string {
	if m.Card != "" {
		return m.Card
	}
	return m.Nickname
}

// IsAdmin reports whether the role permits modifying other members' cards.
func (m MemberInfo) IsAdmin() bool {
	return m.Role == RoleAdmin || m.Role == RoleOwner
}

// Group is one entry of the group directory.
type Group struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
}

// Display renders "name(id)" for logs, the way operators know their groups.
func (g Group) Display() string {
	if g.GroupName == "" {
		return g.GroupID
	}
	return g.GroupName + "(" + g.GroupID + ")"
}
