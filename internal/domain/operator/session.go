package operator

// Role of the signed-in console user.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleManager         Role = "manager"
	RoleTeacher         Role = "teacher"
	RoleUnauthenticated Role = "unauthenticated"
)

// Session identifies who performs an operation. It is passed explicitly to
// every core call that needs it.
type Session struct {
	Role Role
	// TeacherID is set for teachers and scopes them to their own groups.
	TeacherID string
	Name      string
}

func (s Session) Authenticated() bool {
	switch s.Role {
	case RoleAdmin, RoleManager, RoleTeacher:
		return true
	default:
		return false
	}
}

// SeesAllGroups is false for teachers, who only see groups they own.
func (s Session) SeesAllGroups() bool {
	return s.Role == RoleAdmin || s.Role == RoleManager
}

// System is the session used by background jobs.
var System = Session{Role: RoleAdmin, Name: "system"}
