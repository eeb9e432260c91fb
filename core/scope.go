package core

// Scope carries the caller's role restrictions down to the data-access
// boundary. Every service read/write takes one; HTTP-layer checks are only a
// convenience on top of it.
//
// Two roles exist: admin (unrestricted) and teacher (bound to exactly one
// assigned class).
type Scope struct {
	Admin         bool
	AssignedClass string
}

func AdminScope() Scope {
	return Scope{Admin: true}
}

func TeacherScope(assignedClass string) Scope {
	return Scope{AssignedClass: assignedClass}
}

// RequireAdmin rejects teacher-scoped access to admin-only surfaces.
func (s Scope) RequireAdmin() error {
	if !s.Admin {
		return ErrForbidden
	}
	return nil
}

// ClassFilter resolves the effective class filter for a read.
// An admin gets the filter they asked for ("all" and "" mean no filter);
// a teacher always gets their assigned class, whatever was requested --
// the selector value is not an access-control boundary.
func (s Scope) ClassFilter(requested string) string {
	if s.Admin {
		if requested == "all" {
			return ""
		}
		return requested
	}
	return s.AssignedClass
}

// CheckClass validates a write targeting classKey. A teacher targeting any
// class other than their assigned one is rejected, never silently no-oped.
func (s Scope) CheckClass(classKey string) error {
	if s.Admin || classKey == s.AssignedClass {
		return nil
	}
	return ErrForbidden
}
