package roster

import (
	"math"
	"strings"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

// Kind discriminates the two tracked populations.
type Kind string

const (
	KindStudent Kind = "student"
	KindTeacher Kind = "teacher"
)

func (k Kind) Valid() bool {
	return k == KindStudent || k == KindTeacher
}

// Status is an attendance status.
// StatusNone is never marked explicitly: it is the state of an entity before
// its first save, and the logical state of a cleared working mark.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusNone    Status = "none"
)

// Markable reports whether the status may be set by a mark action.
func (s Status) Markable() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// CountsPresent reports whether the status counts toward the present tally.
// A late arrival is still in attendance for rate purposes.
func (s Status) CountsPresent() bool {
	return s == StatusPresent || s == StatusLate
}

// Entity is a student or teacher tracked for attendance.
// Stat fields (Rate, counters, CurrentStatus) are only ever mutated by the
// attendance reconciliation engine.
type Entity struct {
	ID             int
	Kind           Kind
	Name           string
	ClassKey       string // grade (student) or assigned class (teacher)
	Subject        string // teacher only
	Contact        string // messaging handle
	AvatarInitials string
	Birthdate      string // student only, optional

	Rate          int // 0-100, derived from the counters below
	PresentCount  int
	AbsentCount   int
	TotalClasses  int
	CurrentStatus Status

	CreatedAt time.Time // UTC
	UpdatedAt time.Time // UTC
}

// RecomputeRate rederives Rate from the counters. An entity that was never
// saved (TotalClasses == 0) holds the 100 convention value.
func (e *Entity) RecomputeRate() {
	if e.TotalClasses == 0 {
		e.Rate = 100
		return
	}
	e.Rate = int(math.Round(float64(e.PresentCount) / float64(e.TotalClasses) * 100))
}

// AvatarInitials derives display initials from a name: first letters of the
// first two words, or the first two letters of a single word.
func AvatarInitials(name string) string {
	parts := strings.Fields(name)
	if len(parts) > 1 {
		return strings.ToUpper(string([]rune(parts[0])[0]) + string([]rune(parts[1])[0]))
	}
	runes := []rune(name)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}

// NewEntity contains information needed to create a new Entity.
type NewEntity struct {
	Name      string `json:"name" validate:"required"`
	ClassKey  string `json:"class_key" validate:"required"`
	Subject   string `json:"subject"`
	Contact   string `json:"whatsapp"`
	Birthdate string `json:"birthdate" validate:"omitempty,day"`
}

func (ne *NewEntity) Validate() error {
	ne.Name = core.CleanString(ne.Name)
	ne.ClassKey = core.CleanString(ne.ClassKey)
	ne.Subject = core.CleanString(ne.Subject)
	ne.Contact = core.CleanString(ne.Contact)
	return validate.Struct(ne)
}

// UpdateEntity defines the identity fields an edit may modify.
// Stat fields are off limits.
type UpdateEntity struct {
	Name      string `json:"name" validate:"required"`
	ClassKey  string `json:"class_key" validate:"required"`
	Subject   string `json:"subject"`
	Contact   string `json:"whatsapp"`
	Birthdate string `json:"birthdate" validate:"omitempty,day"`
}

func (ue *UpdateEntity) Validate() error {
	ue.Name = core.CleanString(ue.Name)
	ue.ClassKey = core.CleanString(ue.ClassKey)
	ue.Subject = core.CleanString(ue.Subject)
	ue.Contact = core.CleanString(ue.Contact)
	return validate.Struct(ue)
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	ClassKey string
}
