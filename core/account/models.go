package account

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/mahudhurio/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

var AllRoles = []string{RoleAdmin, RoleTeacher}

// Account is a signed-in user of the system: an unrestricted admin or a
// teacher bound to one assigned class.
type Account struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"` // optional, for notifications only
	Role          string    `json:"role"`
	AssignedClass string    `json:"assigned_class,omitempty"` // teacher role only
	IsActive      *bool     `json:"is_active"`
	PasswordHash  []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
	LastLogin     time.Time `json:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Scope translates the account's role into the guard every service consults.
func (a *Account) Scope() core.Scope {
	if a.IsAdmin() {
		return core.AdminScope()
	}
	return core.TeacherScope(a.AssignedClass)
}

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Name          string `json:"name" validate:"required"`
	Username      string `json:"username" validate:"required,min=3,alphanum_"`
	Email         string `json:"email" validate:"omitempty,email"`
	Password      string `json:"password" validate:"required"`
	Role          string `json:"role" validate:"required,role"`
	AssignedClass string `json:"assigned_class"`
}

func (na *NewAccount) Validate() error {
	na.Name = core.CleanString(na.Name)
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.AssignedClass = core.CleanString(na.AssignedClass)
	return validate.Struct(na)
}

// UpdateAccount defines what information may be provided to modify an Account.
type UpdateAccount struct {
	Name          string `json:"name"`
	Username      string `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email         string `json:"email" validate:"omitempty,email"`
	Password      string `json:"password"`
	Role          string `json:"role" validate:"omitempty,role"`
	AssignedClass string `json:"assigned_class"`
	IsActive      *bool  `json:"is_active"`
}

func (ua *UpdateAccount) Validate(orig Account) error {
	if name := core.CleanString(ua.Name); name != "" {
		ua.Name = name
	} else {
		ua.Name = orig.Name
	}
	if uname := core.CleanString(ua.Username, true); uname != "" {
		ua.Username = uname
	} else {
		ua.Username = orig.Username
	}
	if email := core.CleanString(ua.Email, true); email != "" {
		ua.Email = email
	} else {
		ua.Email = orig.Email
	}
	if ua.Role == "" {
		ua.Role = orig.Role
	}
	if ua.AssignedClass == "" {
		ua.AssignedClass = orig.AssignedClass
	}
	return validate.Struct(ua)
}
