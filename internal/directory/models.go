// Package directory resolves user IDs against the student and employee
// collections. It never writes; the rosters are owned elsewhere.
package directory

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Kind string

const (
	KindStudent    Kind = "student"
	KindEmployee   Kind = "employee"
	KindUnresolved Kind = "unresolved"
)

// Employee is any staff account. Role "student" is never an approver.
type Employee struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	EmployeeID    string             `bson:"employee_id" json:"employee_id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	OfficialEmail string             `bson:"official_email" json:"official_email"`
	Department    string             `bson:"department" json:"department"`
	Post          string             `bson:"post" json:"post"`
	Role          string             `bson:"role" json:"role"`
}

type Student struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	UnivRollNo    string             `bson:"univ_roll_no" json:"univ_roll_no"`
	Branch        string             `bson:"branch" json:"branch"`
	Course        string             `bson:"course" json:"course"`
	Section       string             `bson:"section" json:"section"`
	OfficialEmail string             `bson:"official_email" json:"official_email"`
}

// Identity is the projection every principal exposes.
type Identity struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	ContactEmail string `json:"contact_email"`
}

// Principal is one of *Student, *Employee or Unresolved.
type Principal interface {
	Identity() Identity
	Kind() Kind
	isPrincipal()
}

func (s *Student) Identity() Identity {
	return Identity{ID: s.ID.Hex(), DisplayName: s.Name, ContactEmail: s.OfficialEmail}
}

func (s *Student) Kind() Kind { return KindStudent }
func (*Student) isPrincipal() {}

func (e *Employee) Identity() Identity {
	email := e.OfficialEmail
	if email == "" {
		email = e.Email
	}
	return Identity{ID: e.ID.Hex(), DisplayName: e.Name, ContactEmail: email}
}

func (e *Employee) Kind() Kind { return KindEmployee }
func (*Employee) isPrincipal() {}

// Unresolved stands in for an ID found in neither collection.
type Unresolved struct {
	ID string
}

func (u Unresolved) Identity() Identity { return Identity{ID: u.ID} }
func (Unresolved) Kind() Kind           { return KindUnresolved }
func (Unresolved) isPrincipal()         {}

// Resolved reports whether p names a real user.
func Resolved(p Principal) bool {
	return p != nil && p.Kind() != KindUnresolved
}
