package models

import "time"

// StudentStatus is the pickup status of a student.
type StudentStatus string

const (
	StudentStatusPresent         StudentStatus = "Presente"
	StudentStatusAbsent          StudentStatus = "Ausente"
	StudentStatusAtSchool        StudentStatus = "Na escola"
	StudentStatusOnTheWay        StudentStatus = "A caminho"
	StudentStatusPickupConfirmed StudentStatus = "Saída confirmada"
)

// Valid returns true when the status is a supported value.
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentStatusPresent, StudentStatusAbsent, StudentStatusAtSchool, StudentStatusOnTheWay, StudentStatusPickupConfirmed:
		return true
	default:
		return false
	}
}

// Toggled flips between Presente and Ausente. Anything that is not Presente
// becomes Presente.
func (s StudentStatus) Toggled() StudentStatus {
	if s == StudentStatusPresent {
		return StudentStatusAbsent
	}
	return StudentStatusPresent
}

// Student is a row of the students table.
type Student struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Status    StudentStatus `db:"status" json:"status"`
	ParentID  *string       `db:"parent_id" json:"parent_id,omitempty"`
	BirthDate *time.Time    `db:"birth_date" json:"birth_date,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// StudentFilter narrows a student listing. Results are always ordered by
// name ascending.
type StudentFilter struct {
	ParentID string
}
