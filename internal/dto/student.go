package dto

// AddStudentRequest is the add-student form. Teachers pick the initial
// status; parents may give a birth date (YYYY-MM-DD).
type AddStudentRequest struct {
	Name      string `json:"name" validate:"required"`
	Status    string `json:"status"`
	BirthDate string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
}
