package model

// Contact is a person record eligible to be contacted.
type Contact struct {
	ID        int     `db:"id" json:"id"`
	TenantID  string  `db:"tenant_id" json:"tenant_id"`
	FirstName string  `db:"first_name" json:"first_name"`
	LastName  string  `db:"last_name" json:"last_name"`
	Phone     string  `db:"phone" json:"phone"`
	Email     string  `db:"email" json:"email"`
	City      string  `db:"city" json:"city"`
	Source    string  `db:"source" json:"source"`
	Score     float64 `db:"score" json:"score"`
}
