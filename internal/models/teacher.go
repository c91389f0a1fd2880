package models

// Teacher is the subset of the platform teacher record the payroll engine reads.
type Teacher struct {
	ID       string  `db:"id" json:"id"`
	FullName string  `db:"full_name" json:"full_name"`
	RankID   *string `db:"rank_id" json:"rank_id,omitempty"`
	Active   bool    `db:"active" json:"active"`
}
