package models

// Scope names the three collections of one reward program and the column
// layout of its student collection.
type Scope struct {
	Name      string
	Students  string
	Badges    string
	Purchases string
	Layout    StudentLayout
}
