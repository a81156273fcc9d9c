package models

import (
	"fmt"
	"strings"

	"github.com/noah-isme/rewards-ledger-api/pkg/recordstore"
)

// StudentRecord is one data row of a scope's student collection.
type StudentRecord struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Sex               string `json:"sex,omitempty"`
	Email             string `json:"email,omitempty"`
	Credential        string `json:"-"`
	HomeworkCount     int    `json:"homework_count"`
	AttendanceCount   int    `json:"attendance_count"`
	CoinBalance       int    `json:"coin_balance"`
	BadgeCount        int    `json:"badge_count"`
	Experience        int    `json:"experience"`
	LastObservedLevel int    `json:"-"`
	Row               int    `json:"-"`
}

// StudentView is the authenticated profile returned to clients.
type StudentView struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	HomeworkCount   int            `json:"homework_count"`
	AttendanceCount int            `json:"attendance_count"`
	CoinBalance     int            `json:"coin_balance"`
	BadgeCount      int            `json:"badge_count"`
	Experience      int            `json:"experience"`
	Level           int            `json:"level"`
	LeveledUp       bool           `json:"leveled_up"`
	Holdings        map[string]int `json:"holdings"`
	Row             int            `json:"row"`
}

// ExperienceResult reports the outcome of an experience credit.
type ExperienceResult struct {
	StudentID  string `json:"student_id"`
	Experience int    `json:"experience"`
	Level      int    `json:"level"`
	LeveledUp  bool   `json:"leveled_up"`
}

// StudentLayout maps student fields to zero-based column indexes.
type StudentLayout struct {
	ID         int
	Name       int
	Sex        int
	Email      int
	Credential int
	Homework   int
	Coins      int
	Attendance int
	BadgeCount int
	Experience int
	LastLevel  int
}

// DefaultStudentLayout is the A..K column order of the classic roster sheet.
func DefaultStudentLayout() StudentLayout {
	return StudentLayout{
		ID:         0,
		Name:       1,
		Sex:        2,
		Email:      3,
		Credential: 4,
		Homework:   5,
		Coins:      6,
		Attendance: 7,
		BadgeCount: 8,
		Experience: 9,
		LastLevel:  10,
	}
}

func (l *StudentLayout) fields() map[string]*int {
	return map[string]*int{
		"id":         &l.ID,
		"name":       &l.Name,
		"sex":        &l.Sex,
		"email":      &l.Email,
		"credential": &l.Credential,
		"homework":   &l.Homework,
		"coins":      &l.Coins,
		"attendance": &l.Attendance,
		"badges":     &l.BadgeCount,
		"experience": &l.Experience,
		"level":      &l.LastLevel,
	}
}

// ParseStudentLayout reads "id=A,name=B,..." overrides on top of the default
// layout. Two fields may not share a column.
func ParseStudentLayout(raw string) (StudentLayout, error) {
	layout := DefaultStudentLayout()
	if strings.TrimSpace(raw) == "" {
		return layout, nil
	}
	fields := layout.fields()
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, col, ok := strings.Cut(pair, "=")
		if !ok {
			return StudentLayout{}, fmt.Errorf("layout entry %q is not field=COLUMN", pair)
		}
		target, known := fields[strings.ToLower(strings.TrimSpace(key))]
		if !known {
			return StudentLayout{}, fmt.Errorf("unknown layout field %q", key)
		}
		idx, err := recordstore.ColumnIndex(col)
		if err != nil {
			return StudentLayout{}, fmt.Errorf("layout field %q: %w", key, err)
		}
		*target = idx
	}
	seen := make(map[int]string, len(fields))
	for name, idx := range fields {
		if other, dup := seen[*idx]; dup {
			return StudentLayout{}, fmt.Errorf("layout fields %q and %q share column %s", other, name, recordstore.ColumnName(*idx))
		}
		seen[*idx] = name
	}
	return layout, nil
}

// LastColumn is the highest column index the layout touches.
func (l StudentLayout) LastColumn() int {
	last := 0
	for _, idx := range l.fields() {
		if *idx > last {
			last = *idx
		}
	}
	return last
}

// Header returns the header row written when a collection is created.
func (l StudentLayout) Header() []string {
	header := make([]string, l.LastColumn()+1)
	for name, idx := range l.fields() {
		header[*idx] = name
	}
	return header
}
