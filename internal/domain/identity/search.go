package identity

import (
	"fmt"
	"strings"
)

// SearchFilter narrows the doctor directory. Empty fields are ignored and the
// remaining ones are combined with AND. City, State and Speciality match
// exactly; Name matches any case-insensitive substring of the doctor's name.
type SearchFilter struct {
	City       string `query:"city"`
	State      string `query:"state"`
	Speciality string `query:"speciality"`
	Name       string `query:"name"`
}

// Trimmed returns f with surrounding whitespace removed from every field.
func (f SearchFilter) Trimmed() SearchFilter {
	return SearchFilter{
		City:       strings.TrimSpace(f.City),
		State:      strings.TrimSpace(f.State),
		Speciality: strings.TrimSpace(f.Speciality),
		Name:       strings.TrimSpace(f.Name),
	}
}

// Empty reports whether no field is set.
func (f SearchFilter) Empty() bool {
	return f.City == "" && f.State == "" && f.Speciality == "" && f.Name == ""
}

// Matches applies the filter to a single doctor.
func (f SearchFilter) Matches(d *Doctor) bool {
	if f.City != "" && d.City != f.City {
		return false
	}
	if f.State != "" && d.State != f.State {
		return false
	}
	if f.Speciality != "" && d.Speciality != f.Speciality {
		return false
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(f.Name)) {
		return false
	}
	return true
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// searchQuery accumulates WHERE clauses and their positional arguments.
type searchQuery struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	orderBy string
}

func newSearchQuery(table, cols string) *searchQuery {
	return &searchQuery{table: table, cols: cols}
}

// next returns the placeholder index for the next argument.
func (q *searchQuery) next() int { return len(q.args) + 1 }

// add appends a clause containing exactly one %d placeholder for arg.
func (q *searchQuery) add(clause string, arg interface{}) {
	q.where += " AND " + fmt.Sprintf(clause, q.next())
	q.args = append(q.args, arg)
}

func (q *searchQuery) sql() string {
	s := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		s += " ORDER BY " + q.orderBy
	}
	return s
}

// buildDoctorSearch translates f into SQL over the doctors table.
func buildDoctorSearch(f SearchFilter) *searchQuery {
	q := newSearchQuery("doctors", doctorCols)
	if f.City != "" {
		q.add("city = $%d", f.City)
	}
	if f.State != "" {
		q.add("state = $%d", f.State)
	}
	if f.Speciality != "" {
		q.add("speciality = $%d", f.Speciality)
	}
	if f.Name != "" {
		q.add(`name ILIKE $%d ESCAPE '\'`, "%"+escapeLike(f.Name)+"%")
	}
	q.orderBy = "name, id"
	return q
}
