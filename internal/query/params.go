package query

import (
	"net/url"
	"strconv"
	"strings"
)

// AllFilter is the sentinel filter value meaning "no filter"
const AllFilter = "all"

// Filter is one named filter value
type Filter struct {
	Name  string
	Value string
}

// Params are the parameters of a single list read
type Params struct {
	Page    int
	Limit   int
	Search  string
	Filters []Filter
}

// Get returns the value of the named filter, "" when unset
func (p Params) Get(name string) string {
	for _, f := range p.Filters {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Active reports whether value restricts results
func Active(value string) bool {
	return value != "" && value != AllFilter
}

// Encode renders the query string in a stable order: page, limit, search,
// then filters in configuration order. Empty and "all" values are omitted.
func (p Params) Encode() string {
	var b strings.Builder
	add := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}

	add("page", strconv.Itoa(p.Page))
	add("limit", strconv.Itoa(p.Limit))
	if s := strings.TrimSpace(p.Search); s != "" {
		add("search", s)
	}
	for _, f := range p.Filters {
		if Active(f.Value) {
			add(f.Name, f.Value)
		}
	}
	return b.String()
}

// Values returns the same parameters as url.Values
func (p Params) Values() url.Values {
	v, _ := url.ParseQuery(p.Encode())
	return v
}

// ParseParams reads list parameters from a request query, applying defaults
// for missing or invalid page and limit values.
func ParseParams(q url.Values, filters []string, defaultLimit int) Params {
	p := Params{
		Page:   atoiDefault(q.Get("page"), 1),
		Limit:  atoiDefault(q.Get("limit"), defaultLimit),
		Search: q.Get("search"),
	}
	for _, name := range filters {
		if v := q.Get(name); Active(v) {
			p.Filters = append(p.Filters, Filter{Name: name, Value: v})
		}
	}
	return p
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
