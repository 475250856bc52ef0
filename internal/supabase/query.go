package supabase

import (
	"net/url"
	"strconv"
	"strings"
)

// Query builds PostgREST filter, order and limit parameters.
type Query struct {
	params url.Values
}

func NewQuery() *Query {
	return &Query{params: url.Values{}}
}

func (q *Query) Select(cols string) *Query {
	q.params.Set("select", cols)
	return q
}

// Eq adds col=eq.value. Plain filters take the value literally.
func (q *Query) Eq(col, value string) *Query {
	q.params.Add(col, "eq."+value)
	return q
}

// EqAny adds or=(a.eq.v,b.eq.v): value matches any of cols.
func (q *Query) EqAny(value string, cols ...string) *Query {
	conds := make([]string, 0, len(cols))
	for _, c := range cols {
		conds = append(conds, c+".eq."+quote(value))
	}
	q.params.Add("or", "("+strings.Join(conds, ",")+")")
	return q
}

func (q *Query) Order(col string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.params.Add("order", col+"."+dir)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

func (q *Query) values() url.Values {
	if q == nil {
		return url.Values{}
	}
	return q.params
}

func (q *Query) clone() *Query {
	c := NewQuery()
	if q != nil {
		for k, vs := range q.params {
			c.params[k] = append([]string(nil), vs...)
		}
	}
	return c
}

// quote wraps values inside logic trees (or=...) that contain reserved characters.
func quote(v string) string {
	if !strings.ContainsAny(v, `,.:()" \`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}
