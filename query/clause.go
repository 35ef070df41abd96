package query

import (
	"strconv"
	"strings"
)

type ClauseType int

const (
	SELECT ClauseType = iota
	FROM
	WHERE
	GROUP
	ORDER
	LIMIT
	START
	FETCH
)

// Clause is one building block of a SELECT statement. Clauses render
// independently and are assembled in SurrealQL's fixed clause order.
type Clause struct {
	Type  ClauseType
	Value []any
}

func (c *Clause) Build() string {
	switch c.Type {
	case SELECT:
		fields := c.Value[0].([]string)
		if len(fields) == 0 {
			return "SELECT *"
		}
		return "SELECT " + strings.Join(fields, ", ")
	case FROM:
		return "FROM " + c.Value[0].(string)
	case WHERE:
		conds := c.Value[0].([]string)
		if len(conds) == 0 {
			return ""
		}
		return "WHERE " + strings.Join(conds, " AND ")
	case GROUP:
		return "GROUP BY " + strings.Join(c.Value[0].([]string), ", ")
	case ORDER:
		return "ORDER BY " + strings.Join(c.Value[0].([]string), ", ")
	case LIMIT:
		return "LIMIT " + strconv.Itoa(c.Value[0].(int))
	case START:
		return "START " + strconv.Itoa(c.Value[0].(int))
	case FETCH:
		return "FETCH " + strings.Join(c.Value[0].([]string), ", ")
	}
	return ""
}
