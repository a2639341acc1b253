package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pgschema/pgmodel/internal/resolve"
	"github.com/pgschema/pgmodel/ir"
)

// MaxParameters is the largest placeholder number PostgreSQL accepts.
const MaxParameters = 65535

// parameters folds the parameter occurrences of a query into one entry per
// placeholder, in first-occurrence order, and checks that the placeholders
// agree on their types and number 1..N without gaps.
func parameters(occurrences []resolve.Param, loc ir.Location, issues *ir.Issues) []*ir.QueryParameter {
	var (
		params  []*ir.QueryParameter
		byPos   = make(map[int]*ir.QueryParameter)
		typedAt = make(map[int]resolve.Param)
	)
	invalid := make(map[string]bool)
	for _, occ := range occurrences {
		if occ.Position < 1 || occ.Position > MaxParameters {
			if !invalid[occ.Placeholder] {
				invalid[occ.Placeholder] = true
				issues.Errorf(ir.KindQuery, "query.invalid_parameter", at(loc, occ),
					"placeholder %s is outside $1..$%d", occ.Placeholder, MaxParameters).
					WithDetail("placeholder", occ.Placeholder)
			}
			continue
		}
		p, seen := byPos[occ.Position]
		if !seen {
			p = &ir.QueryParameter{Position: occ.Position, Name: occ.Name}
			byPos[occ.Position] = p
			params = append(params, p)
		}
		if p.Name == "" {
			p.Name = occ.Name
		}
		p.Nullable = p.Nullable || occ.Nullable
		if occ.PgType == "" {
			continue
		}

		pgType := ir.CanonicalType(occ.PgType)
		first, typed := typedAt[occ.Position]
		if !typed {
			typedAt[occ.Position] = occ
			p.PgType = pgType
			continue
		}
		if pgType != p.PgType {
			issues.Errorf(ir.KindQuery, "query.parameter_conflict", at(loc, occ),
				"parameter $%d is used as %s here but as %s at %d:%d", occ.Position, pgType, p.PgType, first.Line, first.Column).
				WithDetail("position", strconv.Itoa(occ.Position)).
				WithDetail("types", p.PgType+","+pgType)
		}
	}

	checkGaps(byPos, loc, issues)

	for _, p := range params {
		if p.PgType == "" {
			p.PgType = ir.GenericType
			issues.Infof(ir.KindQuery, "query.untyped_parameter", loc,
				"the type of parameter $%d cannot be inferred; using %s", p.Position, ir.GenericType).
				WithDetail("position", strconv.Itoa(p.Position))
		}
		p.ResolvedType = p.PgType
		p.OID = ir.TypeOID(p.PgType)
	}
	nameParameters(params)
	return params
}

func checkGaps(byPos map[int]*ir.QueryParameter, loc ir.Location, issues *ir.Issues) {
	positions := make([]int, 0, len(byPos))
	for pos := range byPos {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	// walk the holes between present positions; their count is bounded by
	// MaxParameters
	var missing []string
	prev := 0
	for _, pos := range positions {
		for hole := prev + 1; hole < pos; hole++ {
			missing = append(missing, "$"+strconv.Itoa(hole))
		}
		prev = pos
	}
	if len(missing) > 0 {
		issues.Errorf(ir.KindQuery, "query.parameter_gap", loc,
			"parameters must be numbered $1..$%d without gaps; missing %s", prev, summarize(missing)).
			WithDetail("missing", strings.Join(missing, ","))
	}
}

// summarize lists a few placeholders and counts the rest.
func summarize(missing []string) string {
	const shown = 5
	if len(missing) <= shown {
		return strings.Join(missing, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(missing[:shown], ", "), len(missing)-shown)
}

// nameParameters fills empty names with "param<N>" and numbers repeated
// names in position order: status, status_2, status_3.
func nameParameters(params []*ir.QueryParameter) {
	ordered := append([]*ir.QueryParameter(nil), params...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	used := make(map[string]bool)
	for _, p := range ordered {
		base := p.Name
		if base == "" {
			base = fmt.Sprintf("param%d", p.Position)
		}
		base = strings.ToLower(strings.Trim(base, `"`))
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		p.Name = name
		used[name] = true
	}
}

// at returns the location of a parameter occurrence inside the query
// starting at loc.
func at(loc ir.Location, occ resolve.Param) ir.Location {
	if occ.Line == 0 {
		return loc
	}
	return ir.Location{Segment: loc.Segment, Line: occ.Line, Column: occ.Column}
}
