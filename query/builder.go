package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/readmany/partitionkey"
)

// BuildPlan selects and builds the cheapest operation serving the chunk.
// Shapes are tried in fixed priority order: a single item is always a
// point read; a container partitioned on /id whose items all use their id
// as the key value selects by id alone; items sharing one bindable key
// value pin the key once and select ids inside it; everything else falls
// back to one OR clause per item.
//
// Items must already carry canonical partition-key components; component
// counts above the definition's path count fail with a ValidationError.
func BuildPlan(items []ChunkItem, def partitionkey.Definition) (Plan, error) {
	if len(items) == 0 {
		return Plan{}, errors.New("chunk has no items")
	}
	if len(items) == 1 {
		return Plan{Shape: ShapePointRead}, nil
	}
	if idInApplies(items, def) {
		return buildIDIn(items), nil
	}
	if shared, ok := sharedBindableValue(items, def); ok {
		return buildPKAndIDIn(items, def, shared), nil
	}
	return buildGenericOR(items, def)
}

// idInApplies reports whether every item keys on its own id in a
// container partitioned on /id.
func idInApplies(items []ChunkItem, def partitionkey.Definition) bool {
	if len(def.Paths) != 1 || def.Paths[0] != "/id" {
		return false
	}
	for _, it := range items {
		if len(it.Components) != 1 {
			return false
		}
		c := it.Components[0]
		if c.Kind != partitionkey.KindString || c.S != it.ID {
			return false
		}
	}
	return true
}

// sharedBindableValue returns the single partition-key value shared by
// every item, if there is one and it can be bound as a parameter.
func sharedBindableValue(items []ChunkItem, def partitionkey.Definition) (partitionkey.Value, bool) {
	if len(def.Paths) != 1 {
		return partitionkey.Value{}, false
	}
	if len(items[0].Components) != 1 {
		return partitionkey.Value{}, false
	}
	shared := items[0].Components[0]
	if !shared.Bindable() {
		return partitionkey.Value{}, false
	}
	for _, it := range items[1:] {
		if len(it.Components) != 1 || !shared.Equal(it.Components[0]) {
			return partitionkey.Value{}, false
		}
	}
	return shared, true
}

func buildIDIn(items []ChunkItem) Plan {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM c WHERE c.id IN (")

	params := make([]Parameter, 0, len(items))
	for i, it := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		name := "@id" + strconv.Itoa(i)
		sb.WriteString(name)
		params = append(params, Parameter{Name: name, Value: it.ID})
	}
	sb.WriteByte(')')

	return Plan{Shape: ShapeIDIn, Query: Spec{Text: sb.String(), Parameters: params}}
}

func buildPKAndIDIn(items []ChunkItem, def partitionkey.Definition, shared partitionkey.Value) Plan {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM c WHERE ")
	sb.WriteString(fieldExpr(def, 0))
	sb.WriteString("=@pk AND c.id IN (")

	params := make([]Parameter, 0, len(items)+1)
	params = append(params, Parameter{Name: "@pk", Value: shared.Interface()})
	for i, it := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		name := "@id" + strconv.Itoa(i)
		sb.WriteString(name)
		params = append(params, Parameter{Name: name, Value: it.ID})
	}
	sb.WriteByte(')')

	return Plan{Shape: ShapePKAndIDIn, Query: Spec{Text: sb.String(), Parameters: params}}
}

func buildGenericOR(items []ChunkItem, def partitionkey.Definition) (Plan, error) {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM c WHERE ")

	var params []Parameter
	for i, it := range items {
		if len(it.Components) > len(def.Paths) {
			return Plan{}, &partitionkey.ValidationError{Reason: fmt.Sprintf(
				"item %q has %d partition-key components, definition has %d paths",
				it.ID, len(it.Components), len(def.Paths))}
		}

		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteByte('(')

		idParam := "@id_" + strconv.Itoa(i)
		sb.WriteString("c.id = ")
		sb.WriteString(idParam)
		params = append(params, Parameter{Name: idParam, Value: it.ID})

		for j := range def.Paths {
			field := fieldExpr(def, j)
			sb.WriteString(" AND ")
			if j < len(it.Components) && it.Components[j].Bindable() {
				name := "@pk_" + strconv.Itoa(i) + "_" + strconv.Itoa(j)
				sb.WriteString(field)
				sb.WriteString(" = ")
				sb.WriteString(name)
				params = append(params, Parameter{Name: name, Value: it.Components[j].Interface()})
			} else {
				// Undefined, Empty and absent components all match documents
				// without the property.
				sb.WriteString("IS_DEFINED(")
				sb.WriteString(field)
				sb.WriteString(") = false")
			}
		}
		sb.WriteByte(')')
	}

	return Plan{Shape: ShapeGenericOR, Query: Spec{Text: sb.String(), Parameters: params}}, nil
}

// fieldExpr renders the document field expression of definition path i.
// The single-path, single-segment, identifier-safe case renders with dot
// access; every other case brackets each segment.
func fieldExpr(def partitionkey.Definition, i int) string {
	segs := def.PathSegments(i)
	if len(def.Paths) == 1 && len(segs) == 1 && isIdentifier(segs[0]) {
		return "c." + segs[0]
	}

	var sb strings.Builder
	sb.WriteByte('c')
	for _, s := range segs {
		sb.WriteString(`["`)
		sb.WriteString(s)
		sb.WriteString(`"]`)
	}
	return sb.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z'):
		case i > 0 && '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return true
}
