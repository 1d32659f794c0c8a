package format

import (
	"github.com/o3as/o3as-export-server/setops"
)

// SelectColumns narrows a ColumnSet. An empty include keeps every column;
// exclude is applied afterwards. The ColumnSet order is preserved.
func SelectColumns(columns, include, exclude []string) []string {
	selected := columns
	if len(include) > 0 {
		selected = setops.Intersection(selected, include)
	}
	if len(exclude) > 0 {
		selected = setops.Not(selected, exclude)
	}
	return selected
}
