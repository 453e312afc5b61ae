package parser

import (
	"github.com/gnana997/mrcusage/pkg/util"
)

// getDefaultPoolSize returns the per-grammar parser cap.
//
// Parsing in the usage pipeline is sequential, so in practice a single
// parser per grammar is created; the cap only matters for library callers
// that parse from several goroutines (the remote re-export scan does).
func getDefaultPoolSize() int {
	return util.GetOptimalPoolSize()
}
