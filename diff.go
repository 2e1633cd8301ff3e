package gitobj

import (
	"fmt"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// DiffBlob renders a unified diff between two blob contents. It is not
// invoked by any read/write/checkout operation this package specifies;
// it exists so cmd/gitobjctl's "diff" subcommand has something to call, in
// the same way the teacher's cmd/ tools layer thin CLI verbs over the core
// library's read path. gotextdiff's Myers-diff implementation is used
// rather than a hand-rolled line differ, since it is the one text-diff
// library anywhere in the retrieved pack.
func DiffBlob(oldPath, newPath string, oldData, newData []byte) string {
	edits := myers.ComputeEdits(span.URIFromPath(oldPath), string(oldData), string(newData))
	return fmt.Sprint(gotextdiff.ToUnified(oldPath, newPath, string(oldData), edits))
}
