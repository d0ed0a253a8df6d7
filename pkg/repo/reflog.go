package repo

import (
	"strings"

	"github.com/odvcencio/notch/pkg/refs"
)

// ReadReflog returns up to limit reflog entries for ref, newest first. An
// empty ref or "HEAD" reads the log of the branch HEAD points at; short
// names are taken as branches.
func (r *Repo) ReadReflog(ref string, limit int) ([]refs.ReflogEntry, error) {
	if r.fileRefs == nil {
		return nil, ErrReflogUnsupported
	}
	return r.fileRefs.ReadReflog(r.reflogRefName(ref), limit)
}

func (r *Repo) reflogRefName(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "HEAD" {
		head, err := r.Head()
		if err == nil && head.Target.IsSymbolic() {
			return head.Target.Symbolic
		}
		return "HEAD"
	}
	if strings.HasPrefix(ref, "refs/") {
		return ref
	}
	return branchPrefix + ref
}
