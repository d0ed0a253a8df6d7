package repo

import (
	"fmt"
	"sort"

	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refs"
	"github.com/sirupsen/logrus"
)

// FsckReport summarizes a consistency check.
type FsckReport struct {
	Objects *object.VerifySummary
	// Refs counts references checked.
	Refs int
	// Problems lists references that are cyclic, too deep, dangling, or
	// point at missing objects. Corrupt objects abort the check instead.
	Problems []string
}

// rootHashes resolves every reference, notes included, to the objects it
// keeps alive. References that do not resolve are skipped with a warning.
func (r *Repo) rootHashes() ([]object.Hash, error) {
	rootSet := make(map[object.Hash]struct{})
	for rec, err := range r.Refs.All("") {
		if err != nil {
			return nil, err
		}
		h, ok, err := r.Resolver.Resolve(rec)
		if err != nil {
			r.Logger.WithField("ref", rec.Name).WithError(err).Warn("skipping unresolvable reference")
			continue
		}
		if !ok {
			continue
		}
		rootSet[h] = struct{}{}
	}

	roots := make([]object.Hash, 0, len(rootSet))
	for h := range rootSet {
		roots = append(roots, h)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	return roots, nil
}

// GC removes objects unreachable from any reference. With dryRun set it only
// reports what would be removed.
func (r *Repo) GC(dryRun bool) (*object.PruneSummary, error) {
	roots, err := r.rootHashes()
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}
	summary, err := r.Objects.Prune(roots, dryRun)
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}
	if r.db != nil && !dryRun {
		if err := r.db.RunGC(0.5); err != nil {
			return nil, fmt.Errorf("gc: value log: %w", err)
		}
	}
	r.Logger.WithFields(logrus.Fields{
		"roots":     len(roots),
		"reachable": summary.Reachable,
		"pruned":    len(summary.Pruned),
		"dry_run":   dryRun,
	}).Info("gc complete")
	return summary, nil
}

// Fsck verifies every object and checks that every reference resolves to a
// stored object.
func (r *Repo) Fsck() (*FsckReport, error) {
	verify, err := r.Objects.Verify()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	report := &FsckReport{Objects: verify}

	for rec, err := range r.Refs.All("") {
		if err != nil {
			return nil, fmt.Errorf("fsck: %w", err)
		}
		report.Refs++
		res, err := r.Resolver.Trace(rec)
		switch {
		case err != nil:
			report.Problems = append(report.Problems, err.Error())
		case res.Dangling:
			// An unborn HEAD is normal in a fresh repository.
			if rec.Name == "HEAD" {
				continue
			}
			report.Problems = append(report.Problems, fmt.Sprintf("%s: %s: %q does not exist", rec.Name, refs.ErrDanglingReference, res.Missing))
		case !r.Objects.Has(res.Hash):
			report.Problems = append(report.Problems, fmt.Sprintf("%s: %s: %s", rec.Name, object.ErrNotFound, res.Hash))
		}
	}
	return report, nil
}
