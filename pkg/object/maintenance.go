package object

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// PruneSummary reports the outcome of Store.Prune.
type PruneSummary struct {
	Reachable int
	Pruned    []Hash
}

// VerifySummary reports the outcome of Store.Verify.
type VerifySummary struct {
	Objects int
	ByType  map[ObjectType]int
}

// Prune deletes every stored object not reachable from roots. With dryRun set
// it only reports what would be removed.
func (s *Store) Prune(roots []Hash, dryRun bool) (*PruneSummary, error) {
	reachable, err := s.ReachableSet(roots)
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	all, err := s.List()
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}

	summary := &PruneSummary{Reachable: len(reachable)}
	for _, h := range all {
		if _, ok := reachable[h]; ok {
			continue
		}
		summary.Pruned = append(summary.Pruned, h)
		if dryRun {
			continue
		}
		if err := s.Delete(h); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("prune %s: %w", h, err)
		}
		s.log.WithField("hash", h).Debug("object pruned")
	}
	return summary, nil
}

// Verify re-reads every object, checking its digest and that its payload
// parses.
func (s *Store) Verify() (*VerifySummary, error) {
	all, err := s.List()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	report := &VerifySummary{ByType: make(map[ObjectType]int)}
	for _, h := range all {
		obj, err := s.Get(h)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", h, err)
		}
		if _, err := obj.Decode(); err != nil {
			return nil, fmt.Errorf("verify %s: %w: %v", h, ErrCorrupt, err)
		}
		report.Objects++
		report.ByType[obj.Type]++
	}
	s.log.WithFields(logrus.Fields{"objects": report.Objects}).Debug("object store verified")
	return report, nil
}
