package service

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/weddingplanner/internal/models"
)

// GroupStatus is the outcome of migrating one legacy group
type GroupStatus string

const (
	GroupMigrated GroupStatus = "migrated"
	GroupFailed   GroupStatus = "failed"
	GroupSkipped  GroupStatus = "skipped"
)

// GroupResult describes what happened to one legacy group
type GroupResult struct {
	Index     int                   `json:"index"`
	Name      string                `json:"name"`
	Status    GroupStatus           `json:"status"`
	Household *models.HouseholdView `json:"household,omitempty"`
	Err       error                 `json:"-"`
	Error     string                `json:"error,omitempty"`
}

// MigrationReport lists per-group outcomes so the caller can decide whether
// to retry or abandon. Households created before a failure are kept.
type MigrationReport struct {
	Groups []GroupResult `json:"groups"`
}

// Succeeded reports whether every group was migrated
func (r MigrationReport) Succeeded() bool {
	for _, g := range r.Groups {
		if g.Status != GroupMigrated {
			return false
		}
	}
	return true
}

// Counts returns the number of groups per status
func (r MigrationReport) Counts() map[GroupStatus]int {
	counts := make(map[GroupStatus]int, 3)
	for _, g := range r.Groups {
		counts[g.Status]++
	}
	return counts
}

// Err combines the failures of the report, nil on success
func (r MigrationReport) Err() error {
	var merr *multierror.Error
	for _, g := range r.Groups {
		if g.Err != nil {
			merr = multierror.Append(merr, fmt.Errorf("group %d (%s): %w", g.Index, g.Name, g.Err))
		}
	}
	return merr.ErrorOrNil()
}

// MigrateLegacy turns legacy guest groups into households, one group at a
// time, stopping at the first failure. Groups after the failure are
// reported as skipped. It does not touch the settings payload and has no
// deduplication of its own: running it twice on the same groups creates
// duplicate households.
func (s *Service) MigrateLegacy(ctx context.Context, groups []models.LegacyGroup) MigrationReport {
	report := MigrationReport{Groups: make([]GroupResult, 0, len(groups))}

	failed := false
	for i, group := range groups {
		result := GroupResult{Index: i, Name: group.HouseholdName()}
		if failed {
			result.Status = GroupSkipped
			report.Groups = append(report.Groups, result)
			continue
		}

		view, err := s.CreateHousehold(ctx, group.HouseholdName(), group.HouseholdCategory(), group.InitialGuests())
		switch {
		case err != nil:
			result.Status = GroupFailed
			result.Household = view
			result.Err = err
			result.Error = err.Error()
			failed = true
		default:
			result.Status = GroupMigrated
			result.Household = view
		}
		report.Groups = append(report.Groups, result)
	}

	for status, n := range report.Counts() {
		s.metrics.MigratedGroups.WithLabelValues(string(status)).Add(float64(n))
	}
	return report
}

// MigrateLegacyPayload migrates the legacy blob of data and clears it from
// data when every group succeeded. Concurrent calls for the same owner
// share one run. The caller persists data.
func (s *Service) MigrateLegacyPayload(ctx context.Context, data *models.PlannerData) (MigrationReport, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return MigrationReport{}, err
	}
	if !data.HasLegacyGuests() {
		return MigrationReport{Groups: []GroupResult{}}, nil
	}

	v, _, _ := s.migrations.Do(userID.String(), func() (any, error) {
		return s.MigrateLegacy(ctx, data.Guests), nil
	})
	report := v.(MigrationReport)

	entry := s.logger.WithFields(logrus.Fields{"user_id": userID, "groups": len(report.Groups)})
	if !report.Succeeded() {
		entry.WithError(report.Err()).Warn("Legacy guest migration incomplete")
		return report, report.Err()
	}

	data.Guests = nil
	entry.Info("Migrated legacy guest list")
	return report, nil
}

// MigrateLegacySettings loads the stored payload, migrates its legacy blob
// and saves the cleared payload on success.
func (s *Service) MigrateLegacySettings(ctx context.Context) (MigrationReport, error) {
	data, err := s.LoadSettings(ctx)
	if err != nil {
		return MigrationReport{}, err
	}
	if !data.HasLegacyGuests() {
		return MigrationReport{Groups: []GroupResult{}}, nil
	}

	report, err := s.MigrateLegacyPayload(ctx, data)
	if err != nil {
		return report, err
	}
	if err := s.SaveSettings(ctx, data); err != nil {
		return report, fmt.Errorf("failed to clear legacy guests: %w", err)
	}
	return report, nil
}
