// Package evaluator derives a role's completion, verification level and
// status from the requirement catalog and a document snapshot.
package evaluator

import (
	"errors"
	"math"
	"time"

	"verigate/internal/verification/catalog"
	"verigate/internal/verification/models"
)

// ErrSnapshotUnavailable is returned when no snapshot was fetched. Callers
// must fall back to the last known evaluation instead of evaluating "nothing".
var ErrSnapshotUnavailable = errors.New("document snapshot unavailable")

// Evaluate is pure: the same inputs always produce the same evaluation.
// submittedAt is the profile's recorded submission, nil if never submitted.
func Evaluate(role models.Role, info *models.PersonalInfo, snapshot *models.Snapshot, submittedAt *time.Time) (*models.Evaluation, error) {
	if snapshot == nil {
		return nil, ErrSnapshotUnavailable
	}
	steps, err := catalog.Steps(role)
	if err != nil {
		return nil, err
	}

	latest := models.LatestByType(snapshot.Documents)
	results := make([]models.StepResult, 0, len(steps))
	var completed int
	allDocsApproved := true
	anyRejected := false

	for _, step := range steps {
		res := models.StepResult{StepID: step.ID, Kind: step.Kind, DocumentType: step.DocumentType}
		switch step.Kind {
		case models.StepPersonalInfo:
			res.Completed = info.IsComplete()
			res.Approved = res.Completed
		case models.StepDocument:
			if doc, ok := latest[step.DocumentType]; ok {
				docID := doc.ID
				res.DocumentID = &docID
				res.Status = doc.Status
				res.Completed = doc.Status != models.DocumentRejected
				res.Approved = doc.Status == models.DocumentApproved
				anyRejected = anyRejected || doc.Status == models.DocumentRejected
			}
			allDocsApproved = allDocsApproved && res.Approved
		}
		if res.Completed {
			completed++
		}
		results = append(results, res)
	}

	completion := int(math.Round(100 * float64(completed) / float64(len(steps))))
	eval := &models.Evaluation{
		Role:                 role,
		Steps:                results,
		CompletionPercentage: completion,
		Level:                level(role, results, completion),
		Status:               status(completion, allDocsApproved, anyRejected, submittedAt != nil),
	}
	return eval, nil
}

func status(completion int, allDocsApproved, anyRejected, submitted bool) models.ProfileStatus {
	switch {
	case anyRejected:
		return models.StatusRejected
	case completion == 100 && allDocsApproved:
		return models.StatusVerified
	case submitted:
		return models.StatusPending
	default:
		return models.StatusIncomplete
	}
}

func level(role models.Role, results []models.StepResult, completion int) models.VerificationLevel {
	if completion < 100 {
		return models.LevelNone
	}
	approved := make(map[models.DocumentType]bool, len(results))
	all := true
	for _, r := range results {
		if r.Kind == models.StepDocument {
			approved[r.DocumentType] = r.Approved
		}
		all = all && r.Approved
	}
	if all && catalog.HasExtras(role) {
		return models.LevelFull
	}
	if approved[models.DocumentIdentity] && approved[models.DocumentAddress] {
		return models.LevelBasic
	}
	return models.LevelNone
}
