package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verigate/internal/roles/store/session"
	vmodels "verigate/internal/verification/models"
	vservice "verigate/internal/verification/service"
	"verigate/internal/verification/store/document"
	"verigate/internal/verification/store/personalinfo"
	"verigate/internal/verification/store/profile"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/requestcontext"
	"verigate/pkg/testutil"
)

// TestCustomerJourney walks a customer from first upload to verification and
// then tries to act as a driver without a driver profile.
func TestCustomerJourney(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) context.Context {
		return requestcontext.WithTime(context.Background(), start.Add(d))
	}

	verification := vservice.New(document.New(), profile.New(), personalinfo.New(), vservice.WithLogger(logger))
	authorizer := New(verification, session.New(), WithLogger(logger))
	userID := id.UserID(uuid.New())
	sessionID := id.NewSessionID()
	reviewer := id.ReviewerID(uuid.New())

	_, err := verification.RegisterRole(at(0), userID, vmodels.RoleCustomer)
	require.NoError(t, err)
	_, err = verification.SavePersonalInfo(at(time.Second), userID, vservice.PersonalInfoInput{
		FullName:           "Jane Doe",
		DateOfBirth:        "1990-01-01",
		PhoneNumber:        "+15550100",
		ResidentialAddress: "1 Main St",
	})
	require.NoError(t, err)

	var identity, address *vmodels.Document
	testutil.Given(t, "an identity document is uploaded", func(t *testing.T) {
		identity, err = verification.UploadDocument(at(2*time.Second), userID, vservice.UploadInput{
			Type:         vmodels.DocumentIdentity,
			EvidenceRefs: []string{"ref://passport"},
		})
		require.NoError(t, err)

		eval, err := verification.Evaluation(at(2*time.Second), userID, vmodels.RoleCustomer)
		require.NoError(t, err)
		assert.False(t, eval.CanSubmit(), "address still missing")
	})

	testutil.When(t, "the address document follows and the profile is submitted", func(t *testing.T) {
		address, err = verification.UploadDocument(at(3*time.Second), userID, vservice.UploadInput{
			Type:         vmodels.DocumentAddress,
			EvidenceRefs: []string{"ref://utility-bill"},
		})
		require.NoError(t, err)

		eval, err := verification.Evaluation(at(3*time.Second), userID, vmodels.RoleCustomer)
		require.NoError(t, err)
		assert.True(t, eval.CanSubmit())

		p, err := verification.Submit(at(4*time.Second), userID, vmodels.RoleCustomer)
		require.NoError(t, err)
		assert.Equal(t, vmodels.StatusPending, p.Status)

		_, err = authorizer.SwitchRole(at(4*time.Second), sessionID, userID, vmodels.RoleCustomer)
		assert.True(t, dErrors.HasReason(err, vmodels.ReasonNotVerified))
		assert.Equal(t, string(vmodels.StatusPending), dErrors.Detail(err, "status"))
	})

	testutil.Then(t, "approvals verify the customer role and only it", func(t *testing.T) {
		_, err := verification.Approve(at(5*time.Second), reviewer, identity.ID)
		require.NoError(t, err)
		_, err = verification.Approve(at(6*time.Second), reviewer, address.ID)
		require.NoError(t, err)

		eval, err := verification.Evaluation(at(7*time.Second), userID, vmodels.RoleCustomer)
		require.NoError(t, err)
		assert.Equal(t, vmodels.StatusVerified, eval.Status)
		assert.Equal(t, vmodels.LevelBasic, eval.Level)

		sess, err := authorizer.SwitchRole(at(8*time.Second), sessionID, userID, vmodels.RoleCustomer)
		require.NoError(t, err)
		assert.Equal(t, vmodels.RoleCustomer, sess.CurrentRole)

		_, err = authorizer.SwitchRole(at(9*time.Second), sessionID, userID, vmodels.RoleDriver)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		assert.True(t, dErrors.HasReason(err, vmodels.ReasonNotRegistered))

		current, err := authorizer.CurrentRole(at(10*time.Second), sessionID, userID)
		require.NoError(t, err)
		assert.Equal(t, vmodels.RoleCustomer, current, "a refused switch leaves the current role alone")
	})
}
