package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"verigate/internal/roles/models"
	"verigate/internal/roles/service/mocks"
	"verigate/internal/roles/store/session"
	vmodels "verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/audit"
	auditmemory "verigate/pkg/platform/audit/store/memory"
	"verigate/pkg/platform/audit/publisher"
	"verigate/pkg/platform/middleware/device"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

type AuthorizerSuite struct {
	suite.Suite
	ctx        context.Context
	verifier   *mocks.MockVerifier
	sessions   *session.InMemoryStore
	auditStore *auditmemory.InMemoryStore
	authorizer *Authorizer
	userID     id.UserID
	sessionID  id.SessionID
	now        time.Time
}

func TestAuthorizerSuite(t *testing.T) {
	suite.Run(t, new(AuthorizerSuite))
}

func (s *AuthorizerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	s.ctx = device.WithDeviceName(requestcontext.WithTime(context.Background(), s.now), "Firefox on Linux")
	s.verifier = mocks.NewMockVerifier(ctrl)
	s.sessions = session.New()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.authorizer = New(s.verifier, s.sessions,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	s.userID = id.UserID(uuid.New())
	s.sessionID = id.NewSessionID()
}

func (s *AuthorizerSuite) evaluation(role vmodels.Role, status vmodels.ProfileStatus) *vmodels.Evaluation {
	return &vmodels.Evaluation{UserID: s.userID, Role: role, Status: status, Level: vmodels.LevelNone}
}

func (s *AuthorizerSuite) auditActions() []string {
	events, err := s.auditStore.ListByUser(context.Background(), s.userID)
	s.Require().NoError(err)
	var out []string
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *AuthorizerSuite) TestSwitchToUnregisteredRole() {
	s.verifier.EXPECT().
		FreshEvaluation(gomock.Any(), s.userID, vmodels.RoleDriver).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "role is not registered").WithReason(vmodels.ReasonNotRegistered))

	_, err := s.authorizer.SwitchRole(s.ctx, s.sessionID, s.userID, vmodels.RoleDriver)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.True(dErrors.HasReason(err, vmodels.ReasonNotRegistered))
	s.Equal(vmodels.RouteRegister, dErrors.Detail(err, "route"))

	_, getErr := s.sessions.Get(s.ctx, s.sessionID)
	s.ErrorIs(getErr, sentinel.ErrNotFound, "a denial never opens a session")
	s.Equal([]string{string(audit.EventRoleSwitchDenied)}, s.auditActions())
}

func (s *AuthorizerSuite) TestSwitchToUnverifiedRole() {
	cases := []struct {
		status vmodels.ProfileStatus
		route  string
	}{
		{vmodels.StatusIncomplete, vmodels.RouteCompleteProfile},
		{vmodels.StatusPending, vmodels.RouteAwaitReview},
		{vmodels.StatusRejected, vmodels.RouteResubmit},
	}
	for _, tc := range cases {
		s.Run(string(tc.status), func() {
			s.verifier.EXPECT().
				FreshEvaluation(gomock.Any(), s.userID, vmodels.RoleMerchant).
				Return(s.evaluation(vmodels.RoleMerchant, tc.status), nil)

			_, err := s.authorizer.SwitchRole(s.ctx, s.sessionID, s.userID, vmodels.RoleMerchant)
			s.Require().Error(err)
			s.True(dErrors.HasReason(err, vmodels.ReasonNotVerified))
			s.Equal(string(tc.status), dErrors.Detail(err, "status"))
			s.Equal(tc.route, dErrors.Detail(err, "route"))
		})
	}

	current, err := s.authorizer.CurrentRole(s.ctx, s.sessionID, s.userID)
	s.Require().NoError(err)
	s.Empty(current)
}

func (s *AuthorizerSuite) TestSwitchToVerifiedRole() {
	s.verifier.EXPECT().
		FreshEvaluation(gomock.Any(), s.userID, vmodels.RoleCustomer).
		Return(s.evaluation(vmodels.RoleCustomer, vmodels.StatusVerified), nil).
		Times(2)

	sess, err := s.authorizer.SwitchRole(s.ctx, s.sessionID, s.userID, vmodels.RoleCustomer)
	s.Require().NoError(err)
	s.Equal(vmodels.RoleCustomer, sess.CurrentRole)
	s.Equal(uint64(1), sess.Version)
	s.Equal("Firefox on Linux", sess.DeviceDisplayName)

	current, err := s.authorizer.CurrentRole(s.ctx, s.sessionID, s.userID)
	s.Require().NoError(err)
	s.Equal(vmodels.RoleCustomer, current)

	s.Run("same role is a no-op", func() {
		again, err := s.authorizer.SwitchRole(s.ctx, s.sessionID, s.userID, vmodels.RoleCustomer)
		s.Require().NoError(err)
		s.Equal(uint64(1), again.Version)
	})

	s.Equal([]string{string(audit.EventRoleSwitched)}, s.auditActions())
}

func (s *AuthorizerSuite) TestVerifierFailureFailsClosed() {
	s.verifier.EXPECT().
		FreshEvaluation(gomock.Any(), s.userID, vmodels.RoleMerchant).
		Return(nil, dErrors.New(dErrors.CodeUnavailable, "documents unavailable"))

	_, err := s.authorizer.SwitchRole(s.ctx, s.sessionID, s.userID, vmodels.RoleMerchant)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *AuthorizerSuite) TestUnknownRole() {
	_, err := s.authorizer.SwitchRole(s.ctx, s.sessionID, s.userID, vmodels.Role("pilot"))
	s.True(dErrors.HasReason(err, vmodels.ReasonUnknownRole))
}

func (s *AuthorizerSuite) TestForeignSession() {
	sess, err := models.NewSession(s.sessionID, id.UserID(uuid.New()), "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.sessions.Create(s.ctx, sess))

	s.verifier.EXPECT().
		FreshEvaluation(gomock.Any(), s.userID, vmodels.RoleCustomer).
		Return(s.evaluation(vmodels.RoleCustomer, vmodels.StatusVerified), nil)

	_, err = s.authorizer.SwitchRole(s.ctx, s.sessionID, s.userID, vmodels.RoleCustomer)
	s.True(dErrors.HasReason(err, ReasonSessionMismatch))

	_, err = s.authorizer.CurrentRole(s.ctx, s.sessionID, s.userID)
	s.True(dErrors.HasReason(err, ReasonSessionMismatch))
}

func (s *AuthorizerSuite) TestAvailableRoles() {
	s.verifier.EXPECT().
		ListRegistered(gomock.Any(), s.userID).
		Return([]*vmodels.Evaluation{
			s.evaluation(vmodels.RoleCustomer, vmodels.StatusVerified),
			s.evaluation(vmodels.RoleDriver, vmodels.StatusPending),
		}, nil)

	roles, err := s.authorizer.AvailableRoles(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(roles, 2)
	s.True(roles[0].Switchable)
	s.False(roles[1].Switchable)
	s.Equal(vmodels.RouteAwaitReview, roles[1].Route)
}

func TestSwitchRetriesLostCompareAndSwap(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockVerifier(ctrl)
	sessions := mocks.NewMockSessionStore(ctrl)
	a := New(verifier, sessions, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	userID := id.UserID(uuid.New())
	sessionID := id.NewSessionID()
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	verifier.EXPECT().FreshEvaluation(gomock.Any(), userID, vmodels.RoleMerchant).
		Return(&vmodels.Evaluation{Role: vmodels.RoleMerchant, Status: vmodels.StatusVerified}, nil)

	gomock.InOrder(
		sessions.EXPECT().Get(gomock.Any(), sessionID).
			Return(&models.Session{ID: sessionID, UserID: userID, Version: 3}, nil),
		sessions.EXPECT().SwitchCurrentRole(gomock.Any(), sessionID, uint64(3), vmodels.RoleMerchant, "", now).
			Return(nil, sentinel.ErrStaleWrite),
		sessions.EXPECT().Get(gomock.Any(), sessionID).
			Return(&models.Session{ID: sessionID, UserID: userID, CurrentRole: vmodels.RoleCustomer, Version: 4}, nil),
		sessions.EXPECT().SwitchCurrentRole(gomock.Any(), sessionID, uint64(4), vmodels.RoleMerchant, "", now).
			Return(&models.Session{ID: sessionID, UserID: userID, CurrentRole: vmodels.RoleMerchant, Version: 5}, nil),
	)

	sess, err := a.SwitchRole(ctx, sessionID, userID, vmodels.RoleMerchant)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if sess.Version != 5 {
		t.Fatalf("expected version 5, got %d", sess.Version)
	}
}

func TestSwitchGivesUpAfterRepeatedConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockVerifier(ctrl)
	sessions := mocks.NewMockSessionStore(ctrl)
	a := New(verifier, sessions, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	userID := id.UserID(uuid.New())
	sessionID := id.NewSessionID()

	verifier.EXPECT().FreshEvaluation(gomock.Any(), userID, vmodels.RoleDriver).
		Return(&vmodels.Evaluation{Role: vmodels.RoleDriver, Status: vmodels.StatusVerified}, nil)
	sessions.EXPECT().Get(gomock.Any(), sessionID).
		Return(&models.Session{ID: sessionID, UserID: userID}, nil).
		Times(switchAttempts)
	sessions.EXPECT().SwitchCurrentRole(gomock.Any(), sessionID, uint64(0), vmodels.RoleDriver, gomock.Any(), gomock.Any()).
		Return(nil, sentinel.ErrStaleWrite).
		Times(switchAttempts)

	_, err := a.SwitchRole(context.Background(), sessionID, userID, vmodels.RoleDriver)
	if !dErrors.HasReason(err, ReasonConcurrentSwitch) {
		t.Fatalf("expected concurrent_switch, got %v", err)
	}
}

func TestSessionStoreOutageIsUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	sessions := mocks.NewMockSessionStore(ctrl)
	a := New(mocks.NewMockVerifier(ctrl), sessions, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	sessions.EXPECT().Get(gomock.Any(), gomock.Any()).
		Return(nil, errors.Join(sentinel.ErrUnavailable, errors.New("dial tcp: refused")))

	_, err := a.CurrentRole(context.Background(), id.NewSessionID(), id.UserID(uuid.New()))
	if !dErrors.HasCode(err, dErrors.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
