package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"verigate/internal/roles/handler/mocks"
	"verigate/internal/roles/models"
	vmodels "verigate/internal/verification/models"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/testutil"
)

type RoleHandlerSuite struct {
	suite.Suite
	service   *mocks.MockService
	router    chi.Router
	userID    string
	sessionID string
}

func TestRoleHandlerSuite(t *testing.T) {
	suite.Run(t, new(RoleHandlerSuite))
}

func (s *RoleHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
	s.userID = uuid.NewString()
	s.sessionID = uuid.NewString()
}

func (s *RoleHandlerSuite) authed(req *http.Request) *http.Request {
	return testutil.WithAuth(req, s.userID, s.sessionID)
}

func (s *RoleHandlerSuite) TestGetRole() {
	s.service.EXPECT().CurrentRole(gomock.Any(), gomock.Any(), gomock.Any()).Return(vmodels.RoleCustomer, nil)
	s.service.EXPECT().AvailableRoles(gomock.Any(), gomock.Any()).Return([]models.AvailableRole{
		{Role: vmodels.RoleCustomer, Status: vmodels.StatusVerified, Switchable: true},
		{Role: vmodels.RoleDriver, Status: vmodels.StatusIncomplete, Route: vmodels.RouteCompleteProfile},
	}, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/session/role")))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[RoleStateResponse](s.T(), rr)
	s.Equal("customer", resp.CurrentRole)
	s.Len(resp.Roles, 2)
}

func (s *RoleHandlerSuite) TestSwitchRole() {
	s.Run("session required", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/session/role", map[string]string{"role": "merchant"})
		rr := testutil.DoRequest(s.router, testutil.WithAuth(req, s.userID, ""))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("switched", func() {
		s.service.EXPECT().
			SwitchRole(gomock.Any(), gomock.Any(), gomock.Any(), vmodels.RoleMerchant).
			Return(&models.Session{CurrentRole: vmodels.RoleMerchant, DeviceDisplayName: "Safari on iOS", UpdatedAt: time.Now()}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/session/role", map[string]string{"role": "merchant"})
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[SessionResponse](s.T(), rr)
		s.Equal("merchant", resp.CurrentRole)
	})

	s.Run("not verified carries status and route", func() {
		s.service.EXPECT().
			SwitchRole(gomock.Any(), gomock.Any(), gomock.Any(), vmodels.RoleDriver).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "role is not verified").
				WithReason(vmodels.ReasonNotVerified).
				WithDetail("status", "rejected").
				WithDetail("route", vmodels.RouteResubmit))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/session/role", map[string]string{"role": "driver"})
		rr := testutil.DoRequest(s.router, s.authed(req))
		resp := testutil.AssertErrorReason(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden), vmodels.ReasonNotVerified)
		s.Equal("rejected", resp.Details["status"])
		s.Equal(vmodels.RouteResubmit, resp.Details["route"])
	})

	s.Run("unknown role never reaches the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/session/role", map[string]string{"role": "pilot"})
		rr := testutil.DoRequest(s.router, s.authed(req))
		testutil.AssertErrorReason(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation), vmodels.ReasonUnknownRole)
	})
}
