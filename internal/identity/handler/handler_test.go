package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"clockgate/internal/identity/handler/mocks"
	"clockgate/internal/identity/models"
	id "clockgate/pkg/domain"
	dErrors "clockgate/pkg/domain-errors"
	audit "clockgate/pkg/platform/audit"
	"clockgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/identity-mocks.go -package=mocks Service,AuditTrail
type IdentityHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	trail   *mocks.MockAuditTrail
	router  chi.Router
	adminID id.IdentityID
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

func (s *IdentityHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.trail = mocks.NewMockAuditTrail(ctrl)
	s.adminID = id.IdentityID(uuid.New())

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), WithAuditTrail(s.trail))
	s.router = chi.NewRouter()
	h.Register(s.router)
	s.router.Route("/admin", h.RegisterAdmin)
}

func (s *IdentityHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(requestcontext.WithIdentityID(req.Context(), s.adminID))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *IdentityHandlerSuite) TestRegister() {
	s.Run("creates a pending intern", func() {
		supervisor := id.IdentityID(uuid.New())
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, cmd models.RegisterCommand) (*models.Identity, error) {
				s.Equal(id.RoleIntern, cmd.Role)
				s.Require().NotNil(cmd.SupervisorID)
				s.Equal(supervisor, *cmd.SupervisorID)
				s.Require().NotNil(cmd.ValidUntil)
				return &models.Identity{ID: id.IdentityID(uuid.New()), Name: cmd.Name, Role: cmd.Role, Status: models.StatusPending}, nil
			})

		w := s.do(http.MethodPost, "/admin/identities", map[string]string{
			"name":          "Ama Mensah",
			"role":          "Intern",
			"department":    "operations",
			"supervisor_id": supervisor.String(),
			"valid_until":   "2026-08-31",
		})
		s.Require().Equal(http.StatusCreated, w.Code)
		var resp models.Identity
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(models.StatusPending, resp.Status)
	})

	s.Run("rejects unknown role before the service", func() {
		w := s.do(http.MethodPost, "/admin/identities", map[string]string{
			"name": "Kofi", "role": "contractor", "department": "operations",
		})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown supervisor", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "supervisor not found"))
		w := s.do(http.MethodPost, "/admin/identities", map[string]string{
			"name": "Kofi", "role": "attache", "department": "finance", "supervisor_id": uuid.NewString(),
		})
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *IdentityHandlerSuite) TestApproveAndDeactivate() {
	target := id.IdentityID(uuid.New())

	s.Run("approver is the caller", func() {
		s.service.EXPECT().Approve(gomock.Any(), target, s.adminID).
			Return(&models.Identity{ID: target, Status: models.StatusActive}, nil)
		w := s.do(http.MethodPost, "/admin/identities/"+target.String()+"/approve", nil)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("approving twice is a conflict", func() {
		s.service.EXPECT().Approve(gomock.Any(), target, s.adminID).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "only pending identities can be approved"))
		w := s.do(http.MethodPost, "/admin/identities/"+target.String()+"/approve", nil)
		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("deactivate", func() {
		s.service.EXPECT().Deactivate(gomock.Any(), target).
			Return(&models.Identity{ID: target, Status: models.StatusInactive}, nil)
		w := s.do(http.MethodPost, "/admin/identities/"+target.String()+"/deactivate", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"status":"inactive"`)
	})

	s.Run("malformed id", func() {
		w := s.do(http.MethodPost, "/admin/identities/not-a-uuid/deactivate", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *IdentityHandlerSuite) TestListAndMe() {
	s.Run("department is required", func() {
		w := s.do(http.MethodGet, "/admin/identities", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("empty department lists as empty array", func() {
		s.service.EXPECT().ListByDepartment(gomock.Any(), "finance").Return(nil, nil)
		w := s.do(http.MethodGet, "/admin/identities?department=finance", nil)
		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"identities":[]}`, w.Body.String())
	})

	s.Run("me", func() {
		s.service.EXPECT().Get(gomock.Any(), s.adminID).
			Return(&models.Identity{ID: s.adminID, Name: "Admin", Status: models.StatusActive}, nil)
		w := s.do(http.MethodGet, "/me", nil)
		s.Equal(http.StatusOK, w.Code)
	})
}

func (s *IdentityHandlerSuite) TestAudit() {
	target := id.IdentityID(uuid.New())

	s.Run("lists recorded events", func() {
		at := time.Date(2026, 3, 2, 8, 5, 0, 0, time.UTC)
		s.trail.EXPECT().List(gomock.Any(), target).Return([]audit.Event{
			{Timestamp: at, Category: audit.CategoryCompliance, IdentityID: target, Action: "clocked_in", Station: "hq", Fingerprint: "fp-1"},
		}, nil)
		w := s.do(http.MethodGet, "/admin/identities/"+target.String()+"/audit", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		var resp AuditResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Require().Len(resp.Events, 1)
		s.Equal("clocked_in", resp.Events[0].Action)
		s.Equal("compliance", resp.Events[0].Category)
		s.Equal("hq", resp.Events[0].Station)
		s.True(at.Equal(resp.Events[0].Timestamp))
	})

	s.Run("no events is an empty array", func() {
		s.trail.EXPECT().List(gomock.Any(), target).Return(nil, nil)
		w := s.do(http.MethodGet, "/admin/identities/"+target.String()+"/audit", nil)
		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"events":[]}`, w.Body.String())
	})

	s.Run("store failure is internal", func() {
		s.trail.EXPECT().List(gomock.Any(), target).Return(nil, errors.New("connection reset"))
		w := s.do(http.MethodGet, "/admin/identities/"+target.String()+"/audit", nil)
		s.Equal(http.StatusInternalServerError, w.Code)
	})

	s.Run("route is absent without a trail", func() {
		ctrl := gomock.NewController(s.T())
		h := New(mocks.NewMockService(ctrl), slog.New(slog.NewTextHandler(io.Discard, nil)))
		router := chi.NewRouter()
		router.Route("/admin", h.RegisterAdmin)
		req := httptest.NewRequest(http.MethodGet, "/admin/identities/"+target.String()+"/audit", http.NoBody)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		s.Equal(http.StatusNotFound, w.Code)
	})
}
