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
	"go.uber.org/mock/gomock"

	"verigate/internal/verification/evaluator"
	"verigate/internal/verification/models"
	"verigate/internal/verification/service/mocks"
	"verigate/internal/verification/store/personalinfo"
	"verigate/internal/verification/store/profile"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
)

type mockedService struct {
	service   *Service
	documents *mocks.MockDocumentStore
	profiles  *profile.InMemoryStore
	cache     *evaluator.MemoryCache
}

func newMockedService(t *testing.T) *mockedService {
	t.Helper()
	ctrl := gomock.NewController(t)
	docs := mocks.NewMockDocumentStore(ctrl)
	profiles := profile.New()
	cache := evaluator.NewMemoryCache()
	svc := New(docs, profiles, personalinfo.New(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithCache(cache),
	)
	return &mockedService{service: svc, documents: docs, profiles: profiles, cache: cache}
}

func (m *mockedService) registered(t *testing.T, role models.Role) id.UserID {
	t.Helper()
	userID := id.UserID(uuid.New())
	p, err := models.NewRoleProfile(userID, role, time.Now())
	require.NoError(t, err)
	require.NoError(t, m.profiles.Create(context.Background(), p))
	return userID
}

func TestEvaluationServesStaleOnFetchFailure(t *testing.T) {
	ctx := context.Background()
	m := newMockedService(t)
	userID := m.registered(t, models.RoleCustomer)
	key := evaluator.Key{UserID: userID, Role: models.RoleCustomer}

	m.documents.EXPECT().ListByUser(gomock.Any(), userID).Return([]models.Document{}, nil)
	first, err := m.service.Evaluation(ctx, userID, models.RoleCustomer)
	require.NoError(t, err)
	assert.False(t, first.Stale)

	require.NoError(t, m.cache.Invalidate(ctx, key))
	m.documents.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, sentinel.ErrUnavailable)

	stale, err := m.service.Evaluation(ctx, userID, models.RoleCustomer)
	require.NoError(t, err)
	assert.True(t, stale.Stale, "a failed fetch must not be read as an empty document set")
	assert.Equal(t, first.Status, stale.Status)

	keys, err := m.cache.StaleKeys(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []evaluator.Key{key}, keys)
}

func TestEvaluationUnavailableWithoutCachedValue(t *testing.T) {
	m := newMockedService(t)
	userID := m.registered(t, models.RoleDriver)

	m.documents.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, sentinel.ErrUnavailable)

	_, err := m.service.Evaluation(context.Background(), userID, models.RoleDriver)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestSubmitFailsClosedWhenEvidenceUnavailable(t *testing.T) {
	m := newMockedService(t)
	userID := m.registered(t, models.RoleCustomer)

	m.documents.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, sentinel.ErrUnavailable)

	_, err := m.service.Submit(context.Background(), userID, models.RoleCustomer)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	p, err := m.profiles.Find(context.Background(), userID, models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIncomplete, p.Status)
	assert.Nil(t, p.SubmittedAt)
}

func TestRejectValidatesReasonBeforeAnyStoreCall(t *testing.T) {
	m := newMockedService(t)

	_, err := m.service.Reject(context.Background(), id.ReviewerID(uuid.New()), id.NewDocumentID(), " ok ")
	assert.True(t, dErrors.HasReason(err, models.ReasonReasonTooShort))
}

func TestDecisionStoreConflictMapsToAlreadyReviewed(t *testing.T) {
	m := newMockedService(t)
	owner := m.registered(t, models.RoleCustomer)
	doc := &models.Document{ID: id.NewDocumentID(), OwnerID: owner, Type: models.DocumentIdentity, Status: models.DocumentApproved}

	m.documents.EXPECT().FindByID(gomock.Any(), doc.ID).Return(doc, nil)
	m.documents.EXPECT().
		Decide(gomock.Any(), doc.ID, models.DecisionApprove, "", gomock.Any(), gomock.Any()).
		Return(doc, sentinel.ErrAlreadyUsed)

	_, err := m.service.Approve(context.Background(), id.ReviewerID(uuid.New()), doc.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.True(t, dErrors.HasReason(err, models.ReasonAlreadyReviewed))
}

func (m *mockedService) expectRejection(t *testing.T, owner id.UserID) *models.Document {
	t.Helper()
	pending := &models.Document{ID: id.NewDocumentID(), OwnerID: owner, Type: models.DocumentIdentity, Status: models.DocumentPending, SubmittedAt: time.Now()}
	rejected := *pending
	rejected.Status = models.DocumentRejected
	m.documents.EXPECT().FindByID(gomock.Any(), pending.ID).Return(pending, nil)
	m.documents.EXPECT().
		Decide(gomock.Any(), pending.ID, models.DecisionReject, "blurry scan", gomock.Any(), gomock.Any()).
		Return(&rejected, nil)
	return &rejected
}

func TestFailedSyncAfterDecisionIsRetried(t *testing.T) {
	ctx := context.Background()
	m := newMockedService(t)
	owner := m.registered(t, models.RoleCustomer)
	key := evaluator.Key{UserID: owner, Role: models.RoleCustomer}
	rejected := m.expectRejection(t, owner)

	m.documents.EXPECT().ListByUser(gomock.Any(), owner).Return(nil, sentinel.ErrUnavailable)
	_, err := m.service.Reject(ctx, id.ReviewerID(uuid.New()), rejected.ID, "blurry scan")
	require.NoError(t, err, "the decision is committed even though the profile sync failed")

	keys, err := m.cache.StaleKeys(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []evaluator.Key{key}, keys, "nothing was cached, the key must still be queued")

	profiles, err := m.service.Profiles(ctx, owner)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, models.StatusIncomplete, profiles[0].Status)
	assert.True(t, profiles[0].Stale)

	m.documents.EXPECT().ListByUser(gomock.Any(), owner).Return([]models.Document{*rejected}, nil).Times(2)
	refreshed, err := m.service.RefreshStale(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed)

	profiles, err = m.service.Profiles(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, profiles[0].Status)
	assert.False(t, profiles[0].Stale)

	keys, err = m.cache.StaleKeys(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDecisionSyncSurvivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newMockedService(t)
	owner := m.registered(t, models.RoleCustomer)
	pending := &models.Document{ID: id.NewDocumentID(), OwnerID: owner, Type: models.DocumentIdentity, Status: models.DocumentPending, SubmittedAt: time.Now()}
	rejected := *pending
	rejected.Status = models.DocumentRejected

	m.documents.EXPECT().FindByID(gomock.Any(), pending.ID).Return(pending, nil)
	m.documents.EXPECT().
		Decide(gomock.Any(), pending.ID, models.DecisionReject, "blurry scan", gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, id.DocumentID, models.Decision, string, string, time.Time) (*models.Document, error) {
			cancel()
			return &rejected, nil
		})
	m.documents.EXPECT().
		ListByUser(gomock.Any(), owner).
		DoAndReturn(func(ctx context.Context, _ id.UserID) ([]models.Document, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return []models.Document{rejected}, nil
		})

	_, err := m.service.Reject(ctx, id.ReviewerID(uuid.New()), pending.ID, "blurry scan")
	require.NoError(t, err)

	p, err := m.profiles.Find(context.Background(), owner, models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, p.Status)
}
