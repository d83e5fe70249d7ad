package sessionrouter_test

import (
	"context"
	"errors"
	"testing"

	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/sessionrouter"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeDir struct {
	byID         map[primitive.ObjectID]*models.User
	byEmail      map[string]*models.User
	emailLookups int
}

func (f *fakeDir) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, userstore.ErrNotFound
}

func (f *fakeDir) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.emailLookups++
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, userstore.ErrNotFound
}

func TestResolve_PrefersID(t *testing.T) {
	byID := &models.User{ID: primitive.NewObjectID(), Email: "coach@club.tn", Role: models.RoleCoachAdmin, IsActive: true}
	other := &models.User{ID: primitive.NewObjectID(), Email: "coach@club.tn", Role: models.RoleMember, IsActive: true}
	dir := &fakeDir{
		byID:    map[primitive.ObjectID]*models.User{byID.ID: byID},
		byEmail: map[string]*models.User{"coach@club.tn": other},
	}
	rt := sessionrouter.New(dir, zap.NewNop())

	d, err := rt.Resolve(context.Background(), sessionrouter.Identity{ID: byID.ID.Hex(), Email: "coach@club.tn"})
	require.NoError(t, err)
	assert.Equal(t, byID.ID, d.User.ID)
	assert.Equal(t, sessionrouter.DashboardCoach, d.Dashboard)
	assert.True(t, d.Permissions.CreateEvents)
	assert.Equal(t, 0, dir.emailLookups, "email is not consulted when the id resolves")
}

func TestResolve_EmailFallbackOnMiss(t *testing.T) {
	u := &models.User{ID: primitive.NewObjectID(), Email: "m@club.tn", Role: models.RoleMember, IsActive: true}
	dir := &fakeDir{byEmail: map[string]*models.User{"m@club.tn": u}}
	rt := sessionrouter.New(dir, zap.NewNop())

	d, err := rt.Resolve(context.Background(), sessionrouter.Identity{ID: "google-sub-123", Email: "m@club.tn"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, d.User.ID)
	assert.Equal(t, sessionrouter.DashboardMember, d.Dashboard)
}

func TestResolve_Failures(t *testing.T) {
	inactive := &models.User{ID: primitive.NewObjectID(), Role: models.RoleMember}
	dir := &fakeDir{byID: map[primitive.ObjectID]*models.User{inactive.ID: inactive}}
	rt := sessionrouter.New(dir, zap.NewNop())

	_, err := rt.Resolve(context.Background(), sessionrouter.Identity{ID: inactive.ID.Hex()})
	assert.True(t, errors.Is(err, sessionrouter.ErrInactive))

	_, err = rt.Resolve(context.Background(), sessionrouter.Identity{ID: primitive.NewObjectID().Hex(), Email: "ghost@club.tn"})
	assert.True(t, errors.Is(err, sessionrouter.ErrUnknownUser))

	d, err := rt.Resolve(context.Background(), sessionrouter.Identity{})
	require.NoError(t, err)
	assert.Equal(t, sessionrouter.DashboardGuest, d.Dashboard)
	assert.Nil(t, d.User)
}

func TestDashboardFor(t *testing.T) {
	assert.Equal(t, sessionrouter.DashboardMainAdmin, sessionrouter.DashboardFor(models.RoleMainAdmin))
	assert.Equal(t, sessionrouter.DashboardGroupAdmin, sessionrouter.DashboardFor(models.RoleGroupAdmin))
	assert.Equal(t, sessionrouter.DashboardGuest, sessionrouter.DashboardFor(models.RoleVisitor))
	assert.Equal(t, sessionrouter.DashboardGuest, sessionrouter.DashboardFor(""))
}
