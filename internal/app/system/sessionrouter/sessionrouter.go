// internal/app/system/sessionrouter/sessionrouter.go
//
// Package sessionrouter turns a signed-in identity into a directory user
// and the dashboard that user lands on.
package sessionrouter

import (
	"context"
	"errors"
	"strings"

	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrUnknownUser = errors.New("no directory user for this identity")
	ErrInactive    = errors.New("user is inactive")
)

// Dashboard names the landing view for a role.
type Dashboard string

const (
	DashboardMainAdmin  Dashboard = "main_admin"
	DashboardCoach      Dashboard = "coach"
	DashboardGroupAdmin Dashboard = "group_admin"
	DashboardMember     Dashboard = "member"
	DashboardGuest      Dashboard = "guest"
)

// DashboardFor maps a canonical role to its dashboard.
func DashboardFor(role models.Role) Dashboard {
	switch role {
	case models.RoleMainAdmin:
		return DashboardMainAdmin
	case models.RoleCoachAdmin:
		return DashboardCoach
	case models.RoleGroupAdmin:
		return DashboardGroupAdmin
	case models.RoleMember:
		return DashboardMember
	default:
		return DashboardGuest
	}
}

// Directory is the part of the user store the router reads.
type Directory interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Identity is what the authentication layer knows about the caller.
type Identity struct {
	ID    string
	Email string
}

// Decision is the resolved user and where they go.
type Decision struct {
	User        *models.User       `json:"user,omitempty"`
	Role        models.Role        `json:"role"`
	Permissions models.Permissions `json:"permissions"`
	Dashboard   Dashboard          `json:"dashboard"`
}

// Guest is the decision for an anonymous visitor.
func Guest() Decision {
	return Decision{
		Role:        models.RoleVisitor,
		Permissions: authz.Derive(models.RoleVisitor),
		Dashboard:   DashboardGuest,
	}
}

type Router struct {
	dir Directory
	log *zap.Logger
}

func New(dir Directory, logger *zap.Logger) *Router {
	return &Router{dir: dir, log: logger}
}

// Resolve looks the identity up by id first. The email lookup is only a
// fallback for identities whose id has no directory record, such as
// accounts created before ids were shared with the directory.
func (rt *Router) Resolve(ctx context.Context, id Identity) (Decision, error) {
	if strings.TrimSpace(id.ID) == "" && strings.TrimSpace(id.Email) == "" {
		return Guest(), nil
	}

	u, err := rt.byID(ctx, id.ID)
	if err != nil {
		return Decision{}, err
	}
	if u == nil && strings.TrimSpace(id.Email) != "" {
		u, err = rt.dir.GetByEmail(ctx, id.Email)
		if errors.Is(err, userstore.ErrNotFound) {
			u, err = nil, nil
		}
		if err != nil {
			return Decision{}, err
		}
		if u != nil {
			rt.log.Info("session resolved by email fallback",
				zap.String("identity_id", id.ID),
				zap.String("user_id", u.ID.Hex()))
		}
	}
	if u == nil {
		return Decision{}, ErrUnknownUser
	}
	if !u.IsActive {
		return Decision{}, ErrInactive
	}

	return Decision{
		User:        u,
		Role:        u.Role,
		Permissions: authz.Derive(u.Role),
		Dashboard:   DashboardFor(u.Role),
	}, nil
}

func (rt *Router) byID(ctx context.Context, raw string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return nil, nil
	}
	u, err := rt.dir.GetByID(ctx, oid)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, nil
	}
	return u, err
}
