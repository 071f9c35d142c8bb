package rbac

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/platform/cache"
	"github.com/gatehouse/gatehouse/internal/shared"
)

type memoryGraph struct {
	users       map[string]int64
	roles       map[string]int64
	permissions map[string]int64
	userRoles   map[int64]map[int64]struct{}
	rolePerms   map[int64]map[int64]struct{}
}

func newMemoryGraph() *memoryGraph {
	return &memoryGraph{
		users:       make(map[string]int64),
		roles:       make(map[string]int64),
		permissions: make(map[string]int64),
		userRoles:   make(map[int64]map[int64]struct{}),
		rolePerms:   make(map[int64]map[int64]struct{}),
	}
}

func (g *memoryGraph) addUser(id int64, name string, roles ...string) {
	g.users[name] = id
	for _, role := range roles {
		roleID := g.roles[role]
		if g.userRoles[id] == nil {
			g.userRoles[id] = make(map[int64]struct{})
		}
		g.userRoles[id][roleID] = struct{}{}
	}
}

func (g *memoryGraph) addRole(id int64, name string, actions ...string) {
	g.roles[name] = id
	for _, action := range actions {
		permID := g.permissions[action]
		if g.rolePerms[id] == nil {
			g.rolePerms[id] = make(map[int64]struct{})
		}
		g.rolePerms[id][permID] = struct{}{}
	}
}

func (g *memoryGraph) addPermission(id int64, action string) {
	g.permissions[action] = id
}

func (g *memoryGraph) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, g)
}

func (g *memoryGraph) FindUserIDByName(_ context.Context, name string) (int64, error) {
	id, ok := g.users[name]
	if !ok {
		return 0, fmt.Errorf("%w: user %q", shared.ErrNotFound, name)
	}
	return id, nil
}

func (g *memoryGraph) FindRoleIDByName(_ context.Context, name string) (int64, error) {
	id, ok := g.roles[name]
	if !ok {
		return 0, fmt.Errorf("%w: role %q", shared.ErrNotFound, name)
	}
	return id, nil
}

func (g *memoryGraph) FindPermissionIDByAction(_ context.Context, action string) (int64, error) {
	id, ok := g.permissions[action]
	if !ok {
		return 0, fmt.Errorf("%w: permission %q", shared.ErrNotFound, action)
	}
	return id, nil
}

func (g *memoryGraph) AssignUserRole(_ context.Context, userID, roleID int64) error {
	if g.userRoles[userID] == nil {
		g.userRoles[userID] = make(map[int64]struct{})
	}
	if _, ok := g.userRoles[userID][roleID]; ok {
		return fmt.Errorf("%w: assignment exists", shared.ErrAlreadyExists)
	}
	g.userRoles[userID][roleID] = struct{}{}
	return nil
}

func (g *memoryGraph) AssignRolePermission(_ context.Context, roleID, permissionID int64) error {
	if g.rolePerms[roleID] == nil {
		g.rolePerms[roleID] = make(map[int64]struct{})
	}
	if _, ok := g.rolePerms[roleID][permissionID]; ok {
		return fmt.Errorf("%w: grant exists", shared.ErrAlreadyExists)
	}
	g.rolePerms[roleID][permissionID] = struct{}{}
	return nil
}

func (g *memoryGraph) ReassignUserRole(_ context.Context, userID, currentRoleID, newRoleID int64) error {
	if _, ok := g.userRoles[userID][currentRoleID]; !ok {
		return fmt.Errorf("%w: assignment", shared.ErrNotFound)
	}
	delete(g.userRoles[userID], currentRoleID)
	g.userRoles[userID][newRoleID] = struct{}{}
	return nil
}

func (g *memoryGraph) PermissionsForRoles(_ context.Context, roleNames []string) ([]string, error) {
	seen := make(map[string]struct{})
	var actions []string
	for _, name := range roleNames {
		roleID, ok := g.roles[name]
		if !ok {
			continue
		}
		for permID := range g.rolePerms[roleID] {
			for action, id := range g.permissions {
				if id != permID {
					continue
				}
				if _, dup := seen[action]; dup {
					continue
				}
				seen[action] = struct{}{}
				actions = append(actions, action)
			}
		}
	}
	return actions, nil
}

func (g *memoryGraph) UserRolePermissions(_ context.Context, userID int64) ([]RolePermissions, error) {
	var out []RolePermissions
	for roleID := range g.userRoles[userID] {
		for name, id := range g.roles {
			if id != roleID {
				continue
			}
			actions, _ := g.PermissionsForRoles(context.Background(), []string{name})
			out = append(out, RolePermissions{Role: name, Actions: actions})
		}
	}
	return out, nil
}

func (g *memoryGraph) CountUserRoles(_ context.Context, userID int64) (int64, error) {
	return int64(len(g.userRoles[userID])), nil
}

func (g *memoryGraph) RemoveUserRole(_ context.Context, userID, roleID int64) error {
	delete(g.userRoles[userID], roleID)
	return nil
}

func (g *memoryGraph) CountRolePermissions(_ context.Context, roleID int64) (int64, error) {
	return int64(len(g.rolePerms[roleID])), nil
}

func (g *memoryGraph) RemoveRolePermission(_ context.Context, roleID, permissionID int64) error {
	delete(g.rolePerms[roleID], permissionID)
	return nil
}

var _ Repository = (*memoryGraph)(nil)
var _ TxRepository = (*memoryGraph)(nil)

func seededGraph() *memoryGraph {
	g := newMemoryGraph()
	g.addPermission(1, ActionCreate)
	g.addPermission(2, ActionUpdate)
	g.addPermission(3, ActionDelete)
	g.addPermission(4, ActionRead)
	g.addRole(1, RoleAdmin, ActionCreate, ActionUpdate, ActionDelete, ActionRead)
	g.addRole(2, RoleViewer, ActionRead)
	g.addRole(3, RoleEditor, ActionUpdate, ActionRead)
	g.addUser(1, "Admin", RoleAdmin)
	g.addUser(2, "alice", RoleViewer)
	return g
}

func adminContext() *shared.AuthContext {
	return shared.NewAuthContext("1",
		[]string{RoleAdmin},
		[]string{ActionCreate, ActionUpdate, ActionDelete, ActionRead})
}

func viewerContext() *shared.AuthContext {
	return shared.NewAuthContext("2", []string{RoleViewer}, []string{ActionRead})
}

func TestPermissionsForRolesUnion(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	perms, err := svc.PermissionsForRoles(context.Background(), []string{RoleViewer, RoleEditor})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ActionRead, ActionUpdate}, perms)
}

func TestPermissionsForRolesUnknownRoleDegrades(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	perms, err := svc.PermissionsForRoles(context.Background(), []string{RoleViewer, "Ghost"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ActionRead}, perms)
}

func TestPermissionsForRolesGrowAfterGrant(t *testing.T) {
	g := seededGraph()
	svc := NewService(g, nil)

	before, err := svc.PermissionsForRoles(context.Background(), []string{RoleViewer})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ActionRead}, before)

	require.NoError(t, svc.AssignRolePermission(context.Background(), adminContext(), RoleViewer, ActionUpdate))

	after, err := svc.PermissionsForRoles(context.Background(), []string{RoleViewer})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ActionRead, ActionUpdate}, after)
}

func TestAssignUserRoleProtectsAdmin(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	err := svc.AssignUserRole(context.Background(), adminContext(), "alice", RoleAdmin)
	require.ErrorIs(t, err, shared.ErrProtectedRole)
}

func TestAssignUserRoleNeedsUpdate(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	err := svc.AssignUserRole(context.Background(), viewerContext(), "alice", RoleEditor)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestAssignUserRoleUnknownUser(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	err := svc.AssignUserRole(context.Background(), adminContext(), "nobody", RoleEditor)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRemoveUserRoleKeepsLastRole(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	err := svc.RemoveUserRole(context.Background(), adminContext(), "alice", RoleViewer)
	require.ErrorIs(t, err, shared.ErrMinCardinality)
}

func TestRemoveUserRoleProtectsAdmin(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	err := svc.RemoveUserRole(context.Background(), adminContext(), "Admin", RoleAdmin)
	require.ErrorIs(t, err, shared.ErrProtectedRole)
}

func TestRemoveUserRoleSucceedsAboveMinimum(t *testing.T) {
	g := seededGraph()
	svc := NewService(g, nil)
	require.NoError(t, svc.AssignUserRole(context.Background(), adminContext(), "alice", RoleEditor))

	require.NoError(t, svc.RemoveUserRole(context.Background(), adminContext(), "alice", RoleViewer))

	count, err := g.CountUserRoles(context.Background(), 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRemoveRolePermissionProtectsAdmin(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	err := svc.RemoveRolePermission(context.Background(), adminContext(), RoleAdmin, ActionRead)
	require.ErrorIs(t, err, shared.ErrProtectedRole)
}

func TestRemoveRolePermissionKeepsLastGrant(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	err := svc.RemoveRolePermission(context.Background(), adminContext(), RoleViewer, ActionRead)
	require.ErrorIs(t, err, shared.ErrMinCardinality)
}

func TestRemoveRolePermissionNeedsAdmin(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	err := svc.RemoveRolePermission(context.Background(), viewerContext(), RoleEditor, ActionRead)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestRemoveRolePermissionSucceedsAboveMinimum(t *testing.T) {
	g := seededGraph()
	svc := NewService(g, nil)

	require.NoError(t, svc.RemoveRolePermission(context.Background(), adminContext(), RoleEditor, ActionUpdate))

	perms, err := svc.PermissionsForRoles(context.Background(), []string{RoleEditor})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ActionRead}, perms)
}

func TestReassignUserRoleUnknownTarget(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	err := svc.ReassignUserRole(context.Background(), adminContext(), 2, RoleViewer, "Ghost")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReassignUserRoleSwaps(t *testing.T) {
	g := seededGraph()
	svc := NewService(g, nil)

	require.NoError(t, svc.ReassignUserRole(context.Background(), adminContext(), 2, RoleViewer, RoleEditor))

	report, err := svc.UserRolePermissions(context.Background(), adminContext(), 2)
	require.NoError(t, err)
	require.Len(t, report, 1)
	require.Equal(t, RoleEditor, report[0].Role)
}

func TestUserRolePermissionsNeedsRead(t *testing.T) {
	svc := NewService(seededGraph(), nil)

	_, err := svc.UserRolePermissions(context.Background(), shared.NewAuthContext("9", nil, nil), 2)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestGrantInvalidatesCachedResolution(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	g := seededGraph()
	svc := NewService(g, cache.New(client, time.Minute))

	first, err := svc.PermissionsForRoles(context.Background(), []string{RoleViewer})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ActionRead}, first)

	require.NoError(t, svc.AssignRolePermission(context.Background(), adminContext(), RoleViewer, ActionCreate))

	second, err := svc.PermissionsForRoles(context.Background(), []string{RoleViewer})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ActionRead, ActionCreate}, second)
}
