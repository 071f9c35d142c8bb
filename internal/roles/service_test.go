package roles

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/rbac"
	"github.com/gatehouse/gatehouse/internal/shared"
)

type memoryRoleRepo struct {
	nextID  int64
	roles   map[int64]Role
	perms   map[string]Permission
	members map[string][]RoleUser
	grants  map[string][]string
}

func newMemoryRoleRepo() *memoryRoleRepo {
	repo := &memoryRoleRepo{
		roles:   make(map[int64]Role),
		perms:   make(map[string]Permission),
		members: make(map[string][]RoleUser),
		grants:  make(map[string][]string),
	}
	repo.mustInsert(rbac.RoleAdmin)
	repo.mustInsert(rbac.RoleViewer)
	repo.mustInsert(rbac.RoleEditor)
	return repo
}

func (m *memoryRoleRepo) mustInsert(name string) Role {
	role, err := m.Insert(context.Background(), name)
	if err != nil {
		panic(err)
	}
	return role
}

func (m *memoryRoleRepo) List(context.Context) ([]Role, error) {
	var out []Role
	for id := int64(1); id <= m.nextID; id++ {
		if role, ok := m.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (m *memoryRoleRepo) FindByID(_ context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("%w: role %d", shared.ErrNotFound, id)
	}
	return role, nil
}

func (m *memoryRoleRepo) Insert(_ context.Context, name string) (Role, error) {
	for _, role := range m.roles {
		if role.Name == name {
			return Role{}, fmt.Errorf("%w: a role with this name exists", shared.ErrAlreadyExists)
		}
	}
	m.nextID++
	role := Role{ID: m.nextID, Name: name}
	m.roles[role.ID] = role
	return role, nil
}

func (m *memoryRoleRepo) Rename(_ context.Context, id int64, name string) error {
	for otherID, role := range m.roles {
		if otherID != id && role.Name == name {
			return fmt.Errorf("%w: a role with this name exists", shared.ErrAlreadyExists)
		}
	}
	role, ok := m.roles[id]
	if !ok {
		return fmt.Errorf("%w: role %d", shared.ErrNotFound, id)
	}
	role.Name = name
	m.roles[id] = role
	return nil
}

func (m *memoryRoleRepo) Delete(_ context.Context, id int64) error {
	role, ok := m.roles[id]
	if !ok {
		return fmt.Errorf("%w: role %d", shared.ErrNotFound, id)
	}
	delete(m.roles, id)
	delete(m.grants, role.Name)
	return nil
}

func (m *memoryRoleRepo) ListUsers(_ context.Context, roleName string) ([]RoleUser, error) {
	return m.members[roleName], nil
}

func (m *memoryRoleRepo) ListRolePermissions(_ context.Context, roleName string) ([]string, error) {
	return m.grants[roleName], nil
}

func (m *memoryRoleRepo) InsertPermission(_ context.Context, action string) (Permission, error) {
	if _, ok := m.perms[action]; ok {
		return Permission{}, fmt.Errorf("%w: a permission with this action exists", shared.ErrAlreadyExists)
	}
	perm := Permission{ID: int64(len(m.perms) + 1), Action: action}
	m.perms[action] = perm
	return perm, nil
}

func (m *memoryRoleRepo) ListPermissions(context.Context) ([]Permission, error) {
	var out []Permission
	for _, perm := range m.perms {
		out = append(out, perm)
	}
	return out, nil
}

var _ Repository = (*memoryRoleRepo)(nil)

func adminContext() *shared.AuthContext {
	return shared.NewAuthContext("1",
		[]string{rbac.RoleAdmin},
		[]string{rbac.ActionCreate, rbac.ActionUpdate, rbac.ActionDelete, rbac.ActionRead})
}

func viewerContext() *shared.AuthContext {
	return shared.NewAuthContext("2", []string{rbac.RoleViewer}, []string{rbac.ActionRead})
}

func TestListNeedsRead(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())

	_, err := svc.List(context.Background(), shared.NewAuthContext("9", nil, nil))
	require.ErrorIs(t, err, shared.ErrForbidden)

	roles, err := svc.List(context.Background(), viewerContext())
	require.NoError(t, err)
	require.Len(t, roles, 3)
}

func TestCreateRoleNeedsAdmin(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())

	_, err := svc.Create(context.Background(), viewerContext(), "Auditor")
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCreateRoleDuplicate(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())

	_, err := svc.Create(context.Background(), adminContext(), rbac.RoleViewer)
	require.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestRenameAdminRoleBlocked(t *testing.T) {
	repo := newMemoryRoleRepo()
	svc := NewService(repo)

	err := svc.Rename(context.Background(), adminContext(), 1, "Root")
	require.ErrorIs(t, err, shared.ErrProtectedRole)
}

func TestRenameRole(t *testing.T) {
	repo := newMemoryRoleRepo()
	svc := NewService(repo)

	require.NoError(t, svc.Rename(context.Background(), adminContext(), 2, "Reader"))

	role, err := repo.FindByID(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, "Reader", role.Name)
}

func TestRenameUnknownRole(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())

	err := svc.Rename(context.Background(), adminContext(), 99, "Reader")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteAdminRoleBlocked(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())

	err := svc.Delete(context.Background(), adminContext(), 1)
	require.ErrorIs(t, err, shared.ErrProtectedRole)
}

func TestDeleteRoleNeedsAdmin(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())

	err := svc.Delete(context.Background(), viewerContext(), 3)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDeleteRole(t *testing.T) {
	repo := newMemoryRoleRepo()
	svc := NewService(repo)

	require.NoError(t, svc.Delete(context.Background(), adminContext(), 3))

	_, err := repo.FindByID(context.Background(), 3)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRoleUsersNeedsAdmin(t *testing.T) {
	repo := newMemoryRoleRepo()
	repo.members[rbac.RoleViewer] = []RoleUser{{ID: 2, Name: "alice", Email: "alice@test.com"}}
	svc := NewService(repo)

	_, err := svc.Users(context.Background(), viewerContext(), rbac.RoleViewer)
	require.ErrorIs(t, err, shared.ErrForbidden)

	users, err := svc.Users(context.Background(), adminContext(), rbac.RoleViewer)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "alice", users[0].Name)
}

func TestRolePermissionsNeedsAdmin(t *testing.T) {
	repo := newMemoryRoleRepo()
	repo.grants[rbac.RoleEditor] = []string{rbac.ActionUpdate, rbac.ActionRead}
	svc := NewService(repo)

	_, err := svc.Permissions(context.Background(), viewerContext(), rbac.RoleEditor)
	require.ErrorIs(t, err, shared.ErrForbidden)

	actions, err := svc.Permissions(context.Background(), adminContext(), rbac.RoleEditor)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{rbac.ActionUpdate, rbac.ActionRead}, actions)
}

func TestCreatePermissionNeedsAdmin(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())

	_, err := svc.CreatePermission(context.Background(), viewerContext(), "Export")
	require.ErrorIs(t, err, shared.ErrForbidden)

	perm, err := svc.CreatePermission(context.Background(), adminContext(), "Export")
	require.NoError(t, err)
	require.Equal(t, "Export", perm.Action)

	_, err = svc.CreatePermission(context.Background(), adminContext(), "Export")
	require.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestListPermissionsNeedsRead(t *testing.T) {
	repo := newMemoryRoleRepo()
	svc := NewService(repo)
	_, err := svc.CreatePermission(context.Background(), adminContext(), "Export")
	require.NoError(t, err)

	_, err = svc.ListPermissions(context.Background(), shared.NewAuthContext("9", nil, nil))
	require.ErrorIs(t, err, shared.ErrForbidden)

	perms, err := svc.ListPermissions(context.Background(), viewerContext())
	require.NoError(t, err)
	require.Len(t, perms, 1)
}
