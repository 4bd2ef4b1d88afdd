package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/AdityaDodda/purchase-kandhari/internal/model"
	"github.com/AdityaDodda/purchase-kandhari/internal/repository"
	"github.com/AdityaDodda/purchase-kandhari/internal/service"
)

func newUserService(db *gorm.DB) service.UserService {
	return service.NewUserService(repository.NewUserRepository(db), nil, nil, "http://localhost:5173")
}

func signupReq(employeeNumber string) service.SignupRequest {
	return service.SignupRequest{
		EmployeeNumber: employeeNumber,
		FullName:       "Test " + employeeNumber,
		Email:          employeeNumber + "@example.com",
		Department:     "Logistics",
		Location:       "Hyderabad",
		Password:       "secret123",
	}
}

func TestSignupAndLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)

	created, err := svc.Signup(context.Background(), signupReq("EMP100"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.Token)
	assert.NotEmpty(t, created.RefreshToken)
	assert.Equal(t, model.RoleRequester, created.User.Role, "role defaults to requester")

	tokens, err := svc.Login(context.Background(), service.LoginRequest{
		EmployeeNumber: "EMP100",
		Password:       "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, tokens.User.ID)
}

func TestLoginRejectsWrongPasswordAndUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)

	_, err := svc.Signup(context.Background(), signupReq("EMP100"))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), service.LoginRequest{EmployeeNumber: "EMP100", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), service.LoginRequest{EmployeeNumber: "NOBODY", Password: "secret123"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLoginRejectsDeactivatedUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)

	created, err := svc.Signup(context.Background(), signupReq("EMP100"))
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), created.User.ID))

	_, err = svc.Login(context.Background(), service.LoginRequest{EmployeeNumber: "EMP100", Password: "secret123"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestSignupRejectsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)

	_, err := svc.Signup(context.Background(), signupReq("EMP100"))
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), signupReq("EMP100"))
	assert.Error(t, err)

	dupEmail := signupReq("EMP101")
	dupEmail.Email = "EMP100@example.com"
	_, err = svc.Signup(context.Background(), dupEmail)
	assert.Error(t, err)
}

func TestRefreshRotatesToken(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)

	created, err := svc.Signup(context.Background(), signupReq("EMP100"))
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), created.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, created.RefreshToken, rotated.RefreshToken)

	// The old token is spent
	_, err = svc.Refresh(context.Background(), created.RefreshToken)
	assert.Error(t, err)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)

	created, err := svc.Signup(context.Background(), signupReq("EMP100"))
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), created.RefreshToken))
	_, err = svc.Refresh(context.Background(), created.RefreshToken)
	assert.Error(t, err)
}

func TestUpdateRoleRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)

	created, err := svc.Signup(context.Background(), signupReq("EMP100"))
	require.NoError(t, err)

	unchanged, err := svc.Update(context.Background(), created.User.ID,
		service.UpdateProfileRequest{Role: model.RoleAdmin}, model.RoleRequester)
	require.NoError(t, err)
	assert.Equal(t, model.RoleRequester, unchanged.Role)

	promoted, err := svc.Update(context.Background(), created.User.ID,
		service.UpdateProfileRequest{Role: model.RoleApprover}, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleApprover, promoted.Role)
}
