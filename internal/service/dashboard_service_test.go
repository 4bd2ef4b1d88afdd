package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdityaDodda/purchase-kandhari/internal/model"
	"github.com/AdityaDodda/purchase-kandhari/internal/service"
)

func TestDashboardStatsScoping(t *testing.T) {
	db := setupTestDB(t)
	requests := service.NewRequestService(db, nil)
	dashboards := service.NewDashboardService(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "EMP001", model.RoleRequester)
	bob := createTestUser(t, db, "EMP002", model.RoleRequester)
	approver := createTestUser(t, db, "EMP003", model.RoleApprover)

	aliceReq := createDTO("Alice spend")
	aliceReq.LineItems = []service.LineItemDTO{lineItem("Racking", 2, 500)}
	created, err := requests.Create(ctx, alice.ID, aliceReq)
	require.NoError(t, err)
	_, err = requests.Approve(ctx, created.ID, approver.ID, "")
	require.NoError(t, err)

	_, err = requests.Create(ctx, bob.ID, createDTO("Bob pending"))
	require.NoError(t, err)

	global, err := dashboards.Stats(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, global.TotalRequests)
	assert.EqualValues(t, 1, global.Pending)
	assert.EqualValues(t, 1, global.Approved)
	assert.True(t, global.ApprovedValue.Equal(decimal.NewFromInt(1000)))

	mine, err := dashboards.Stats(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, mine.TotalRequests)
	assert.EqualValues(t, 1, mine.Pending)
	assert.EqualValues(t, 0, mine.Approved)
	assert.True(t, mine.ApprovedValue.IsZero())
}
