package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AdityaDodda/purchase-kandhari/internal/database"
	"github.com/AdityaDodda/purchase-kandhari/internal/model"
	"github.com/AdityaDodda/purchase-kandhari/internal/service"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open db")
	require.NoError(t, database.Migrate(db), "migrate")
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, employeeNumber, role string) *model.User {
	t.Helper()
	user := &model.User{
		EmployeeNumber: employeeNumber,
		FullName:       "Test " + employeeNumber,
		Email:          employeeNumber + "@example.com",
		Department:     "Logistics",
		Location:       "Hyderabad",
		Password:       "hashed",
		Role:           role,
		IsActive:       true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func lineItem(name string, qty int, unitCost int64) service.LineItemDTO {
	return service.LineItemDTO{
		ItemName:         name,
		RequiredQuantity: qty,
		UnitOfMeasure:    "pcs",
		UnitCost:         decimal.NewFromInt(unitCost),
		RequiredByDate:   time.Now().AddDate(0, 1, 0),
		DeliveryLocation: "Main warehouse",
	}
}

func createDTO(title string) service.CreateRequestDTO {
	return service.CreateRequestDTO{
		Title:                        title,
		RequestDate:                  time.Now(),
		Department:                   "Logistics",
		Location:                     "Hyderabad",
		BusinessJustificationCode:    "OPEX",
		BusinessJustificationDetails: "Replenishment of consumables",
	}
}

func TestCreateComputesTotalFromLineItems(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	requester := createTestUser(t, db, "EMP001", model.RoleRequester)

	dto := createDTO("Warehouse consumables")
	dto.LineItems = []service.LineItemDTO{
		lineItem("Safety gloves", 2, 500),
		lineItem("Tape rolls", 3, 100),
	}

	created, err := svc.Create(context.Background(), requester.ID, dto)
	require.NoError(t, err)

	assert.True(t, created.TotalEstimatedCost.Equal(decimal.NewFromInt(1300)),
		"expected 1300, got %s", created.TotalEstimatedCost)
	assert.Equal(t, model.StatusSubmitted, created.Status)
	assert.Equal(t, 1, created.CurrentApprovalLevel)
	assert.Len(t, created.LineItems, 2)

	// Submission notifies the requester
	var notif model.Notification
	require.NoError(t, db.First(&notif, "user_id = ?", requester.ID).Error)
	assert.Equal(t, model.NotificationSuccess, notif.Type)
}

func TestRequisitionNumberFormatAndSequence(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	requester := createTestUser(t, db, "EMP001", model.RoleRequester)

	first, err := svc.Create(context.Background(), requester.ID, createDTO("First"))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), requester.ID, createDTO("Second"))
	require.NoError(t, err)

	prefix := fmt.Sprintf("PR-LOGI-%s-", time.Now().Format("200601"))
	assert.Equal(t, prefix+"001", first.RequisitionNumber)
	assert.Equal(t, prefix+"002", second.RequisitionNumber)
}

func TestApproveAdvancesLevelAndRecordsHistory(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	requester := createTestUser(t, db, "EMP001", model.RoleRequester)
	approver := createTestUser(t, db, "EMP002", model.RoleApprover)

	created, err := svc.Create(context.Background(), requester.ID, createDTO("Approve me"))
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), created.ID, approver.ID, "Looks fine")
	require.NoError(t, err)

	assert.Equal(t, model.StatusApproved, approved.Status)
	assert.Equal(t, 2, approved.CurrentApprovalLevel)

	var history model.ApprovalHistory
	require.NoError(t, db.First(&history, "purchase_request_id = ?", created.ID).Error)
	assert.Equal(t, model.ActionApprove, history.Action)
	assert.Equal(t, approver.ID, history.ApproverID)
	assert.Equal(t, 1, history.ApprovalLevel, "history records the level at which the action happened")
	assert.Equal(t, "Looks fine", history.Comments)
}

func TestReturnResetsLevelAndResubmitWorks(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	requester := createTestUser(t, db, "EMP001", model.RoleRequester)
	approver := createTestUser(t, db, "EMP002", model.RoleApprover)

	created, err := svc.Create(context.Background(), requester.ID, createDTO("Needs more detail"))
	require.NoError(t, err)

	returned, err := svc.Return(context.Background(), created.ID, approver.ID, "Add justification")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReturned, returned.Status)
	assert.Equal(t, 1, returned.CurrentApprovalLevel)

	// Editing a returned request resubmits it
	updated, err := svc.Update(context.Background(), created.ID, requester.ID, model.RoleRequester, service.UpdateRequestDTO{
		BusinessJustificationDetails: "Extended justification with vendor quotes",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, updated.Status)
}

func TestTerminalStatusRefusesFurtherActions(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	requester := createTestUser(t, db, "EMP001", model.RoleRequester)
	approver := createTestUser(t, db, "EMP002", model.RoleApprover)

	created, err := svc.Create(context.Background(), requester.ID, createDTO("One-shot"))
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), created.ID, approver.ID, "Out of budget")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), created.ID, approver.ID, "")
	assert.ErrorIs(t, err, service.ErrTerminalStatus)

	_, err = svc.Cancel(context.Background(), created.ID, requester.ID, model.RoleRequester, "")
	assert.ErrorIs(t, err, service.ErrTerminalStatus)

	_, err = svc.Return(context.Background(), created.ID, approver.ID, "")
	assert.ErrorIs(t, err, service.ErrTerminalStatus)
}

func TestCancelOnlyByRequesterOrAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	requester := createTestUser(t, db, "EMP001", model.RoleRequester)
	other := createTestUser(t, db, "EMP003", model.RoleRequester)
	admin := createTestUser(t, db, "EMP004", model.RoleAdmin)

	created, err := svc.Create(context.Background(), requester.ID, createDTO("Mine"))
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), created.ID, other.ID, model.RoleRequester, "")
	assert.ErrorIs(t, err, service.ErrForbidden)

	cancelled, err := svc.Cancel(context.Background(), created.ID, admin.ID, model.RoleAdmin, "Duplicate of another request")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
}

func TestLineItemMutationsRecomputeTotal(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	requester := createTestUser(t, db, "EMP001", model.RoleRequester)

	created, err := svc.Create(context.Background(), requester.ID, createDTO("Rolling total"))
	require.NoError(t, err)

	item, err := svc.AddLineItem(context.Background(), created.ID, lineItem("Pallets", 4, 250))
	require.NoError(t, err)
	assertTotal(t, db, created.ID, 1000)

	updatedItem := lineItem("Pallets", 2, 250)
	_, err = svc.UpdateLineItem(context.Background(), created.ID, item.ID, updatedItem)
	require.NoError(t, err)
	assertTotal(t, db, created.ID, 500)

	require.NoError(t, svc.DeleteLineItem(context.Background(), created.ID, item.ID))
	assertTotal(t, db, created.ID, 0)
}

func TestLineItemEditsRefusedAfterApproval(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	requester := createTestUser(t, db, "EMP001", model.RoleRequester)
	approver := createTestUser(t, db, "EMP002", model.RoleApprover)

	created, err := svc.Create(context.Background(), requester.ID, createDTO("Sealed"))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), created.ID, approver.ID, "")
	require.NoError(t, err)

	_, err = svc.AddLineItem(context.Background(), created.ID, lineItem("Late addition", 1, 100))
	assert.ErrorIs(t, err, service.ErrNotEditable)
}

func TestListScopesToRequester(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	alice := createTestUser(t, db, "EMP001", model.RoleRequester)
	bob := createTestUser(t, db, "EMP002", model.RoleRequester)

	_, err := svc.Create(context.Background(), alice.ID, createDTO("Alice request"))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), bob.ID, createDTO("Bob request"))
	require.NoError(t, err)

	mine, total, err := svc.List(context.Background(), service.RequestFilter{RequesterID: alice.ID, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, "Alice request", mine[0].Title)

	all, total, err := svc.List(context.Background(), service.RequestFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)
}

func TestListPaginationWindow(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	requester := createTestUser(t, db, "EMP001", model.RoleRequester)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), requester.ID, createDTO(fmt.Sprintf("Request %d", i+1)))
		require.NoError(t, err)
	}

	page1, total, err := svc.List(context.Background(), service.RequestFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page1, 2)

	page2, total, err := svc.List(context.Background(), service.RequestFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page2, 1)
}

func TestGetDetailsPreloadsRelations(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewRequestService(db, nil)
	requester := createTestUser(t, db, "EMP001", model.RoleRequester)
	approver := createTestUser(t, db, "EMP002", model.RoleApprover)

	dto := createDTO("Full details")
	dto.LineItems = []service.LineItemDTO{lineItem("Shrink wrap", 10, 45)}
	created, err := svc.Create(context.Background(), requester.ID, dto)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), created.ID, approver.ID, "ok")
	require.NoError(t, err)

	details, err := svc.GetDetails(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, details.LineItems, 1)
	require.Len(t, details.ApprovalHistory, 1)
	assert.NotNil(t, details.Requester)
}

func assertTotal(t *testing.T, db *gorm.DB, requestID uint, expected int64) {
	t.Helper()
	var request model.PurchaseRequest
	require.NoError(t, db.First(&request, requestID).Error)
	assert.True(t, request.TotalEstimatedCost.Equal(decimal.NewFromInt(expected)),
		"expected total %d, got %s", expected, request.TotalEstimatedCost)
}
