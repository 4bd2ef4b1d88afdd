package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdityaDodda/purchase-kandhari/internal/model"
	"github.com/AdityaDodda/purchase-kandhari/internal/service"
)

func bindJSON(payload string) func(dst interface{}) error {
	return func(dst interface{}) error {
		return json.Unmarshal([]byte(payload), dst)
	}
}

func TestMasterRegistryCoversAllTypes(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"approval-matrix", "departments", "entities", "escalation-matrix",
		"inventory", "locations", "roles", "vendors",
	}, service.MasterTypes())
}

func TestMasterCRUDLifecycle(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewMasterService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, "vendors", bindJSON(`{"name":"Acme Supplies","code":"ACME","email":"sales@acme.example"}`))
	require.NoError(t, err)
	vendor := created.(*model.Vendor)
	assert.NotZero(t, vendor.ID)
	assert.Equal(t, "Acme Supplies", vendor.Name)

	rows, err := svc.List(ctx, "vendors")
	require.NoError(t, err)
	assert.Len(t, *rows.(*[]model.Vendor), 1)

	updated, err := svc.Update(ctx, "vendors", vendor.ID, bindJSON(`{"name":"Acme Industrial","code":"ACME"}`))
	require.NoError(t, err)
	assert.Equal(t, "Acme Industrial", updated.(*model.Vendor).Name)
	assert.Equal(t, vendor.ID, updated.(*model.Vendor).ID)

	require.NoError(t, svc.Delete(ctx, "vendors", vendor.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "vendors", vendor.ID), service.ErrNotFound)
}

func TestMasterUpdateCannotReassignID(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewMasterService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, "locations", bindJSON(`{"name":"Plant 1","code":"P1"}`))
	require.NoError(t, err)
	loc := created.(*model.Location)

	updated, err := svc.Update(ctx, "locations", loc.ID, bindJSON(`{"id":999,"name":"Plant 1 West","code":"P1"}`))
	require.NoError(t, err)
	assert.Equal(t, loc.ID, updated.(*model.Location).ID)
}

func TestMasterUnknownTypeRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewMasterService(db)
	ctx := context.Background()

	_, err := svc.List(ctx, "gadgets")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.Create(ctx, "gadgets", bindJSON(`{}`))
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	assert.ErrorIs(t, svc.Delete(ctx, "gadgets", 1), service.ErrInvalidInput)
}

func TestMasterUpdateMissingRecord(t *testing.T) {
	db := setupTestDB(t)
	svc := service.NewMasterService(db)

	_, err := svc.Update(context.Background(), "roles", 42, bindJSON(`{"name":"auditor"}`))
	assert.ErrorIs(t, err, service.ErrNotFound)
}
