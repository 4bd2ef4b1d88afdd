package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AdityaDodda/purchase-kandhari/internal/config"
	"github.com/AdityaDodda/purchase-kandhari/internal/database"
	"github.com/AdityaDodda/purchase-kandhari/internal/handler"
	"github.com/AdityaDodda/purchase-kandhari/internal/repository"
	"github.com/AdityaDodda/purchase-kandhari/internal/service"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	users  service.UserService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open db")
	require.NoError(t, database.Migrate(db), "migrate")

	userService := service.NewUserService(repository.NewUserRepository(db), nil, nil, "http://localhost:5173")
	requestService := service.NewRequestService(db, nil)
	attachmentService := service.NewAttachmentService(db, config.UploadConfig{
		Dir:         t.TempDir(),
		MaxFiles:    10,
		MaxFileSize: 10 << 20,
	})
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db), nil)
	dashboardService := service.NewDashboardService(db)

	router := gin.New()
	api := router.Group("/api")
	handler.NewAuthHandler(userService).RegisterRoutes(api)
	handler.NewRequestHandler(requestService, attachmentService).RegisterRoutes(api)
	handler.NewNotificationHandler(notificationService).RegisterRoutes(api)
	handler.NewDashboardHandler(dashboardService).RegisterRoutes(api)

	return &testEnv{router: router, db: db, users: userService}
}

// signup registers a user through the API and returns a bearer token
func (e *testEnv) signup(t *testing.T, employeeNumber, role string) string {
	t.Helper()
	body := map[string]string{
		"employee_number": employeeNumber,
		"full_name":       "Test " + employeeNumber,
		"email":           employeeNumber + "@example.com",
		"department":      "Logistics",
		"location":        "Hyderabad",
		"password":        "secret123",
		"role":            role,
	}
	rr := e.do(t, http.MethodPost, "/api/auth/signup", "", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func requestBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":                          title,
		"request_date":                   time.Now().Format(time.RFC3339),
		"department":                     "Logistics",
		"location":                       "Hyderabad",
		"business_justification_code":    "OPEX",
		"business_justification_details": "Consumables restock",
		"line_items": []map[string]interface{}{
			{
				"item_name":         "Safety gloves",
				"required_quantity": 2,
				"unit_of_measure":   "pcs",
				"unit_cost":         "500",
				"required_by_date":  time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
				"delivery_location": "Main warehouse",
			},
			{
				"item_name":         "Tape rolls",
				"required_quantity": 3,
				"unit_of_measure":   "pcs",
				"unit_cost":         "100",
				"required_by_date":  time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
				"delivery_location": "Main warehouse",
			},
		},
	}
}

type requestData struct {
	ID                 uint   `json:"id"`
	RequisitionNumber  string `json:"requisition_number"`
	Status             string `json:"status"`
	TotalEstimatedCost string `json:"total_estimated_cost"`
}

func decodeRequest(t *testing.T, rr *httptest.ResponseRecorder) requestData {
	t.Helper()
	var resp struct {
		Data requestData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Data
}

func TestCreateAndApproveFlow(t *testing.T) {
	env := setupEnv(t)
	requesterToken := env.signup(t, "EMP001", "requester")
	approverToken := env.signup(t, "EMP002", "approver")

	rr := env.do(t, http.MethodPost, "/api/purchase-requests", requesterToken, requestBody("Gloves and tape"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeRequest(t, rr)
	assert.Equal(t, "submitted", created.Status)
	assert.Equal(t, "1300", created.TotalEstimatedCost)

	// Requesters may not approve
	rr = env.do(t, http.MethodPost, fmt.Sprintf("/api/purchase-requests/%d/approve", created.ID), requesterToken,
		map[string]string{"comments": "self-approval attempt"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPost, fmt.Sprintf("/api/purchase-requests/%d/approve", created.ID), approverToken,
		map[string]string{"comments": "ok"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "approved", decodeRequest(t, rr).Status)

	// Terminal status refuses further actions
	rr = env.do(t, http.MethodPost, fmt.Sprintf("/api/purchase-requests/%d/cancel", created.ID), requesterToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	env := setupEnv(t)
	rr := env.do(t, http.MethodGet, "/api/purchase-requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListScopedByRole(t *testing.T) {
	env := setupEnv(t)
	aliceToken := env.signup(t, "EMP001", "requester")
	bobToken := env.signup(t, "EMP002", "requester")
	adminToken := env.signup(t, "EMP003", "admin")

	rr := env.do(t, http.MethodPost, "/api/purchase-requests", aliceToken, requestBody("Alice request"))
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = env.do(t, http.MethodPost, "/api/purchase-requests", bobToken, requestBody("Bob request"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var listResp struct {
		Total int64 `json:"total"`
	}

	rr = env.do(t, http.MethodGet, "/api/purchase-requests", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listResp))
	assert.EqualValues(t, 1, listResp.Total)

	rr = env.do(t, http.MethodGet, "/api/purchase-requests", adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listResp))
	assert.EqualValues(t, 2, listResp.Total)
}

func TestApproverVisibilityScopedToOwnRequests(t *testing.T) {
	env := setupEnv(t)
	requesterToken := env.signup(t, "EMP001", "requester")
	approverToken := env.signup(t, "EMP002", "approver")

	rr := env.do(t, http.MethodPost, "/api/purchase-requests", requesterToken, requestBody("Not the approver's"))
	require.Equal(t, http.StatusCreated, rr.Code)

	// The list shows approvers their own requests only, same as requesters
	var listResp struct {
		Total int64 `json:"total"`
	}
	rr = env.do(t, http.MethodGet, "/api/purchase-requests", approverToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listResp))
	assert.EqualValues(t, 0, listResp.Total)

	// Dashboard numbers are scoped the same way
	var statsResp struct {
		Data struct {
			TotalRequests int64 `json:"total_requests"`
		} `json:"data"`
	}
	rr = env.do(t, http.MethodGet, "/api/dashboard/stats", approverToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statsResp))
	assert.EqualValues(t, 0, statsResp.Data.TotalRequests)
}

func TestAttachmentUploadDownloadDelete(t *testing.T) {
	env := setupEnv(t)
	token := env.signup(t, "EMP001", "requester")

	rr := env.do(t, http.MethodPost, "/api/purchase-requests", token, requestBody("With attachment"))
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeRequest(t, rr)

	// Upload a PDF
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="files"; filename="quote.pdf"`)
	hdr.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake content"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/purchase-requests/%d/attachments", created.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	upload := httptest.NewRecorder()
	env.router.ServeHTTP(upload, req)
	require.Equal(t, http.StatusCreated, upload.Code, upload.Body.String())

	var uploadResp struct {
		Data []struct {
			ID           uint   `json:"id"`
			OriginalName string `json:"original_name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(upload.Body.Bytes(), &uploadResp))
	require.Len(t, uploadResp.Data, 1)
	assert.Equal(t, "quote.pdf", uploadResp.Data[0].OriginalName)
	attID := uploadResp.Data[0].ID

	rr = env.do(t, http.MethodGet, fmt.Sprintf("/api/attachments/%d/download", attID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "%PDF-1.4 fake content", rr.Body.String())

	rr = env.do(t, http.MethodDelete, fmt.Sprintf("/api/attachments/%d", attID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, fmt.Sprintf("/api/attachments/%d/download", attID), token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAttachmentRejectsDisallowedType(t *testing.T) {
	env := setupEnv(t)
	token := env.signup(t, "EMP001", "requester")

	rr := env.do(t, http.MethodPost, "/api/purchase-requests", token, requestBody("Bad file"))
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeRequest(t, rr)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="files"; filename="run.sh"`)
	hdr.Set("Content-Type", "application/x-sh")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("#!/bin/sh"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/purchase-requests/%d/attachments", created.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	upload := httptest.NewRecorder()
	env.router.ServeHTTP(upload, req)
	assert.Equal(t, http.StatusBadRequest, upload.Code)
}

func TestNotificationsFlow(t *testing.T) {
	env := setupEnv(t)
	token := env.signup(t, "EMP001", "requester")

	rr := env.do(t, http.MethodPost, "/api/purchase-requests", token, requestBody("Notify me"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/notifications/unread-count", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var countResp struct {
		Data struct {
			Count int64 `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &countResp))
	assert.EqualValues(t, 1, countResp.Data.Count)

	rr = env.do(t, http.MethodGet, "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listResp struct {
		Data []struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listResp))
	require.Len(t, listResp.Data, 1)

	rr = env.do(t, http.MethodPut, fmt.Sprintf("/api/notifications/%d/read", listResp.Data[0].ID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/notifications/unread-count", token, nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &countResp))
	assert.EqualValues(t, 0, countResp.Data.Count)
}

func TestDashboardStatsEndpoint(t *testing.T) {
	env := setupEnv(t)
	token := env.signup(t, "EMP001", "requester")

	rr := env.do(t, http.MethodPost, "/api/purchase-requests", token, requestBody("For stats"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/dashboard/stats", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var statsResp struct {
		Data struct {
			TotalRequests int64 `json:"total_requests"`
			Pending       int64 `json:"pending"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statsResp))
	assert.EqualValues(t, 1, statsResp.Data.TotalRequests)
	assert.EqualValues(t, 1, statsResp.Data.Pending)
}
