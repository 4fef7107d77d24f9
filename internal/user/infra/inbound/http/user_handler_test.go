package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/davicafu/userlab/internal/user/application"
	"github.com/davicafu/userlab/internal/user/domain"
	"github.com/davicafu/userlab/tests/mocks"
)

func setupRouter(t *testing.T) (*gin.Engine, *mocks.InMemoryUserRepo, *mocks.MockAuthPort) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := mocks.NewInMemoryUserRepo()
	auth := mocks.NewMockAuthPort()
	svc := application.NewUserService(repo, auth, mocks.NewMockPublisher(), nil, zap.NewNop())

	router := gin.New()
	RegisterUserRoutes(router, NewUserHandler(svc))
	return router, repo, auth
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createViaAPI(t *testing.T, router *gin.Engine) domain.User {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/users/", gin.H{
		"email":      "api@example.com",
		"name":       "Ana Api",
		"phone":      "+34 600 123 456",
		"password":   "s3cret",
		"birth_date": "1991-07-15",
	}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created domain.User
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	return created
}

func TestCreateUser_Endpoint(t *testing.T) {
	router, _, auth := setupRouter(t)

	created := createViaAPI(t, router)
	assert.Contains(t, created.ID, "USR-")
	assert.Equal(t, domain.StatusActive, created.Status)
	assert.Equal(t, []string{created.ID}, auth.CreatedIDs)
}

func TestCreateUser_BadRequest(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/users/", gin.H{"email": "no"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateUser_DuplicateConflict(t *testing.T) {
	router, _, _ := setupRouter(t)
	createViaAPI(t, router)

	w := doJSON(t, router, http.MethodPost, "/users/", gin.H{
		"email":      "api@example.com",
		"name":       "Otra Ana",
		"password":   "pwd",
		"birth_date": "1990-01-01",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetUser_Endpoint(t *testing.T) {
	router, _, _ := setupRouter(t)
	created := createViaAPI(t, router)

	w := doJSON(t, router, http.MethodGet, "/users/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/users/USR-missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWithdrawUser_Endpoint(t *testing.T) {
	router, repo, _ := setupRouter(t)
	created := createViaAPI(t, router)

	w := doJSON(t, router, http.MethodDelete, "/users/"+created.ID, nil, map[string]string{"X-User-Id": "admin-7"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	stored, _ := repo.GetByID(context.Background(), created.ID)
	assert.True(t, stored.Deleted)
	assert.Equal(t, "admin-7", stored.DeletedBy)

	// Repetir la baja es un conflicto
	w = doJSON(t, router, http.MethodDelete, "/users/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWithdrawUser_RemoteFailureReturnsBadGateway(t *testing.T) {
	router, repo, auth := setupRouter(t)
	created := createViaAPI(t, router)

	auth.DeleteErr = &domain.AuthError{Kind: domain.AuthUnavailable, Op: "delete"}
	w := doJSON(t, router, http.MethodDelete, "/users/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	// La baja quedó compensada
	stored, _ := repo.GetByID(context.Background(), created.ID)
	assert.False(t, stored.Deleted)
	assert.Equal(t, domain.StatusActive, stored.Status)
}

func TestStatusEndpoints(t *testing.T) {
	router, repo, _ := setupRouter(t)
	created := createViaAPI(t, router)

	w := doJSON(t, router, http.MethodPatch, "/users/"+created.ID+"/suspend", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	stored, _ := repo.GetByID(context.Background(), created.ID)
	assert.Equal(t, domain.StatusSuspended, stored.Status)

	// SUSPENDED -> INACTIVE no está permitido
	w = doJSON(t, router, http.MethodPatch, "/users/"+created.ID+"/deactivate", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckEmail_Endpoint(t *testing.T) {
	router, _, _ := setupRouter(t)
	createViaAPI(t, router)

	w := doJSON(t, router, http.MethodGet, "/users/check-email?email=api@example.com", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Available bool `json:"available"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Available)

	w = doJSON(t, router, http.MethodGet, "/users/check-email?email=libre@example.com", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Available)
}

func TestListUsers_Endpoint(t *testing.T) {
	router, _, _ := setupRouter(t)
	createViaAPI(t, router)

	w := doJSON(t, router, http.MethodGet, "/users/?status=ACTIVE", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var users []domain.User
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 1)
}
