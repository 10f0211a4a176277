package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
	"github.com/arklim/social-platform-lockout/internal/repository"
	"github.com/arklim/social-platform-lockout/internal/usecase"
)

type memoryFailureStore struct {
	records map[string]domain.LoginFailure
}

func newMemoryFailureStore() *memoryFailureStore {
	return &memoryFailureStore{records: make(map[string]domain.LoginFailure)}
}

func (s *memoryFailureStore) Get(_ context.Context, realmID, userID string) (*domain.LoginFailure, error) {
	record, ok := s.records[realmID+":"+userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &record, nil
}

func (s *memoryFailureStore) Put(_ context.Context, failure domain.LoginFailure) error {
	s.records[failure.RealmID+":"+failure.UserID] = failure
	return nil
}

func (s *memoryFailureStore) Delete(_ context.Context, realmID, userID string) error {
	if _, ok := s.records[realmID+":"+userID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.records, realmID+":"+userID)
	return nil
}

func (s *memoryFailureStore) DeleteAll(_ context.Context, realmID string) error {
	for key := range s.records {
		if len(key) > len(realmID) && key[:len(realmID)+1] == realmID+":" {
			delete(s.records, key)
		}
	}
	return nil
}

func newTestRouter(store *memoryFailureStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	protector := usecase.NewBruteForceProtector(store, nil, nil, nil, zap.NewNop())
	handler := NewAttackDetectionHandler(protector, store)

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1/realms/:realmId"))
	return router
}

func TestAttackDetection_UserStatus(t *testing.T) {
	store := newMemoryFailureStore()
	store.records["realm-1:user-1"] = domain.LoginFailure{
		RealmID:              "realm-1",
		UserID:               "user-1",
		NumFailures:          4,
		LastFailureAt:        time.Now().UnixMilli(),
		LastIPFailure:        "10.0.0.1",
		FailedLoginNotBefore: time.Now().Add(time.Minute).Unix(),
	}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/realms/realm-1/attack-detection/users/user-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response BruteForceStatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.NumFailures != 4 {
		t.Fatalf("expected 4 failures, got %d", response.NumFailures)
	}
	if !response.Disabled {
		t.Fatalf("expected user reported disabled while inside the wait window")
	}
	if response.LastIPFailure != "10.0.0.1" {
		t.Fatalf("unexpected last IP %q", response.LastIPFailure)
	}
	if response.LastFailure == nil || response.FailedLoginNotBefore == nil {
		t.Fatalf("expected timestamps in response, got %+v", response)
	}
}

func TestAttackDetection_UserStatusNoRecord(t *testing.T) {
	router := newTestRouter(newMemoryFailureStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/realms/realm-1/attack-detection/users/unknown", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response BruteForceStatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.NumFailures != 0 || response.Disabled {
		t.Fatalf("expected empty status, got %+v", response)
	}
}

func TestAttackDetection_ClearUser(t *testing.T) {
	store := newMemoryFailureStore()
	store.records["realm-1:user-1"] = domain.LoginFailure{
		RealmID: "realm-1", UserID: "user-1", NumFailures: 4,
	}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/realms/realm-1/attack-detection/users/user-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if _, ok := store.records["realm-1:user-1"]; ok {
		t.Fatalf("expected record removed")
	}
}

func TestAttackDetection_ClearUserNotFound(t *testing.T) {
	router := newTestRouter(newMemoryFailureStore())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/realms/realm-1/attack-detection/users/unknown", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAttackDetection_ClearRealm(t *testing.T) {
	store := newMemoryFailureStore()
	store.records["realm-1:user-1"] = domain.LoginFailure{RealmID: "realm-1", UserID: "user-1", NumFailures: 2}
	store.records["realm-1:user-2"] = domain.LoginFailure{RealmID: "realm-1", UserID: "user-2", NumFailures: 1}
	store.records["realm-2:user-3"] = domain.LoginFailure{RealmID: "realm-2", UserID: "user-3", NumFailures: 9}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/realms/realm-1/attack-detection", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected only the other realm's record to survive, got %d", len(store.records))
	}
	if _, ok := store.records["realm-2:user-3"]; !ok {
		t.Fatalf("expected other realm untouched")
	}
}
