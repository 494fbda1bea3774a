package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"item-batch-service/internal/domain/entity"
	domainErrors "item-batch-service/internal/domain/errors"
	"item-batch-service/internal/usecase"
)

// MockItemUsecase はハンドラのテスト用のモックユースケース
type MockItemUsecase struct {
	mock.Mock
}

func (m *MockItemUsecase) GetAllItems(ctx context.Context) ([]*entity.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Item), args.Error(1)
}

func (m *MockItemUsecase) GetItemByID(ctx context.Context, id int64) (*entity.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Item), args.Error(1)
}

func (m *MockItemUsecase) CreateItem(ctx context.Context, input usecase.CreateItemInput) (*entity.Item, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Item), args.Error(1)
}

func (m *MockItemUsecase) UpdateItem(ctx context.Context, id int64, input usecase.UpdateItemInput) (*entity.Item, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Item), args.Error(1)
}

func (m *MockItemUsecase) DeleteItem(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockItemUsecase) ProcessItems(ctx context.Context) ([]*entity.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Item), args.Error(1)
}

func (m *MockItemUsecase) ProcessItemsAsync(ctx context.Context) <-chan usecase.ProcessOutcome {
	args := m.Called(ctx)
	return args.Get(0).(<-chan usecase.ProcessOutcome)
}

func newTestServer(uc usecase.ItemUsecase) *echo.Echo {
	e := echo.New()
	NewItemHandler(uc).RegisterRoutes(e.Group("/api/items"))
	return e
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func item(id int64, status string) *entity.Item {
	return &entity.Item{ID: id, Name: "n", Description: "d", Status: status, Email: "a@b.com"}
}

func TestItemHandler_GetItems(t *testing.T) {
	tests := []struct {
		name       string
		setupMock  func(*MockItemUsecase)
		wantStatus int
	}{
		{
			name: "正常系: 一覧を返す",
			setupMock: func(m *MockItemUsecase) {
				m.On("GetAllItems", mock.Anything).Return([]*entity.Item{item(1, "")}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "異常系: 内部エラー",
			setupMock: func(m *MockItemUsecase) {
				m.On("GetAllItems", mock.Anything).Return(nil, domainErrors.ErrDatabaseError)
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockItemUsecase)
			tt.setupMock(m)

			rec := doRequest(newTestServer(m), http.MethodGet, "/api/items", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				var items []entity.Item
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
				require.Len(t, items, 1)
				assert.Equal(t, int64(1), items[0].ID)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestItemHandler_GetItem(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setupMock  func(*MockItemUsecase)
		wantStatus int
	}{
		{
			name: "正常系: 存在する",
			path: "/api/items/7",
			setupMock: func(m *MockItemUsecase) {
				m.On("GetItemByID", mock.Anything, int64(7)).Return(item(7, ""), nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "異常系: 存在しない",
			path: "/api/items/8",
			setupMock: func(m *MockItemUsecase) {
				m.On("GetItemByID", mock.Anything, int64(8)).Return(nil, domainErrors.ErrItemNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "異常系: 数値でないID",
			path:       "/api/items/abc",
			setupMock:  func(m *MockItemUsecase) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "異常系: 0以下のID",
			path: "/api/items/0",
			setupMock: func(m *MockItemUsecase) {
				m.On("GetItemByID", mock.Anything, int64(0)).Return(nil, domainErrors.ErrInvalidInput)
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockItemUsecase)
			tt.setupMock(m)

			rec := doRequest(newTestServer(m), http.MethodGet, tt.path, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			m.AssertExpectations(t)
		})
	}
}

func TestItemHandler_CreateItem(t *testing.T) {
	validBody := `{"name":"n","description":"d","status":"s","email":"a@b.com"}`

	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockItemUsecase)
		wantStatus int
		wantFields []string
	}{
		{
			name: "正常系: 作成",
			body: validBody,
			setupMock: func(m *MockItemUsecase) {
				input := usecase.CreateItemInput{Name: "n", Description: "d", Status: "s", Email: "a@b.com"}
				m.On("CreateItem", mock.Anything, input).Return(item(5, "s"), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "異常系: JSONが壊れている",
			body:       `{"name":`,
			setupMock:  func(m *MockItemUsecase) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "異常系: バリデーションエラー",
			body: `{"name":"n","email":"bad"}`,
			setupMock: func(m *MockItemUsecase) {
				_, verr := entity.NewItem("n", "", "", "bad")
				m.On("CreateItem", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: %w", domainErrors.ErrInvalidInput, verr))
			},
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"email"},
		},
		{
			name: "異常系: 内部エラー",
			body: validBody,
			setupMock: func(m *MockItemUsecase) {
				m.On("CreateItem", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockItemUsecase)
			tt.setupMock(m)

			rec := doRequest(newTestServer(m), http.MethodPost, "/api/items", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if len(tt.wantFields) > 0 {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				for _, field := range tt.wantFields {
					assert.Contains(t, resp.Fields, field)
				}
			}
			m.AssertExpectations(t)
		})
	}
}

func TestItemHandler_UpdateItem(t *testing.T) {
	body := `{"name":"n","email":"a@b.com"}`
	input := usecase.UpdateItemInput{Name: "n", Email: "a@b.com"}

	tests := []struct {
		name       string
		path       string
		setupMock  func(*MockItemUsecase)
		wantStatus int
	}{
		{
			name: "正常系: 更新",
			path: "/api/items/9",
			setupMock: func(m *MockItemUsecase) {
				m.On("UpdateItem", mock.Anything, int64(9), input).Return(item(9, ""), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "異常系: 存在しない",
			path: "/api/items/15",
			setupMock: func(m *MockItemUsecase) {
				m.On("UpdateItem", mock.Anything, int64(15), input).Return(nil, domainErrors.ErrItemNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "異常系: 数値でないID",
			path:       "/api/items/x",
			setupMock:  func(m *MockItemUsecase) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockItemUsecase)
			tt.setupMock(m)

			rec := doRequest(newTestServer(m), http.MethodPut, tt.path, body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			m.AssertExpectations(t)
		})
	}
}

func TestItemHandler_DeleteItem(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setupMock  func(*MockItemUsecase)
		wantStatus int
	}{
		{
			name: "正常系: 削除",
			path: "/api/items/20",
			setupMock: func(m *MockItemUsecase) {
				m.On("DeleteItem", mock.Anything, int64(20)).Return(nil)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name: "異常系: 存在しない",
			path: "/api/items/30",
			setupMock: func(m *MockItemUsecase) {
				m.On("DeleteItem", mock.Anything, int64(30)).Return(domainErrors.ErrItemNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockItemUsecase)
			tt.setupMock(m)

			rec := doRequest(newTestServer(m), http.MethodDelete, tt.path, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			m.AssertExpectations(t)
		})
	}
}

func TestItemHandler_ProcessItems(t *testing.T) {
	t.Run("正常系: 処理済みアイテムを返す", func(t *testing.T) {
		m := new(MockItemUsecase)
		m.On("ProcessItems", mock.Anything).Return([]*entity.Item{item(1, entity.StatusProcessed)}, nil)

		rec := doRequest(newTestServer(m), http.MethodGet, "/api/items/process", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var items []entity.Item
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "PROCESSED", items[0].Status)
		m.AssertExpectations(t)
	})

	t.Run("正常系: 空の場合は空配列", func(t *testing.T) {
		m := new(MockItemUsecase)
		m.On("ProcessItems", mock.Anything).Return([]*entity.Item{}, nil)

		rec := doRequest(newTestServer(m), http.MethodGet, "/api/items/process", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("異常系: 実行できない", func(t *testing.T) {
		m := new(MockItemUsecase)
		m.On("ProcessItems", mock.Anything).Return(nil, domainErrors.ErrDatabaseError)

		rec := doRequest(newTestServer(m), http.MethodGet, "/api/items/process", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		m.AssertNotCalled(t, "GetItemByID", mock.Anything, mock.Anything)
	})
}
