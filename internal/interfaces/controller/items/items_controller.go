package controller

import (
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	domainErrors "item-batch-service/internal/domain/errors"
	"item-batch-service/internal/usecase"
)

type ItemHandler struct {
	itemUsecase usecase.ItemUsecase
}

func NewItemHandler(itemUsecase usecase.ItemUsecase) *ItemHandler {
	return &ItemHandler{
		itemUsecase: itemUsecase,
	}
}

// エラーレスポンスの形式
// Fields はフィールド名ごとのバリデーションメッセージ
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details []string          `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// RegisterRoutes mounts the item endpoints under g
func (h *ItemHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetItems)
	g.POST("", h.CreateItem)
	// 静的パスなので /:id より優先される
	g.GET("/process", h.ProcessItems)
	g.GET("/:id", h.GetItem)
	g.PUT("/:id", h.UpdateItem)
	g.DELETE("/:id", h.DeleteItem)
}

func (h *ItemHandler) GetItems(c echo.Context) error {
	items, err := h.itemUsecase.GetAllItems(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to retrieve items",
		})
	}

	return c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) GetItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid item ID",
		})
	}

	item, err := h.itemUsecase.GetItemByID(c.Request().Context(), id)
	if err != nil {
		if domainErrors.IsNotFoundError(err) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "item not found",
			})
		}
		if domainErrors.IsValidationError(err) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "invalid item ID",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to retrieve item",
		})
	}

	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) CreateItem(c echo.Context) error {
	var input usecase.CreateItemInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request format",
		})
	}

	item, err := h.itemUsecase.CreateItem(c.Request().Context(), input)
	if err != nil {
		if domainErrors.IsValidationError(err) {
			return c.JSON(http.StatusBadRequest, validationResponse(err))
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to create item",
		})
	}

	return c.JSON(http.StatusCreated, item)
}

// UpdateItem はアイテムを置き換えるPUTエンドポイント
// 既存の挙動に合わせて成功時は201を返す
func (h *ItemHandler) UpdateItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid item ID",
		})
	}

	var input usecase.UpdateItemInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request format",
		})
	}

	item, err := h.itemUsecase.UpdateItem(c.Request().Context(), id, input)
	if err != nil {
		if domainErrors.IsNotFoundError(err) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "item not found",
			})
		}
		if domainErrors.IsValidationError(err) {
			return c.JSON(http.StatusBadRequest, validationResponse(err))
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to update item",
		})
	}

	return c.JSON(http.StatusCreated, item)
}

func (h *ItemHandler) DeleteItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid item ID",
		})
	}

	err = h.itemUsecase.DeleteItem(c.Request().Context(), id)
	if err != nil {
		if domainErrors.IsNotFoundError(err) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "item not found",
			})
		}
		if domainErrors.IsValidationError(err) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "invalid item ID",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to delete item",
		})
	}

	return c.NoContent(http.StatusNoContent)
}

// ProcessItems はバッチ処理が完了するまでブロックし、処理済みアイテムを返す
func (h *ItemHandler) ProcessItems(c echo.Context) error {
	items, err := h.itemUsecase.ProcessItems(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to process items",
		})
	}

	return c.JSON(http.StatusOK, items)
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func validationResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: "validation failed"}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		resp.Fields = make(map[string]string, len(verrs))
		for field, fieldErr := range verrs {
			resp.Fields[field] = fieldErr.Error()
		}
		return resp
	}

	resp.Details = []string{err.Error()}
	return resp
}
