package usecase

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"item-batch-service/internal/domain/entity"
	domainErrors "item-batch-service/internal/domain/errors"
)

type ItemUsecase interface {
	GetAllItems(ctx context.Context) ([]*entity.Item, error)
	GetItemByID(ctx context.Context, id int64) (*entity.Item, error)
	CreateItem(ctx context.Context, input CreateItemInput) (*entity.Item, error)
	UpdateItem(ctx context.Context, id int64, input UpdateItemInput) (*entity.Item, error)
	DeleteItem(ctx context.Context, id int64) error

	// ProcessItems marks every stored item as processed and blocks until the run completes
	ProcessItems(ctx context.Context) ([]*entity.Item, error)
	// ProcessItemsAsync starts a run and returns a channel that delivers exactly one outcome
	ProcessItemsAsync(ctx context.Context) <-chan ProcessOutcome
}

type CreateItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Email       string `json:"email"`
}

// UpdateItemInput はPUTリクエストで使用する構造体
// 全フィールドを置き換える（部分更新ではない）
type UpdateItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Email       string `json:"email"`
}

// Option configures an item usecase
type Option func(*itemUsecase)

// WithLogger sets the logger used for batch run events
func WithLogger(logger zerolog.Logger) Option {
	return func(u *itemUsecase) {
		u.logger = logger
	}
}

// WithParallelism overrides the parallelism hint used to size the batch worker pool.
// Values below 1 fall back to runtime.GOMAXPROCS(0).
func WithParallelism(n int) Option {
	return func(u *itemUsecase) {
		u.parallelism = n
	}
}

// WithItemDelay adds simulated work before each item in a batch run
func WithItemDelay(d time.Duration) Option {
	return func(u *itemUsecase) {
		u.itemDelay = d
	}
}

type itemUsecase struct {
	itemRepo    ItemRepository
	logger      zerolog.Logger
	parallelism int
	itemDelay   time.Duration
}

func NewItemUsecase(itemRepo ItemRepository, opts ...Option) ItemUsecase {
	u := &itemUsecase{
		itemRepo: itemRepo,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *itemUsecase) GetAllItems(ctx context.Context) ([]*entity.Item, error) {
	items, err := u.itemRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve items: %w", err)
	}

	return items, nil
}

func (u *itemUsecase) GetItemByID(ctx context.Context, id int64) (*entity.Item, error) {
	if id <= 0 {
		return nil, domainErrors.ErrInvalidInput
	}

	item, err := u.itemRepo.FindByID(ctx, id)
	if err != nil {
		if domainErrors.IsNotFoundError(err) {
			return nil, domainErrors.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to retrieve item: %w", err)
	}

	return item, nil
}

func (u *itemUsecase) CreateItem(ctx context.Context, input CreateItemInput) (*entity.Item, error) {
	// バリデーションして、新しいエンティティを作成
	item, err := entity.NewItem(input.Name, input.Description, input.Status, input.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrInvalidInput, err)
	}

	createdItem, err := u.itemRepo.Save(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	return createdItem, nil
}

// UpdateItem はアイテムを丸ごと置き換えるユースケース関数
// 存在しないIDの場合は ErrItemNotFound を返す
func (u *itemUsecase) UpdateItem(ctx context.Context, id int64, input UpdateItemInput) (*entity.Item, error) {
	if id <= 0 {
		return nil, domainErrors.ErrInvalidInput
	}

	item, err := entity.NewItem(input.Name, input.Description, input.Status, input.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrInvalidInput, err)
	}

	// 存在確認してから保存する
	if _, err := u.itemRepo.FindByID(ctx, id); err != nil {
		if domainErrors.IsNotFoundError(err) {
			return nil, domainErrors.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to check item existence: %w", err)
	}

	item.ID = id
	updatedItem, err := u.itemRepo.Save(ctx, item)
	if err != nil {
		// 確認後に削除された場合
		if domainErrors.IsNotFoundError(err) {
			return nil, domainErrors.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	return updatedItem, nil
}

func (u *itemUsecase) DeleteItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return domainErrors.ErrInvalidInput
	}

	_, err := u.itemRepo.FindByID(ctx, id)
	if err != nil {
		if domainErrors.IsNotFoundError(err) {
			return domainErrors.ErrItemNotFound
		}
		return fmt.Errorf("failed to check item existence: %w", err)
	}

	err = u.itemRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	return nil
}

func (u *itemUsecase) parallelismHint() int {
	if u.parallelism > 0 {
		return u.parallelism
	}
	return runtime.GOMAXPROCS(0)
}
