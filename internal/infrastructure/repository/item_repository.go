package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"item-batch-service/internal/domain/entity"
	domainErrors "item-batch-service/internal/domain/errors"
	"item-batch-service/internal/usecase"
)

const itemColumns = "id, name, description, status, email"

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository returns a database/sql backed ItemRepository.
// The query set is portable across the MySQL and SQLite drivers.
func NewItemRepository(db *sql.DB) usecase.ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) FindAll(ctx context.Context) ([]*entity.Item, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM items ORDER BY id")
	if err != nil {
		return nil, dbError("query items", err)
	}
	defer rows.Close()

	items := []*entity.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, dbError("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate items", err)
	}

	return items, nil
}

func (r *itemRepository) FindAllIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM items ORDER BY id")
	if err != nil {
		return nil, dbError("query item ids", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dbError("scan item id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate item ids", err)
	}

	return ids, nil
}

func (r *itemRepository) FindByID(ctx context.Context, id int64) (*entity.Item, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrItemNotFound
		}
		return nil, dbError("find item", err)
	}

	return item, nil
}

func (r *itemRepository) Save(ctx context.Context, item *entity.Item) (*entity.Item, error) {
	if item.ID == 0 {
		return r.insert(ctx, item)
	}
	return r.update(ctx, item)
}

func (r *itemRepository) insert(ctx context.Context, item *entity.Item) (*entity.Item, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO items (name, description, status, email) VALUES (?, ?, ?, ?)",
		item.Name, item.Description, item.Status, item.Email,
	)
	if err != nil {
		return nil, dbError("insert item", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, dbError("read inserted id", err)
	}

	saved := *item
	saved.ID = id
	return &saved, nil
}

func (r *itemRepository) update(ctx context.Context, item *entity.Item) (*entity.Item, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE items SET name = ?, description = ?, status = ?, email = ? WHERE id = ?",
		item.Name, item.Description, item.Status, item.Email, item.ID,
	)
	if err != nil {
		return nil, dbError("update item", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, dbError("read affected rows", err)
	}
	if affected == 0 {
		return nil, domainErrors.ErrItemNotFound
	}

	saved := *item
	return &saved, nil
}

func (r *itemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return dbError("delete item", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return dbError("read affected rows", err)
	}
	if affected == 0 {
		return domainErrors.ErrItemNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*entity.Item, error) {
	var item entity.Item
	if err := s.Scan(&item.ID, &item.Name, &item.Description, &item.Status, &item.Email); err != nil {
		return nil, err
	}
	return &item, nil
}

// dbError tags driver failures with ErrDatabaseError. Context errors stay
// recognisable through errors.Is because both are wrapped.
func dbError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", domainErrors.ErrDatabaseError, op, err)
}
