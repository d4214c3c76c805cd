package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smart-kitchen/internal/pkg/common"

	_ "github.com/lib/pq"
)

// PostgresStore PostgreSQL 儲存實作
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 以 DSN 建立 PostgreSQL 儲存
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDataUnavailable, err)
	}
	return &PostgresStore{db: db}, nil
}

// storeErr 將底層資料庫錯誤統一包裝為 DataUnavailable
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", common.ErrDataUnavailable, err)
}

// AddGrocery 新增庫存食材
func (s *PostgresStore) AddGrocery(ctx context.Context, item common.InventoryItem) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO groceries (user_id, name, quantity, unit, category, manufactured_on, expires_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, item.UserID, item.Name, item.Quantity, item.Unit, item.Category, item.ManufacturedOn, item.ExpiresOn).Scan(&id)
	if err != nil {
		return 0, storeErr(err)
	}
	return id, nil
}

// GetGrocery 取得單筆食材
func (s *PostgresStore) GetGrocery(ctx context.Context, userID, id int64) (common.InventoryItem, error) {
	var item common.InventoryItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, quantity, unit, category, manufactured_on, expires_on
		FROM groceries WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&item.ID, &item.UserID, &item.Name, &item.Quantity, &item.Unit,
		&item.Category, &item.ManufacturedOn, &item.ExpiresOn)
	if err != nil {
		return common.InventoryItem{}, storeErr(err)
	}
	return item, nil
}

// UpdateGrocery 更新食材
func (s *PostgresStore) UpdateGrocery(ctx context.Context, item common.InventoryItem) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE groceries
		SET name = $1, quantity = $2, unit = $3, category = $4, manufactured_on = $5, expires_on = $6
		WHERE id = $7 AND user_id = $8
	`, item.Name, item.Quantity, item.Unit, item.Category, item.ManufacturedOn, item.ExpiresOn,
		item.ID, item.UserID)
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("grocery %d: %w", item.ID, ErrNotFound)
	}
	return nil
}

// DeleteGrocery 刪除食材（購物清單引用由外鍵 CASCADE 一併刪除）
func (s *PostgresStore) DeleteGrocery(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM groceries WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("grocery %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListGroceries 列出食材，可搜尋，依到期日排序
func (s *PostgresStore) ListGroceries(ctx context.Context, userID int64, search string) ([]common.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, quantity, unit, category, manufactured_on, expires_on
		FROM groceries
		WHERE user_id = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR category ILIKE '%' || $2 || '%')
		ORDER BY expires_on, id
	`, userID, search)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	return scanGroceries(rows)
}

// ListExpiringWithin 回傳到期日落在視窗內的食材。
// expires_on 為 DATE 欄位，視窗邊界須先截斷至日曆日，
// 否則非午夜的 today 會把當日到期的食材排除在下界之外。
func (s *PostgresStore) ListExpiringWithin(ctx context.Context, userID int64, days int, today time.Time) ([]common.InventoryItem, error) {
	start := dateOnly(today)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, quantity, unit, category, manufactured_on, expires_on
		FROM groceries
		WHERE user_id = $1 AND expires_on >= $2 AND expires_on <= $3
		ORDER BY expires_on, id
	`, userID, start, start.AddDate(0, 0, days))
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	return scanGroceries(rows)
}

// AddGroceryBatch 在單一交易內整批寫入，確保全有或全無
func (s *PostgresStore) AddGroceryBatch(ctx context.Context, userID int64, items []common.BillLineItem, today time.Time) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(items))
	for i, line := range items {
		if line.Name == "" {
			return nil, fmt.Errorf("batch item %d has empty name", i)
		}
		item := billItemToGrocery(userID, line, today)
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO groceries (user_id, name, quantity, unit, category, manufactured_on, expires_on)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, item.UserID, item.Name, item.Quantity, item.Unit, item.Category, item.ManufacturedOn, item.ExpiresOn).Scan(&id)
		if err != nil {
			return nil, storeErr(err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr(err)
	}
	return ids, nil
}

// SaveRecipe 儲存食譜，食材與步驟以 JSONB 存放
func (s *PostgresStore) SaveRecipe(ctx context.Context, userID int64, cand common.RecipeCandidate) (int64, error) {
	ingredients, err := json.Marshal(cand.Ingredients)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	steps, err := json.Marshal(cand.Steps)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal steps: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO recipes (user_id, name, description, ingredients, steps, prep_time, difficulty,
			calories, protein, carbs, fat, uses_expiring, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, userID, cand.Name, cand.Description, ingredients, steps, cand.PrepTime, string(cand.Difficulty),
		cand.Macros.Calories, cand.Macros.Protein, cand.Macros.Carbs, cand.Macros.Fat,
		cand.UsesExpiring, time.Now()).Scan(&id)
	if err != nil {
		return 0, storeErr(err)
	}
	return id, nil
}

// GetRecipe 取得單筆已儲存食譜
func (s *PostgresStore) GetRecipe(ctx context.Context, userID, id int64) (common.SavedRecipe, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, ingredients, steps, prep_time, difficulty,
			calories, protein, carbs, fat, uses_expiring, created_at
		FROM recipes WHERE id = $1 AND user_id = $2
	`, id, userID)
	recipe, err := scanRecipe(row)
	if err != nil {
		return common.SavedRecipe{}, err
	}
	return recipe, nil
}

// ListRecipes 列出使用者的已儲存食譜，新的在前
func (s *PostgresStore) ListRecipes(ctx context.Context, userID int64) ([]common.SavedRecipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, ingredients, steps, prep_time, difficulty,
			calories, protein, carbs, fat, uses_expiring, created_at
		FROM recipes WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var recipes []common.SavedRecipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, storeErr(rows.Err())
}

// DeleteRecipe 刪除已儲存食譜
func (s *PostgresStore) DeleteRecipe(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM recipes WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recipe %d: %w", id, ErrNotFound)
	}
	return nil
}

// AddToShoppingList 加入購物清單，重複加入時數量遞增
func (s *PostgresStore) AddToShoppingList(ctx context.Context, userID, groceryID int64) (common.ShoppingListEntry, error) {
	grocery, err := s.GetGrocery(ctx, userID, groceryID)
	if err != nil {
		return common.ShoppingListEntry{}, err
	}

	var entry common.ShoppingListEntry
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO shopping_list (user_id, grocery_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, grocery_id)
		DO UPDATE SET quantity = shopping_list.quantity + 1
		RETURNING id, user_id, grocery_id, quantity
	`, userID, groceryID).Scan(&entry.ID, &entry.UserID, &entry.GroceryID, &entry.Quantity)
	if err != nil {
		return common.ShoppingListEntry{}, storeErr(err)
	}
	entry.Name = grocery.Name
	return entry, nil
}

// RemoveFromShoppingList 自購物清單移除
func (s *PostgresStore) RemoveFromShoppingList(ctx context.Context, userID, entryID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM shopping_list WHERE id = $1 AND user_id = $2
	`, entryID, userID)
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("shopping list entry %d: %w", entryID, ErrNotFound)
	}
	return nil
}

// ListShoppingList 列出購物清單
func (s *PostgresStore) ListShoppingList(ctx context.Context, userID int64) ([]common.ShoppingListEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sl.id, sl.user_id, sl.grocery_id, g.name, sl.quantity
		FROM shopping_list sl
		JOIN groceries g ON g.id = sl.grocery_id
		WHERE sl.user_id = $1
		ORDER BY g.name
	`, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var entries []common.ShoppingListEntry
	for rows.Next() {
		var entry common.ShoppingListEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.GroceryID, &entry.Name, &entry.Quantity); err != nil {
			return nil, storeErr(err)
		}
		entries = append(entries, entry)
	}
	return entries, storeErr(rows.Err())
}

// DeductGroceries 在單一交易內扣除庫存
func (s *PostgresStore) DeductGroceries(ctx context.Context, userID int64, deductions []Deduction) (DeductionResult, error) {
	var result DeductionResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, storeErr(err)
	}
	defer tx.Rollback()

	for _, d := range deductions {
		if d.GroceryID == 0 || d.Quantity <= 0 {
			continue
		}

		var quantity float64
		err := tx.QueryRowContext(ctx, `
			SELECT quantity FROM groceries WHERE id = $1 AND user_id = $2 FOR UPDATE
		`, d.GroceryID, userID).Scan(&quantity)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return DeductionResult{}, storeErr(err)
		}

		if quantity <= d.Quantity {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM groceries WHERE id = $1 AND user_id = $2
			`, d.GroceryID, userID); err != nil {
				return DeductionResult{}, storeErr(err)
			}
			result.Deleted++
		} else {
			if _, err := tx.ExecContext(ctx, `
				UPDATE groceries SET quantity = quantity - $1 WHERE id = $2 AND user_id = $3
			`, d.Quantity, d.GroceryID, userID); err != nil {
				return DeductionResult{}, storeErr(err)
			}
			result.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return DeductionResult{}, storeErr(err)
	}
	return result, nil
}

// Close 關閉資料庫連線
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGroceries(rows *sql.Rows) ([]common.InventoryItem, error) {
	var items []common.InventoryItem
	for rows.Next() {
		var item common.InventoryItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.Quantity, &item.Unit,
			&item.Category, &item.ManufacturedOn, &item.ExpiresOn); err != nil {
			return nil, storeErr(err)
		}
		items = append(items, item)
	}
	return items, storeErr(rows.Err())
}

func scanRecipe(row rowScanner) (common.SavedRecipe, error) {
	var recipe common.SavedRecipe
	var ingredients, steps []byte
	var difficulty string
	err := row.Scan(&recipe.ID, &recipe.UserID, &recipe.Name, &recipe.Description,
		&ingredients, &steps, &recipe.PrepTime, &difficulty,
		&recipe.Macros.Calories, &recipe.Macros.Protein, &recipe.Macros.Carbs, &recipe.Macros.Fat,
		&recipe.UsesExpiring, &recipe.CreatedAt)
	if err != nil {
		return common.SavedRecipe{}, storeErr(err)
	}
	if err := json.Unmarshal(ingredients, &recipe.Ingredients); err != nil {
		return common.SavedRecipe{}, fmt.Errorf("failed to unmarshal ingredients: %w", err)
	}
	if err := json.Unmarshal(steps, &recipe.Steps); err != nil {
		return common.SavedRecipe{}, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	recipe.Difficulty = common.Difficulty(difficulty)
	return recipe, nil
}
