package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/wilschoy78/school-mis-api/internal/auth"
	"github.com/wilschoy78/school-mis-api/internal/db/models"
)

// BunAccountRepository implements AccountRepository using Bun ORM
type BunAccountRepository struct {
	db  *bun.DB
	now func() time.Time
}

// NewBunAccountRepository creates a new Bun-based account repository
func NewBunAccountRepository(db *bun.DB) *BunAccountRepository {
	return &BunAccountRepository{db: db, now: time.Now}
}

// Create inserts a new account and its role rows in one transaction
func (r *BunAccountRepository) Create(ctx context.Context, account *models.Account) error {
	// Hash outside the transaction; bcrypt is slow.
	if err := account.ApplyPasswordChange(); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	if account.PasswordHash == "" {
		return errors.New("create account: password is required")
	}
	if account.Roles.Len() == 0 {
		return errors.New("create account: at least one role is required")
	}
	if account.Status == "" {
		account.Status = models.StatusActive
	}

	now := r.now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(account).Returning("id").Exec(ctx); err != nil {
			return err
		}
		rows := account.RoleRows()
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		account.ID = 0
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: email %q already registered", ErrConflict, account.Email)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetByID retrieves an account and its roles by ID
func (r *BunAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Where("a.id = ?", id).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: account %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get account by ID: %w", err)
	}
	if err := loadRoles(ctx, r.db, account); err != nil {
		return nil, err
	}
	return account, nil
}

// GetByEmail retrieves an account and its roles by exact email
func (r *BunAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Where("a.email = ?", email).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: account with email %q", ErrNotFound, email)
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	if err := loadRoles(ctx, r.db, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Modify loads an account, hands it to fn and writes back only the columns fn
// changed, all in one transaction. The row is locked on PostgreSQL. An error
// from fn aborts the transaction and is returned unwrapped. fn must not leave a
// password pending: hash it before calling Modify.
func (r *BunAccountRepository) Modify(ctx context.Context, id int64, fn func(*models.Account) error) (*models.Account, error) {
	account := new(models.Account)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(account).Where("a.id = ?", id)
		if r.db.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if isNoRows(err) {
				return fmt.Errorf("%w: account %d", ErrNotFound, id)
			}
			return fmt.Errorf("load account: %w", err)
		}
		if err := loadRoles(ctx, tx, account); err != nil {
			return err
		}

		before := *account
		roles := account.RoleList()
		if err := fn(account); err != nil {
			return err
		}
		if account.PasswordPending() {
			return errors.New("modify account: password must be hashed before the transaction")
		}
		if account.Roles.Len() == 0 {
			return errors.New("modify account: at least one role is required")
		}

		columns := changedColumns(&before, account)
		rolesChanged := !slices.Equal(roles, account.RoleList())
		if len(columns) == 0 && !rolesChanged {
			return nil
		}

		account.UpdatedAt = r.now().UTC()
		columns = append(columns, "updated_at")
		if _, err := tx.NewUpdate().
			Model(account).
			Column(columns...).
			WherePK().
			Exec(ctx); err != nil {
			return err
		}
		if rolesChanged {
			return replaceRoles(ctx, tx, account)
		}
		return nil
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: email %q already in use", ErrConflict, account.Email)
		}
		return nil, err
	}
	return account, nil
}

// changedColumns lists the writable columns whose values differ between
// before and after, in table order.
func changedColumns(before, after *models.Account) []string {
	var columns []string
	add := func(changed bool, column string) {
		if changed {
			columns = append(columns, column)
		}
	}
	add(before.Email != after.Email, "email")
	add(before.PasswordHash != after.PasswordHash, "password_hash")
	add(before.FirstName != after.FirstName, "first_name")
	add(before.LastName != after.LastName, "last_name")
	add(!equalOptional(before.MiddleName, after.MiddleName), "middle_name")
	add(!equalOptional(before.Phone, after.Phone), "phone")
	add(!equalOptional(before.EmployeeID, after.EmployeeID), "employee_id")
	add(!equalOptional(before.StudentID, after.StudentID), "student_id")
	add(!equalOptional(before.Address, after.Address), "address")
	add(!equalOptional(before.DateOfBirth, after.DateOfBirth), "date_of_birth")
	add(!equalOptional(before.ProfilePicture, after.ProfilePicture), "profile_picture")
	add(!equalOptional(before.Department, after.Department), "department")
	add(!equalOptional(before.Position, after.Position), "position")
	add(before.Status != after.Status, "status")
	add(before.MustChangePassword != after.MustChangePassword, "must_change_password")
	return columns
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// TouchLastLogin records a successful login
func (r *BunAccountRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	at = at.UTC()
	_, err := r.db.NewUpdate().
		Model((*models.Account)(nil)).
		Set("last_login_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// Delete hard-deletes an account and its role rows
func (r *BunAccountRepository) Delete(ctx context.Context, id int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.AccountRole)(nil)).
			Where("account_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete account roles: %w", err)
		}

		result, err := tx.NewDelete().
			Model((*models.Account)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("%w: account %d", ErrNotFound, id)
		}
		return nil
	})
}

// List returns one page of accounts matching filter plus the unpaginated total
func (r *BunAccountRepository) List(ctx context.Context, filter AccountFilter) ([]models.Account, int, error) {
	var accounts []models.Account
	q := r.db.NewSelect().Model(&accounts)
	q = applyAccountFilter(r.db, q, filter).
		Order("a.id ASC").
		Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}

	ptrs := make([]*models.Account, len(accounts))
	for i := range accounts {
		ptrs[i] = &accounts[i]
	}
	if err := loadRoles(ctx, r.db, ptrs...); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// Count returns the number of accounts matching filter, ignoring pagination
func (r *BunAccountRepository) Count(ctx context.Context, filter AccountFilter) (int, error) {
	q := r.db.NewSelect().Model((*models.Account)(nil))
	n, err := applyAccountFilter(r.db, q, filter).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// CountBy groups accounts matching filter by field
func (r *BunAccountRepository) CountBy(ctx context.Context, field GroupField, filter AccountFilter) ([]GroupCount, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("count accounts: cannot group by %q", field)
	}

	var counts []GroupCount
	q := r.db.NewSelect().
		Model((*models.Account)(nil)).
		ColumnExpr("a.? AS group_key", bun.Ident(string(field))).
		ColumnExpr("COUNT(*) AS group_count")
	err := applyAccountFilter(r.db, q, filter).
		GroupExpr("a.?", bun.Ident(string(field))).
		OrderExpr("a.? ASC", bun.Ident(string(field))).
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("count accounts by %s: %w", field, err)
	}
	return counts, nil
}

// ExistsWithRole reports whether any account holds role
func (r *BunAccountRepository) ExistsWithRole(ctx context.Context, role auth.Role) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.AccountRole)(nil)).
		Where("role = ?", role).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check role holders: %w", err)
	}
	return exists, nil
}

// applyAccountFilter translates role-set membership into EXISTS predicates
// against account_roles. Role names are never matched as substrings.
func applyAccountFilter(db bun.IDB, q *bun.SelectQuery, f AccountFilter) *bun.SelectQuery {
	if len(f.AnyRoles) > 0 {
		q = q.Where("EXISTS (?)", roleSubquery(db, f.AnyRoles))
	}
	if len(f.ExcludeRoles) > 0 {
		q = q.Where("NOT EXISTS (?)", roleSubquery(db, f.ExcludeRoles))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where(`LOWER(a.first_name) LIKE ? ESCAPE '\'`, pattern).
				WhereOr(`LOWER(a.last_name) LIKE ? ESCAPE '\'`, pattern).
				WhereOr(`LOWER(a.email) LIKE ? ESCAPE '\'`, pattern)
		})
	}
	return q
}

func roleSubquery(db bun.IDB, roles []auth.Role) *bun.SelectQuery {
	return db.NewSelect().
		TableExpr("account_roles AS ar").
		ColumnExpr("1").
		Where("ar.account_id = a.id").
		Where("ar.role IN (?)", bun.In(roles))
}

// loadRoles fills Roles on every account with one query.
func loadRoles(ctx context.Context, db bun.IDB, accounts ...*models.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Account, len(accounts))
	ids := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		a.Roles = auth.NewRoleSet()
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	var rows []models.AccountRole
	err := db.NewSelect().
		Model(&rows).
		Where("ar.account_id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("load account roles: %w", err)
	}

	for _, row := range rows {
		if a, ok := byID[row.AccountID]; ok {
			a.Roles.Add(row.Role)
		}
	}
	return nil
}

func replaceRoles(ctx context.Context, tx bun.Tx, account *models.Account) error {
	if _, err := tx.NewDelete().
		Model((*models.AccountRole)(nil)).
		Where("account_id = ?", account.ID).
		Exec(ctx); err != nil {
		return fmt.Errorf("clear account roles: %w", err)
	}
	rows := account.RoleRows()
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert account roles: %w", err)
	}
	return nil
}
