package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/account"
)

const accountCols = "id, name, username, email, role, assigned_class, is_active, password_hash, created_at, updated_at, last_login"

type accountRepository struct {
	exec core.DBExecutor
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(exec core.DBExecutor) *accountRepository {
	return &accountRepository{exec: exec}
}

func (repo accountRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type accountRow struct {
	ID            string      `db:"id"`
	Name          null.String `db:"name"`
	Username      null.String `db:"username"`
	Email         null.String `db:"email"`
	Role          null.String `db:"role"`
	AssignedClass null.String `db:"assigned_class"`
	IsActive      null.Bool   `db:"is_active"`
	PasswordHash  null.Bytes  `db:"password_hash"`
	CreatedAt     null.Time   `db:"created_at"`
	UpdatedAt     null.Time   `db:"updated_at"`
	LastLogin     null.Time   `db:"last_login"`
}

func (repo accountRepository) fromRow(row accountRow) account.Account {
	return account.Account{
		ID:            row.ID,
		Name:          row.Name.String,
		Username:      row.Username.String,
		Email:         row.Email.String,
		Role:          row.Role.String,
		AssignedClass: row.AssignedClass.String,
		IsActive:      row.IsActive.Ptr(),
		PasswordHash:  row.PasswordHash.Bytes,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
		LastLogin:     row.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to account.ErrNotFound
func (repo accountRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return account.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo accountRepository) getOne(ctx context.Context, exe core.DBExecutor, where string, args ...interface{}) (account.Account, error) {
	rows, err := exe.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM account WHERE %s", accountCols, where), args...)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "finding account")
	}
	defer func() { _ = rows.Close() }()

	var dest []accountRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return account.Account{}, errors.Wrap(err, "scanning account")
	}
	if len(dest) == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return repo.fromRow(dest[0]), nil
}

func (repo accountRepository) CheckUsernameUniqueness(ctx context.Context, username string, excludedAccounts ...account.Account) error {
	q := "SELECT EXISTS (SELECT 1 FROM account WHERE username = $1"
	args := []interface{}{username}
	if len(excludedAccounts) > 0 {
		ids := make(pq.StringArray, 0, len(excludedAccounts))
		for _, acct := range excludedAccounts {
			ids = append(ids, acct.ID)
		}
		args = append(args, ids)
		q += fmt.Sprintf(" AND NOT (id = ANY($%d))", len(args))
	}
	q += ")"

	var exists bool
	if err := repo.exec.QueryRowContext(ctx, q, args...).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking account uniqueness")
	}
	if exists {
		return account.ErrUsernameExists
	}
	return nil
}

func (repo accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO account (id, name, username, email, role, assigned_class, is_active, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		acct.ID, acct.Name, acct.Username, acct.Email, acct.Role, acct.AssignedClass,
		null.BoolFromPtr(acct.IsActive), acct.PasswordHash, acct.CreatedAt.UTC(), acct.UpdatedAt.UTC())
	if err != nil {
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acct, nil
}

func (repo accountRepository) QueryAllAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := repo.exec.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM account ORDER BY created_at", accountCols))
	if err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	defer func() { _ = rows.Close() }()

	var dest []accountRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return nil, errors.Wrap(err, "scanning accounts")
	}
	accounts := make([]account.Account, 0, len(dest))
	for _, row := range dest {
		accounts = append(accounts, repo.fromRow(row))
	}
	return accounts, nil
}

func (repo accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return account.Account{}, account.ErrNotFound
	}
	return repo.getOne(ctx, repo.exec, "id = $1", id)
}

func (repo accountRepository) GetAccountByUsername(ctx context.Context, username string) (account.Account, error) {
	return repo.getOne(ctx, repo.exec, "username = $1", username)
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acct account.Account, isActive *bool) (account.Account, error) {
	q := `UPDATE account SET name = $1, username = $2, email = $3, role = $4, assigned_class = $5, updated_at = $6`
	args := []interface{}{acct.Name, acct.Username, acct.Email, acct.Role, acct.AssignedClass, acct.UpdatedAt.UTC()}
	if isActive != nil {
		args = append(args, *isActive)
		q += fmt.Sprintf(", is_active = $%d", len(args))
	}
	if len(acct.PasswordHash) > 0 {
		args = append(args, acct.PasswordHash)
		q += fmt.Sprintf(", password_hash = $%d", len(args))
	}
	args = append(args, acct.ID)
	q += fmt.Sprintf(" WHERE id = $%d", len(args))

	res, err := repo.exec.ExecContext(ctx, q, args...)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return repo.getOne(ctx, repo.exec, "id = $1", acct.ID)
}

func (repo accountRepository) SetLastLogin(ctx context.Context, acct account.Account) error {
	_, err := repo.exec.ExecContext(ctx,
		"UPDATE account SET last_login = $1 WHERE id = $2", acct.LastLogin.UTC(), acct.ID)
	return errors.Wrap(err, "setting last login")
}

func (repo accountRepository) DeleteAccountsByID(ctx context.Context, ids ...string) error {
	arr := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		arr = append(arr, id)
	}
	_, err := repo.exec.ExecContext(ctx, "DELETE FROM account WHERE id = ANY($1)", arr)
	return errors.Wrap(err, "deleting accounts")
}
