package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core/account"
)

type accountRepository struct {
	db *accountTable
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.account}
}

func (repo *accountRepository) CheckUsernameUniqueness(_ context.Context, username string, excludedAccounts ...account.Account) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedAccounts))
	for _, acct := range excludedAccounts {
		excluded[acct.ID] = true
	}
	for _, acct := range repo.db.table {
		if acct.Username == username && !excluded[acct.ID] {
			return account.ErrUsernameExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	repo.db.table[acct.ID] = &acct
	repo.db.order = append(repo.db.order, acct.ID)
	return acct, nil
}

func (repo *accountRepository) QueryAllAccounts(_ context.Context) ([]account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	accounts := make([]account.Account, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		if acct, ok := repo.db.table[id]; ok {
			accounts = append(accounts, *acct)
		}
	}
	return accounts, nil
}

func (repo *accountRepository) GetAccountByID(_ context.Context, id string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acct, ok := repo.db.table[id]; ok {
		return *acct, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByUsername(_ context.Context, username string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acct := range repo.db.table {
		if acct.Username == username {
			return *acct, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acct account.Account, isActive *bool) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[acct.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	orig.Name = acct.Name
	orig.Username = acct.Username
	orig.Email = acct.Email
	orig.Role = acct.Role
	orig.AssignedClass = acct.AssignedClass
	orig.UpdatedAt = acct.UpdatedAt
	if isActive != nil {
		orig.IsActive = isActive
	}
	if len(acct.PasswordHash) > 0 {
		orig.PasswordHash = acct.PasswordHash
	}
	return *orig, nil
}

func (repo *accountRepository) SetLastLogin(_ context.Context, acct account.Account) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.table[acct.ID]; ok {
		orig.LastLogin = acct.LastLogin
	}
	return nil
}

func (repo *accountRepository) DeleteAccountsByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
		for i, oid := range repo.db.order {
			if oid == id {
				repo.db.order = append(repo.db.order[:i], repo.db.order[i+1:]...)
				break
			}
		}
	}
	return nil
}
