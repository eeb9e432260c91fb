package main

import (
	"context"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/account"
)

// addAccount updates or creates an account.Account
func (cli *commandLine) addAccount(uname, name, email, role, class, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	acct, err := cli.acctRepo.GetAccountByUsername(ctx, uname)
	if err != nil {
		if err != account.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		acct = account.Account{
			Username:  uname,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	acct.Name = core.CleanString(name)
	acct.Email = email
	acct.Role = role
	acct.AssignedClass = core.CleanString(class)
	if acct.IsAdmin() {
		acct.AssignedClass = ""
	}
	if err := acct.SetPassword(pwd); err != nil {
		return err
	}
	active := true
	if acct.ID == "" {
		acct.IsActive = &active
		_, err = cli.acctRepo.CreateAccount(ctx, acct)
		return err
	}
	acct.UpdatedAt = time.Now().UTC()
	_, err = cli.acctRepo.UpdateAccount(ctx, acct, &active)
	return err
}
