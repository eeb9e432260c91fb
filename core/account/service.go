package account

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrNotFound       = errors.New("account not found")
	ErrUsernameExists = errors.New("an account with this username already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string, excludedAccounts ...Account) error
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		QueryAllAccounts(ctx context.Context) ([]Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByUsername(ctx context.Context, username string) (Account, error)
		UpdateAccount(ctx context.Context, acct Account, isActive *bool) (Account, error)
		SetLastLogin(ctx context.Context, acct Account) error
		DeleteAccountsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) *Service {
	return &Service{
		conf:    conf,
		repo:    repo,
		mailSvc: mailSvc,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname string, exclAccts ...Account) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, exclAccts...); err != nil {
		if err == ErrUsernameExists {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, scope core.Scope, na NewAccount) (Account, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Account{}, err
	}
	if err := svc.checkUniqueness(ctx, na.Username); err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	active := true
	acct := Account{
		ID:            uuid.New().String(),
		Name:          na.Name,
		Username:      na.Username,
		Email:         na.Email,
		Role:          na.Role,
		AssignedClass: na.AssignedClass,
		IsActive:      &active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if acct.IsAdmin() {
		acct.AssignedClass = ""
	}
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, err
	}
	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		return Account{}, err
	}
	svc.sendWelcomeMail(acct)
	return acct, nil
}

func (svc *Service) QueryAll(ctx context.Context, scope core.Scope) ([]Account, error) {
	if err := scope.RequireAdmin(); err != nil {
		return nil, err
	}
	return svc.repo.QueryAllAccounts(ctx)
}

func (svc *Service) GetByID(ctx context.Context, scope core.Scope, id string) (Account, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Account{}, err
	}
	return svc.repo.GetAccountByID(ctx, id)
}

// GetByUsername looks an account up for authentication. It is not scoped:
// it backs the login flow where no scope exists yet.
func (svc *Service) GetByUsername(ctx context.Context, uname string) (Account, error) {
	return svc.repo.GetAccountByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, scope core.Scope, id string, ua UpdateAccount) (Account, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Account{}, err
	}
	orig, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if err := ua.Validate(orig); err != nil {
		return Account{}, err
	}
	if ua.Username != orig.Username {
		if err := svc.checkUniqueness(ctx, ua.Username, orig); err != nil {
			return Account{}, err
		}
	}

	acct := Account{
		ID:            id,
		Name:          ua.Name,
		Username:      ua.Username,
		Email:         ua.Email,
		Role:          ua.Role,
		AssignedClass: ua.AssignedClass,
		UpdatedAt:     time.Now().UTC(),
	}
	if acct.IsAdmin() {
		acct.AssignedClass = ""
	}
	if ua.Password != "" {
		if err := acct.SetPassword(ua.Password); err != nil {
			return Account{}, err
		}
	}
	return svc.repo.UpdateAccount(ctx, acct, ua.IsActive)
}

func (svc *Service) SetLastLogin(ctx context.Context, acct Account) error {
	acct.LastLogin = time.Now().UTC()
	return svc.repo.SetLastLogin(ctx, acct)
}

func (svc *Service) Delete(ctx context.Context, scope core.Scope, ids ...string) error {
	if err := scope.RequireAdmin(); err != nil {
		return err
	}
	return svc.repo.DeleteAccountsByID(ctx, ids...)
}

func (svc *Service) sendWelcomeMail(acct Account) {
	if acct.Email == "" {
		return
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: acct.Name, Address: acct.Email}},
		Subject:      "Welcome to " + svc.conf.AppName,
		TemplateName: "welcome",
		TemplateData: struct {
			Name     string
			Username string
		}{acct.Name, acct.Username},
	}
	svc.mailSvc.SendMessages(msg)
}
