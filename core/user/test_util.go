package user

import (
	"context"

	"github.com/trezcool/lifeline/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose outgoing email is sent synchronously,
// for deterministic tests.
func NewServiceMock(repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
			logger:  logger,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	return svc.mailSvc.SendMessage(ctx, svc.passwordResetMessage(usr))
}
