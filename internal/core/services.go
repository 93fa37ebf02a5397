package core

import (
	temporalclient "go.temporal.io/sdk/client"
)

type Services struct {
	Email   *EmailService
	Usage   *UsageService
	Account *AccountService
	APIKey  *APIKeyService
}

func NewServices(db DB, tc temporalclient.Client, taskQueue string) *Services {
	return &Services{
		Email:   NewEmailService(db, tc, taskQueue),
		Usage:   NewUsageService(db),
		Account: NewAccountService(db),
		APIKey:  NewAPIKeyService(db),
	}
}
