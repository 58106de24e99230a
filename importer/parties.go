package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/syncdb"
	"github.com/mmdatafocus/syncdb_backend/utils"
)

// ImportUser fetches one remote user and upserts it by email.
func (imp *Importer) ImportUser(ctx context.Context, remoteId string) error {
	return imp.withRemoteLock(ctx, string(models.SyncDomainUser), remoteId, func(ctx context.Context) error {
		raw, err := imp.client.GetRecord(ctx, syncdb.DomainUsers, remoteId)
		if err != nil {
			if errors.Is(err, syncdb.ErrRecordNotFound) {
				return MappingErrorf("remote user %s no longer exists", remoteId)
			}
			return err
		}
		var remote syncdb.RemoteUser
		if err := utils.UnmarshalFromJSON(raw, &remote); err != nil {
			return MappingErrorf("remote user %s: invalid payload: %v", remoteId, err)
		}
		_, err = imp.upsertUser(ctx, &remote)
		return err
	})
}

func (imp *Importer) upsertUser(ctx context.Context, remote *syncdb.RemoteUser) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(remote.Email))
	if email == "" {
		return nil, MappingErrorf("remote user %s has no email", remote.Id)
	}
	if !utils.IsValidEmail(email) {
		return nil, MappingErrorf("remote user %s has malformed email %q", remote.Id, remote.Email)
	}

	companyId := 0
	if remote.CompanyId != "" {
		company, err := imp.ensureCompany(ctx, remote.CompanyId)
		if err != nil {
			return nil, err
		}
		companyId = company.ID
	}

	phone := strings.TrimSpace(remote.Phone)
	if phone != "" {
		phone = utils.NormalizePhoneNumber(phone, utils.CountryCode)
	}

	input := &models.NewUser{
		RemoteId:  remote.Id,
		Email:     email,
		FirstName: strings.TrimSpace(remote.FirstName),
		LastName:  strings.TrimSpace(remote.LastName),
		Phone:     phone,
		CompanyId: companyId,
	}

	existing, err := models.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	var user *models.User
	if existing == nil {
		user, err = models.CreateUser(ctx, input)
	} else {
		user, err = models.UpdateUser(ctx, existing.ID, input)
	}
	if err != nil {
		return nil, err
	}

	if err := imp.applyAddresses(ctx, "User", user.ID, remote.Addresses); err != nil {
		return nil, err
	}
	return user, nil
}

// ImportCompany fetches one remote company and upserts it by account number.
func (imp *Importer) ImportCompany(ctx context.Context, remoteId string) error {
	return imp.withRemoteLock(ctx, string(models.SyncDomainCompany), remoteId, func(ctx context.Context) error {
		_, err := imp.ensureCompany(ctx, remoteId)
		return err
	})
}

// ensureCompany fetches the remote record and upserts it, returning the
// local row. Used both by the company feed and to resolve a user's employer
// before the company feed has caught up.
func (imp *Importer) ensureCompany(ctx context.Context, remoteId string) (*models.Company, error) {
	raw, err := imp.client.GetRecord(ctx, syncdb.DomainCompanies, remoteId)
	if err != nil {
		if errors.Is(err, syncdb.ErrRecordNotFound) {
			return nil, MappingErrorf("remote company %s no longer exists", remoteId)
		}
		return nil, err
	}
	var remote syncdb.RemoteCompany
	if err := utils.UnmarshalFromJSON(raw, &remote); err != nil {
		return nil, MappingErrorf("remote company %s: invalid payload: %v", remoteId, err)
	}

	accountNumber := strings.TrimSpace(remote.AccountNumber)
	if accountNumber == "" {
		return nil, MappingErrorf("remote company %s has no account number", remote.Id)
	}

	input := &models.NewCompany{
		RemoteId:      remote.Id,
		AccountNumber: accountNumber,
		Name:          strings.TrimSpace(remote.Name),
	}

	existing, err := models.GetCompanyByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	var company *models.Company
	if existing == nil {
		company, err = models.CreateCompany(ctx, input)
	} else {
		company, err = models.UpdateCompany(ctx, existing.ID, input)
	}
	if err != nil {
		return nil, err
	}

	if err := imp.applyAddresses(ctx, "Company", company.ID, remote.Addresses); err != nil {
		return nil, err
	}
	return company, nil
}

// applyAddresses upserts each remote address under its owner, keyed by the
// remote address id. Addresses without a remote id are skipped; there is
// nothing stable to match on.
func (imp *Importer) applyAddresses(ctx context.Context, ownerType string, ownerId int, addresses []syncdb.RemoteAddress) error {
	for _, addr := range addresses {
		if strings.TrimSpace(addr.Id) == "" {
			continue
		}
		phone := strings.TrimSpace(addr.Phone)
		if phone != "" {
			phone = utils.NormalizePhoneNumber(phone, utils.CountryCode)
		}
		isDefault := utils.NewFalse()
		if addr.IsDefault {
			isDefault = utils.NewTrue()
		}
		_, err := models.UpsertAddressProfile(ctx, &models.NewAddressProfile{
			RemoteAddressId: addr.Id,
			OwnerId:         ownerId,
			OwnerType:       ownerType,
			Label:           addr.Label,
			Attention:       addr.Attention,
			Line1:           addr.Line1,
			Line2:           addr.Line2,
			City:            addr.City,
			State:           addr.State,
			Zip:             addr.Zip,
			Country:         addr.Country,
			Phone:           phone,
			IsDefault:       isDefault,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
