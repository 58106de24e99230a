package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"gorm.io/gorm"
)

// User is a person record kept in sync with the remote system. The natural
// key is the email address.
type User struct {
	ID        int               `gorm:"primary_key" json:"id"`
	RemoteId  string            `gorm:"index;size:64" json:"remote_id"`
	Email     string            `gorm:"uniqueIndex;size:100;not null" json:"email"`
	FirstName string            `gorm:"size:100" json:"first_name"`
	LastName  string            `gorm:"size:100" json:"last_name"`
	Phone     string            `gorm:"size:30" json:"phone"`
	CompanyId int               `gorm:"index;default:0" json:"company_id"`
	IsActive  *bool             `gorm:"not null;default:true" json:"is_active"`
	Addresses []*AddressProfile `gorm:"polymorphic:Owner" json:"addresses"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// Company is an organization record. The natural key is the remote account
// number.
type Company struct {
	ID            int               `gorm:"primary_key" json:"id"`
	RemoteId      string            `gorm:"index;size:64" json:"remote_id"`
	AccountNumber string            `gorm:"uniqueIndex;size:64;not null" json:"account_number"`
	Name          string            `gorm:"size:255;not null" json:"name"`
	Addresses     []*AddressProfile `gorm:"polymorphic:Owner" json:"addresses"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// AddressProfile is a saved address attached to a user or company. The
// natural key is the remote address id scoped to the owning record.
type AddressProfile struct {
	ID              int       `gorm:"primary_key" json:"id"`
	RemoteAddressId string    `gorm:"index:idx_addresses_owner_remote,priority:3;size:64;not null" json:"remote_address_id"`
	OwnerId         int       `gorm:"index:idx_addresses_owner_remote,priority:2;not null" json:"owner_id"`
	OwnerType       string    `gorm:"index:idx_addresses_owner_remote,priority:1;size:30;not null" json:"owner_type"`
	Label           string    `gorm:"size:100" json:"label"`
	Attention       string    `gorm:"size:255" json:"attention"`
	Line1           string    `gorm:"size:255" json:"line1"`
	Line2           string    `gorm:"size:255" json:"line2"`
	City            string    `gorm:"size:100" json:"city"`
	State           string    `gorm:"size:100" json:"state"`
	Zip             string    `gorm:"size:20" json:"zip"`
	Country         string    `gorm:"size:100" json:"country"`
	Phone           string    `gorm:"size:30" json:"phone"`
	IsDefault       *bool     `gorm:"not null;default:false" json:"is_default"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	RemoteId  string `json:"remote_id"`
	Email     string `json:"email" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	CompanyId int    `json:"company_id"`
}

type NewCompany struct {
	RemoteId      string `json:"remote_id"`
	AccountNumber string `json:"account_number" binding:"required"`
	Name          string `json:"name" binding:"required"`
}

type NewAddressProfile struct {
	RemoteAddressId string `json:"remote_address_id" binding:"required"`
	OwnerId         int    `json:"owner_id" binding:"required"`
	OwnerType       string `json:"owner_type" binding:"required"`
	Label           string `json:"label"`
	Attention       string `json:"attention"`
	Line1           string `json:"line1"`
	Line2           string `json:"line2"`
	City            string `json:"city"`
	State           string `json:"state"`
	Zip             string `json:"zip"`
	Country         string `json:"country"`
	Phone           string `json:"phone"`
	IsDefault       *bool  `json:"is_default"`
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, errors.New("email is required")
	}
	db := config.GetDB()

	user := User{
		RemoteId:  input.RemoteId,
		Email:     email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		CompanyId: input.CompanyId,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func UpdateUser(ctx context.Context, id int, input *NewUser) (*User, error) {
	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"remote_id":  input.RemoteId,
		"email":      strings.ToLower(strings.TrimSpace(input.Email)),
		"first_name": input.FirstName,
		"last_name":  input.LastName,
		"phone":      input.Phone,
		"company_id": input.CompanyId,
	}
	if err := db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail is the user natural key lookup. Returns nil without error
// when no match exists.
func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Preload("Addresses").Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func CreateCompany(ctx context.Context, input *NewCompany) (*Company, error) {
	accountNumber := strings.TrimSpace(input.AccountNumber)
	if accountNumber == "" {
		return nil, errors.New("account number is required")
	}
	db := config.GetDB()

	company := Company{
		RemoteId:      input.RemoteId,
		AccountNumber: accountNumber,
		Name:          input.Name,
	}
	if err := db.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func UpdateCompany(ctx context.Context, id int, input *NewCompany) (*Company, error) {
	db := config.GetDB()

	var company Company
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&company).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"remote_id":      input.RemoteId,
		"account_number": strings.TrimSpace(input.AccountNumber),
		"name":           input.Name,
	}
	if err := db.WithContext(ctx).Model(&company).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// GetCompanyByAccountNumber is the company natural key lookup. Returns nil
// without error when no match exists.
func GetCompanyByAccountNumber(ctx context.Context, accountNumber string) (*Company, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	db := config.GetDB()
	var company Company
	err := db.WithContext(ctx).Where("account_number = ?", accountNumber).Take(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

func GetCompany(ctx context.Context, id int) (*Company, error) {
	db := config.GetDB()
	var company Company
	if err := db.WithContext(ctx).Preload("Addresses").Where("id = ?", id).Take(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// UpsertAddressProfile matches an address by remote address id scoped to the
// owner, creating or updating in place.
func UpsertAddressProfile(ctx context.Context, input *NewAddressProfile) (*AddressProfile, error) {
	db := config.GetDB()

	var address AddressProfile
	err := db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ? AND remote_address_id = ?",
			input.OwnerType, input.OwnerId, input.RemoteAddressId).
		Take(&address).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		address = AddressProfile{
			RemoteAddressId: input.RemoteAddressId,
			OwnerId:         input.OwnerId,
			OwnerType:       input.OwnerType,
			Label:           input.Label,
			Attention:       input.Attention,
			Line1:           input.Line1,
			Line2:           input.Line2,
			City:            input.City,
			State:           input.State,
			Zip:             input.Zip,
			Country:         input.Country,
			Phone:           input.Phone,
			IsDefault:       input.IsDefault,
		}
		if err := db.WithContext(ctx).Create(&address).Error; err != nil {
			return nil, err
		}
		return &address, nil
	}

	updates := map[string]interface{}{
		"label":     input.Label,
		"attention": input.Attention,
		"line1":     input.Line1,
		"line2":     input.Line2,
		"city":      input.City,
		"state":     input.State,
		"zip":       input.Zip,
		"country":   input.Country,
		"phone":     input.Phone,
	}
	if input.IsDefault != nil {
		updates["is_default"] = input.IsDefault
	}
	if err := db.WithContext(ctx).Model(&address).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

// DeleteAllParties removes every user, company and address profile.
// Maintenance operation behind an explicit confirmation.
func DeleteAllParties(ctx context.Context) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&AddressProfile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&User{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&Company{}).Error
	})
}
