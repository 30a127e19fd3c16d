// Package validator checks the user and dog records that bookings reference.
package validator

import (
	apperrors "pawwalk/pkg/errors"
	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"
	"pawwalk/pkg/sanitizer"
	"pawwalk/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type AccountValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAccountValidator(log *logger.Logger) *AccountValidator {
	return &AccountValidator{
		validate: validation.New(),
		logger:   log,
	}
}

// SanitizeUser normalises a user in place so that Validate judges canonical values. An
// unparseable phone is kept as typed and rejected by the e164 rule.
func SanitizeUser(u *model.User) {
	u.ID = sanitizer.NormalizeID(u.ID)
	u.Name = sanitizer.NormalizeName(u.Name)
	u.Email = sanitizer.NormalizeEmail(u.Email)
	if phone := sanitizer.NormalizePhone(u.Phone); phone != "" {
		u.Phone = phone
	}
}

func SanitizeDog(d *model.Dog) {
	d.ID = sanitizer.NormalizeID(d.ID)
	d.OwnerID = sanitizer.NormalizeID(d.OwnerID)
	d.Name = sanitizer.NormalizeName(d.Name)
	d.Breed = sanitizer.NormalizeName(d.Breed)
}

func (v *AccountValidator) ValidateUser(u *model.User) error {
	if u == nil {
		return apperrors.Validation("user is required", nil)
	}
	return v.check(u, "invalid user")
}

func (v *AccountValidator) ValidateDog(d *model.Dog) error {
	if d == nil {
		return apperrors.Validation("dog is required", nil)
	}
	return v.check(d, "invalid dog")
}

func (v *AccountValidator) check(s any, message string) error {
	errs, err := validation.Struct(v.validate, s)
	if err != nil {
		return apperrors.Internal("failed to validate record", err)
	}
	if len(errs) > 0 {
		v.logger.Debug("Account record rejected", "reason", message, "errors", errs.Error())
		return apperrors.Validation(message, errs.Details())
	}
	return nil
}
