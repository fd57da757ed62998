package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grupokali/portal/internal/policy"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrEmailTaken          = errors.New("email already registered")
	ErrRFCTaken            = errors.New("rfc already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDisabled     = errors.New("account is deactivated")
	ErrProfileMissing      = errors.New("no administrator profile for this account")
	ErrSessionInvalid      = errors.New("session expired or revoked")
	ErrForbidden           = errors.New("not allowed to perform this action")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("record already exists")
	ErrSuperAdminProtected = errors.New("the super administrator cannot be modified")
	ErrSelfTarget          = errors.New("administrators cannot deactivate or delete themselves")
	ErrPermission          = errors.New("permission error")
	ErrDatabase            = errors.New("database error")
	ErrStorage             = errors.New("storage error")
)

// postgres insufficient_privilege
const sqlStateInsufficientPrivilege = "42501"

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func authorize(p policy.Principal, action policy.Action, res policy.Resource) error {
	if !policy.CanPerform(p, action, res) {
		return ErrForbidden
	}
	return nil
}

// storeErr classifies a relational store failure. Policy rejections become
// ErrPermission; everything else unknown becomes ErrDatabase.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case isPermissionError(err):
		return fmt.Errorf("%s: %w: %w", op, ErrPermission, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrDatabase, err)
	}
}

func isPermissionError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateInsufficientPrivilege {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "row-level security")
}

func blobErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
