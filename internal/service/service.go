// Package service implements the family register operations on top of the
// stores: registration, login, member edits and admin management.
package service

import (
	"errors"

	"github.com/parishhub/parish/internal/store"
)

var (
	ErrDuplicatePhone      = store.ErrDuplicatePhone
	ErrDuplicateRegisterNo = store.ErrDuplicateRegisterNo
	ErrAdminExists         = store.ErrDuplicateEmail

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrFamilyNotFound     = errors.New("family not found")
	ErrFamilyInactive     = errors.New("family account is inactive")
	ErrMemberNotFound     = errors.New("member not found")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidPassword    = errors.New("current password is incorrect")
)

// Event entities and actions published on successful mutations.
const (
	EntityFamily = "family"
	EntityAdmin  = "admin"

	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionDeleted       = "deleted"
	ActionMemberAdded   = "member_added"
	ActionMemberUpdated = "member_updated"
	ActionMemberRemoved = "member_removed"
)

// EventPublisher receives change notifications. It must not block.
type EventPublisher interface {
	Publish(entity, action string, id int64)
}

// Mailer sends transactional e-mail.
type Mailer interface {
	Configured() bool
	SendRegistrationWelcome(toEmail, familyName, headOfFamily string) error
}
