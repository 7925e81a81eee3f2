package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/parishhub/parish/internal/auth"
	"github.com/parishhub/parish/internal/family"
	"github.com/parishhub/parish/internal/model"
	"github.com/parishhub/parish/internal/store"
)

type FamilyService struct {
	families *store.FamilyStore
	events   EventPublisher
	mailer   Mailer
	logger   *slog.Logger

	mail sync.WaitGroup
}

// NewFamilyService wires the service. events and mailer may be nil.
func NewFamilyService(fs *store.FamilyStore, events EventPublisher, mailer Mailer, logger *slog.Logger) *FamilyService {
	return &FamilyService{families: fs, events: events, mailer: mailer, logger: logger}
}

func (s *FamilyService) publish(action string, id int64) {
	if s.events != nil {
		s.events.Publish(EntityFamily, action, id)
	}
}

// Register creates a family through self-service. The member list starts
// empty and the family is active. The welcome e-mail is sent in the
// background.
func (s *FamilyService) Register(ctx context.Context, in FamilyInput) (*model.FamilyUnit, error) {
	f := in.toModel()

	created, err := s.create(ctx, f, in.Password)
	if err != nil {
		return nil, err
	}

	if created.Email != "" && s.mailer != nil && s.mailer.Configured() {
		to, name, head := created.Email, created.FamilyName, created.HeadOfFamily
		logger := s.logger.With("family_id", created.ID)
		s.mail.Go(func() {
			if err := s.mailer.SendRegistrationWelcome(to, name, head); err != nil {
				logger.Error("send welcome email", "error", err)
			}
		})
	}
	return created, nil
}

// Wait blocks until queued welcome e-mails have been sent or have failed.
func (s *FamilyService) Wait() {
	s.mail.Wait()
}

// CreateFamily creates a family on behalf of an admin, keeping the supplied
// member list and active flag.
func (s *FamilyService) CreateFamily(ctx context.Context, in FamilyInput) (*model.FamilyUnit, error) {
	f := in.toModel()
	for _, m := range in.Members {
		f.Members = append(f.Members, m.toModel(uuid.NewString()))
	}
	if in.Active != nil {
		f.Active = *in.Active
	}
	return s.create(ctx, f, in.Password)
}

func (s *FamilyService) create(ctx context.Context, f *model.FamilyUnit, password string) (*model.FamilyUnit, error) {
	if err := s.checkUnique(ctx, f.Phone, f.RegisterNo, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	f.PasswordHash = hash

	created, err := s.families.Create(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("create family: %w", err)
	}
	s.publish(ActionCreated, created.ID)
	return created, nil
}

func (s *FamilyService) checkUnique(ctx context.Context, phone, registerNo string, excludeID int64) error {
	exists, err := s.families.ExistsByPhone(ctx, phone, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicatePhone
	}
	exists, err = s.families.ExistsByRegisterNo(ctx, registerNo, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateRegisterNo
	}
	return nil
}

// Authenticate resolves a phone and password to a family. Unknown phones,
// wrong passwords and inactive families all fail with ErrInvalidCredentials.
func (s *FamilyService) Authenticate(ctx context.Context, phone, password string) (*model.FamilyUnit, error) {
	f, err := s.families.GetByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, err
	}
	if f == nil {
		auth.BurnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if !auth.CheckPassword(f.PasswordHash, password) || !f.Active {
		return nil, ErrInvalidCredentials
	}
	return f, nil
}

// authorize checks that caller may edit the members of familyID. Route guards
// decide which admins get here.
func authorize(caller model.Identity, familyID int64) error {
	switch c := caller.(type) {
	case model.AdminIdentity:
		return nil
	case model.FamilyIdentity:
		if c.FamilyID == familyID {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// loadFor loads familyID for an edit by caller. A deactivated family cannot
// edit itself with a token issued before deactivation.
func (s *FamilyService) loadFor(ctx context.Context, caller model.Identity, familyID int64) (*model.FamilyUnit, error) {
	if err := authorize(caller, familyID); err != nil {
		return nil, err
	}
	f, err := s.load(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if _, self := caller.(model.FamilyIdentity); self && !f.Active {
		return nil, ErrFamilyInactive
	}
	return f, nil
}

func (s *FamilyService) load(ctx context.Context, id int64) (*model.FamilyUnit, error) {
	f, err := s.families.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrFamilyNotFound
	}
	return f, nil
}

func (s *FamilyService) save(ctx context.Context, f *model.FamilyUnit) (*model.FamilyUnit, error) {
	saved, err := s.families.Save(ctx, f)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrFamilyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("save family %d: %w", f.ID, err)
	}
	return saved, nil
}

// AddMember appends a member to the family and returns the updated family
// together with the new member's id.
func (s *FamilyService) AddMember(ctx context.Context, caller model.Identity, familyID int64, in MemberInput) (*model.FamilyUnit, string, error) {
	f, err := s.loadFor(ctx, caller, familyID)
	if err != nil {
		return nil, "", err
	}

	id := uuid.NewString()
	f.Members = append(f.Members, in.toModel(id))

	saved, err := s.save(ctx, f)
	if err != nil {
		return nil, "", err
	}
	s.publish(ActionMemberAdded, familyID)
	return saved, id, nil
}

// UpdateMember merges the provided fields into one member.
func (s *FamilyService) UpdateMember(ctx context.Context, caller model.Identity, familyID int64, memberID string, patch MemberPatch) (*model.FamilyUnit, error) {
	f, err := s.loadFor(ctx, caller, familyID)
	if err != nil {
		return nil, err
	}

	m, _ := f.Member(memberID)
	if m == nil {
		return nil, ErrMemberNotFound
	}
	patch.apply(m)

	saved, err := s.save(ctx, f)
	if err != nil {
		return nil, err
	}
	s.publish(ActionMemberUpdated, familyID)
	return saved, nil
}

// RemoveMember deletes a member by id. Removing an id that is not in the
// family succeeds without changes.
func (s *FamilyService) RemoveMember(ctx context.Context, caller model.Identity, familyID int64, memberID string) (*model.FamilyUnit, error) {
	f, err := s.loadFor(ctx, caller, familyID)
	if err != nil {
		return nil, err
	}

	_, idx := f.Member(memberID)
	if idx < 0 {
		return f, nil
	}
	f.Members = append(f.Members[:idx], f.Members[idx+1:]...)

	saved, err := s.save(ctx, f)
	if err != nil {
		return nil, err
	}
	s.publish(ActionMemberRemoved, familyID)
	return saved, nil
}

// DeleteFamily removes the family and every member.
func (s *FamilyService) DeleteFamily(ctx context.Context, familyID int64) error {
	deleted, err := s.families.Delete(ctx, familyID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrFamilyNotFound
	}
	s.publish(ActionDeleted, familyID)
	return nil
}

// ListFamilies returns families shaped for the caller. Non-admin callers see
// only active families, masked, and cannot search.
func (s *FamilyService) ListFamilies(ctx context.Context, caller model.Identity, filter model.FamilyFilter) ([]model.FamilyUnit, error) {
	audience := audienceFor(caller, 0)
	if audience == family.AudiencePublic {
		filter.ActiveOnly = true
		filter.Search = ""
	}

	families, err := s.families.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return family.ViewAll(families, audience), nil
}

// GetFamily returns one family shaped for the caller. Inactive families are
// hidden from public readers.
func (s *FamilyService) GetFamily(ctx context.Context, caller model.Identity, id int64) (*model.FamilyUnit, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	audience := audienceFor(caller, id)
	if audience == family.AudiencePublic && !f.Active {
		return nil, ErrFamilyNotFound
	}
	return family.View(f, audience), nil
}

// audienceFor grants the unmasked view to admins who manage family units and
// to a family reading its own record.
func audienceFor(caller model.Identity, familyID int64) family.Audience {
	switch c := caller.(type) {
	case model.AdminIdentity:
		if c.Can(model.PermManageFamilyUnits) {
			return family.AudienceAdmin
		}
	case model.FamilyIdentity:
		if familyID != 0 && c.FamilyID == familyID {
			return family.AudienceAdmin
		}
	}
	return family.AudiencePublic
}

// UpdateFamily applies an admin update.
func (s *FamilyService) UpdateFamily(ctx context.Context, id int64, patch FamilyPatch) (*model.FamilyUnit, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	phone, registerNo := f.Phone, f.RegisterNo
	if patch.Phone != nil {
		phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.RegisterNo != nil {
		registerNo = strings.TrimSpace(*patch.RegisterNo)
	}
	if err := s.checkUnique(ctx, phone, registerNo, id); err != nil {
		return nil, err
	}

	patch.ProfilePatch.apply(f)
	f.Phone = phone
	f.RegisterNo = registerNo
	if patch.Active != nil {
		f.Active = *patch.Active
	}
	if patch.Members != nil {
		f.Members = replaceMembers(f.Members, *patch.Members)
	}

	saved, err := s.save(ctx, f)
	if err != nil {
		return nil, err
	}
	s.publish(ActionUpdated, id)
	return saved, nil
}

// replaceMembers builds a new member list, keeping ids that already belong to
// the family and assigning fresh ones otherwise.
func replaceMembers(current []model.Member, inputs []MemberInput) []model.Member {
	known := make(map[string]bool, len(current))
	for _, m := range current {
		known[m.ID] = true
	}
	out := make([]model.Member, 0, len(inputs))
	for _, in := range inputs {
		id := in.ID
		if !known[id] {
			id = uuid.NewString()
		}
		known[id] = false
		out = append(out, in.toModel(id))
	}
	return out
}

// UpdateProfile applies a family's edit of its own record.
func (s *FamilyService) UpdateProfile(ctx context.Context, familyID int64, patch ProfilePatch) (*model.FamilyUnit, error) {
	f, err := s.loadFor(ctx, model.FamilyIdentity{FamilyID: familyID}, familyID)
	if err != nil {
		return nil, err
	}
	patch.apply(f)

	saved, err := s.save(ctx, f)
	if err != nil {
		return nil, err
	}
	s.publish(ActionUpdated, familyID)
	return saved, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *FamilyService) ChangePassword(ctx context.Context, familyID int64, current, next string) error {
	f, err := s.loadFor(ctx, model.FamilyIdentity{FamilyID: familyID}, familyID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(f.PasswordHash, current) {
		return ErrInvalidPassword
	}
	return s.setPassword(ctx, familyID, next)
}

// ResetPassword sets a new password without the current one.
func (s *FamilyService) ResetPassword(ctx context.Context, familyID int64, next string) error {
	return s.setPassword(ctx, familyID, next)
}

func (s *FamilyService) setPassword(ctx context.Context, familyID int64, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	err = s.families.UpdatePassword(ctx, familyID, hash)
	if errors.Is(err, store.ErrNotFound) {
		return ErrFamilyNotFound
	}
	return err
}

// All returns every family unmasked, for exports.
func (s *FamilyService) All(ctx context.Context, filter model.FamilyFilter) ([]model.FamilyUnit, error) {
	families, err := s.families.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return family.ViewAll(families, family.AudienceAdmin), nil
}
