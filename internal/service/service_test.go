package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parishhub/parish/internal/database"
	"github.com/parishhub/parish/internal/model"
	"github.com/parishhub/parish/internal/store"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type event struct {
	entity, action string
	id             int64
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event
}

func (p *recordingPublisher) Publish(entity, action string, id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event{entity, action, id})
}

func (p *recordingPublisher) last() event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return event{}
	}
	return p.events[len(p.events)-1]
}

type fakeMailer struct {
	mu         sync.Mutex
	configured bool
	err        error
	sent       []string
}

func (m *fakeMailer) Configured() bool { return m.configured }

func (m *fakeMailer) SendRegistrationWelcome(toEmail, familyName, headOfFamily string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, toEmail)
	return m.err
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type fixture struct {
	families *FamilyService
	admins   *AdminService
	events   *recordingPublisher
	mailer   *fakeMailer
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := &recordingPublisher{}
	mailer := &fakeMailer{configured: true}
	fs := store.NewFamilyStore(db, store.WithClock(func() time.Time { return fixedNow }))
	return &fixture{
		families: NewFamilyService(fs, events, mailer, logger),
		admins:   NewAdminService(store.NewAdminStore(db), events, logger),
		events:   events,
		mailer:   mailer,
	}
}

func date(s string) *model.Date {
	d := model.MustDate(s)
	return &d
}

func registration(phone string) FamilyInput {
	return FamilyInput{
		FamilyName:   "Puthenpurackal",
		HeadOfFamily: "Joseph",
		DateOfBirth:  date("1975-05-15"),
		ParishUnit:   "St. Mary's",
		Phone:        phone,
		Email:        " Joseph@Example.com ",
		Password:     "secret1",
	}
}

var admin = model.AdminIdentity{AdminID: 1, Role: model.RoleAdmin, Permissions: []model.Permission{model.PermManageFamilyUnits}}

func TestRegister(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	in := registration("9876543210")
	in.Members = []MemberInput{{Name: "Ignored"}}

	f, err := fx.families.Register(ctx, in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(f.Members) != 0 {
		t.Errorf("members = %d, want 0 for self-registration", len(f.Members))
	}
	if f.Age == nil || *f.Age != 48 {
		t.Errorf("age = %v, want 48", f.Age)
	}
	if f.Email != "joseph@example.com" {
		t.Errorf("email = %q", f.Email)
	}
	if f.PasswordHash == "secret1" || f.PasswordHash == "" {
		t.Error("password not hashed")
	}
	if !f.Active {
		t.Error("new family should be active")
	}
	fx.families.Wait()
	if sent := fx.mailer.recipients(); len(sent) != 1 || sent[0] != "joseph@example.com" {
		t.Errorf("welcome mail = %v", sent)
	}
	if got := fx.events.last(); got != (event{EntityFamily, ActionCreated, f.ID}) {
		t.Errorf("event = %+v", got)
	}
}

func TestRegisterMailFailureNotSurfaced(t *testing.T) {
	fx := setup(t)
	fx.mailer.err = errors.New("postmark down")

	if _, err := fx.families.Register(context.Background(), registration("9876543210")); err != nil {
		t.Fatalf("register: %v", err)
	}
	fx.families.Wait()
	if sent := fx.mailer.recipients(); len(sent) != 1 {
		t.Errorf("welcome mail attempts = %v, want 1", sent)
	}
}

// blockingMailer holds every send until release is closed.
type blockingMailer struct {
	release chan struct{}
	done    chan string
}

func (m *blockingMailer) Configured() bool { return true }

func (m *blockingMailer) SendRegistrationWelcome(toEmail, familyName, headOfFamily string) error {
	<-m.release
	m.done <- toEmail
	return nil
}

func TestRegisterDoesNotWaitForMail(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mailer := &blockingMailer{release: make(chan struct{}), done: make(chan string, 1)}
	fs := store.NewFamilyStore(db, store.WithClock(func() time.Time { return fixedNow }))
	families := NewFamilyService(fs, nil, mailer, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if _, err := families.Register(context.Background(), registration("9876543210")); err != nil {
		t.Fatalf("register: %v", err)
	}
	close(mailer.release)
	families.Wait()

	select {
	case to := <-mailer.done:
		if to != "joseph@example.com" {
			t.Errorf("sent to %q", to)
		}
	default:
		t.Error("welcome mail not sent after Wait")
	}
}

func TestRegisterWithoutEmailSendsNothing(t *testing.T) {
	fx := setup(t)
	in := registration("9876543210")
	in.Email = ""

	if _, err := fx.families.Register(context.Background(), in); err != nil {
		t.Fatalf("register: %v", err)
	}
	fx.families.Wait()
	if sent := fx.mailer.recipients(); len(sent) != 0 {
		t.Errorf("sent = %v, want none", sent)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	first := registration("9876543210")
	first.RegisterNo = "R-1"
	if _, err := fx.families.Register(ctx, first); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := fx.families.Register(ctx, registration("9876543210")); !errors.Is(err, ErrDuplicatePhone) {
		t.Errorf("err = %v, want ErrDuplicatePhone", err)
	}

	dup := registration("9876500000")
	dup.RegisterNo = "R-1"
	if _, err := fx.families.Register(ctx, dup); !errors.Is(err, ErrDuplicateRegisterNo) {
		t.Errorf("err = %v, want ErrDuplicateRegisterNo", err)
	}
}

func TestCreateFamilyKeepsMembers(t *testing.T) {
	fx := setup(t)
	in := registration("9876543210")
	inactive := false
	in.Active = &inactive
	in.Members = []MemberInput{{Name: "Anna", Gender: model.GenderFemale, DateOfBirth: date("2009-01-20")}}

	f, err := fx.families.CreateFamily(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.Active {
		t.Error("expected inactive family")
	}
	if len(f.Members) != 1 || f.Members[0].ID == "" {
		t.Fatalf("members = %+v", f.Members)
	}
	if f.Members[0].Age == nil || *f.Members[0].Age != 15 {
		t.Errorf("member age = %v, want 15", f.Members[0].Age)
	}
}

func TestAuthenticate(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, err := fx.families.Register(ctx, registration("9876543210"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := fx.families.Authenticate(ctx, " 9876543210 ", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != f.ID {
		t.Errorf("id = %d, want %d", got.ID, f.ID)
	}

	if _, err := fx.families.Authenticate(ctx, "9876543210", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, err := fx.families.Authenticate(ctx, "9000000000", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown phone: err = %v", err)
	}

	inactive := false
	if _, err := fx.families.UpdateFamily(ctx, f.ID, FamilyPatch{Active: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := fx.families.Authenticate(ctx, "9876543210", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("inactive: err = %v", err)
	}
}

func TestMemberLifecycle(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, err := fx.families.Register(ctx, registration("9876543210"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	self := model.FamilyIdentity{FamilyID: f.ID}

	f, memberID, err := fx.families.AddMember(ctx, self, f.ID, MemberInput{
		Name:         "Anna",
		Gender:       model.GenderFemale,
		DateOfBirth:  date("2009-01-20"),
		Relationship: "Daughter",
		Mobile:       "9123456789",
	})
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if len(f.Members) != 1 || f.Members[0].ID != memberID {
		t.Fatalf("members = %+v, id %q", f.Members, memberID)
	}
	if *f.Members[0].Age != 15 {
		t.Errorf("age = %d, want 15", *f.Members[0].Age)
	}
	if got := fx.events.last(); got.action != ActionMemberAdded {
		t.Errorf("event = %+v", got)
	}

	occupation := "Student"
	f, err = fx.families.UpdateMember(ctx, self, f.ID, memberID, MemberPatch{Occupation: &occupation})
	if err != nil {
		t.Fatalf("update member: %v", err)
	}
	m := f.Members[0]
	if m.Occupation != "Student" || m.Name != "Anna" || m.Relationship != "Daughter" {
		t.Errorf("merged member = %+v", m)
	}

	if _, err := fx.families.UpdateMember(ctx, self, f.ID, "nope", MemberPatch{Occupation: &occupation}); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("unknown member: err = %v", err)
	}

	f, err = fx.families.RemoveMember(ctx, self, f.ID, memberID)
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if len(f.Members) != 0 {
		t.Errorf("members = %d, want 0", len(f.Members))
	}

	if _, err := fx.families.RemoveMember(ctx, self, f.ID, memberID); err != nil {
		t.Errorf("second remove: err = %v, want nil", err)
	}
}

func TestMemberOpsForbiddenForOtherFamily(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	a, _ := fx.families.Register(ctx, registration("9876543210"))
	b, _ := fx.families.Register(ctx, registration("9876500000"))
	intruder := model.FamilyIdentity{FamilyID: b.ID}

	if _, _, err := fx.families.AddMember(ctx, intruder, a.ID, MemberInput{Name: "X"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("add: err = %v, want ErrForbidden", err)
	}
	if _, err := fx.families.RemoveMember(ctx, intruder, a.ID, "any"); !errors.Is(err, ErrForbidden) {
		t.Errorf("remove: err = %v, want ErrForbidden", err)
	}

	if _, _, err := fx.families.AddMember(ctx, admin, a.ID, MemberInput{Name: "Y"}); err != nil {
		t.Errorf("admin add: %v", err)
	}
	if _, _, err := fx.families.AddMember(ctx, admin, 9999, MemberInput{Name: "Y"}); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("missing family: err = %v, want ErrFamilyNotFound", err)
	}
}

func TestDeleteFamily(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, _ := fx.families.Register(ctx, registration("9876543210"))
	if err := fx.families.DeleteFamily(ctx, f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fx.families.GetFamily(ctx, admin, f.ID); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("get after delete: err = %v", err)
	}
	if err := fx.families.DeleteFamily(ctx, f.ID); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestListFamiliesAudience(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	active, _ := fx.families.Register(ctx, registration("9876543210"))
	hidden, _ := fx.families.Register(ctx, registration("9876500000"))
	inactive := false
	if _, err := fx.families.UpdateFamily(ctx, hidden.ID, FamilyPatch{Active: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	public, err := fx.families.ListFamilies(ctx, nil, model.FamilyFilter{})
	if err != nil {
		t.Fatalf("public list: %v", err)
	}
	if len(public) != 1 || public[0].ID != active.ID {
		t.Fatalf("public list = %+v", public)
	}
	if public[0].Phone != "987****210" {
		t.Errorf("public phone = %q, want masked", public[0].Phone)
	}
	if public[0].PasswordHash != "" {
		t.Error("public view leaked password hash")
	}

	all, err := fx.families.ListFamilies(ctx, admin, model.FamilyFilter{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin list = %d, want 2", len(all))
	}
	for _, f := range all {
		if strings.Contains(f.Phone, "*") {
			t.Errorf("admin phone %q is masked", f.Phone)
		}
	}
}

func TestGetFamilyAudience(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, _ := fx.families.Register(ctx, registration("9876543210"))

	self, err := fx.families.GetFamily(ctx, model.FamilyIdentity{FamilyID: f.ID}, f.ID)
	if err != nil {
		t.Fatalf("self get: %v", err)
	}
	if self.Phone != "9876543210" {
		t.Errorf("self phone = %q, want raw", self.Phone)
	}

	other, err := fx.families.GetFamily(ctx, model.FamilyIdentity{FamilyID: f.ID + 1}, f.ID)
	if err != nil {
		t.Fatalf("other get: %v", err)
	}
	if other.Phone != "987****210" {
		t.Errorf("other phone = %q, want masked", other.Phone)
	}

	inactive := false
	fx.families.UpdateFamily(ctx, f.ID, FamilyPatch{Active: &inactive})
	if _, err := fx.families.GetFamily(ctx, nil, f.ID); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("public get inactive: err = %v", err)
	}
	if _, err := fx.families.GetFamily(ctx, admin, f.ID); err != nil {
		t.Errorf("admin get inactive: %v", err)
	}
}

func TestUpdateFamily(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	a, _ := fx.families.Register(ctx, registration("9876543210"))
	fx.families.Register(ctx, registration("9876500000"))

	taken := "9876500000"
	if _, err := fx.families.UpdateFamily(ctx, a.ID, FamilyPatch{Phone: &taken}); !errors.Is(err, ErrDuplicatePhone) {
		t.Errorf("err = %v, want ErrDuplicatePhone", err)
	}

	a, memberID, err := fx.families.AddMember(ctx, admin, a.ID, MemberInput{Name: "Anna"})
	if err != nil {
		t.Fatalf("add member: %v", err)
	}

	village := "Kottayam"
	members := []MemberInput{
		{ID: memberID, Name: "Anna Maria"},
		{ID: "client-chosen", Name: "Mathew"},
	}
	updated, err := fx.families.UpdateFamily(ctx, a.ID, FamilyPatch{
		ProfilePatch: ProfilePatch{Village: &village},
		Members:      &members,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Village != "Kottayam" || updated.FamilyName != "Puthenpurackal" {
		t.Errorf("updated = %+v", updated)
	}
	if len(updated.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(updated.Members))
	}
	if updated.Members[0].ID != memberID || updated.Members[0].Name != "Anna Maria" {
		t.Errorf("kept member = %+v", updated.Members[0])
	}
	if updated.Members[1].ID == "client-chosen" || updated.Members[1].ID == "" {
		t.Errorf("new member id = %q, want fresh uuid", updated.Members[1].ID)
	}

	if _, err := fx.families.UpdateFamily(ctx, 9999, FamilyPatch{}); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("missing: err = %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, _ := fx.families.Register(ctx, registration("9876543210"))
	dob := model.MustDate("1980-12-01")
	updated, err := fx.families.UpdateProfile(ctx, f.ID, ProfilePatch{DateOfBirth: &dob})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if *updated.Age != 43 {
		t.Errorf("age = %d, want 43", *updated.Age)
	}
	if updated.Phone != "9876543210" {
		t.Errorf("phone changed to %q", updated.Phone)
	}
}

func TestPasswords(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, _ := fx.families.Register(ctx, registration("9876543210"))

	if err := fx.families.ChangePassword(ctx, f.ID, "wrong", "newpass1"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("err = %v, want ErrInvalidPassword", err)
	}
	if err := fx.families.ChangePassword(ctx, f.ID, "secret1", "newpass1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := fx.families.Authenticate(ctx, "9876543210", "newpass1"); err != nil {
		t.Errorf("login with new password: %v", err)
	}

	if err := fx.families.ResetPassword(ctx, f.ID, "reset123"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := fx.families.Authenticate(ctx, "9876543210", "reset123"); err != nil {
		t.Errorf("login with reset password: %v", err)
	}
	if err := fx.families.ResetPassword(ctx, 9999, "reset123"); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("reset missing: err = %v", err)
	}
}

func TestAdminAuthenticate(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	created, err := fx.admins.EnsureSuperAdmin(ctx, "Root", "Root@Example.com", "rootpass1")
	if err != nil || !created {
		t.Fatalf("ensure super admin: created=%v err=%v", created, err)
	}
	again, err := fx.admins.EnsureSuperAdmin(ctx, "Root", "root@example.com", "other")
	if err != nil || again {
		t.Fatalf("second ensure: created=%v err=%v", again, err)
	}

	a, err := fx.admins.Authenticate(ctx, "ROOT@example.com", "rootpass1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if a.Role != model.RoleSuperAdmin || len(a.Permissions) != len(model.AllPermissions) {
		t.Errorf("admin = %+v", a)
	}

	stored, err := fx.admins.GetAdmin(ctx, a.ID)
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Error("lastLoginAt not stamped")
	}

	if _, err := fx.admins.Authenticate(ctx, "root@example.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, err := fx.admins.Authenticate(ctx, "ghost@example.com", "rootpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v", err)
	}
}

func TestCreateAdminDuplicate(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	in := AdminInput{Name: "Editor", Email: "editor@example.com", Password: "editpass1", Role: model.RoleModerator}
	a, err := fx.admins.CreateAdmin(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Permissions == nil {
		t.Error("permissions should be an empty list, not nil")
	}
	if _, err := fx.admins.CreateAdmin(ctx, in); !errors.Is(err, ErrAdminExists) {
		t.Errorf("err = %v, want ErrAdminExists", err)
	}
	if _, err := fx.admins.GetAdmin(ctx, 9999); !errors.Is(err, ErrAdminNotFound) {
		t.Errorf("err = %v, want ErrAdminNotFound", err)
	}

	id := AdminIdentity(a)
	if id.AdminID != a.ID || id.Role != model.RoleModerator {
		t.Errorf("identity = %+v", id)
	}
}

func TestListFamiliesAdminWithoutFamilyPermission(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	f, _ := fx.families.Register(ctx, registration("9876543210"))

	newsEditor := model.AdminIdentity{AdminID: 2, Role: model.RoleModerator, Permissions: []model.Permission{model.PermManageNews}}
	list, err := fx.families.ListFamilies(ctx, newsEditor, model.FamilyFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Phone != "987****210" {
		t.Errorf("list = %+v, want masked phone", list)
	}

	got, err := fx.families.GetFamily(ctx, newsEditor, f.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Phone != "987****210" {
		t.Errorf("phone = %q, want masked", got.Phone)
	}

	root := model.AdminIdentity{AdminID: 3, Role: model.RoleSuperAdmin}
	if got, _ := fx.families.GetFamily(ctx, root, f.ID); got.Phone != "9876543210" {
		t.Errorf("super admin phone = %q, want raw", got.Phone)
	}
}

func TestInactiveFamilyCannotEditItself(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, _ := fx.families.Register(ctx, registration("9876543210"))
	self := model.FamilyIdentity{FamilyID: f.ID}
	f, memberID, err := fx.families.AddMember(ctx, self, f.ID, MemberInput{Name: "Anna"})
	if err != nil {
		t.Fatalf("add member: %v", err)
	}

	inactive := false
	if _, err := fx.families.UpdateFamily(ctx, f.ID, FamilyPatch{Active: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	name := "Annamma"
	village := "Pala"
	if _, _, err := fx.families.AddMember(ctx, self, f.ID, MemberInput{Name: "X"}); !errors.Is(err, ErrFamilyInactive) {
		t.Errorf("add: err = %v, want ErrFamilyInactive", err)
	}
	if _, err := fx.families.UpdateMember(ctx, self, f.ID, memberID, MemberPatch{Name: &name}); !errors.Is(err, ErrFamilyInactive) {
		t.Errorf("update: err = %v, want ErrFamilyInactive", err)
	}
	if _, err := fx.families.RemoveMember(ctx, self, f.ID, memberID); !errors.Is(err, ErrFamilyInactive) {
		t.Errorf("remove: err = %v, want ErrFamilyInactive", err)
	}
	if _, err := fx.families.UpdateProfile(ctx, f.ID, ProfilePatch{Village: &village}); !errors.Is(err, ErrFamilyInactive) {
		t.Errorf("profile: err = %v, want ErrFamilyInactive", err)
	}
	if err := fx.families.ChangePassword(ctx, f.ID, "secret1", "secret2"); !errors.Is(err, ErrFamilyInactive) {
		t.Errorf("password: err = %v, want ErrFamilyInactive", err)
	}

	if _, err := fx.families.UpdateMember(ctx, admin, f.ID, memberID, MemberPatch{Name: &name}); err != nil {
		t.Errorf("admin update on inactive family: %v", err)
	}
}
