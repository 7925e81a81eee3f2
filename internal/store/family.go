package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parishhub/parish/internal/database"
	"github.com/parishhub/parish/internal/family"
	"github.com/parishhub/parish/internal/model"
)

const familyColumns = `id, register_no, family_name, head_of_family, date_of_birth, age,
	blood_group, national_id, occupation, education,
	parish_unit, kara, village, post_office, pincode, panchayat, district, address,
	phone, whatsapp, email, password_hash, active, created_at, updated_at`

const memberColumns = `id, family_id, name, gender, date_of_birth, age, relationship,
	education, occupation, blood_group, mobile, email, baptism_date, marriage_date`

// FamilyStore persists family aggregates. A family row and its member rows are
// always written together inside one transaction.
type FamilyStore struct {
	db  *database.DB
	now func() time.Time
}

type FamilyStoreOption func(*FamilyStore)

// WithClock overrides the clock used for age derivation.
func WithClock(now func() time.Time) FamilyStoreOption {
	return func(s *FamilyStore) {
		s.now = now
	}
}

func NewFamilyStore(db *database.DB, opts ...FamilyStoreOption) *FamilyStore {
	s := &FamilyStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func scanFamily(sc scanner) (*model.FamilyUnit, error) {
	var (
		f          model.FamilyUnit
		registerNo sql.NullString
		dob        sql.NullString
		age        sql.NullInt64
	)
	err := sc.Scan(
		&f.ID, &registerNo, &f.FamilyName, &f.HeadOfFamily, &dob, &age,
		&f.BloodGroup, &f.NationalID, &f.Occupation, &f.Education,
		&f.ParishUnit, &f.Kara, &f.Village, &f.PostOffice, &f.Pincode, &f.Panchayat, &f.District, &f.Address,
		&f.Phone, &f.WhatsApp, &f.Email, &f.PasswordHash, &f.Active, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.RegisterNo = registerNo.String
	f.Age = nullInt(age)
	if f.DateOfBirth, err = parseNullDate(dob); err != nil {
		return nil, err
	}
	f.Members = []model.Member{}
	return &f, nil
}

func scanMember(sc scanner) (model.Member, int64, error) {
	var (
		m                      model.Member
		familyID               int64
		gender                 string
		dob, baptism, marriage sql.NullString
		age                    sql.NullInt64
	)
	err := sc.Scan(
		&m.ID, &familyID, &m.Name, &gender, &dob, &age, &m.Relationship,
		&m.Education, &m.Occupation, &m.BloodGroup, &m.Mobile, &m.Email, &baptism, &marriage,
	)
	if err != nil {
		return m, 0, err
	}
	m.Gender = model.Gender(gender)
	m.Age = nullInt(age)
	if m.DateOfBirth, err = parseNullDate(dob); err != nil {
		return m, 0, err
	}
	if m.BaptismDate, err = parseNullDate(baptism); err != nil {
		return m, 0, err
	}
	if m.MarriageDate, err = parseNullDate(marriage); err != nil {
		return m, 0, err
	}
	return m, familyID, nil
}

// Create inserts f with its members and returns the stored aggregate. Ages are
// derived from birth dates before writing; members without an id get one.
func (s *FamilyStore) Create(ctx context.Context, f *model.FamilyUnit) (*model.FamilyUnit, error) {
	family.RecomputeAges(f, s.now())

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id, err := tx.InsertID(ctx, `INSERT INTO families (
		register_no, family_name, head_of_family, date_of_birth, age,
		blood_group, national_id, occupation, education,
		parish_unit, kara, village, post_office, pincode, panchayat, district, address,
		phone, whatsapp, email, password_hash, active
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(f.RegisterNo), f.FamilyName, f.HeadOfFamily, dateArg(f.DateOfBirth), intArg(f.Age),
		f.BloodGroup, f.NationalID, f.Occupation, f.Education,
		f.ParishUnit, f.Kara, f.Village, f.PostOffice, f.Pincode, f.Panchayat, f.District, f.Address,
		f.Phone, f.WhatsApp, f.Email, f.PasswordHash, f.Active,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", mapFamilyConstraint(err))
	}

	if err := insertMembers(ctx, tx, id, f.Members); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit family: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Save overwrites the stored family f.ID, replacing its member list. The
// password hash is not touched; see UpdatePassword.
func (s *FamilyStore) Save(ctx context.Context, f *model.FamilyUnit) (*model.FamilyUnit, error) {
	family.RecomputeAges(f, s.now())

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE families SET
		register_no = ?, family_name = ?, head_of_family = ?, date_of_birth = ?, age = ?,
		blood_group = ?, national_id = ?, occupation = ?, education = ?,
		parish_unit = ?, kara = ?, village = ?, post_office = ?, pincode = ?, panchayat = ?, district = ?, address = ?,
		phone = ?, whatsapp = ?, email = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		nullString(f.RegisterNo), f.FamilyName, f.HeadOfFamily, dateArg(f.DateOfBirth), intArg(f.Age),
		f.BloodGroup, f.NationalID, f.Occupation, f.Education,
		f.ParishUnit, f.Kara, f.Village, f.PostOffice, f.Pincode, f.Panchayat, f.District, f.Address,
		f.Phone, f.WhatsApp, f.Email, f.Active,
		f.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update family: %w", mapFamilyConstraint(err))
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM family_members WHERE family_id = ?", f.ID); err != nil {
		return nil, fmt.Errorf("clear members: %w", err)
	}
	if err := insertMembers(ctx, tx, f.ID, f.Members); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit family: %w", err)
	}

	return s.GetByID(ctx, f.ID)
}

func insertMembers(ctx context.Context, q querier, familyID int64, members []model.Member) error {
	for i := range members {
		m := &members[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		_, err := q.ExecContext(ctx, `INSERT INTO family_members (
			id, family_id, position, name, gender, date_of_birth, age, relationship,
			education, occupation, blood_group, mobile, email, baptism_date, marriage_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, familyID, i, m.Name, string(m.Gender), dateArg(m.DateOfBirth), intArg(m.Age), m.Relationship,
			m.Education, m.Occupation, m.BloodGroup, m.Mobile, m.Email, dateArg(m.BaptismDate), dateArg(m.MarriageDate),
		)
		if err != nil {
			return fmt.Errorf("insert member %s: %w", m.ID, err)
		}
	}
	return nil
}

func (s *FamilyStore) GetByID(ctx context.Context, id int64) (*model.FamilyUnit, error) {
	return s.getOne(ctx, "id = ?", id)
}

func (s *FamilyStore) GetByPhone(ctx context.Context, phone string) (*model.FamilyUnit, error) {
	return s.getOne(ctx, "phone = ?", phone)
}

func (s *FamilyStore) getOne(ctx context.Context, where string, arg any) (*model.FamilyUnit, error) {
	f, err := scanFamily(s.db.QueryRowContext(ctx, "SELECT "+familyColumns+" FROM families WHERE "+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query family: %w", err)
	}

	members, err := s.membersFor(ctx, []int64{f.ID})
	if err != nil {
		return nil, err
	}
	if ms, ok := members[f.ID]; ok {
		f.Members = ms
	}
	return f, nil
}

// List returns families matching filter ordered by family name, each with its
// members loaded.
func (s *FamilyStore) List(ctx context.Context, filter model.FamilyFilter) ([]model.FamilyUnit, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ParishUnit != "" {
		conds = append(conds, "parish_unit = ?")
		args = append(args, filter.ParishUnit)
	}
	if filter.ActiveOnly {
		conds = append(conds, "active = ?")
		args = append(args, true)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		conds = append(conds, `(LOWER(family_name) LIKE ? OR LOWER(head_of_family) LIKE ?
			OR phone LIKE ? OR LOWER(COALESCE(register_no, '')) LIKE ?)`)
		args = append(args, like, like, like, like)
	}

	query := "SELECT " + familyColumns + " FROM families"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY family_name, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query families: %w", err)
	}
	var families []model.FamilyUnit
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(families) == 0 {
		return []model.FamilyUnit{}, nil
	}

	ids := make([]int64, len(families))
	for i := range families {
		ids[i] = families[i].ID
	}
	members, err := s.membersFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range families {
		if ms, ok := members[families[i].ID]; ok {
			families[i].Members = ms
		}
	}
	return families, nil
}

func (s *FamilyStore) membersFor(ctx context.Context, familyIDs []int64) (map[int64][]model.Member, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(familyIDs)), ", ")
	args := make([]any, len(familyIDs))
	for i, id := range familyIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM family_members WHERE family_id IN ("+placeholders+") ORDER BY family_id, position",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]model.Member, len(familyIDs))
	for rows.Next() {
		m, familyID, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out[familyID] = append(out[familyID], m)
	}
	return out, rows.Err()
}

// Delete removes the family and all of its members in one transaction. It
// reports whether a family was removed.
func (s *FamilyStore) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM family_members WHERE family_id = ?", id); err != nil {
		return false, fmt.Errorf("delete members: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM families WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete family: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return n > 0, nil
}

// ExistsByPhone reports whether a family other than excludeID uses phone.
func (s *FamilyStore) ExistsByPhone(ctx context.Context, phone string, excludeID int64) (bool, error) {
	return s.exists(ctx, "phone", phone, excludeID)
}

// ExistsByRegisterNo reports whether a family other than excludeID uses registerNo.
func (s *FamilyStore) ExistsByRegisterNo(ctx context.Context, registerNo string, excludeID int64) (bool, error) {
	if registerNo == "" {
		return false, nil
	}
	return s.exists(ctx, "register_no", registerNo, excludeID)
}

func (s *FamilyStore) exists(ctx context.Context, column, value string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM families WHERE "+column+" = ? AND id != ?",
		value, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check %s exists: %w", column, err)
	}
	return count > 0, nil
}

func (s *FamilyStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE families SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		hash, id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapFamilyConstraint(err error) error {
	switch {
	case database.IsUniqueViolation(err, "phone"):
		return ErrDuplicatePhone
	case database.IsUniqueViolation(err, "register_no"):
		return ErrDuplicateRegisterNo
	default:
		return err
	}
}
