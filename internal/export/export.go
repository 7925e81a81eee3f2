// Package export renders the family register as an Excel workbook with one
// sheet of families and one sheet of members.
package export

import (
	"fmt"
	"strconv"

	"github.com/parishhub/parish/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	FamiliesSheet = "Families"
	MembersSheet  = "Members"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type column struct {
	header string
	width  float64
}

var familyColumns = []column{
	{"ID", 8},
	{"Register No", 14},
	{"Family Name", 24},
	{"Head of Family", 24},
	{"Date of Birth", 14},
	{"Age", 6},
	{"Blood Group", 10},
	{"Occupation", 18},
	{"Parish Unit", 18},
	{"Kara", 14},
	{"Village", 16},
	{"Post Office", 16},
	{"Pincode", 10},
	{"Panchayat", 16},
	{"District", 16},
	{"Address", 36},
	{"Phone", 16},
	{"WhatsApp", 16},
	{"Email", 28},
	{"Members", 9},
	{"Active", 8},
}

var memberColumns = []column{
	{"Family ID", 10},
	{"Family Name", 24},
	{"Name", 24},
	{"Gender", 9},
	{"Relationship", 14},
	{"Date of Birth", 14},
	{"Age", 6},
	{"Blood Group", 10},
	{"Education", 18},
	{"Occupation", 18},
	{"Mobile", 16},
	{"Email", 28},
	{"Baptism Date", 14},
	{"Marriage Date", 14},
}

// Families renders families and their members as an xlsx workbook.
func Families(families []model.FamilyUnit) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for _, sheet := range []string{FamiliesSheet, MembersSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(FamiliesSheet); err == nil {
		f.SetActiveSheet(index)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeHeader(f, FamiliesSheet, familyColumns, headerStyle); err != nil {
		return nil, err
	}
	if err := writeHeader(f, MembersSheet, memberColumns, headerStyle); err != nil {
		return nil, err
	}

	familyRow, memberRow := 2, 2
	for _, fam := range families {
		if err := writeRow(f, FamiliesSheet, familyRow, familyValues(fam)); err != nil {
			return nil, err
		}
		familyRow++
		for _, m := range fam.Members {
			if err := writeRow(f, MembersSheet, memberRow, memberValues(fam, m)); err != nil {
				return nil, err
			}
			memberRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, cols []column, style int) error {
	for i, c := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, c.header); err != nil {
			return fmt.Errorf("set header %s!%s: %w", sheet, cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("style header %s!%s: %w", sheet, cell, err)
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, c.width); err != nil {
			return fmt.Errorf("set width %s!%s: %w", sheet, name, err)
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func familyValues(f model.FamilyUnit) []any {
	return []any{
		f.ID,
		f.RegisterNo,
		f.FamilyName,
		f.HeadOfFamily,
		dateCell(f.DateOfBirth),
		intCell(f.Age),
		f.BloodGroup,
		f.Occupation,
		f.ParishUnit,
		f.Kara,
		f.Village,
		f.PostOffice,
		f.Pincode,
		f.Panchayat,
		f.District,
		f.Address,
		f.Phone,
		f.WhatsApp,
		f.Email,
		len(f.Members),
		yesNo(f.Active),
	}
}

func memberValues(f model.FamilyUnit, m model.Member) []any {
	return []any{
		f.ID,
		f.FamilyName,
		m.Name,
		string(m.Gender),
		m.Relationship,
		dateCell(m.DateOfBirth),
		intCell(m.Age),
		m.BloodGroup,
		m.Education,
		m.Occupation,
		m.Mobile,
		m.Email,
		dateCell(m.BaptismDate),
		dateCell(m.MarriageDate),
	}
}

func dateCell(d *model.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func intCell(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
