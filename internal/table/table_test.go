package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

func TestLoadCSVInfersTypes(t *testing.T) {
	p := writeFile(t, "staff.csv", "Person,Dept,Salary,Rating,Remote\n"+
		"Ana,Sales,85000,4.5,True\n"+
		"Beto,Eng,92000,,False\n"+
		"Caro,Eng,78000,3.9,True\n")
	tbl, note, err := Load(p)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if note != "CSV file loaded successfully." {
		t.Fatalf("unexpected note %q", note)
	}
	if tbl.NumRows() != 3 || tbl.NumCols() != 5 {
		t.Fatalf("unexpected shape %dx%d", tbl.NumRows(), tbl.NumCols())
	}
	want := map[string]string{"Person": Object, "Dept": Object, "Salary": Int64, "Rating": Float64, "Remote": Bool}
	for name, dtype := range want {
		c, ok := tbl.Column(name)
		if !ok {
			t.Fatalf("missing column %q", name)
		}
		if c.DType() != dtype {
			t.Fatalf("column %q dtype = %s, want %s", name, c.DType(), dtype)
		}
	}
	rating, _ := tbl.Column("Rating")
	if rating.Value(1) != nil {
		t.Fatalf("expected missing rating, got %v", rating.Value(1))
	}
	salary, _ := tbl.Column("Salary")
	if salary.Value(0) != int64(85000) {
		t.Fatalf("expected int64 salary, got %T %v", salary.Value(0), salary.Value(0))
	}
}

func TestLoadExtensionIsCaseInsensitive(t *testing.T) {
	p := writeFile(t, "DATA.CSV", "a,b\n1,2\n")
	if _, _, err := Load(p); err != nil {
		t.Fatalf("upper-case extension should load: %v", err)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	for _, name := range []string{"notes.txt", "data.json", "macro.xlsm", "noext"} {
		p := writeFile(t, name, "a,b\n1,2\n")
		tbl, note, err := Load(p)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if tbl != nil || note != "" {
			t.Fatalf("%s: expected no table on failure", name)
		}
		if !errors.Is(err, ErrUnsupported) || !strings.Contains(err.Error(), "unsupported file type") {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}
}

func TestLoadCSVStripsBOMAndDedupesHeader(t *testing.T) {
	p := writeFile(t, "bom.csv", "\xEF\xBB\xBFname,name,\nx,y,z\n")
	tbl, _, err := Load(p)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	got := strings.Join(tbl.Columns(), "|")
	if got != "name|name.1|Unnamed: 2" {
		t.Fatalf("unexpected columns %q", got)
	}
}

func TestLoadEmptyCSV(t *testing.T) {
	p := writeFile(t, "empty.csv", "")
	if _, _, err := Load(p); err == nil || !strings.Contains(err.Error(), "no columns") {
		t.Fatalf("expected no-columns error, got %v", err)
	}
}

func TestLoadHeaderOnlyCSV(t *testing.T) {
	p := writeFile(t, "header.csv", "a,b\n")
	tbl, _, err := Load(p)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if tbl.NumRows() != 0 || tbl.NumCols() != 2 {
		t.Fatalf("unexpected shape %dx%d", tbl.NumRows(), tbl.NumCols())
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	cells := map[string]any{
		"A1": "Person", "B1": "Dept", "C1": "Age",
		"A2": "Ana", "B2": "Sales", "C2": 31,
		"A3": "Beto", "B3": "Eng", "C3": 45,
	}
	for cell, v := range cells {
		if err := f.SetCellValue("Sheet1", cell, v); err != nil {
			t.Fatalf("set cell: %v", err)
		}
	}
	dir := t.TempDir()
	saved := filepath.Join(dir, "staff.xlsx")
	if err := f.SaveAs(saved); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	_ = f.Close()
	p := filepath.Join(dir, "STAFF.XLSX")
	if err := os.Rename(saved, p); err != nil {
		t.Fatalf("rename: %v", err)
	}

	tbl, note, err := Load(p)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if note != "Excel file loaded successfully." {
		t.Fatalf("unexpected note %q", note)
	}
	if strings.Join(tbl.Columns(), ",") != "Person,Dept,Age" {
		t.Fatalf("unexpected columns %v", tbl.Columns())
	}
	age, _ := tbl.Column("Age")
	if age.DType() != Int64 || age.Value(1) != int64(45) {
		t.Fatalf("unexpected age column %s %v", age.DType(), age.Values())
	}
}

func TestLoadXLSXMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "x")
	p := filepath.Join(t.TempDir(), "one.xlsx")
	if err := f.SaveAs(p); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	_ = f.Close()
	opt := DefaultOptions()
	opt.Sheet = "Nope"
	if _, _, err := LoadWith(p, opt); err == nil || !strings.Contains(err.Error(), "Nope") {
		t.Fatalf("expected missing sheet error, got %v", err)
	}
}

func TestLoadXLS(t *testing.T) {
	// staff.xls is a BIFF8 workbook whose shared strings are stored
	// compressed, i.e. as Windows-1252 bytes.
	tbl, note, err := Load(filepath.Join("testdata", "staff.xls"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if note != "Excel file loaded successfully." {
		t.Fatalf("unexpected note %q", note)
	}
	if strings.Join(tbl.Columns(), ",") != "Person,City,Age" || tbl.NumRows() != 3 {
		t.Fatalf("unexpected shape %v rows=%d", tbl.Columns(), tbl.NumRows())
	}
	city, _ := tbl.Column("City")
	if city.Value(0) != "Zürich" || city.Value(2) != "Málaga" {
		t.Fatalf("code page strings not decoded: %v", city.Values())
	}
	person, _ := tbl.Column("Person")
	if person.Value(1) != "José" {
		t.Fatalf("unexpected person %v", person.Values())
	}
	age, _ := tbl.Column("Age")
	if age.DType() != Int64 || age.Value(1) != int64(41) {
		t.Fatalf("unexpected age column %s %v", age.DType(), age.Values())
	}

	opt := DefaultOptions()
	opt.Sheet = "Staff"
	if _, _, err := LoadWith(filepath.Join("testdata", "staff.xls"), opt); err != nil {
		t.Fatalf("select sheet by name: %v", err)
	}
	opt.Sheet = "Nope"
	if _, _, err := LoadWith(filepath.Join("testdata", "staff.xls"), opt); err == nil || !strings.Contains(err.Error(), "Staff") {
		t.Fatalf("expected missing sheet error listing Staff, got %v", err)
	}
}

func TestLoadXLSRejectsNonWorkbook(t *testing.T) {
	p := writeFile(t, "fake.xls", "Person,Age\nAna,30\n")
	if _, _, err := Load(p); err == nil {
		t.Fatalf("expected error for a CSV renamed to .xls")
	}
}

func TestToUTF8(t *testing.T) {
	cases := map[string]string{
		"plain":          "plain",
		"already ü":      "already ü",
		"Z\xfcrich":      "Zürich",
		"caf\xe9 \x80 5": "café € 5",
	}
	for in, want := range cases {
		if got := toUTF8(in); got != want {
			t.Errorf("toUTF8(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInferColumn(t *testing.T) {
	tests := []struct {
		name  string
		raw   []string
		opt   Options
		dtype string
	}{
		{"ints", []string{"1", "2", "-3"}, DefaultOptions(), Int64},
		{"ints with gap widen", []string{"1", "", "3"}, DefaultOptions(), Float64},
		{"floats", []string{"1.5", "2", "1e3"}, DefaultOptions(), Float64},
		{"all missing", []string{"", "NaN"}, DefaultOptions(), Float64},
		{"bools", []string{"True", "false"}, DefaultOptions(), Bool},
		{"mixed", []string{"1", "x"}, DefaultOptions(), Object},
		{"comma decimal", []string{"1,5", "2,25"}, Options{Decimal: ','}, Float64},
		{"thousands", []string{"1.000", "12.500"}, Options{Decimal: ',', Thousands: '.'}, Int64},
		{"inf stays text", []string{"inf", "1"}, DefaultOptions(), Object},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := inferColumn(tt.raw, tt.opt)
			if got != tt.dtype {
				t.Fatalf("inferColumn(%v) = %s, want %s", tt.raw, got, tt.dtype)
			}
		})
	}
}

func TestFromColumns(t *testing.T) {
	tbl, err := FromColumns([]string{"n", "x"}, [][]any{{1, 2}, {1, 2.5}})
	if err != nil {
		t.Fatalf("FromColumns error: %v", err)
	}
	n, _ := tbl.Column("n")
	x, _ := tbl.Column("x")
	if n.DType() != Int64 || x.DType() != Float64 || x.Value(0) != float64(1) {
		t.Fatalf("unexpected dtypes %s %s", n.DType(), x.DType())
	}
	if _, err := FromColumns([]string{"a", "a"}, [][]any{{1}, {2}}); err == nil {
		t.Fatalf("expected duplicate column error")
	}
	if _, err := FromColumns([]string{"a", "b"}, [][]any{{1}, {2, 3}}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestValuesReturnsCopy(t *testing.T) {
	tbl, _ := FromColumns([]string{"a"}, [][]any{{"x", "y"}})
	c, _ := tbl.Column("a")
	vals := c.Values()
	vals[0] = "mutated"
	if c.Value(0) != "x" {
		t.Fatalf("column mutated through Values copy")
	}
}
