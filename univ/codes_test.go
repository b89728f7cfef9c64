package univ

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zalepa/unidash/sheet"
)

func TestBuildCodeTable(t *testing.T) {
	raw := sheet.New(
		[]string{"대학코드", ColSourceInstitution, "설립", ColCompetitor, ColHome},
		[][]string{
			{"1", "강릉원주 대학교", "국립", "경쟁대학", ""},
			{"2", "OO대학교", "사립", "", "본교"},
			{"3", "OO대학교_제2캠퍼스", "사립", "경쟁대학", ""},
			{"4", "", "사립", "경쟁대학", ""},
		},
	)
	ct, err := BuildCodeTable(raw, Default())
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"국립강릉원주대학교", "OO대학교"}, ct.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if ct.Len() != 2 {
		t.Errorf("Len = %d, want 2", ct.Len())
	}

	c, ok := ct.Lookup("OO대학교")
	if !ok {
		t.Fatal("OO대학교 not found")
	}
	want := Classification{Institution: "OO대학교", Competitor: "경쟁대학", Home: "본교"}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("merged classification mismatch (-want +got):\n%s", diff)
	}
	if got := Assign(c); !cmp.Equal(got, []Category{Competitor, Home}) {
		t.Errorf("Assign = %v", got)
	}

	if _, ok := ct.Lookup("강릉원주대학교"); ok {
		t.Error("lookup by raw name should miss; keys are normalized")
	}
}

func TestBuildCodeTableInstitutionColumnAlreadyCanonical(t *testing.T) {
	raw := sheet.New([]string{ColInstitution}, [][]string{{"안동대학교"}})
	ct, err := BuildCodeTable(raw, Default())
	if err != nil {
		t.Fatal(err)
	}
	c, ok := ct.Lookup("국립경국대학교")
	if !ok {
		t.Fatal("국립경국대학교 not found")
	}
	if got := Assign(c); !cmp.Equal(got, []Category{Uncategorized}) {
		t.Errorf("Assign with no signal columns = %v", got)
	}
}

func TestBuildCodeTableMissingInstitution(t *testing.T) {
	raw := sheet.New([]string{"이름", ColCompetitor}, nil)
	if _, err := BuildCodeTable(raw, Default()); !errors.Is(err, ErrNoInstitutionColumn) {
		t.Errorf("err = %v, want ErrNoInstitutionColumn", err)
	}
}

func TestCodeTableLoaderCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "대학코드.xlsx")
	raw := sheet.New(
		[]string{ColSourceInstitution, ColCompetitor},
		[][]string{{"가대학교", "경쟁대학"}},
	)
	if err := sheet.WriteXLSX(raw, path); err != nil {
		t.Fatal(err)
	}

	cache := sheet.NewCache[*CodeTable]()
	loader := NewCodeTableLoader(Default(), cache)
	first, err := loader.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := loader.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second Load did not return the cached table")
	}
	if cache.Misses() != 1 || cache.Hits() != 1 {
		t.Errorf("misses=%d hits=%d, want 1 and 1", cache.Misses(), cache.Hits())
	}

	if _, err := loader.Load(filepath.Join(t.TempDir(), "missing.xlsx")); err == nil {
		t.Error("expected error for missing workbook")
	}
}

// Two rows of one institution, one under a campus suffix, with no
// classification: both resolve to the same key, neither reaches the
// category aggregation.
func TestCampusVariantsWithoutClassification(t *testing.T) {
	n := Default()
	metric := sheet.New(
		[]string{ColPeriod, ColInstitution, "재학률"},
		[][]string{
			{"2023", "OO대학교_제2캠퍼스", "10"},
			{"2023", "OO대학교", "20"},
		},
	).MapColumn(ColInstitution, n.Normalize)

	records := Records(metric, "재학률")
	if records[0].Institution != records[1].Institution {
		t.Fatalf("keys differ: %q vs %q", records[0].Institution, records[1].Institution)
	}

	ct := codeTable(t, Classification{Institution: "다른대학교", Competitor: "경쟁대학"})
	exploded := Explode(Join(records, ct))
	if len(exploded) != 2 {
		t.Fatalf("exploded len = %d, want 2", len(exploded))
	}
	for _, r := range exploded {
		if r.Category != Uncategorized {
			t.Errorf("row %+v should be uncategorized", r)
		}
	}
	if means := MeanByPeriod(Categorized(exploded)); len(means) != 0 {
		t.Errorf("means = %v, want none", means)
	}
}
