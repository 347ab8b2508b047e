package policy

import (
	"errors"
	"testing"
)

func TestCheckDeniesTableOutsideAllowlist(t *testing.T) {
	p := Default()

	err := p.Check("SELECT * FROM sales", "hr")
	if err == nil {
		t.Fatal("Check() allowed hr on sales")
	}
	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("error = %v, want DeniedError", err)
	}
	if denied.Role != "hr" || denied.Table != "sales" {
		t.Fatalf("denied = %+v", denied)
	}
}

func TestCheckWildcardAllowsEverything(t *testing.T) {
	p := Default()
	if err := p.Check("SELECT * FROM sales JOIN employees ON 1=1", "admin"); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
}

func TestCheckUnknownRoleIsDistinctFromDeny(t *testing.T) {
	p := Default()
	err := p.Check("SELECT * FROM products", "intern")
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("error = %v, want ErrUnknownRole", err)
	}
}

func TestCheckEmptyRoleAllows(t *testing.T) {
	p := Default()
	if err := p.Check("SELECT * FROM sales", ""); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
}

func TestCheckAllowsWhenAllTablesListed(t *testing.T) {
	p := Default()
	if err := p.Check("SELECT * FROM Sales s JOIN Products p ON s.pid = p.id", "analyst"); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
}

func TestCheckIsCaseInsensitiveOnTables(t *testing.T) {
	p := New(map[string][]string{"guest": {"Products"}})
	if err := p.Check("SELECT * FROM PRODUCTS", "guest"); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("analyst:sales|products, admin:*")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := p.Check("SELECT * FROM sales", "analyst"); err != nil {
		t.Fatalf("analyst on sales: %v", err)
	}
	if err := p.Check("SELECT * FROM secrets", "admin"); err != nil {
		t.Fatalf("admin wildcard: %v", err)
	}
	if err := p.Check("SELECT * FROM secrets", "analyst"); err == nil {
		t.Fatal("analyst on secrets allowed")
	}
}

func TestParseRejectsMalformedEntries(t *testing.T) {
	for _, spec := range []string{"analyst", ":sales", "analyst:sales,bad"} {
		if _, err := Parse(spec); err == nil {
			t.Fatalf("Parse(%q) error = nil", spec)
		}
	}
}

func TestRoles(t *testing.T) {
	roles := Default().Roles()
	want := []string{"admin", "analyst", "guest", "hr"}
	if len(roles) != len(want) {
		t.Fatalf("Roles() = %v", roles)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("Roles() = %v, want %v", roles, want)
		}
	}
}
