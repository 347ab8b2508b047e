package guard

import (
	"reflect"
	"testing"
)

func TestIsForbiddenMatchesMutatingStatements(t *testing.T) {
	cases := []struct {
		name string
		sql  string
		want bool
	}{
		{"plain select", "SELECT id FROM users", false},
		{"with cte", "WITH t AS (SELECT 1) SELECT * FROM t", false},
		{"insert", "INSERT INTO users VALUES (1)", true},
		{"lowercase delete", "delete from users where id = 1", true},
		{"mixed case drop", "DrOp TABLE users", true},
		{"truncate", "TRUNCATE users", true},
		{"alter", "ALTER TABLE users ADD COLUMN x INT", true},
		{"replace", "REPLACE INTO users VALUES (1)", true},
		{"merge", "MERGE INTO target USING source ON 1=1", true},
		{"keyword inside string literal still blocks", "SELECT 'please DELETE me' FROM notes", true},
		{"keyword inside comment still blocks", "SELECT 1 -- drop table users", true},
		{"substring is not a whole word", "SELECT updated_at FROM users", false},
		{"column named deleted_at", "SELECT deleted_at FROM users", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsForbidden(tc.sql); got != tc.want {
				t.Fatalf("IsForbidden(%q) = %v, want %v", tc.sql, got, tc.want)
			}
		})
	}
}

func TestForbiddenKeywordNamesTheMatch(t *testing.T) {
	keyword, ok := ForbiddenKeyword("select 1; drop table users")
	if !ok {
		t.Fatal("ForbiddenKeyword() ok = false")
	}
	if keyword != "DROP" {
		t.Fatalf("keyword = %q, want DROP", keyword)
	}

	if _, ok := ForbiddenKeyword("SELECT 1"); ok {
		t.Fatal("ForbiddenKeyword() matched a clean query")
	}
}

func TestExtractTableNames(t *testing.T) {
	cases := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "from and join",
			sql:  "SELECT * FROM Sales s JOIN Products p ON s.product_id = p.id",
			want: []string{"products", "sales"},
		},
		{
			name: "schema qualifier stripped",
			sql:  "SELECT * FROM analytics.public.orders",
			want: []string{"orders"},
		},
		{
			name: "quoted identifiers",
			sql:  "SELECT * FROM `Sales` JOIN \"Products\" ON 1=1",
			want: []string{"products", "sales"},
		},
		{
			name: "newlines normalized",
			sql:  "SELECT *\nFROM\nsales\nJOIN products ON 1=1",
			want: []string{"products", "sales"},
		},
		{
			name: "duplicates collapse",
			sql:  "SELECT * FROM sales UNION SELECT * FROM sales",
			want: []string{"sales"},
		},
		{
			name: "left join variants",
			sql:  "SELECT * FROM orders o LEFT JOIN customers c ON o.cid = c.id",
			want: []string{"customers", "orders"},
		},
		{
			name: "no tables",
			sql:  "SELECT 1",
			want: []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractTableNames(tc.sql)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractTableNames(%q) = %v, want %v", tc.sql, got, tc.want)
			}
		})
	}
}
