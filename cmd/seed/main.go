package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"go-groupware/internal/config"

	_ "github.com/lib/pq"
)

// Seeds a demo org chart and the default approval route templates.
// Safe to run repeatedly; every insert is ON CONFLICT DO NOTHING.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	fmt.Println("🌱 Starting Demo Data Seeding...")

	if err := applySchema(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	seedPositions(ctx, db)
	seedDepartments(ctx, db)
	seedUsers(ctx, db)
	seedTemplates(ctx, db)

	fmt.Println("✅ Demo Data Seeding Complete!")
}

func applySchema(ctx context.Context, db *sql.DB) error {
	ddl, err := os.ReadFile("migrations/schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	fmt.Println("Applied migrations/schema.sql")
	return nil
}

func seedPositions(ctx context.Context, db *sql.DB) {
	positions := []struct {
		code string
		name string
		rank int
	}{
		{"ceo", "Chief Executive Officer", 1},
		{"deptHead", "Department Head", 2},
		{"teamLead", "Team Lead", 3},
		{"partLead", "Part Lead", 4},
		{"senior", "Senior", 5},
		{"staff", "Staff", 6},
	}

	for _, p := range positions {
		_, err := db.ExecContext(ctx,
			`INSERT INTO positions (code, name, rank) VALUES ($1, $2, $3)
			 ON CONFLICT (code) DO NOTHING`,
			p.code, p.name, p.rank)
		if err != nil {
			log.Printf("Failed to create position %s: %v", p.code, err)
		} else {
			fmt.Printf("Created Position: %s\n", p.code)
		}
	}
}

func seedDepartments(ctx context.Context, db *sql.DB) {
	departments := []struct {
		code string
		name string
	}{
		{"ENG", "Engineering"},
		{"SALES", "Sales"},
		{"HR", "People Team"},
	}

	for _, d := range departments {
		_, err := db.ExecContext(ctx,
			`INSERT INTO departments (code, name) VALUES ($1, $2)
			 ON CONFLICT (code) DO NOTHING`,
			d.code, d.name)
		if err != nil {
			log.Printf("Failed to create department %s: %v", d.code, err)
		} else {
			fmt.Printf("Created Department: %s\n", d.name)
		}
	}
}

func seedUsers(ctx context.Context, db *sql.DB) {
	users := []struct {
		id       string
		name     string
		dept     string
		team     string
		position string
		hired    string
	}{
		{"u-ceo", "Grace Park", "ENG", "", "ceo", "2015-03-02"},
		{"u-eng-head", "Minho Seo", "ENG", "", "deptHead", "2016-07-11"},
		{"u-eng-tl-platform", "Jiwoo Han", "ENG", "platform", "teamLead", "2018-01-15"},
		{"u-eng-pl-platform", "Dana Choi", "ENG", "platform", "partLead", "2019-05-20"},
		{"u-eng-dev-1", "Hyun Lee", "ENG", "platform", "staff", "2021-09-01"},
		{"u-eng-dev-2", "Sora Kim", "ENG", "platform", "staff", "2022-02-14"},
		{"u-sales-head", "Tom Ahn", "SALES", "", "deptHead", "2017-04-03"},
		{"u-sales-tl", "Yuna Jang", "SALES", "field", "teamLead", "2019-11-25"},
		{"u-sales-rep", "Eric Moon", "SALES", "field", "staff", "2023-06-12"},
		{"u-hr-head", "Mira Oh", "HR", "", "deptHead", "2018-08-08"},
	}

	for _, u := range users {
		var team any
		if u.team != "" {
			team = u.team
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO users (id, name, department_code, team_code, position_code, status, hired_at)
			 VALUES ($1, $2, $3, $4, $5, 'ACTIVE', $6)
			 ON CONFLICT (id) DO NOTHING`,
			u.id, u.name, u.dept, team, u.position, u.hired)
		if err != nil {
			log.Printf("Failed to create user %s: %v", u.id, err)
		} else {
			fmt.Printf("Created User: %s (%s)\n", u.name, u.id)
		}
	}
}

func seedTemplates(ctx context.Context, db *sql.DB) {
	type tmpl struct {
		docType   string
		dept      string
		team      string
		route     string
		step      int
		role      string
		condition string
		proxyType string
		proxyRole string
		required  bool
	}

	templates := []tmpl{
		// ENG basic route: part lead is skipped for leads themselves via condition.
		{"VACATION", "ENG", "platform", "basic", 1, "partLead", "role != partLead", "SKIP", "", false},
		{"VACATION", "ENG", "platform", "basic", 2, "teamLead", "", "NONE", "", true},
		{"VACATION", "ENG", "platform", "basic", 3, "deptHead", "", "NONE", "", true},
		// ENG long route adds the CEO for extended leave.
		{"VACATION", "ENG", "platform", "long", 1, "teamLead", "", "NONE", "", true},
		{"VACATION", "ENG", "platform", "long", 2, "deptHead", "", "NONE", "", true},
		{"VACATION", "ENG", "platform", "long", 3, "ceo", "", "NONE", "", true},
		// SALES basic route: team lead step is proxied by the dept head when missing.
		{"VACATION", "SALES", "field", "basic", 1, "teamLead", "role IN (staff, senior)", "PROXY", "deptHead", true},
		{"VACATION", "SALES", "field", "basic", 2, "deptHead", "", "NONE", "", true},
		// HR has no teams; a single dept head sign-off.
		{"VACATION", "HR", "", "basic", 1, "deptHead", "", "NONE", "", true},
	}

	for _, t := range templates {
		var team any
		if t.team != "" {
			team = t.team
		}
		var cond any
		if t.condition != "" {
			cond = t.condition
		}
		var proxyRole any
		if t.proxyRole != "" {
			proxyRole = t.proxyRole
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO approval_line_templates
			 (document_type, department_code, team_code, route_name, step, role_code, condition_expression, proxy_type, proxy_role, is_required)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (document_type, department_code, team_code, route_name, step) DO NOTHING`,
			t.docType, t.dept, team, t.route, t.step, t.role, cond, t.proxyType, proxyRole, t.required)
		if err != nil {
			log.Printf("Failed to create template %s/%s/%s step %d: %v", t.docType, t.dept, t.route, t.step, err)
		} else {
			fmt.Printf("Created Template: %s %s/%s route=%s step=%d role=%s\n", t.docType, t.dept, t.team, t.route, t.step, t.role)
		}
	}
}
