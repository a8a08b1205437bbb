package settings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	// Try to load .env from project root
	_ = godotenv.Load("../.env")

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5433"
	}
	user := os.Getenv("DB_USER")
	if user == "" {
		user = "root"
	}
	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		password = "soa123"
	}
	dbname := os.Getenv("DB_NAME")
	if dbname == "" {
		dbname = "db01"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Skip("Postgres not available, skipping integration test:", err)
		return nil
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skip("Postgres not reachable, skipping integration test:", err)
		return nil
	}
	return db
}

func TestIntegrationSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := New(db, "pivot_settings_test")
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.ExecContext(ctx, "DROP TABLE IF EXISTS pivot_settings_test")

	type pref struct {
		Report string `json:"report"`
		Lang   string `json:"lang"`
	}

	if err := store.Put(ctx, "sales", "last_report", pref{Report: "by_region", Lang: "en"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// Upsert path: same key again, new value
	if err := store.Put(ctx, "sales", "last_report", pref{Report: "by_product", Lang: "hu"}); err != nil {
		t.Fatalf("Put (upsert) failed: %v", err)
	}

	var got pref
	found, err := store.Get(ctx, "sales", "last_report", &got)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("Expected last_report to exist")
	}
	if got.Report != "by_product" || got.Lang != "hu" {
		t.Errorf("Expected upserted value, got %+v", got)
	}

	found, err = store.Get(ctx, "sales", "missing", &got)
	if err != nil {
		t.Fatalf("Get of absent key failed: %v", err)
	}
	if found {
		t.Error("Expected missing key to report not found")
	}

	all, err := store.List(ctx, "sales")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if _, ok := all["last_report"]; !ok {
		t.Errorf("Expected last_report in listing, got %v", all)
	}

	if err := store.Delete(ctx, "sales", "last_report"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "sales", "last_report"); err != nil {
		t.Errorf("Deleting an absent key should not error, got %v", err)
	}
	found, _ = store.Get(ctx, "sales", "last_report", &got)
	if found {
		t.Error("Expected last_report to be gone after delete")
	}
}
