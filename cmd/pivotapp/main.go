package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gnemet/pivotgrid"
	"github.com/gnemet/pivotgrid/database/rowsource"
	"github.com/gnemet/pivotgrid/export"
	"github.com/gnemet/pivotgrid/settings"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Application struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"application"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database []struct {
		Name     string `yaml:"name"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		Schema   string `yaml:"schema"`
		Default  bool   `yaml:"default"`
	} `yaml:"database"`
	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`
	Export struct {
		CSVChunkSize int `yaml:"csv_chunk_size"`
	} `yaml:"export"`
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load() // Ignore error as it might not exist in prod

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, err
	}

	// Expand env vars in YAML
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	cfg    *Config
	source *rowsource.Source
	store  *settings.Store
)

func main() {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var dbCfg struct {
		Host, Port, User, Password, Database, Schema string
	}
	for _, d := range cfg.Database {
		if d.Default {
			dbCfg.Host = d.Host
			dbCfg.Port = d.Port
			dbCfg.User = d.User
			dbCfg.Password = d.Password
			dbCfg.Database = d.Database
			dbCfg.Schema = d.Schema
			break
		}
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable search_path=%s,public",
		dbCfg.Host, dbCfg.Port, dbCfg.User, dbCfg.Password, dbCfg.Database, dbCfg.Schema)

	source, err = rowsource.Open(connStr, 10, 5*time.Minute, 30*time.Minute)
	if err != nil {
		log.Fatalf("Failed to open row source: %v", err)
	}
	defer source.Close()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	store = settings.New(db, "")
	if err := store.Init(context.Background()); err != nil {
		log.Fatalf("Failed to init settings store: %v", err)
	}

	http.HandleFunc("/pivot", func(w http.ResponseWriter, r *http.Request) {
		res, _, err := buildFromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	})

	http.HandleFunc("/export/xlsx", func(w http.ResponseWriter, r *http.Request) {
		res, report, err := buildFromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", report.Name))
		if err := export.WriteXLSX(w, res, export.XLSXOptions{SheetName: report.Name}); err != nil {
			log.Printf("xlsx export failed: %v", err)
		}
	})

	http.HandleFunc("/export/csv", func(w http.ResponseWriter, r *http.Request) {
		res, report, err := buildFromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", report.Name))
		opts := export.CSVOptions{ChunkSize: cfg.Export.CSVChunkSize}
		if err := export.WriteCSV(r.Context(), w, res, opts); err != nil {
			log.Printf("csv export failed: %v", err)
		}
	})

	fmt.Printf("Server starting at http://localhost:%s\n", cfg.Server.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, nil))
}

// buildFromRequest resolves catalog/report/lang query params, fetches the
// datasets and runs the pivot.
func buildFromRequest(r *http.Request) (*pivotgrid.PivotResult, *pivotgrid.Report, error) {
	q := r.URL.Query()
	catName := q.Get("config")
	if catName == "" {
		catName = "sales"
	}
	lang := q.Get("lang")
	if lang == "" {
		lang = "en"
	}

	catPath := filepath.Join(cfg.Catalog.Path, catName+".json")
	report, err := pivotgrid.NewReportFromCatalog(catPath, q.Get("report"), lang)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load catalog %s: %w", catName, err)
	}

	ctx := r.Context()
	rows, err := source.FetchDataset(ctx, report.Worksheet)
	if err != nil {
		return nil, nil, err
	}
	rowTotals, colTotals, err := source.FetchTotals(ctx, report.Worksheet)
	if err != nil {
		return nil, nil, err
	}

	res, err := report.Build(rows, rowTotals, colTotals)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Unmapped) > 0 {
		log.Printf("report %s: unmapped columns: %v", report.Name, res.Unmapped)
	}

	if err := store.Put(ctx, report.Worksheet, "last_report", report.Name); err != nil {
		log.Printf("failed to persist last_report: %v", err)
	}
	return res, report, nil
}
