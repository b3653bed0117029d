package dashboard

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"droneops-dispatch/internal/telemetry"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Tables names the GreptimeDB tables the dashboards query.
type Tables struct {
	Positions string
	Alerts    string
	Missions  string
	State     string
}

// DefaultTables returns the tables the GreptimeDB writer fills.
func DefaultTables() Tables {
	return Tables{
		Positions: telemetry.PositionTableName,
		Alerts:    telemetry.AlertTableName,
		Missions:  telemetry.MissionEventTableName,
		State:     telemetry.StateTableName,
	}
}

// Render parses the dashboard templates and writes rendered Grafana
// dashboards to outDir. The datasource uid comes from
// GREPTIMEDB_DATASOURCE_UID. It returns the written paths.
func Render(outDir, cluster string, tables Tables) ([]string, error) {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	names, err := fs.Glob(templates, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	data := struct {
		Cluster string
		Tables  Tables
	}{cluster, tables}

	var written []string
	for _, name := range names {
		t, err := template.New(filepath.Base(name)).Funcs(funcMap).ParseFS(templates, name)
		if err != nil {
			return written, err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(name), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return written, err
		}
		if err := t.Execute(f, data); err != nil {
			f.Close()
			return written, fmt.Errorf("render %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return written, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
