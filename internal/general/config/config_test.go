package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bus-fleet/internal/domain/bus"
)

const minimalYAML = `
database:
  user: fleet
  password: secret
  database: fleet
rabbitmq:
  user: guest
  password: guest
`

func TestParse_Defaults(t *testing.T) {
	t.Setenv("API_URL", "")

	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 || cfg.Database.SSLMode != "disable" {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
	if cfg.RabbitMQ.Port != 5672 || cfg.RabbitMQ.VHost != "/" {
		t.Errorf("rabbitmq defaults = %+v", cfg.RabbitMQ)
	}
	if cfg.Services.FleetServicePort != 8008 {
		t.Errorf("fleet port = %d", cfg.Services.FleetServicePort)
	}
	if cfg.Generator.APIURL != "http://localhost:8008/api/bus/passengers" {
		t.Errorf("generator url = %q", cfg.Generator.APIURL)
	}

	plan, err := cfg.Fleet.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Size != 10 || plan.Composition.Size() != 10 {
		t.Errorf("fleet size = %d/%d, want 10", plan.Size, plan.Composition.Size())
	}
	if plan.Capacities[bus.TypeLargeBus] != 50 {
		t.Errorf("large bus capacity = %d", plan.Capacities[bus.TypeLargeBus])
	}
	if rate, _ := plan.Fares.Rate(bus.FareNormal); rate != 45 {
		t.Errorf("normal fare = %d", rate)
	}
}

func TestParse_SizeMismatchIsAnError(t *testing.T) {
	doc := minimalYAML + `
fleet:
  size: 12
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("size 12 against the default composition was accepted")
	}
	if !strings.Contains(err.Error(), "fleet size does not match composition") {
		t.Errorf("err = %v", err)
	}
}

func TestParse_CustomCompositionDerivesSize(t *testing.T) {
	doc := minimalYAML + `
fleet:
  composition:
    - type: bus
      count: 4
    - type: large_bus
      count: 1
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Fleet.Size != 5 {
		t.Errorf("size = %d, want 5", cfg.Fleet.Size)
	}
}

func TestParse_Rejections(t *testing.T) {
	cases := map[string]string{
		"unknown bus type": minimalYAML + `
fleet:
  composition:
    - type: tram
      count: 2
`,
		"unknown fare class": minimalYAML + `
fleet:
  fares:
    student: 20
`,
		"missing db user": `
database:
  password: secret
  database: fleet
rabbitmq:
  user: guest
  password: guest
`,
		"port out of range": minimalYAML + `
services:
  fleet_service: 70000
`,
		"interval order": minimalYAML + `
generator:
  min_interval_seconds: 10
  max_interval_seconds: 2
`,
		"broken yaml": "database: [[[",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("FLEET_DB_PASSWORD", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := strings.Replace(minimalYAML, "password: secret", "password: ${FLEET_DB_PASSWORD}", 1)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Database.Password != "from-env" {
		t.Errorf("password = %q", cfg.Database.Password)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
