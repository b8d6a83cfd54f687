package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"bus-fleet/internal/domain/bus"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Services  ServicesConfig  `yaml:"services"`
	Fleet     FleetConfig     `yaml:"fleet"`
	Generator GeneratorConfig `yaml:"generator"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password" validate:"required"`
	Name     string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password" validate:"required"`
	VHost    string `yaml:"vhost"`
}

type ServicesConfig struct {
	FleetServicePort int `yaml:"fleet_service" validate:"min=1,max=65535"`
}

// FleetConfig describes the seeded fleet and its tariffs.
type FleetConfig struct {
	Size        int               `yaml:"size" validate:"gt=0"`
	Composition []AllocationEntry `yaml:"composition" validate:"required,min=1,dive"`
	Capacities  map[string]int    `yaml:"capacities" validate:"required,dive,keys,required,endkeys,gt=0"`
	Fares       map[string]int64  `yaml:"fares" validate:"required,dive,keys,required,endkeys,gte=0"`
}

// AllocationEntry is one `{type, count}` row of the fleet composition.
type AllocationEntry struct {
	Type  string `yaml:"type" validate:"required"`
	Count int    `yaml:"count" validate:"gt=0"`
}

// GeneratorConfig drives the random arrival generator.
type GeneratorConfig struct {
	APIURL             string `yaml:"api_url" validate:"required,url"`
	MinPassengers      int    `yaml:"min_passengers" validate:"gte=0"`
	MaxPassengers      int    `yaml:"max_passengers" validate:"gtefield=MinPassengers"`
	MinIntervalSeconds int    `yaml:"min_interval_seconds" validate:"gte=0"`
	MaxIntervalSeconds int    `yaml:"max_interval_seconds" validate:"gtefield=MinIntervalSeconds"`
}

// FleetPlan is the domain view of FleetConfig.
type FleetPlan struct {
	Size        int
	Composition bus.Composition
	Capacities  bus.CapacityTable
	Fares       bus.FareTable
}

// LoadFromFile loads config from a YAML file, expands ${ENV} references, applies defaults, and validates.
func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML document.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}
	if cfg.RabbitMQ.VHost == "" {
		cfg.RabbitMQ.VHost = "/"
	}

	// Services
	if cfg.Services.FleetServicePort == 0 {
		cfg.Services.FleetServicePort = 8008
	}

	// Fleet
	if len(cfg.Fleet.Composition) == 0 {
		for _, a := range bus.DefaultComposition() {
			cfg.Fleet.Composition = append(cfg.Fleet.Composition, AllocationEntry{Type: a.Type.String(), Count: a.Count})
		}
	}
	if cfg.Fleet.Size == 0 {
		for _, entry := range cfg.Fleet.Composition {
			cfg.Fleet.Size += entry.Count
		}
	}
	if len(cfg.Fleet.Capacities) == 0 {
		cfg.Fleet.Capacities = make(map[string]int)
		for t, c := range bus.DefaultCapacities() {
			cfg.Fleet.Capacities[t.String()] = c
		}
	}
	if len(cfg.Fleet.Fares) == 0 {
		cfg.Fleet.Fares = make(map[string]int64)
		for class, rate := range bus.DefaultFares() {
			cfg.Fleet.Fares[string(class)] = rate
		}
	}

	// Generator; API_URL keeps working the way the standalone generator always read it
	if url := strings.TrimSpace(os.Getenv("API_URL")); url != "" && cfg.Generator.APIURL == "" {
		cfg.Generator.APIURL = url
	}
	if cfg.Generator.APIURL == "" {
		cfg.Generator.APIURL = fmt.Sprintf("http://localhost:%d/api/bus/passengers", cfg.Services.FleetServicePort)
	}
	if cfg.Generator.MinPassengers == 0 && cfg.Generator.MaxPassengers == 0 {
		cfg.Generator.MinPassengers, cfg.Generator.MaxPassengers = 1, 15
	}
	if cfg.Generator.MinIntervalSeconds == 0 && cfg.Generator.MaxIntervalSeconds == 0 {
		cfg.Generator.MinIntervalSeconds, cfg.Generator.MaxIntervalSeconds = 5, 15
	}
}

// validate checks struct tags first, then the cross-field fleet rules.
func (c *Config) validate() error {
	v := validator.New()
	var problems []string

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if _, err := c.Fleet.Plan(); err != nil {
		problems = append(problems, "fleet: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Plan converts FleetConfig into domain types and checks that the composition,
// capacities, fares and declared size agree with each other.
func (f FleetConfig) Plan() (FleetPlan, error) {
	plan := FleetPlan{
		Size:       f.Size,
		Capacities: make(bus.CapacityTable, len(f.Capacities)),
		Fares:      make(bus.FareTable, len(f.Fares)),
	}

	for name, capacity := range f.Capacities {
		t, err := bus.ParseBusType(name)
		if err != nil {
			return FleetPlan{}, fmt.Errorf("capacities: %w: %q", err, name)
		}
		plan.Capacities[t] = capacity
	}
	for name, rate := range f.Fares {
		class, err := bus.ParseFareClass(name)
		if err != nil {
			return FleetPlan{}, fmt.Errorf("fares: %w: %q", err, name)
		}
		plan.Fares[class] = rate
	}
	if _, err := plan.Fares.Rate(bus.FareNormal); err != nil {
		return FleetPlan{}, fmt.Errorf("fares: %w", err)
	}

	for i, entry := range f.Composition {
		t, err := bus.ParseBusType(entry.Type)
		if err != nil {
			return FleetPlan{}, fmt.Errorf("composition[%d]: %w: %q", i, err, entry.Type)
		}
		plan.Composition = append(plan.Composition, bus.Allocation{Type: t, Count: entry.Count})
	}
	if err := plan.Composition.Check(f.Size, plan.Capacities); err != nil {
		return FleetPlan{}, err
	}

	return plan, nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
