package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultProduct names the fee product used when a card has none.
const DefaultProduct = "standard"

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		TableServiceURL     string `yaml:"table_service_url"`
		BlobServiceURL      string `yaml:"blob_service_url"`
		QueueServiceURL     string `yaml:"queue_service_url"`
		CardsTable          string `yaml:"cards_table"`
		TransactionsTable   string `yaml:"transactions_table"`
		StatementsTable     string `yaml:"statements_table"`
		UploadsContainer    string `yaml:"uploads_container"`
		StatementsContainer string `yaml:"statements_container"`
		ImportQueue         string `yaml:"import_queue"`
	} `yaml:"storage"`
	Schedule struct {
		CycleCloseCron string `yaml:"cycle_close_cron"`
	} `yaml:"schedule"`
	Terms    Terms                 `yaml:"terms"`
	Products map[string]FeeProduct `yaml:"products"`
}

// Terms are the account terms applied to cards saved without them.
type Terms struct {
	APR             float64 `yaml:"apr"`
	CycleLengthDays int     `yaml:"cycle_length_days"`
	GracePeriodDays *int    `yaml:"grace_period_days"` // nil means 25; 0 is a valid grace period
	Product         string  `yaml:"product"`
}

// FeeProduct is the YAML form of a card product's fee schedule.
type FeeProduct struct {
	LateFeePct                float64 `yaml:"late_fee_pct"`
	LateFeeFlat               float64 `yaml:"late_fee_flat"`
	LateFeeCap                float64 `yaml:"late_fee_cap"`
	OverlimitFeePct           float64 `yaml:"overlimit_fee_pct"`
	OverlimitFeeFlat          float64 `yaml:"overlimit_fee_flat"`
	ForeignTransFeePct        float64 `yaml:"foreign_trans_fee_pct"`
	CashAdvanceFeePct         float64 `yaml:"cash_advance_fee_pct"`
	CashAdvanceFeeFlatMin     float64 `yaml:"cash_advance_fee_flat_min"`
	BalanceTransferFeePct     float64 `yaml:"balance_transfer_fee_pct"`
	BalanceTransferFeeFlatMin float64 `yaml:"balance_transfer_fee_flat_min"`
	BalanceTransferFeeCap     float64 `yaml:"balance_transfer_fee_cap"`
	AnnualFee                 float64 `yaml:"annual_fee"`
}

// FeeStructure converts the product into engine terms with defaults applied.
func (p FeeProduct) FeeStructure() billing.FeeStructure {
	return billing.FeeStructure{
		LateFeePct:                decimal.NewFromFloat(p.LateFeePct),
		LateFeeFlat:               decimal.NewFromFloat(p.LateFeeFlat),
		LateFeeCap:                decimal.NewFromFloat(p.LateFeeCap),
		OverlimitFeePct:           decimal.NewFromFloat(p.OverlimitFeePct),
		OverlimitFeeFlat:          decimal.NewFromFloat(p.OverlimitFeeFlat),
		ForeignTransFeePct:        decimal.NewFromFloat(p.ForeignTransFeePct),
		CashAdvanceFeePct:         decimal.NewFromFloat(p.CashAdvanceFeePct),
		CashAdvanceFeeFlatMin:     decimal.NewFromFloat(p.CashAdvanceFeeFlatMin),
		BalanceTransferFeePct:     decimal.NewFromFloat(p.BalanceTransferFeePct),
		BalanceTransferFeeFlatMin: decimal.NewFromFloat(p.BalanceTransferFeeFlatMin),
		BalanceTransferFeeCap:     decimal.NewFromFloat(p.BalanceTransferFeeCap),
		AnnualFee:                 decimal.NewFromFloat(p.AnnualFee),
	}.WithDefaults()
}

// standardProduct mirrors billing.DefaultFeeStructure.
var standardProduct = FeeProduct{
	LateFeePct:                5,
	LateFeeFlat:               35,
	LateFeeCap:                40,
	OverlimitFeeFlat:          35,
	ForeignTransFeePct:        3,
	CashAdvanceFeePct:         5,
	CashAdvanceFeeFlatMin:     10,
	BalanceTransferFeePct:     3,
	BalanceTransferFeeFlatMin: 5,
	BalanceTransferFeeCap:     200,
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := readYAML(path, cfg); err != nil {
		return nil, err
	}

	// Environment variable overrides
	if v := os.Getenv("FUNCTIONS_CUSTOMHANDLER_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("TABLE_SERVICE_URL"); v != "" {
		cfg.Storage.TableServiceURL = v
	}
	if v := os.Getenv("BLOB_SERVICE_URL"); v != "" {
		cfg.Storage.BlobServiceURL = v
	}
	if v := os.Getenv("QUEUE_SERVICE_URL"); v != "" {
		cfg.Storage.QueueServiceURL = v
	}
	if v := os.Getenv("CREDIT_CARDS_TABLE"); v != "" {
		cfg.Storage.CardsTable = v
	}
	if v := os.Getenv("TRANSACTIONS_TABLE"); v != "" {
		cfg.Storage.TransactionsTable = v
	}
	if v := os.Getenv("STATEMENTS_TABLE"); v != "" {
		cfg.Storage.StatementsTable = v
	}
	if v := os.Getenv("CYCLE_CLOSE_CRON"); v != "" {
		cfg.Schedule.CycleCloseCron = v
	}
	if v := os.Getenv("DEFAULT_APR"); v != "" {
		apr, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse DEFAULT_APR: %w", err)
		}
		cfg.Terms.APR = apr
	}
	if v := os.Getenv("FEE_CATALOG_PATH"); v != "" {
		var catalog struct {
			Products map[string]FeeProduct `yaml:"products"`
		}
		if err := readYAML(v, &catalog); err != nil {
			return nil, err
		}
		if cfg.Products == nil {
			cfg.Products = map[string]FeeProduct{}
		}
		for name, p := range catalog.Products {
			cfg.Products[name] = p
		}
	}

	// Defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Storage.CardsTable == "" {
		cfg.Storage.CardsTable = "creditcards"
	}
	if cfg.Storage.TransactionsTable == "" {
		cfg.Storage.TransactionsTable = "transactions"
	}
	if cfg.Storage.StatementsTable == "" {
		cfg.Storage.StatementsTable = "statements"
	}
	if cfg.Storage.UploadsContainer == "" {
		cfg.Storage.UploadsContainer = "uploads"
	}
	if cfg.Storage.StatementsContainer == "" {
		cfg.Storage.StatementsContainer = "statements"
	}
	if cfg.Storage.ImportQueue == "" {
		cfg.Storage.ImportQueue = "process-queue"
	}
	if cfg.Terms.CycleLengthDays == 0 {
		cfg.Terms.CycleLengthDays = 30
	}
	if cfg.Terms.GracePeriodDays == nil {
		grace := 25
		cfg.Terms.GracePeriodDays = &grace
	}
	if cfg.Terms.Product == "" {
		cfg.Terms.Product = DefaultProduct
	}
	if _, ok := cfg.Products[DefaultProduct]; !ok {
		if cfg.Products == nil {
			cfg.Products = map[string]FeeProduct{}
		}
		cfg.Products[DefaultProduct] = standardProduct
	}

	return cfg, nil
}

func readYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks that all required fields are set and every fee product is
// usable by the billing engine.
func (c *Config) Validate() error {
	if c.Storage.TableServiceURL == "" {
		return fmt.Errorf("storage.table_service_url is required")
	}
	if c.Storage.BlobServiceURL == "" {
		return fmt.Errorf("storage.blob_service_url is required")
	}
	if c.Storage.QueueServiceURL == "" {
		return fmt.Errorf("storage.queue_service_url is required")
	}
	if c.Terms.APR < 0 {
		return fmt.Errorf("terms.apr must not be negative")
	}
	if c.Terms.CycleLengthDays <= 0 {
		return fmt.Errorf("terms.cycle_length_days must be positive")
	}
	if c.Terms.GracePeriodDays != nil && *c.Terms.GracePeriodDays < 0 {
		return fmt.Errorf("terms.grace_period_days must not be negative")
	}
	if _, ok := c.Products[c.Terms.Product]; !ok {
		return fmt.Errorf("terms.product %q is not in products", c.Terms.Product)
	}
	names := make([]string, 0, len(c.Products))
	for name := range c.Products {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.Products[name].FeeStructure().Validate(); err != nil {
			return fmt.Errorf("products.%s: %w", name, err)
		}
	}
	return nil
}

// FeeStructure returns the fee schedule for a product, falling back to the
// default product when name is empty.
func (c *Config) FeeStructure(name string) (billing.FeeStructure, error) {
	if name == "" {
		name = c.Terms.Product
	}
	p, ok := c.Products[name]
	if !ok {
		return billing.FeeStructure{}, &billing.ConfigurationError{Field: "fee_product", Reason: "unknown product " + name}
	}
	return p.FeeStructure(), nil
}

// ApplyCardDefaults fills unset card terms from the configured defaults.
func (c *Config) ApplyCardDefaults(card *models.CreditCard) {
	if card.APR.IsZero() && c.Terms.APR > 0 {
		card.APR = decimal.NewFromFloat(c.Terms.APR)
	}
	if card.CycleLengthDays == 0 {
		card.CycleLengthDays = c.Terms.CycleLengthDays
	}
	if card.GracePeriodDays == nil && c.Terms.GracePeriodDays != nil {
		grace := *c.Terms.GracePeriodDays
		card.GracePeriodDays = &grace
	}
	if card.FeeProduct == "" {
		card.FeeProduct = c.Terms.Product
	}
}
