package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/willjksn/echoflux/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Auth       AuthConfig       `validate:"required"`
	Stripe     StripeConfig     `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Postgres   PostgresConfig
	Email      EmailConfig
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	// Mode selects the provider credential space (test or live). It is read once
	// at process start; nothing else consults environment state for this.
	Mode types.KeyMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type AuthConfig struct {
	// Secret verifies the HS256 bearer tokens issued by the identity service
	Secret string `validate:"required"`
	Issuer string
}

type StripeConfig struct {
	SecretKey     string `validate:"required"`
	WebhookSecret string `validate:"required"`
}

// BillingConfig is the static price catalog: provider price ids per plan and
// cycle for the active key mode, plus the fixed annual totals promised for
// plans whose discounted annual price diverges from 12x monthly.
type BillingConfig struct {
	Plans map[string]PlanPricing `validate:"required"`

	// AdminEmails receive best-effort payment failure alerts
	AdminEmails []string
}

type PlanPricing struct {
	MonthlyPriceID string
	AnnualPriceID  string

	// AnnualTotalCents, when non-zero, is the fixed annual total in minor
	// currency units. The annual price id for such plans is resolved through
	// the override cache instead of the catalog.
	AnnualTotalCents int64

	// Monthly usage allowances reset at the start of each paid period
	MonthlyPostLimit    int
	MonthlyCaptionLimit int
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type EmailConfig struct {
	Enabled     bool
	APIKey      string
	FromAddress string
	ReplyTo     string
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/echoflux")

	v.SetEnvPrefix("ECHOFLUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c Configuration) Validate() error {
	if !c.Deployment.Mode.Validate() {
		return fmt.Errorf("invalid deployment mode: %s", c.Deployment.Mode)
	}
	validate := validator.New()
	return validate.Struct(c)
}

// PlanPricing returns the catalog entry for a plan, if one exists. The lookup
// is case-insensitive because viper lowercases map keys on unmarshal.
func (c BillingConfig) PlanPricing(plan types.PlanName) (PlanPricing, bool) {
	if pricing, ok := c.Plans[string(plan)]; ok {
		return pricing, true
	}
	for name, pricing := range c.Plans {
		if strings.EqualFold(name, string(plan)) {
			return pricing, true
		}
	}
	return PlanPricing{}, false
}

// PlanForPrice reverse-maps a provider price id to the catalog plan and cycle
// it belongs to. Override prices are not in the catalog and resolve elsewhere.
func (c BillingConfig) PlanForPrice(priceID string) (types.PlanName, types.BillingCycle, bool) {
	if priceID == "" {
		return "", "", false
	}
	for name, pricing := range c.Plans {
		plan, ok := types.PlanNameFromString(name)
		if !ok {
			continue
		}
		switch priceID {
		case pricing.MonthlyPriceID:
			return plan, types.BillingCycleMonthly, true
		case pricing.AnnualPriceID:
			return plan, types.BillingCycleAnnually, true
		}
	}
	return "", "", false
}

// GetDefaultConfig returns a default configuration for local development and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.KeyModeTest},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
		Auth:       AuthConfig{Secret: "test-secret-for-unit-tests-only"},
		Stripe: StripeConfig{
			SecretKey:     "sk_test_dummy",
			WebhookSecret: "whsec_dummy",
		},
		Billing: BillingConfig{
			Plans: map[string]PlanPricing{
				string(types.PlanStarter): {
					MonthlyPriceID:      "price_starter_monthly",
					AnnualPriceID:       "price_starter_annual",
					MonthlyPostLimit:    30,
					MonthlyCaptionLimit: 50,
				},
				string(types.PlanPro): {
					MonthlyPriceID:      "price_pro_monthly",
					AnnualTotalCents:    19900,
					MonthlyPostLimit:    120,
					MonthlyCaptionLimit: 300,
				},
				string(types.PlanElite): {
					MonthlyPriceID:      "price_elite_monthly",
					AnnualTotalCents:    49900,
					MonthlyPostLimit:    400,
					MonthlyCaptionLimit: 1000,
				},
				string(types.PlanAgency): {
					MonthlyPriceID:      "price_agency_monthly",
					AnnualPriceID:       "price_agency_annual",
					MonthlyPostLimit:    2000,
					MonthlyCaptionLimit: 5000,
				},
			},
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
