package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Deployment modes for the DynamoDB backend.
const (
	ModeProd = "PROD"
	ModeDev  = "DEV"
)

type Config struct {
	// HTTP Server
	Port string

	// DynamoDB
	DBMode           string
	AWSRegion        string
	DynamoDBEndpoint string
	LoginTable       string
	ExpenseTable     string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// AMQP (optional expense export pipeline)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export target (optional)
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DBMode:           strings.ToUpper(getEnv("DB_MODE", ModeProd)),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		DynamoDBEndpoint: getEnv("DYNAMODB_URL", "http://localhost:8000"),
		LoginTable:       getEnv("LOGIN_TABLE_NAME", "LOGIN"),
		ExpenseTable:     getEnv("EXPENSE_TABLE_NAME", "USER_EXPENSES"),

		// Placeholder signing key, overridable but not required by the
		// current deployment setup.
		SessionSecret: getEnv("SESSION_SECRET", "terptracker_msml"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "terptracker"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "export_expenses"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Expenses"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBMode {
	case ModeProd, ModeDev:
	default:
		errors = append(errors, fmt.Sprintf("invalid db mode '%s': must be one of [%s %s]", c.DBMode, ModeProd, ModeDev))
	}

	if c.DBMode == ModeDev && c.DynamoDBEndpoint == "" {
		errors = append(errors, "DynamoDB endpoint URL cannot be empty in DEV mode")
	}

	if c.LoginTable == "" {
		errors = append(errors, "login table name cannot be empty")
	}
	if c.ExpenseTable == "" {
		errors = append(errors, "expense table name cannot be empty")
	}

	if c.SessionSecret == "" {
		errors = append(errors, "session secret cannot be empty")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name cannot be empty when a spreadsheet ID is provided")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
