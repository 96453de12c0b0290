package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// JWTSecret may be left empty in production, in which case it is loaded
	// from Secret Manager under JWTSecretName.
	JWTSecret     string `envconfig:"JWT_SECRET"`
	JWTSecretName string `envconfig:"JWT_SECRET_NAME" default:"entitlements-jwt-secret"`

	// Pub/Sub settings
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST"`
	EventsTopic        string `envconfig:"EVENTS_TOPIC" default:"entitlement-events"`

	// Rollover sweep push endpoint settings
	SweepEndpointURL              string `envconfig:"SWEEP_ENDPOINT_URL"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`

	// Report export storage settings
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"report-exports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
