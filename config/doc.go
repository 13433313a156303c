// Package config loads the family worker configuration from defaults, an
// optional YAML file, a .env file and FAMILYSTORE_* environment variables.
package config
